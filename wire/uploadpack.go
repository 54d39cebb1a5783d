package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/refstore"
)

// UploadPackCapabilities are the capabilities this server advertises for
// git-upload-pack. No multi_ack/side-band/thin-pack: the negotiation this
// package implements always answers with the exact object closure in one
// shot, which needs none of those.
var UploadPackCapabilities = []string{"ofs-delta"}

// UploadPackAdvertise writes the advertised-refs message that opens a
// git-upload-pack session: every ref currently in refs, HEAD resolved if
// present, terminated by a flush-pkt.
func UploadPackAdvertise(w io.Writer, refs *refstore.RefStore) error {
	a, err := AdvertiseRefs(refs, UploadPackCapabilities)
	if err != nil {
		return err
	}
	return a.Encode(w)
}

// UploadPackRequest is a decoded upload-request: the client's wants and
// haves plus whether it signalled "done" (no further negotiation rounds).
type UploadPackRequest struct {
	Wants []plumbing.OID
	Haves []plumbing.OID
	Done  bool
}

// DecodeUploadPackRequest reads a "want <oid>..." / "have <oid>..." /
// "done" exchange, stopping at "done" or a flush-pkt; input that ends
// before either is a parse error. It only supports the
// simple one-round negotiation this package's UploadPackPack answers:
// every want line up front, then every have line, then "done".
func DecodeUploadPackRequest(r io.Reader) (*UploadPackRequest, error) {
	req := &UploadPackRequest{}

	for {
		length, line, err := ReadPacketLine(r)
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeUploadPackRequest", err)
		}
		if length == Flush {
			break
		}
		switch {
		case bytes.HasPrefix(line, []byte("want ")):
			oid, err := parseOIDWord(line[len("want "):])
			if err != nil {
				return nil, err
			}
			req.Wants = append(req.Wants, oid)
		case bytes.HasPrefix(line, []byte("have ")):
			oid, err := parseOIDWord(line[len("have "):])
			if err != nil {
				return nil, err
			}
			req.Haves = append(req.Haves, oid)
		case bytes.Equal(line, []byte("done")):
			req.Done = true
			return req, nil
		default:
			return nil, errkind.New(errkind.ParseError, "wire.DecodeUploadPackRequest", fmt.Errorf("unexpected line %q", line))
		}
	}

	return req, nil
}

func parseOIDWord(line []byte) (plumbing.OID, error) {
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return plumbing.OID{}, errkind.New(errkind.ParseError, "wire.parseOIDWord", fmt.Errorf("missing oid"))
	}
	oid, err := plumbing.FromHex(string(fields[0]))
	if err != nil {
		return plumbing.OID{}, errkind.New(errkind.ParseError, "wire.parseOIDWord", err)
	}
	return oid, nil
}

// UploadPackPack answers a negotiation with "NAK" followed by a packfile
// containing every object reachable from req.Wants but not from
// req.Haves. This always sends a full answer in one round (no
// multi_ack incremental negotiation).
func UploadPackPack(w io.Writer, db *odb.DB, req *UploadPackRequest) error {
	have, err := closure(db, req.Haves, nil)
	if err != nil {
		return err
	}
	want, err := closure(db, req.Wants, have)
	if err != nil {
		return err
	}

	oids := make([]plumbing.OID, 0, len(want))
	for oid := range want {
		oids = append(oids, oid)
	}
	plumbing.SortOIDs(oids)

	if err := WritePacketString(w, "NAK\n"); err != nil {
		return err
	}

	_, err = packfile.WritePack(w, db.Format(), db, oids)
	return err
}
