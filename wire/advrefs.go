package wire

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/refstore"
)

// Service names the two smart-protocol services this package advertises
// references for.
type Service string

const (
	UploadPackService  Service = "git-upload-pack"
	ReceivePackService Service = "git-receive-pack"
)

var noHeadMark = []byte("capabilities^{}")

// AdvRefs is the parsed form of the advertised-refs message that opens
// both git-upload-pack and git-receive-pack: a ref name/OID map plus the
// server's capability list, with HEAD broken out since it's the one ref
// a client resolves to a symref rather than a plain name.
type AdvRefs struct {
	Head         *plumbing.OID
	Capabilities []string
	References   map[refstore.ReferenceName]plumbing.OID
}

// AdvertiseRefs builds the AdvRefs message for every reference currently
// in refs, resolving HEAD if present.
func AdvertiseRefs(refs *refstore.RefStore, caps []string) (*AdvRefs, error) {
	a := &AdvRefs{
		Capabilities: caps,
		References:   make(map[refstore.ReferenceName]plumbing.OID),
	}

	if err := refs.IterReferences(func(r *refstore.Reference) error {
		if r.Type() == refstore.HashReference {
			a.References[r.Name()] = r.Hash()
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if head, err := refs.Resolve(refstore.HEAD); err == nil {
		oid := head.Hash()
		a.Head = &oid
	} else if !isNotFoundErr(err) {
		return nil, err
	}

	return a, nil
}

// Encode writes the advertised-refs message as pkt-lines: the first line
// carries the OID and capability list, one line per remaining ref,
// terminated by a flush-pkt. An empty repository advertises the
// zero-OID under the synthetic "capabilities^{}" ref name, matching real
// Git's convention for signalling "no refs yet" while still sending
// capabilities.
func (a *AdvRefs) Encode(w io.Writer) error {
	names := make([]refstore.ReferenceName, 0, len(a.References))
	for name := range a.References {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	capLine := strings.Join(a.Capabilities, " ")

	if len(names) == 0 {
		line := fmt.Sprintf("%s %s\x00%s\n", plumbing.ZeroOID, noHeadMark, capLine)
		if err := WritePacketString(w, line); err != nil {
			return err
		}
		return WriteFlush(w)
	}

	first := names[0]
	oid := a.References[first]
	first0 := fmt.Sprintf("%s %s\x00%s\n", oid, first, capLine)
	if a.Head != nil {
		first0 = fmt.Sprintf("%s %s\x00%s\n", *a.Head, refstore.HEAD, capLine)
	}
	if err := WritePacketString(w, first0); err != nil {
		return err
	}

	if a.Head != nil {
		if err := WritePacketString(w, fmt.Sprintf("%s %s\n", oid, first)); err != nil {
			return err
		}
	}

	for _, name := range names[1:] {
		line := fmt.Sprintf("%s %s\n", a.References[name], name)
		if err := WritePacketString(w, line); err != nil {
			return err
		}
	}

	return WriteFlush(w)
}

// DecodeAdvRefs parses an advertised-refs message previously written by
// Encode.
func DecodeAdvRefs(r io.Reader) (*AdvRefs, error) {
	a := &AdvRefs{References: make(map[refstore.ReferenceName]plumbing.OID)}

	_, line, err := ReadPacketLine(r)
	if err != nil {
		return nil, errkind.New(errkind.ParseError, "wire.DecodeAdvRefs", err)
	}

	oidText, rest, ok := cutSpace(line)
	if !ok {
		return nil, errkind.New(errkind.ParseError, "wire.DecodeAdvRefs", fmt.Errorf("malformed first line"))
	}
	nameText, capText, _ := bytesCut(rest, 0)

	oid, err := plumbing.FromHex(string(oidText))
	if err != nil {
		return nil, errkind.New(errkind.ParseError, "wire.DecodeAdvRefs", err)
	}
	a.Capabilities = strings.Fields(string(capText))

	if !bytes.Equal(nameText, noHeadMark) {
		name := refstore.ReferenceName(nameText)
		if name == refstore.HEAD {
			a.Head = &oid
		} else {
			a.References[name] = oid
		}
	}

	for {
		length, line, err := ReadPacketLine(r)
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeAdvRefs", err)
		}
		if length == Flush {
			break
		}
		oidText, nameText, ok := cutSpace(line)
		if !ok {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeAdvRefs", fmt.Errorf("malformed ref line %q", line))
		}
		oid, err := plumbing.FromHex(string(oidText))
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeAdvRefs", err)
		}
		name := refstore.ReferenceName(nameText)
		if name == refstore.HEAD {
			a.Head = &oid
			continue
		}
		a.References[name] = oid
	}

	return a, nil
}

func cutSpace(line []byte) (before, after []byte, ok bool) {
	i := bytes.IndexByte(line, ' ')
	if i < 0 {
		return nil, nil, false
	}
	return line[:i], line[i+1:], true
}

func bytesCut(line []byte, sep byte) (before, after []byte, found bool) {
	i := bytes.IndexByte(line, sep)
	if i < 0 {
		return line, nil, false
	}
	return line[:i], line[i+1:], true
}

func isNotFoundErr(err error) bool {
	e, ok := err.(*errkind.Error)
	return ok && e.Kind == errkind.NotFound
}
