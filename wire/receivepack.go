package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/repository"
)

// ReceivePackCapabilities are the capabilities this server advertises
// for git-receive-pack.
var ReceivePackCapabilities = []string{"report-status", "ofs-delta"}

// ReceivePackAdvertise writes the advertised-refs message that opens a
// git-receive-pack session.
func ReceivePackAdvertise(w io.Writer, refs *refstore.RefStore) error {
	a, err := AdvertiseRefs(refs, ReceivePackCapabilities)
	if err != nil {
		return err
	}
	return a.Encode(w)
}

// Command is one ref update a push asks the server to perform: move Name
// from Old to New, where a zero OID on either side means create/delete.
type Command struct {
	Name refstore.ReferenceName
	Old  plumbing.OID
	New  plumbing.OID
}

// DecodeCommands reads the update-requests section of a receive-pack
// session: one "<old> <new> <name>" line per ref, the first one carrying
// a NUL-separated capability list, terminated by a flush-pkt.
func DecodeCommands(r io.Reader) ([]*Command, error) {
	var cmds []*Command

	for {
		length, line, err := ReadPacketLine(r)
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeCommands", err)
		}
		if length == Flush {
			break
		}
		if len(cmds) == 0 {
			if i := bytes.IndexByte(line, 0); i >= 0 {
				line = line[:i]
			}
		}

		fields := bytes.Fields(line)
		if len(fields) != 3 {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeCommands", fmt.Errorf("malformed command line %q", line))
		}
		old, err := plumbing.FromHex(string(fields[0]))
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeCommands", err)
		}
		nw, err := plumbing.FromHex(string(fields[1]))
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "wire.DecodeCommands", err)
		}
		cmds = append(cmds, &Command{Name: refstore.ReferenceName(fields[2]), Old: old, New: nw})
	}

	return cmds, nil
}

// EncodeCommands writes the update-requests section for cmds, the push-side
// counterpart to DecodeCommands.
func EncodeCommands(w io.Writer, cmds []*Command, caps []string) error {
	if len(cmds) == 0 {
		return WriteFlush(w)
	}
	capLine := ""
	for i, c := range caps {
		if i == 0 {
			capLine = c
		} else {
			capLine += " " + c
		}
	}
	for i, c := range cmds {
		line := fmt.Sprintf("%s %s %s", c.Old, c.New, c.Name)
		if i == 0 {
			line += "\x00" + capLine
		}
		if err := WritePacketString(w, line+"\n"); err != nil {
			return err
		}
	}
	return WriteFlush(w)
}

// ReceivePackUnpack consumes the pack stream following an update-requests
// section (the remainder of r), stores it through repo's backend, and
// applies every command against repo's ref store in order, reporting one
// status per command.
func ReceivePackUnpack(r io.Reader, repo *repository.Repository, cmds []*Command) *ReportStatus {
	status := &ReportStatus{UnpackStatus: "ok"}

	if len(cmds) == 0 {
		return status
	}

	if _, err := repo.Backend.WritePack(r, repo.DB.Format()); err != nil {
		status.UnpackStatus = err.Error()
		for _, c := range cmds {
			status.Commands = append(status.Commands, &CommandStatus{Name: c.Name, Status: "unpack failed"})
		}
		return status
	}

	refs := repo.Refs
	for _, c := range cmds {
		cs := &CommandStatus{Name: c.Name, Status: "ok"}
		if c.New.IsZero() {
			if err := refs.RemoveReference(c.Name); err != nil {
				cs.Status = err.Error()
			}
		} else {
			var old *refstore.Reference
			if !c.Old.IsZero() {
				old = refstore.NewHashReference(c.Name, c.Old)
			}
			newRef := refstore.NewHashReference(c.Name, c.New)
			var err error
			if old != nil {
				err = refs.CheckAndSetReference(newRef, old)
			} else {
				err = refs.SetReference(newRef)
			}
			if err != nil {
				cs.Status = err.Error()
			}
		}
		status.Commands = append(status.Commands, cs)
	}

	return status
}
