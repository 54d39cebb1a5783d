package wire

import (
	"fmt"
	"io"

	"github.com/opencore/gitcore/refstore"
)

// CommandStatus is one ref update's outcome, "ok" or a failure reason.
type CommandStatus struct {
	Name   refstore.ReferenceName
	Status string
}

func (c *CommandStatus) encode(w io.Writer) error {
	if c.Status == "ok" {
		return WritePacketString(w, fmt.Sprintf("ok %s\n", c.Name))
	}
	return WritePacketString(w, fmt.Sprintf("ng %s %s\n", c.Name, c.Status))
}

// ReportStatus is the report-status message a git-receive-pack session
// answers a push with: whether unpacking the pack stream succeeded,
// followed by one line per ref update.
type ReportStatus struct {
	UnpackStatus string
	Commands     []*CommandStatus
}

// Encode writes the report-status message as pkt-lines, terminated by a
// flush-pkt.
func (s *ReportStatus) Encode(w io.Writer) error {
	if err := WritePacketString(w, fmt.Sprintf("unpack %s\n", s.UnpackStatus)); err != nil {
		return err
	}
	for _, c := range s.Commands {
		if err := c.encode(w); err != nil {
			return err
		}
	}
	return WriteFlush(w)
}

// Err returns the first failure found in the report, or nil if unpacking
// and every command succeeded.
func (s *ReportStatus) Err() error {
	if s.UnpackStatus != "ok" {
		return fmt.Errorf("wire: unpack failed: %s", s.UnpackStatus)
	}
	for _, c := range s.Commands {
		if c.Status != "ok" {
			return fmt.Errorf("wire: command failed on %s: %s", c.Name, c.Status)
		}
	}
	return nil
}
