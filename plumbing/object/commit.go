package object

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

// Commit is the parsed form of a commit object. Header
// order on encode is fixed: tree, parent(s) in given order, author,
// committer, optional gpgsig, blank line, message.
type Commit struct {
	Tree      plumbing.OID
	Parents   []plumbing.OID
	Author    Signature
	Committer Signature
	Message   string
	GPGSig    string // empty if absent
}

// Encode renders the commit to its payload bytes.
func (c *Commit) Encode() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.Encode())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.Encode())
	if c.GPGSig != "" {
		fmt.Fprintf(&buf, "gpgsig %s\n", indentGPGSig(c.GPGSig))
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes(), nil
}

// DecodeCommit parses a commit payload into its Commit representation.
func DecodeCommit(payload []byte) (*Commit, error) {
	lines := strings.Split(string(payload), "\n")
	c := &Commit{}
	i := 0
	var gpgLines []string
	inGPG := false
	for ; i < len(lines); i++ {
		line := lines[i]
		if inGPG && strings.HasPrefix(line, " ") {
			gpgLines = append(gpgLines, line)
			continue
		}
		if inGPG {
			inGPG = false
			c.GPGSig = dedentGPGSig(gpgLines)
		}
		if line == "" {
			i++
			break
		}
		switch {
		case strings.HasPrefix(line, "tree "):
			oid, err := plumbing.FromHex(strings.TrimPrefix(line, "tree "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "commit.Decode", err).WithData(errkind.DataParseError{Expected: "tree <oid>", Actual: line})
			}
			c.Tree = oid
		case strings.HasPrefix(line, "parent "):
			oid, err := plumbing.FromHex(strings.TrimPrefix(line, "parent "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "commit.Decode", err).WithData(errkind.DataParseError{Expected: "parent <oid>", Actual: line})
			}
			c.Parents = append(c.Parents, oid)
		case strings.HasPrefix(line, "author "):
			sig, err := DecodeSignature(strings.TrimPrefix(line, "author "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "commit.Decode", err)
			}
			c.Author = sig
		case strings.HasPrefix(line, "committer "):
			sig, err := DecodeSignature(strings.TrimPrefix(line, "committer "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "commit.Decode", err)
			}
			c.Committer = sig
		case strings.HasPrefix(line, "gpgsig "):
			inGPG = true
			gpgLines = []string{strings.TrimPrefix(line, "gpgsig ")}
		default:
			return nil, errkind.New(errkind.ParseError, "commit.Decode", fmt.Errorf("unrecognized header %q", line)).WithData(errkind.DataParseError{Expected: "known commit header", Actual: line})
		}
	}
	if inGPG {
		c.GPGSig = dedentGPGSig(gpgLines)
	}
	c.Message = strings.Join(lines[i:], "\n")
	return c, nil
}
