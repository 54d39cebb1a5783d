package object

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

// Tag is the parsed form of an annotated tag object.
type Tag struct {
	Object  plumbing.OID
	Type    plumbing.ObjectType
	Name    string
	Tagger  Signature
	Message string
	GPGSig  string
}

// Encode renders the tag to its payload bytes; header order mirrors
// commits: object, type, tag, tagger, optional gpgsig, blank line, message.
func (t *Tag) Encode() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Object)
	fmt.Fprintf(&buf, "type %s\n", t.Type)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger.Encode())
	if t.GPGSig != "" {
		fmt.Fprintf(&buf, "gpgsig %s\n", indentGPGSig(t.GPGSig))
	}
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes(), nil
}

// DecodeTag parses a tag payload into its Tag representation.
func DecodeTag(payload []byte) (*Tag, error) {
	lines := strings.Split(string(payload), "\n")
	t := &Tag{}
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
			t.GPGSig = dedentGPGSig(gpgLines)
		}
		if line == "" {
			i++
			break
		}
		switch {
		case strings.HasPrefix(line, "object "):
			oid, err := plumbing.FromHex(strings.TrimPrefix(line, "object "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "tag.Decode", err)
			}
			t.Object = oid
		case strings.HasPrefix(line, "type "):
			ot, err := plumbing.ParseObjectType(strings.TrimPrefix(line, "type "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "tag.Decode", err)
			}
			t.Type = ot
		case strings.HasPrefix(line, "tag "):
			t.Name = strings.TrimPrefix(line, "tag ")
		case strings.HasPrefix(line, "tagger "):
			sig, err := DecodeSignature(strings.TrimPrefix(line, "tagger "))
			if err != nil {
				return nil, errkind.New(errkind.ParseError, "tag.Decode", err)
			}
			t.Tagger = sig
		case strings.HasPrefix(line, "gpgsig "):
			inGPG = true
			gpgLines = []string{strings.TrimPrefix(line, "gpgsig ")}
		default:
			return nil, errkind.New(errkind.ParseError, "tag.Decode", fmt.Errorf("unrecognized header %q", line)).WithData(errkind.DataParseError{Expected: "known tag header", Actual: line})
		}
	}
	t.Message = strings.Join(lines[i:], "\n")
	return t, nil
}
