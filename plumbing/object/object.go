// Package object implements the codecs for the four git object variants
// (blob, tree, commit, annotated tag): the on-disk wrapped form, hashing,
// and type-specific parse/serialize.
package object

import (
	"bytes"
	"fmt"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

// Wrap prepends the "<type> <len>\0" header go-git (and real git) store
// every loose and packed object payload under.
func Wrap(t plumbing.ObjectType, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return buf
}

// Unwrap splits a wrapped object back into its type and payload.
func Unwrap(b []byte) (plumbing.ObjectType, []byte, error) {
	nul := bytes.IndexByte(b, 0)
	if nul < 0 {
		return plumbing.InvalidObject, nil, errkind.New(errkind.ParseError, "unwrap", fmt.Errorf("missing NUL header terminator"))
	}
	header := string(b[:nul])
	var typ string
	var size int
	if _, err := fmt.Sscanf(header, "%s %d", &typ, &size); err != nil {
		return plumbing.InvalidObject, nil, errkind.New(errkind.ParseError, "unwrap", err).WithData(errkind.DataParseError{Expected: "<type> <len>", Actual: header})
	}
	t, err := plumbing.ParseObjectType(typ)
	if err != nil {
		return plumbing.InvalidObject, nil, errkind.New(errkind.ParseError, "unwrap", err).WithData(errkind.DataParseError{Expected: "commit|tree|blob|tag", Actual: typ})
	}
	payload := b[nul+1:]
	if len(payload) != size {
		return plumbing.InvalidObject, nil, errkind.New(errkind.ParseError, "unwrap", fmt.Errorf("declared size %d does not match payload length %d", size, len(payload))).WithData(errkind.DataParseError{Expected: fmt.Sprintf("%d bytes", size), Actual: fmt.Sprintf("%d bytes", len(payload))})
	}
	return t, payload, nil
}

// Hash computes the OID of a wrapped object under the given format.
func Hash(f plumbing.ObjectFormat, t plumbing.ObjectType, payload []byte) plumbing.OID {
	return plumbing.HashObject(f, t, payload)
}

// Object is the tagged union of the four git object kinds. Exactly one
// of the *Blob/*Tree/*Commit/*Tag fields is non-nil.
type Object struct {
	Blob   *Blob
	Tree   *Tree
	Commit *Commit
	Tag    *Tag
}

// Type reports the ObjectType of whichever variant is populated.
func (o *Object) Type() plumbing.ObjectType {
	switch {
	case o.Blob != nil:
		return plumbing.BlobObject
	case o.Tree != nil:
		return plumbing.TreeObject
	case o.Commit != nil:
		return plumbing.CommitObject
	case o.Tag != nil:
		return plumbing.TagObject
	default:
		return plumbing.InvalidObject
	}
}

// Encode serializes whichever variant is populated to its payload bytes
// (not wrapped, callers wrap+hash via Wrap/Hash).
func (o *Object) Encode() ([]byte, error) {
	switch {
	case o.Blob != nil:
		return o.Blob.Bytes, nil
	case o.Tree != nil:
		return o.Tree.Encode()
	case o.Commit != nil:
		return o.Commit.Encode()
	case o.Tag != nil:
		return o.Tag.Encode()
	default:
		return nil, errkind.New(errkind.ParseError, "encode", fmt.Errorf("empty object union"))
	}
}

// Decode parses payload according to t into the matching Object field.
func Decode(f plumbing.ObjectFormat, t plumbing.ObjectType, payload []byte) (*Object, error) {
	switch t {
	case plumbing.BlobObject:
		return &Object{Blob: &Blob{Bytes: payload}}, nil
	case plumbing.TreeObject:
		tree, err := DecodeTree(f, payload)
		if err != nil {
			return nil, err
		}
		return &Object{Tree: tree}, nil
	case plumbing.CommitObject:
		c, err := DecodeCommit(payload)
		if err != nil {
			return nil, err
		}
		return &Object{Commit: c}, nil
	case plumbing.TagObject:
		tg, err := DecodeTag(payload)
		if err != nil {
			return nil, err
		}
		return &Object{Tag: tg}, nil
	default:
		return nil, errkind.New(errkind.ObjectTypeAssertion, "decode", fmt.Errorf("unsupported object type %s", t))
	}
}

// Blob is an opaque byte payload.
type Blob struct {
	Bytes []byte
}
