// Package plumbing holds the wire-level vocabulary shared across gitcore:
// object identifiers, object types, and file modes. It has no dependency
// on storage, refs, or the higher-level object codecs.
package plumbing

import "fmt"

// ObjectType is the tag of the four-variant object union.
type ObjectType int8

const (
	InvalidObject ObjectType = 0
	CommitObject  ObjectType = 1
	TreeObject    ObjectType = 2
	BlobObject    ObjectType = 3
	TagObject     ObjectType = 4
	// OFSDeltaObject and REFDeltaObject only appear inside packfiles; they
	// are never the type of a resolved, addressable object.
	OFSDeltaObject ObjectType = 6
	REFDeltaObject ObjectType = 7

	AnyObject ObjectType = -1
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OFSDeltaObject:
		return "ofs-delta"
	case REFDeltaObject:
		return "ref-delta"
	default:
		return "invalid"
	}
}

// Bytes returns the textual object-type token used in the "<type> <len>\0"
// wrapper header.
func (t ObjectType) Bytes() []byte { return []byte(t.String()) }

// ParseObjectType maps the wire token back to an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, fmt.Errorf("gitcore: unknown object type %q", s)
	}
}

// Valid reports whether t is one of the 3-bit type tags used in packfile
// object headers: commit=1, tree=2, blob=3, tag=4, ofs-delta=6, ref-delta=7.
func (t ObjectType) Valid() bool {
	switch t {
	case CommitObject, TreeObject, BlobObject, TagObject, OFSDeltaObject, REFDeltaObject:
		return true
	default:
		return false
	}
}
