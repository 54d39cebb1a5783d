package refstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opencore/gitcore/plumbing"
)

// ErrInvalidReferenceName is returned by ReferenceName.Validate for a
// name that fails git's check-ref-format rules.
var ErrInvalidReferenceName = errors.New("gitcore: invalid reference name")

// HEAD is the name of the repository's head-of-tree pointer.
const HEAD ReferenceName = "HEAD"

// ReferenceName is a slash-separated ref path, e.g. "refs/heads/main".
type ReferenceName string

// NewBranchReferenceName builds "refs/heads/<name>".
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName("refs/heads/" + name)
}

// NewTagReferenceName builds "refs/tags/<name>".
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName("refs/tags/" + name)
}

// NewNoteReferenceName builds "refs/notes/<name>".
func NewNoteReferenceName(name string) ReferenceName {
	return ReferenceName("refs/notes/" + name)
}

// NewRemoteReferenceName builds "refs/remotes/<remote>/<branch>".
func NewRemoteReferenceName(remote, branch string) ReferenceName {
	return ReferenceName("refs/remotes/" + remote + "/" + branch)
}

// NewRemoteHEADReferenceName builds "refs/remotes/<remote>/HEAD".
func NewRemoteHEADReferenceName(remote string) ReferenceName {
	return ReferenceName("refs/remotes/" + remote + "/HEAD")
}

func (n ReferenceName) String() string { return string(n) }

// Short returns n with its well-known namespace prefix stripped:
// "refs/heads/main" -> "main", "refs/remotes/origin/main" ->
// "origin/main", anything else under "refs/" -> the rest after
// "refs/" (e.g. "refs/notes/foo" -> "notes/foo").
func (n ReferenceName) Short() string {
	s := string(n)
	switch {
	case strings.HasPrefix(s, "refs/heads/"):
		return strings.TrimPrefix(s, "refs/heads/")
	case strings.HasPrefix(s, "refs/remotes/"):
		return strings.TrimPrefix(s, "refs/remotes/")
	default:
		return strings.TrimPrefix(s, "refs/")
	}
}

func (n ReferenceName) IsBranch() bool { return strings.HasPrefix(string(n), "refs/heads/") }
func (n ReferenceName) IsTag() bool    { return strings.HasPrefix(string(n), "refs/tags/") }
func (n ReferenceName) IsNote() bool   { return strings.HasPrefix(string(n), "refs/notes/") }
func (n ReferenceName) IsRemote() bool { return strings.HasPrefix(string(n), "refs/remotes/") }

// disallowedRunes are characters git's check-ref-format forbids
// anywhere in a reference name.
const disallowedRunes = " ~^:?*[\\"

// Validate reports whether n satisfies git's check-ref-format rules: no
// ".." anywhere, no "@{", doesn't end in "/" or ".", no control
// characters or the glob/range-like punctuation above, no path
// component that is empty, ".", "..", "@", or ends in ".lock", and (a
// rule specific to branches and tags, since a leading "-" would read
// as a flag to plumbing commands) no "refs/heads/*" or "refs/tags/*"
// name whose final component starts with "-".
func (n ReferenceName) Validate() error {
	s := string(n)
	if s == string(HEAD) {
		return nil
	}
	if s == "" {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}
	if strings.Contains(s, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}
	if strings.Contains(s, "@{") {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}
	if strings.HasSuffix(s, "/") || strings.HasSuffix(s, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(disallowedRunes, r) {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}

	components := strings.Split(s, "/")
	if components[0] != "refs" || len(components) < 2 {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}
	for _, c := range components {
		if c == "" || c == "." || c == ".." || c == "@" || strings.HasSuffix(c, ".lock") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}
	if len(components) >= 3 && (components[1] == "heads" || components[1] == "tags") {
		if strings.HasPrefix(components[len(components)-1], "-") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}
	return nil
}

// ReferenceType distinguishes a direct (hash) reference from a
// symbolic one that points at another reference name.
type ReferenceType int8

const (
	InvalidReference ReferenceType = iota
	HashReference
	SymbolicReference
)

func (t ReferenceType) String() string {
	switch t {
	case HashReference:
		return "hash-reference"
	case SymbolicReference:
		return "symbolic-reference"
	default:
		return "invalid-reference"
	}
}

const symbolicPrefix = "ref: "

// Reference is a named pointer: either straight at an OID, or at
// another reference name (one hop, resolving a chain of symbolic
// references is RefStore.Resolve's job, not this type's).
type Reference struct {
	typ    ReferenceType
	name   ReferenceName
	target ReferenceName
	hash   plumbing.OID
}

// NewHashReference builds a direct reference name -> hash.
func NewHashReference(name ReferenceName, hash plumbing.OID) *Reference {
	return &Reference{typ: HashReference, name: name, hash: hash}
}

// NewSymbolicReference builds a reference name -> target reference name.
func NewSymbolicReference(name, target ReferenceName) *Reference {
	return &Reference{typ: SymbolicReference, name: name, target: target}
}

// NewReferenceFromStrings builds a Reference from its on-disk textual
// form: name is the ref's path, target is either "ref: <name>" for a
// symbolic reference or a hex OID for a direct one.
func NewReferenceFromStrings(name, target string) *Reference {
	n := ReferenceName(name)
	if strings.HasPrefix(target, symbolicPrefix) {
		return NewSymbolicReference(n, ReferenceName(strings.TrimSpace(strings.TrimPrefix(target, symbolicPrefix))))
	}
	oid, _ := plumbing.FromHex(strings.TrimSpace(target))
	return NewHashReference(n, oid)
}

func (r *Reference) Type() ReferenceType   { return r.typ }
func (r *Reference) Name() ReferenceName   { return r.name }
func (r *Reference) Hash() plumbing.OID    { return r.hash }
func (r *Reference) Target() ReferenceName { return r.target }

// Strings returns the on-disk (name, content) pair for this reference:
// content is either "ref: <target>\n" or "<hex oid>\n".
func (r *Reference) Strings() (name, content string) {
	if r.typ == SymbolicReference {
		return string(r.name), symbolicPrefix + string(r.target) + "\n"
	}
	return string(r.name), r.hash.String() + "\n"
}

func (r *Reference) String() string {
	switch r.typ {
	case SymbolicReference:
		return fmt.Sprintf("%s %s%s", r.hash.String(), symbolicPrefix, r.target)
	case HashReference:
		return fmt.Sprintf("%s %s", r.hash.String(), r.name)
	default:
		return "<invalid reference>"
	}
}
