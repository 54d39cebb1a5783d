package object

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
)

// TreeEntry is one `mode SP name NUL oid` record.
type TreeEntry struct {
	Mode filemode.FileMode
	Name string
	OID  plumbing.OID
}

// Tree is the ordered set of entries making up a directory listing.
// Entries keep whatever order they were added or decoded in until Sort
// puts them in canonical order (TreeSortLess); Encode sorts its own
// copy, so it is a pure function of the {name -> (mode, oid)} map.
type Tree struct {
	Entries []TreeEntry
}

// treeSortKey returns the byte key used to order a tree entry: the name,
// with a trailing "/" appended for directory entries. Applied identically
// on write and on diff so that the two are never allowed to disagree
// about ordering.
func treeSortKey(name string, mode filemode.FileMode) string {
	if mode.IsDir() {
		return name + "/"
	}
	return name
}

// TreeSortLess reports whether entry a sorts before entry b under the
// directory-aware tree-entry order.
func TreeSortLess(aName string, aMode filemode.FileMode, bName string, bMode filemode.FileMode) bool {
	return treeSortKey(aName, aMode) < treeSortKey(bName, bMode)
}

// Sort reorders Entries into canonical tree order in place.
func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool {
		return TreeSortLess(t.Entries[i].Name, t.Entries[i].Mode, t.Entries[j].Name, t.Entries[j].Mode)
	})
}

// Encode serializes the tree to its canonical byte form: the
// concatenation of "mode SP name NUL oid-bytes" in tree-sort order.
// Invariant under input-order permutation.
func (t *Tree) Encode() ([]byte, error) {
	sorted := make([]TreeEntry, len(t.Entries))
	copy(sorted, t.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return TreeSortLess(sorted[i].Name, sorted[i].Mode, sorted[j].Name, sorted[j].Mode)
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		if strings.ContainsAny(e.Name, "/\x00") {
			return nil, errkind.New(errkind.ParseError, "tree.Encode", fmt.Errorf("invalid tree entry name %q", e.Name))
		}
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(e.OID.Bytes())
	}
	return buf.Bytes(), nil
}

// DecodeTree parses a tree payload of the given hash size (inferred from
// the object format) into a Tree.
func DecodeTree(f plumbing.ObjectFormat, payload []byte) (*Tree, error) {
	hashSize := plumbing.SHA1Size
	if f == plumbing.FormatSHA256 {
		hashSize = plumbing.SHA256Size
	}
	t := &Tree{}
	for len(payload) > 0 {
		sp := bytes.IndexByte(payload, ' ')
		if sp < 0 {
			return nil, errkind.New(errkind.ParseError, "tree.Decode", fmt.Errorf("missing mode separator")).WithData(errkind.DataParseError{Expected: "mode SP name NUL oid"})
		}
		modeStr := string(payload[:sp])
		mode, err := filemode.Parse(modeStr)
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "tree.Decode", err).WithData(errkind.DataParseError{Expected: "known file mode", Actual: modeStr})
		}
		rest := payload[sp+1:]
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, errkind.New(errkind.ParseError, "tree.Decode", fmt.Errorf("missing name terminator"))
		}
		name := string(rest[:nul])
		oidBytes := rest[nul+1:]
		if len(oidBytes) < hashSize {
			return nil, errkind.New(errkind.ParseError, "tree.Decode", fmt.Errorf("truncated oid"))
		}
		oid, err := plumbing.FromBytes(f, oidBytes[:hashSize])
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "tree.Decode", err)
		}
		t.Entries = append(t.Entries, TreeEntry{Mode: mode, Name: name, OID: oid})
		payload = oidBytes[hashSize:]
	}
	return t, nil
}

// ByName returns the entry with the given name, or false if absent.
func (t *Tree) ByName(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}
