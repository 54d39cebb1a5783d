// Package commit builds trees from the staging index, resolves
// author/committer identity, and writes commit objects, updating a ref
// atomically through the ref store.
package commit

import (
	"path"
	"sort"
	"strings"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
)

// BuildTree writes one tree object per directory level present in
// entries and returns the OID of the root tree. The index's own TREE
// cache extension is not consulted: every directory is rehashed, which
// is correct (if not maximally cheap) regardless of what the cache
// claims. Returns errkind.UnmergedPaths if any entry carries a non-zero
// stage: a tree can only be built from a fully resolved index.
func BuildTree(db *odb.DB, entries []*index.Entry) (plumbing.OID, error) {
	if paths := unmergedPaths(entries); len(paths) > 0 {
		return plumbing.OID{}, errkind.New(errkind.UnmergedPaths, "commit.BuildTree", nil).
			WithData(errkind.DataUnmergedPaths{Filepaths: paths})
	}

	root := newDirNode()
	for _, e := range entries {
		root.insert(strings.Split(e.Name, "/"), e)
	}
	return root.write(db)
}

// unmergedPaths returns the distinct, sorted set of paths in entries
// that still carry a non-zero stage, the same outstanding-conflict
// check index.Index.UnmergedPaths performs, usable here where only the
// raw entry slice (not the owning Index) is in hand.
func unmergedPaths(entries []*index.Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.Stage != index.Merged && !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	sort.Strings(out)
	return out
}

type dirNode struct {
	dirs    map[string]*dirNode
	entries map[string]*index.Entry
}

func newDirNode() *dirNode {
	return &dirNode{dirs: make(map[string]*dirNode), entries: make(map[string]*index.Entry)}
}

func (d *dirNode) insert(parts []string, e *index.Entry) {
	if len(parts) == 1 {
		d.entries[parts[0]] = e
		return
	}
	child, ok := d.dirs[parts[0]]
	if !ok {
		child = newDirNode()
		d.dirs[parts[0]] = child
	}
	child.insert(parts[1:], e)
}

func (d *dirNode) write(db *odb.DB) (plumbing.OID, error) {
	tree := &object.Tree{}
	for name, e := range d.entries {
		tree.Entries = append(tree.Entries, object.TreeEntry{Mode: e.Mode, Name: name, OID: e.Hash})
	}
	for name, child := range d.dirs {
		oid, err := child.write(db)
		if err != nil {
			return plumbing.OID{}, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Mode: filemode.Dir, Name: name, OID: oid})
	}
	tree.Sort()

	payload, err := tree.Encode()
	if err != nil {
		return plumbing.OID{}, err
	}
	return db.WriteObject(plumbing.TreeObject, payload)
}

// treePaths returns the sorted set of directory paths BuildTree would
// create for entries.
func treePaths(entries []*index.Entry) []string {
	seen := map[string]bool{}
	for _, e := range entries {
		dir := path.Dir(e.Name)
		for dir != "." && dir != "/" {
			seen[dir] = true
			dir = path.Dir(dir)
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
