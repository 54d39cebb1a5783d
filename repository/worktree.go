package repository

import (
	"os"
	"path"

	"github.com/go-git/go-billy/v5"

	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
)

// syncWorktree writes, rewrites or removes every worktree file needed to
// take the worktree from oldTree to newTree (both already flattened
// through merge.Flatten), and returns the stage-0 index entries newTree
// implies. Grounded on go-git's worktree.go checkoutChange, minus the
// merkletrie.Change dispatch: the three cases (insert/modify/delete)
// fall straight out of comparing the two path maps directly.
func (r *Repository) syncWorktree(oldTree, newTree map[string]object.TreeEntry) ([]*index.Entry, error) {
	if r.Worktree == nil {
		return nil, nil
	}

	for p, oldEntry := range oldTree {
		if oldEntry.Mode.IsDir() {
			continue
		}
		if _, ok := newTree[p]; !ok {
			if err := r.Worktree.Remove(p); err != nil && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var entries []*index.Entry
	for p, newEntry := range newTree {
		old, existed := oldTree[p]
		if existed && old.OID.Equal(newEntry.OID) && old.Mode == newEntry.Mode {
			entries = append(entries, stageEntry(newEntry))
			continue
		}
		if err := r.writeWorktreeFile(newEntry); err != nil {
			return nil, err
		}
		entries = append(entries, stageEntry(newEntry))
	}
	return entries, nil
}

func stageEntry(e object.TreeEntry) *index.Entry {
	return &index.Entry{Name: e.Name, Mode: e.Mode, Hash: e.OID, Stage: index.Merged}
}

func (r *Repository) writeWorktreeFile(e object.TreeEntry) error {
	if dir := path.Dir(e.Name); dir != "." {
		if err := r.Worktree.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	_, payload, err := r.DB.ReadObject(e.OID)
	if err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if e.Mode == filemode.Executable {
		perm = 0755
	}

	if e.Mode == filemode.Symlink {
		return writeSymlink(r.Worktree, e.Name, payload)
	}

	f, err := r.Worktree.OpenFile(e.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(payload)
	return err
}

// writeSymlink writes the blob payload (the link target text) as a
// symlink if the filesystem supports it, falling back to a regular file
// containing the target text otherwise; not every billy.Filesystem
// implements billy.Symlink (the in-memory one used in tests does not).
func writeSymlink(fs billy.Filesystem, name string, target []byte) error {
	if sfs, ok := fs.(billy.Symlink); ok {
		_ = sfs.Symlink(string(target), name)
		return nil
	}
	f, err := fs.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(target)
	return err
}
