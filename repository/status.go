package repository

import (
	"io"
	"os"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
)

// Code is a single-character worktree/staging status, matching the
// letters `git status --short` prints for each column.
type Code byte

const (
	Unmodified Code = ' '
	Added      Code = 'A'
	Modified   Code = 'M'
	Deleted    Code = 'D'
	Untracked  Code = '?'
)

// FileStatus is one path's status relative to HEAD (Staging) and
// relative to the index (Worktree).
type FileStatus struct {
	Staging  Code
	Worktree Code
}

// Status maps every path that differs from HEAD or from the index to
// its FileStatus, the same three-way comparison `git status` runs:
// HEAD tree vs. index (what Add would need to notice is already
// staged) and index vs. worktree (what Add would pick up next).
// Grounded on go-git's worktree_status.go, built on merge.Flatten
// rather than utils/merkletrie.
func (r *Repository) Status() (map[string]FileStatus, error) {
	headEntries, err := r.headTree()
	if err != nil {
		return nil, err
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	indexed := map[string]*index.Entry{}
	for _, e := range idx.Entries {
		if e.Stage == index.Merged {
			indexed[e.Name] = e
		}
	}

	out := map[string]FileStatus{}

	for path, e := range indexed {
		if h, ok := headEntries[path]; !ok {
			out[path] = FileStatus{Staging: Added}
		} else if h.OID.Equal(e.Hash) && h.Mode == e.Mode {
			out[path] = FileStatus{Staging: Unmodified}
		} else {
			out[path] = FileStatus{Staging: Modified}
		}
	}
	for path := range headEntries {
		if _, ok := indexed[path]; !ok {
			s := out[path]
			s.Staging = Deleted
			out[path] = s
		}
	}

	if r.Worktree != nil {
		worktreeStatus, err := r.worktreeVsIndex(indexed)
		if err != nil {
			return nil, err
		}
		for path, code := range worktreeStatus {
			s := out[path]
			s.Worktree = code
			out[path] = s
		}
	}

	for path, s := range out {
		if s.Staging == Unmodified && s.Worktree == Unmodified {
			delete(out, path)
		}
	}
	return out, nil
}

func (r *Repository) headTree() (map[string]object.TreeEntry, error) {
	head, err := r.Refs.Resolve(refstore.HEAD)
	if err != nil {
		if isNotFound(err) {
			return map[string]object.TreeEntry{}, nil
		}
		return nil, err
	}

	typ, payload, err := r.DB.ReadObject(head.Hash())
	if err != nil {
		return nil, err
	}
	if typ != plumbing.CommitObject {
		return nil, errkind.New(errkind.ObjectTypeAssertion, "repository.headTree", nil).WithData(head.Hash().String())
	}
	c, err := object.DecodeCommit(payload)
	if err != nil {
		return nil, err
	}
	return merge.Flatten(r.DB, c.Tree)
}

// worktreeVsIndex compares every indexed path's current worktree
// content against its staged blob, plus every worktree path not
// present in the index at all (Untracked).
func (r *Repository) worktreeVsIndex(indexed map[string]*index.Entry) (map[string]Code, error) {
	out := map[string]Code{}
	seen := map[string]bool{}

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := r.Worktree.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, fi := range entries {
			if fi.Name() == ".git" {
				continue
			}
			full := fi.Name()
			if dir != "." {
				full = joinPath(dir, fi.Name())
			}
			if fi.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			seen[full] = true
			e, ok := indexed[full]
			if !ok {
				out[full] = Untracked
				continue
			}
			changed, err := r.fileChanged(full, fi, e)
			if err != nil {
				return err
			}
			if changed {
				out[full] = Modified
			}
		}
		return nil
	}
	if err := walk("."); err != nil {
		return nil, err
	}

	for path := range indexed {
		if !seen[path] {
			out[path] = Deleted
		}
	}
	return out, nil
}

func (r *Repository) fileChanged(path string, fi os.FileInfo, e *index.Entry) (bool, error) {
	if fi.Size() != int64(e.Size) {
		return true, nil
	}
	mode := filemode.Regular
	if r.Cfg.Core.FileMode && fi.Mode()&0111 != 0 {
		mode = filemode.Executable
	}
	if mode != e.Mode {
		return true, nil
	}

	f, err := r.Worktree.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return false, err
	}
	oid := plumbing.HashObject(r.DB.Format(), plumbing.BlobObject, data)
	return !oid.Equal(e.Hash), nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
