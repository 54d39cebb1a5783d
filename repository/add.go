package repository

import (
	"io"
	"os"
	"path"
	"sort"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
)

// Add hashes the current worktree content of each of paths into a blob
// and stages it, replacing any existing stage-0 or conflicted entries
// for that path. A directory path stages every regular file beneath it,
// recursively. Grounded on go-git's worktree.go addIndexFromFile, minus
// the billy-specific submodule handling this module doesn't carry.
func (r *Repository) Add(paths ...string) error {
	if r.Worktree == nil {
		return errkind.New(errkind.BareRepository, "repository.Add", nil)
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return err
	}

	var files []string
	for _, p := range paths {
		expanded, err := r.expandPath(p)
		if err != nil {
			return err
		}
		files = append(files, expanded...)
	}
	sort.Strings(files)

	for _, f := range files {
		if err := r.stageFile(idx, f); err != nil {
			return err
		}
	}
	return r.SaveIndex(idx)
}

// expandPath returns p itself if it names a regular file, or every
// regular file beneath it if it names a directory.
func (r *Repository) expandPath(p string) ([]string, error) {
	info, err := r.Worktree.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := r.Worktree.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Name() == ".git" {
				continue
			}
			full := path.Join(dir, e.Name())
			if e.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			out = append(out, full)
		}
		return nil
	}
	if err := walk(p); err != nil {
		return nil, err
	}
	return out, nil
}

// stageFile hashes name's current worktree content and records a
// stage-0 index entry for it, replacing whatever entries (merged or
// conflicted) previously existed at that path.
func (r *Repository) stageFile(idx *index.Index, name string) error {
	info, err := r.Worktree.Stat(name)
	if err != nil {
		return err
	}

	f, err := r.Worktree.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	oid, err := r.DB.WriteObject(plumbing.BlobObject, data)
	if err != nil {
		return err
	}

	mode := filemode.Regular
	if info.Mode()&os.ModeSymlink != 0 {
		mode = filemode.Symlink
	} else if r.Cfg.Core.FileMode && info.Mode()&0111 != 0 {
		mode = filemode.Executable
	}

	idx.Remove(name)
	e := idx.Add(name)
	e.Hash = oid
	e.Mode = mode
	e.Size = uint32(info.Size())
	e.ModifiedAt = info.ModTime()
	e.Stage = index.Merged
	return nil
}
