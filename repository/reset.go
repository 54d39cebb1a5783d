package repository

import (
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
)

// ResetMode selects how much of the repository state Reset rewrites,
// mirroring git's --soft/--mixed/--hard.
type ResetMode int

const (
	// ResetSoft moves HEAD only; the index and worktree are untouched.
	ResetSoft ResetMode = iota
	// ResetMixed moves HEAD and resets the index to target's tree, but
	// leaves the worktree untouched.
	ResetMixed
	// ResetHard moves HEAD, resets the index, and overwrites the
	// worktree to match target's tree, discarding local modifications.
	ResetHard
)

// Reset moves the current branch (or HEAD directly, if detached) to
// target and, per mode, rewrites the index and worktree to match.
// Grounded on go-git's worktree.go Reset/setHEADCommit.
func (r *Repository) Reset(mode ResetMode, target plumbing.OID) error {
	if err := r.moveHEAD(target); err != nil {
		return err
	}
	if mode == ResetSoft {
		return nil
	}

	_, payload, err := r.DB.ReadObject(target)
	if err != nil {
		return err
	}
	c, err := object.DecodeCommit(payload)
	if err != nil {
		return err
	}
	newTree, err := merge.Flatten(r.DB, c.Tree)
	if err != nil {
		return err
	}

	if mode == ResetMixed || r.Worktree == nil {
		idx := indexFromEntries(nil)
		for _, e := range newTree {
			idx.Entries = append(idx.Entries, stageEntry(e))
		}
		return r.SaveIndex(idx)
	}

	oldTree, err := r.flattenIndexedTree()
	if err != nil {
		return err
	}
	entries, err := r.syncWorktree(oldTree, newTree)
	if err != nil {
		return err
	}
	return r.SaveIndex(indexFromEntries(entries))
}

// moveHEAD sets the current branch (if HEAD is symbolic) or HEAD
// itself (if detached) to target, the same split go-git's
// setHEADCommit makes.
func (r *Repository) moveHEAD(target plumbing.OID) error {
	head, err := r.Refs.Reference(refstore.HEAD)
	if err != nil {
		return err
	}
	if head.Type() == refstore.HashReference {
		return r.Refs.SetReference(refstore.NewHashReference(refstore.HEAD, target))
	}

	branch, err := r.Refs.Reference(head.Target())
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		return r.Refs.SetReference(refstore.NewHashReference(head.Target(), target))
	}
	if branch.Type() != refstore.HashReference {
		return errkind.New(errkind.InvalidRefName, "repository.Reset", nil).WithData(string(head.Target()))
	}
	return r.Refs.SetReference(refstore.NewHashReference(branch.Name(), target))
}

// flattenIndexedTree returns the current index's stage-0 entries as a
// path-keyed map, the "old" side syncWorktree diffs target's tree
// against.
func (r *Repository) flattenIndexedTree() (map[string]object.TreeEntry, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	out := map[string]object.TreeEntry{}
	for _, e := range idx.Entries {
		out[e.Name] = object.TreeEntry{Mode: e.Mode, Name: e.Name, OID: e.Hash}
	}
	return out, nil
}
