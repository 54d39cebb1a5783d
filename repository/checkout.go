package repository

import (
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
)

// CheckoutOptions selects what Checkout switches to: either Branch (a
// reference under refs/heads, left attached so future commits advance
// it) or OID directly (a detached checkout).
type CheckoutOptions struct {
	Branch refstore.ReferenceName
	OID    plumbing.OID
	// Force skips the check that would otherwise refuse to discard
	// unstaged worktree changes.
	Force bool
}

// Checkout moves HEAD to opts.Branch or opts.OID and updates the index
// and worktree to match, the same three-step move Checkout makes in
// git: move HEAD, diff old tree against new, apply. Grounded on
// go-git's worktree.go Checkout/getCommitFromCheckoutOptions, with the
// merkletrie-based diff replaced by two merge.Flatten calls compared
// directly.
func (r *Repository) Checkout(opts CheckoutOptions) error {
	target, err := r.resolveCheckoutTarget(opts)
	if err != nil {
		return err
	}

	if !opts.Force && r.Worktree != nil {
		if err := r.refuseIfUnstaged(); err != nil {
			return err
		}
	}

	oldTree, err := r.headTree()
	if err != nil {
		return err
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

	entries, err := r.syncWorktree(oldTree, newTree)
	if err != nil {
		return err
	}
	if err := r.SaveIndex(indexFromEntries(entries)); err != nil {
		return err
	}

	return r.setHEAD(opts, target)
}

func (r *Repository) resolveCheckoutTarget(opts CheckoutOptions) (plumbing.OID, error) {
	if !opts.OID.IsZero() {
		return opts.OID, nil
	}
	if opts.Branch == "" {
		return plumbing.OID{}, errkind.New(errkind.MissingParameter, "repository.Checkout", nil)
	}
	ref, err := r.Refs.Resolve(opts.Branch)
	if err != nil {
		return plumbing.OID{}, err
	}
	return ref.Hash(), nil
}

// setHEAD points HEAD at opts.Branch (symbolic) if one was given, or
// directly at target (detached), matching go-git's setHEADToBranch/
// setHEADToCommit split.
func (r *Repository) setHEAD(opts CheckoutOptions, target plumbing.OID) error {
	if opts.Branch != "" {
		if _, err := r.Refs.Reference(opts.Branch); err != nil {
			if !isNotFound(err) {
				return err
			}
			if err := r.Refs.SetReference(refstore.NewHashReference(opts.Branch, target)); err != nil {
				return err
			}
		}
		return r.Refs.SetReference(refstore.NewSymbolicReference(refstore.HEAD, opts.Branch))
	}
	return r.Refs.SetReference(refstore.NewHashReference(refstore.HEAD, target))
}

// refuseIfUnstaged returns a Conflict error if the worktree has any
// modification relative to the index, the same guard go-git's Checkout
// runs before discarding worktree state.
func (r *Repository) refuseIfUnstaged() error {
	status, err := r.Status()
	if err != nil {
		return err
	}
	for _, s := range status {
		if s.Worktree != Unmodified {
			return errkind.New(errkind.Conflict, "repository.Checkout", nil).WithData("worktree has unstaged changes")
		}
	}
	return nil
}
