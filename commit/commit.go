package commit

import (
	"time"

	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/sign"
)

// Hooks are the callback points a commit runs through, mirroring git's
// pre-commit/commit-msg/post-commit hooks. An error from PreCommit or
// CommitMsg aborts the commit before anything is written; PostCommit
// runs after the ref is updated and returns nothing, so it cannot undo
// or fail the commit.
type Hooks struct {
	PreCommit  func() error
	CommitMsg  func(message string) (string, error)
	PostCommit func(oid plumbing.OID)
}

// Options configures one Commit call.
type Options struct {
	Branch    refstore.ReferenceName
	Message   string
	Author    Identity // zero value: resolve from config/env
	Committer Identity // zero value: resolve from config/env
	Parents   []plumbing.OID
	Now       time.Time // zero value: time.Now()
	Hooks     Hooks

	// Amend replaces Parents[0]'s commit instead of creating a child of
	// it: the new commit still only records Parents as given (the
	// caller is expected to pass the amended-away commit's own parents
	// through), but the ref's compare-and-swap old value becomes the
	// commit being amended rather than Parents[0].
	Amend plumbing.OID

	// DryRun builds the tree and commit object payload and returns the
	// OID the commit would have. The tree objects are still written to
	// db; the commit object is not, and Branch is never touched.
	DryRun bool

	// NoUpdateBranch writes the commit object but leaves Branch
	// pointing at whatever it already names.
	NoUpdateBranch bool

	// Sign, if set, signs the commit the same way repository.TagOptions
	// signs an annotated tag: the payload is encoded, signed, and
	// re-encoded with GPGSig populated before being written.
	Sign sign.Signer
}

// Commit builds a tree from entries, resolves author/committer identity
// through cfg's normalization cascade, writes the commit object, and
// moves opts.Branch to it with a compare-and-swap against whatever
// opts.Parents[0] (if any) claims as the current tip, the same
// not-a-fast-forward-surprise guarantee git's own commit machinery
// gives.
func Commit(db *odb.DB, refs *refstore.RefStore, cfg *config.Config, entries []*index.Entry, opts Options) (plumbing.OID, error) {
	if opts.Hooks.PreCommit != nil {
		if err := opts.Hooks.PreCommit(); err != nil {
			return plumbing.OID{}, errkind.New(errkind.HookFailed, "commit", err)
		}
	}

	message := opts.Message
	if opts.Hooks.CommitMsg != nil {
		m, err := opts.Hooks.CommitMsg(message)
		if err != nil {
			return plumbing.OID{}, errkind.New(errkind.HookFailed, "commit", err)
		}
		message = m
	}

	treeOID, err := BuildTree(db, entries)
	if err != nil {
		return plumbing.OID{}, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	author, err := ResolveAuthor(cfg, opts.Author)
	if err != nil {
		return plumbing.OID{}, err
	}
	committer, err := ResolveCommitter(cfg, opts.Committer)
	if err != nil {
		return plumbing.OID{}, err
	}

	c := &object.Commit{
		Tree:      treeOID,
		Parents:   opts.Parents,
		Author:    Stamp(author, now),
		Committer: Stamp(committer, now),
		Message:   message,
	}

	if opts.Sign != nil {
		payload, err := c.Encode()
		if err != nil {
			return plumbing.OID{}, err
		}
		armored, err := opts.Sign.Sign(payload)
		if err != nil {
			return plumbing.OID{}, err
		}
		c.GPGSig = armored
	}

	payload, err := c.Encode()
	if err != nil {
		return plumbing.OID{}, err
	}

	if opts.DryRun {
		return plumbing.HashObject(db.Format(), plumbing.CommitObject, payload), nil
	}

	oid, err := db.WriteObject(plumbing.CommitObject, payload)
	if err != nil {
		return plumbing.OID{}, err
	}

	if !opts.NoUpdateBranch {
		var old *refstore.Reference
		switch {
		case !opts.Amend.IsZero():
			old = refstore.NewHashReference(opts.Branch, opts.Amend)
		case len(opts.Parents) > 0:
			old = refstore.NewHashReference(opts.Branch, opts.Parents[0])
		}
		if err := refs.CheckAndSetReference(refstore.NewHashReference(opts.Branch, oid), old); err != nil {
			return plumbing.OID{}, err
		}
	}

	if opts.Hooks.PostCommit != nil {
		opts.Hooks.PostCommit(oid)
	}
	return oid, nil
}
