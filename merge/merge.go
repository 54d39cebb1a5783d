package merge

import (
	"time"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/sign"
	"github.com/opencore/gitcore/storage"
)

// Options configures one merge of theirs into the branch currently
// checked out at ours.
type Options struct {
	Branch      refstore.ReferenceName
	Message     string
	Committer   commit.Identity
	Now         time.Time
	FastForward string // "true" (default), "only", or "false", mirrors merge.ff

	// FastForwardOnly is equivalent to FastForward == "only"; either
	// spelling rejects a merge that isn't a pure fast-forward.
	FastForwardOnly bool

	// AllowUnrelatedHistories permits completing a merge when ours and
	// theirs share no common ancestor at all. Refused by default: an
	// empty merge base is easy to produce by accident, and folding two
	// wholly unrelated trees together silently is rarely intended.
	AllowUnrelatedHistories bool

	// Root, if set, is where MERGE_HEAD/MERGE_MSG/MERGE_MODE are
	// written at the start of a non-fast-forward merge and cleared once
	// the merge commit lands. Nil skips merge-state tracking entirely
	// (used by tests that only care about the tree/commit result).
	Root storage.RootFS

	// DryRun computes the Result (fast-forward decision, tree merge,
	// prospective commit OID) without writing the commit object or
	// moving Branch, and without touching merge state.
	DryRun bool

	// NoUpdateBranch writes the merge commit object (when the merge is
	// clean) but leaves Branch pointing at ours.
	NoUpdateBranch bool

	// AbortOnConflict turns a conflicted tree merge into a
	// MergeConflict error returned directly from Run, instead of the
	// normal Result carrying Conflicts/Entries for the caller to
	// inspect and stage itself.
	AbortOnConflict bool

	// MergeDriver overrides the default line-based content-merge driver
	// (Content) run over paths both sides changed differently. Nil uses
	// Content.
	MergeDriver ContentMergeFunc

	// Sign, if set, signs the merge commit the same way commit.Options
	// and repository.TagOptions sign their objects.
	Sign sign.Signer
}

// Result reports how a merge resolved.
type Result struct {
	Commit      plumbing.OID
	FastForward bool
	Conflicts   []Conflict

	// Entries is the staging index merge.Tree produced: nil for a pure
	// fast-forward (the index isn't touched), otherwise one entry per
	// cleanly resolved path plus stage 1/2/3 entries per conflicted
	// path, ready to persist wholesale as the repository's new index.
	Entries []*index.Entry
}

// Run merges theirs into ours. When ours is an ancestor of theirs and
// the configured fast-forward policy allows it, Branch is simply moved
// to theirs. Otherwise the merge base is found, a three-way tree merge
// is performed, and if it produces no conflicts a merge commit with
// both ours and theirs as parents is written and Branch moved to it.
// If the tree merge produced conflicts, the provisional tree is still
// written and Result carries Conflicts and the Entries a caller should
// persist as the new staging index; no ref is moved and no commit is
// created in that case, unless Options.AbortOnConflict is set, in which
// case Run itself returns a MergeConflict error.
//
// Run refuses with MergeNotSupported rather than guess when ours and
// theirs have more than one non-dominated common ancestor (a
// criss-cross merge) or, unless AllowUnrelatedHistories is set, when
// they share no common ancestor at all.
func Run(db *odb.DB, refs *refstore.RefStore, cfg *config.Config, ours, theirs plumbing.OID, opts Options) (*Result, error) {
	ff := opts.FastForward
	if ff == "" {
		ff = cfg.Merge.FastForward
	}
	if opts.FastForwardOnly {
		ff = "only"
	}

	bases, err := Bases(db, ours, theirs)
	if err != nil {
		return nil, err
	}
	if len(bases) > 1 {
		return nil, errkind.New(errkind.MergeNotSupported, "merge.Run", nil).WithData(bases)
	}
	if len(bases) == 0 && !opts.AllowUnrelatedHistories {
		return nil, errkind.New(errkind.MergeNotSupported, "merge.Run", nil)
	}
	var base plumbing.OID
	if len(bases) == 1 {
		base = bases[0]
	}

	if base.Equal(theirs) {
		// theirs is already an ancestor of ours: nothing to do.
		return &Result{Commit: ours, FastForward: true}, nil
	}

	if base.Equal(ours) {
		if ff == "false" {
			return fullMerge(db, refs, cfg, base, ours, theirs, opts, "no-ff")
		}
		if opts.DryRun {
			return &Result{Commit: theirs, FastForward: true}, nil
		}
		if err := refs.CheckAndSetReference(refstore.NewHashReference(opts.Branch, theirs), refstore.NewHashReference(opts.Branch, ours)); err != nil {
			return nil, err
		}
		return &Result{Commit: theirs, FastForward: true}, nil
	}

	if ff == "only" {
		return nil, errkind.New(errkind.FastForward, "merge.Run", nil).WithData(opts.Branch)
	}

	return fullMerge(db, refs, cfg, base, ours, theirs, opts, "")
}

func fullMerge(db *odb.DB, refs *refstore.RefStore, cfg *config.Config, base, ours, theirs plumbing.OID, opts Options, mode string) (*Result, error) {
	oursTree, err := treeOf(db, ours)
	if err != nil {
		return nil, err
	}
	theirsTree, err := treeOf(db, theirs)
	if err != nil {
		return nil, err
	}
	var baseTree plumbing.OID
	if !base.IsZero() {
		baseTree, err = treeOf(db, base)
		if err != nil {
			return nil, err
		}
	}

	if opts.Root != nil && !opts.DryRun {
		if err := SaveState(opts.Root, State{Heads: []plumbing.OID{theirs}, Message: opts.Message, Mode: mode}); err != nil {
			return nil, err
		}
	}

	driver := opts.MergeDriver
	if driver == nil {
		driver = Content
	}
	merged, err := treeMerge(db, baseTree, oursTree, theirsTree, driver)
	if err != nil {
		return nil, err
	}

	if len(merged.Conflicts) > 0 {
		if opts.AbortOnConflict {
			paths := make([]string, len(merged.Conflicts))
			for i, c := range merged.Conflicts {
				paths[i] = c.Path
			}
			return nil, errkind.New(errkind.MergeConflict, "merge.Run", nil).WithData(errkind.DataMergeConflict{Filepaths: paths})
		}
		return &Result{Conflicts: merged.Conflicts, Entries: merged.Entries}, nil
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	committer, err := commit.ResolveCommitter(cfg, opts.Committer)
	if err != nil {
		return nil, err
	}
	stamp := commit.Stamp(committer, now)

	c := &object.Commit{
		Tree:      merged.Tree,
		Parents:   []plumbing.OID{ours, theirs},
		Author:    stamp,
		Committer: stamp,
		Message:   opts.Message,
	}

	if opts.Sign != nil {
		payload, err := c.Encode()
		if err != nil {
			return nil, err
		}
		armored, err := opts.Sign.Sign(payload)
		if err != nil {
			return nil, err
		}
		c.GPGSig = armored
	}

	payload, err := c.Encode()
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return &Result{Commit: plumbing.HashObject(db.Format(), plumbing.CommitObject, payload), Entries: merged.Entries}, nil
	}

	oid, err := db.WriteObject(plumbing.CommitObject, payload)
	if err != nil {
		return nil, err
	}

	if !opts.NoUpdateBranch {
		if err := refs.CheckAndSetReference(refstore.NewHashReference(opts.Branch, oid), refstore.NewHashReference(opts.Branch, ours)); err != nil {
			return nil, err
		}
	}

	if opts.Root != nil {
		if err := ClearState(opts.Root); err != nil {
			return nil, err
		}
	}

	return &Result{Commit: oid, Entries: merged.Entries}, nil
}

func treeOf(db *odb.DB, oid plumbing.OID) (plumbing.OID, error) {
	typ, payload, err := db.ReadObject(oid)
	if err != nil {
		return plumbing.OID{}, err
	}
	if typ != plumbing.CommitObject {
		return plumbing.OID{}, errkind.New(errkind.ObjectTypeAssertion, "merge.treeOf", nil).WithData(oid.String())
	}
	c, err := object.DecodeCommit(payload)
	if err != nil {
		return plumbing.OID{}, err
	}
	return c.Tree, nil
}
