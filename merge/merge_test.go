package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/storage/memory"
)

type env struct {
	db   *odb.DB
	refs *refstore.RefStore
	cfg  *config.Config
}

func newEnv(t *testing.T) env {
	t.Helper()
	backend := memory.NewBackend()
	db := odb.New(backend, plumbing.FormatSHA1)
	root, err := backend.Root()
	require.NoError(t, err)
	cfg := config.New()
	cfg.User.Name = "Ada Lovelace"
	cfg.User.Email = "ada@example.com"
	return env{db: db, refs: refstore.New(root, nil), cfg: cfg}
}

func (e env) commitFiles(t *testing.T, branch refstore.ReferenceName, parents []plumbing.OID, files map[string]string, at time.Time) plumbing.OID {
	t.Helper()
	var entries []*index.Entry
	for name, content := range files {
		oid, err := e.db.WriteObject(plumbing.BlobObject, []byte(content))
		require.NoError(t, err)
		entries = append(entries, &index.Entry{Name: name, Hash: oid, Mode: filemode.Regular, Stage: index.Merged})
	}
	oid, err := commit.Commit(e.db, e.refs, e.cfg, entries, commit.Options{
		Branch: branch, Message: "commit", Parents: parents, Now: at,
	})
	require.NoError(t, err)
	return oid
}

func TestBaseFindsCommonAncestor(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"a.txt": "a", "ours.txt": "o"}, time.Unix(1100, 0))

	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"a.txt": "a", "theirs.txt": "t"}, time.Unix(1100, 0))

	got, err := merge.Base(e.db, ours, theirs)
	require.NoError(t, err)
	require.True(t, got.Equal(base))
}

func TestBaseIsIdentityWhenSidesEqual(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")
	c := e.commitFiles(t, branch, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))

	got, err := merge.Base(e.db, c, c)
	require.NoError(t, err)
	require.True(t, got.Equal(c))
}

func TestTreeMergeCombinesNonOverlappingChanges(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	baseCommit := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	oursCommit := e.commitFiles(t, branch, []plumbing.OID{baseCommit}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, baseCommit)))
	theirsCommit := e.commitFiles(t, branch, []plumbing.OID{baseCommit}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))

	baseTree := treeOf(t, e, baseCommit)
	oursTree := treeOf(t, e, oursCommit)
	theirsTree := treeOf(t, e, theirsCommit)

	result, err := merge.Tree(e.db, baseTree, oursTree, theirsTree)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
}

func TestTreeMergeReportsModifyModifyConflict(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	baseCommit := e.commitFiles(t, branch, nil, map[string]string{"f.txt": "base\n"}, time.Unix(1000, 0))
	oursCommit := e.commitFiles(t, branch, []plumbing.OID{baseCommit}, map[string]string{"f.txt": "ours\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, baseCommit)))
	theirsCommit := e.commitFiles(t, branch, []plumbing.OID{baseCommit}, map[string]string{"f.txt": "theirs\n"}, time.Unix(1100, 0))

	result, err := merge.Tree(e.db, treeOf(t, e, baseCommit), treeOf(t, e, oursCommit), treeOf(t, e, theirsCommit))
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, "f.txt", result.Conflicts[0].Path)
}

func TestRunFastForwardsWhenOursIsAncestor(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"a.txt": "a", "b.txt": "b"}, time.Unix(1100, 0))

	result, err := merge.Run(e.db, e.refs, e.cfg, base, theirs, merge.Options{Branch: branch, Now: time.Unix(1200, 0)})
	require.NoError(t, err)
	require.True(t, result.FastForward)
	require.True(t, result.Commit.Equal(theirs))

	ref, err := e.refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(theirs))
}

func TestRunCreatesMergeCommitForNonFastForward(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Message: "merge theirs into ours", Now: time.Unix(1300, 0),
	})
	require.NoError(t, err)
	require.False(t, result.FastForward)
	require.Empty(t, result.Conflicts)
	require.False(t, result.Commit.IsZero())

	ref, err := e.refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(result.Commit))

	require.Len(t, result.Entries, 3)
	for _, entry := range result.Entries {
		require.Equal(t, index.Merged, entry.Stage)
	}
}

func TestRunReportsConflictsWithoutMovingRef(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"f.txt": "base\n"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"f.txt": "ours\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"f.txt": "theirs\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{Branch: branch, Now: time.Unix(1300, 0)})
	require.NoError(t, err)
	require.NotEmpty(t, result.Conflicts)
	require.True(t, result.Commit.IsZero())

	ref, err := e.refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(ours))

	// f.txt never resolved: the index must hold stages 1/2/3 for it and
	// no stage-0 entry at all.
	idx := &index.Index{Entries: result.Entries}
	require.True(t, idx.Unmerged())
	require.Equal(t, []string{"f.txt"}, idx.UnmergedPaths())
	_, err = idx.Entry("f.txt")
	require.Error(t, err)
	ancestor, err := idx.EntryStage("f.txt", index.AncestorStage)
	require.NoError(t, err)
	require.Equal(t, "f.txt", ancestor.Name)
	ours2, err := idx.EntryStage("f.txt", index.OurStage)
	require.NoError(t, err)
	require.Equal(t, "f.txt", ours2.Name)
	theirs2, err := idx.EntryStage("f.txt", index.TheirStage)
	require.NoError(t, err)
	require.Equal(t, "f.txt", theirs2.Name)
}

func TestRunFastForwardOnlyRejectsRealMerge(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	_, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, FastForward: "only", Now: time.Unix(1300, 0),
	})
	require.Error(t, err)
}

func TestRunFastForwardOnlyOptionRejectsRealMerge(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	_, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, FastForwardOnly: true, Now: time.Unix(1300, 0),
	})
	require.Error(t, err)
}

type fakeSigner struct{}

func (fakeSigner) Sign(payload []byte) (string, error) { return "SIGNATURE", nil }

func TestRunSignsMergeCommitWhenSignerSet(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Message: "merge", Now: time.Unix(1300, 0), Sign: fakeSigner{},
	})
	require.NoError(t, err)

	_, payload, err := e.db.ReadObject(result.Commit)
	require.NoError(t, err)
	c, err := object.DecodeCommit(payload)
	require.NoError(t, err)
	require.Equal(t, "SIGNATURE", c.GPGSig)
}

func TestRunDryRunWritesNoObjectAndLeavesRef(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Message: "merge", Now: time.Unix(1300, 0), DryRun: true,
	})
	require.NoError(t, err)
	require.False(t, result.Commit.IsZero())

	ref, err := e.refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(ours))

	has, err := e.db.HasObject(result.Commit)
	require.NoError(t, err)
	require.False(t, has)
}

func TestRunNoUpdateBranchWritesCommitButLeavesRef(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Message: "merge", Now: time.Unix(1300, 0), NoUpdateBranch: true,
	})
	require.NoError(t, err)
	require.False(t, result.Commit.IsZero())

	has, err := e.db.HasObject(result.Commit)
	require.NoError(t, err)
	require.True(t, has)

	ref, err := e.refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(ours))
}

func TestRunAbortOnConflictReturnsErrorInsteadOfResult(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	base := e.commitFiles(t, branch, nil, map[string]string{"f.txt": "base\n"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"f.txt": "ours\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"f.txt": "theirs\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	_, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Now: time.Unix(1300, 0), AbortOnConflict: true,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, &errkind.Error{Kind: errkind.MergeConflict})
}

func TestRunSavesAndClearsMergeStateAroundCleanMerge(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")
	backend := memory.NewBackend()
	root, err := backend.Root()
	require.NoError(t, err)

	base := e.commitFiles(t, branch, nil, map[string]string{"shared.txt": "base"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"shared.txt": "base", "theirs.txt": "t"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Message: "merge", Now: time.Unix(1300, 0), Root: root,
	})
	require.NoError(t, err)
	require.False(t, result.Commit.IsZero())

	_, ok, err := merge.LoadState(root)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunSavesMergeStateOnConflict(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")
	backend := memory.NewBackend()
	root, err := backend.Root()
	require.NoError(t, err)

	base := e.commitFiles(t, branch, nil, map[string]string{"f.txt": "base\n"}, time.Unix(1000, 0))
	ours := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"f.txt": "ours\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, base)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{base}, map[string]string{"f.txt": "theirs\n"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, ours)))

	result, err := merge.Run(e.db, e.refs, e.cfg, ours, theirs, merge.Options{
		Branch: branch, Message: "resolve conflict", Now: time.Unix(1300, 0), Root: root,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Conflicts)

	state, ok, err := merge.LoadState(root)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, state.Heads, 1)
	require.True(t, state.Heads[0].Equal(theirs))
	require.Equal(t, "resolve conflict", state.Message)
}

func treeOf(t *testing.T, e env, c plumbing.OID) plumbing.OID {
	t.Helper()
	typ, payload, err := e.db.ReadObject(c)
	require.NoError(t, err)
	require.Equal(t, plumbing.CommitObject, typ)
	parsed, err := object.DecodeCommit(payload)
	require.NoError(t, err)
	return parsed.Tree
}
