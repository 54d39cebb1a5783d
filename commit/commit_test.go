package commit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/storage/memory"
)

func blobEntry(t *testing.T, db *odb.DB, path, content string) *index.Entry {
	t.Helper()
	oid, err := db.WriteObject(plumbing.BlobObject, []byte(content))
	require.NoError(t, err)
	return &index.Entry{Name: path, Hash: oid, Mode: filemode.Regular, Stage: index.Merged}
}

func TestBuildTreeNestsDirectories(t *testing.T) {
	db := odb.New(memory.NewBackend(), plumbing.FormatSHA1)
	entries := []*index.Entry{
		blobEntry(t, db, "README.md", "hello"),
		blobEntry(t, db, "src/main.go", "package main"),
		blobEntry(t, db, "src/util/helpers.go", "package util"),
	}

	rootOID, err := commit.BuildTree(db, entries)
	require.NoError(t, err)

	typ, payload, err := db.ReadObject(rootOID)
	require.NoError(t, err)
	require.Equal(t, plumbing.TreeObject, typ)

	tree, err := object.DecodeTree(plumbing.FormatSHA1, payload)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 2)

	var srcOID plumbing.OID
	for _, e := range tree.Entries {
		if e.Name == "src" {
			require.Equal(t, filemode.Dir, e.Mode)
			srcOID = e.OID
		}
	}
	require.False(t, srcOID.IsZero())

	typ, payload, err = db.ReadObject(srcOID)
	require.NoError(t, err)
	require.Equal(t, plumbing.TreeObject, typ)
	srcTree, err := object.DecodeTree(plumbing.FormatSHA1, payload)
	require.NoError(t, err)
	require.Len(t, srcTree.Entries, 2)
}

func newEnv(t *testing.T) (*odb.DB, *refstore.RefStore, *config.Config) {
	t.Helper()
	backend := memory.NewBackend()
	db := odb.New(backend, plumbing.FormatSHA1)
	root, err := backend.Root()
	require.NoError(t, err)
	refs := refstore.New(root, nil)
	cfg := config.New()
	cfg.User.Name = "Ada Lovelace"
	cfg.User.Email = "ada@example.com"
	return db, refs, cfg
}

func TestCommitWritesObjectAndMovesRef(t *testing.T) {
	db, refs, cfg := newEnv(t)
	entries := []*index.Entry{blobEntry(t, db, "README.md", "hello")}
	branch := refstore.NewBranchReferenceName("main")

	oid, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch:  branch,
		Message: "initial commit",
		Now:     time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	require.False(t, oid.IsZero())

	typ, payload, err := db.ReadObject(oid)
	require.NoError(t, err)
	require.Equal(t, plumbing.CommitObject, typ)

	c, err := object.DecodeCommit(payload)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", c.Author.Name)
	require.Equal(t, "initial commit", c.Message)
	require.Empty(t, c.Parents)

	ref, err := refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(oid))
}

func TestCommitRejectsStaleParent(t *testing.T) {
	db, refs, cfg := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}

	first, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch: branch, Message: "first", Now: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	stale := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, []byte("not the real parent"))
	_, err = commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch: branch, Message: "second", Parents: []plumbing.OID{stale}, Now: time.Unix(1700000100, 0),
	})
	require.Error(t, err)

	ref, err := refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(first))
}

func TestCommitResolvesIdentityFromOverride(t *testing.T) {
	db, refs, cfg := newEnv(t)
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}
	branch := refstore.NewBranchReferenceName("main")

	oid, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch:  branch,
		Message: "override identity",
		Author:  commit.Identity{Name: "Grace Hopper", Email: "grace@example.com"},
		Now:     time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	_, payload, err := db.ReadObject(oid)
	require.NoError(t, err)
	c, err := object.DecodeCommit(payload)
	require.NoError(t, err)
	require.Equal(t, "Grace Hopper", c.Author.Name)
	require.Equal(t, "grace@example.com", c.Author.Email)
	require.Equal(t, "Ada Lovelace", c.Committer.Name)
}

func TestCommitRunsHooksAndAbortsOnPreCommitError(t *testing.T) {
	db, refs, cfg := newEnv(t)
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}
	branch := refstore.NewBranchReferenceName("main")

	_, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch:  branch,
		Message: "blocked",
		Hooks: commit.Hooks{
			PreCommit: func() error { return require.AnError },
		},
	})
	require.Error(t, err)

	_, err = refs.Reference(branch)
	require.Error(t, err)
}

func TestBuildTreeRejectsUnmergedEntries(t *testing.T) {
	db := odb.New(memory.NewBackend(), plumbing.FormatSHA1)
	oid, err := db.WriteObject(plumbing.BlobObject, []byte("conflicted"))
	require.NoError(t, err)

	entries := []*index.Entry{
		blobEntry(t, db, "clean.txt", "ok"),
		{Name: "f.txt", Hash: oid, Mode: filemode.Regular, Stage: index.OurStage},
		{Name: "f.txt", Hash: oid, Mode: filemode.Regular, Stage: index.TheirStage},
	}

	_, err = commit.BuildTree(db, entries)
	require.Error(t, err)

	var ge *errkind.Error
	require.ErrorAs(t, err, &ge)
	require.Equal(t, errkind.UnmergedPaths, ge.Kind)
	require.Equal(t, errkind.DataUnmergedPaths{Filepaths: []string{"f.txt"}}, ge.Data)
}

func TestCommitFailsWithUnmergedPathsAndWritesNothing(t *testing.T) {
	db, refs, cfg := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	oid, err := db.WriteObject(plumbing.BlobObject, []byte("conflicted"))
	require.NoError(t, err)
	entries := []*index.Entry{
		{Name: "f.txt", Hash: oid, Mode: filemode.Regular, Stage: index.OurStage},
	}

	before, err := countLooseObjects(db)
	require.NoError(t, err)

	_, err = commit.Commit(db, refs, cfg, entries, commit.Options{Branch: branch, Message: "nope"})
	require.Error(t, err)

	after, err := countLooseObjects(db)
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = refs.Reference(branch)
	require.Error(t, err)
}

func countLooseObjects(db *odb.DB) (int, error) {
	n := 0
	err := db.IterOIDs(func(plumbing.OID) error { n++; return nil })
	return n, err
}

func TestCommitSignsWhenSignerSet(t *testing.T) {
	db, refs, cfg := newEnv(t)
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}
	branch := refstore.NewBranchReferenceName("main")

	oid, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch: branch, Message: "signed", Now: time.Unix(1700000000, 0), Sign: fakeSigner{},
	})
	require.NoError(t, err)

	_, payload, err := db.ReadObject(oid)
	require.NoError(t, err)
	c, err := object.DecodeCommit(payload)
	require.NoError(t, err)
	require.Equal(t, "SIGNATURE", c.GPGSig)
}

type fakeSigner struct{}

func (fakeSigner) Sign(payload []byte) (string, error) { return "SIGNATURE", nil }

func TestCommitDryRunWritesNothing(t *testing.T) {
	db, refs, cfg := newEnv(t)
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}
	branch := refstore.NewBranchReferenceName("main")

	oid, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch: branch, Message: "dry", Now: time.Unix(1700000000, 0), DryRun: true,
	})
	require.NoError(t, err)
	require.False(t, oid.IsZero())

	has, err := db.HasObject(oid)
	require.NoError(t, err)
	require.False(t, has)

	_, err = refs.Reference(branch)
	require.Error(t, err)
}

func TestCommitNoUpdateBranchWritesObjectButLeavesRef(t *testing.T) {
	db, refs, cfg := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}

	first, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch: branch, Message: "first", Now: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	entries2 := []*index.Entry{blobEntry(t, db, "b.txt", "b")}
	second, err := commit.Commit(db, refs, cfg, entries2, commit.Options{
		Branch: branch, Message: "second", Parents: []plumbing.OID{first},
		Now: time.Unix(1700000100, 0), NoUpdateBranch: true,
	})
	require.NoError(t, err)

	has, err := db.HasObject(second)
	require.NoError(t, err)
	require.True(t, has)

	ref, err := refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(first))
}

func TestCommitAmendSwapsCompareAndSwapParent(t *testing.T) {
	db, refs, cfg := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}

	original, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch: branch, Message: "original", Now: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)

	entries2 := []*index.Entry{blobEntry(t, db, "a.txt", "a2")}
	amended, err := commit.Commit(db, refs, cfg, entries2, commit.Options{
		Branch: branch, Message: "amended", Now: time.Unix(1700000100, 0), Amend: original,
	})
	require.NoError(t, err)

	ref, err := refs.Reference(branch)
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(amended))
}

func TestCommitMsgHookRewritesMessage(t *testing.T) {
	db, refs, cfg := newEnv(t)
	entries := []*index.Entry{blobEntry(t, db, "a.txt", "a")}
	branch := refstore.NewBranchReferenceName("main")

	var posted plumbing.OID
	oid, err := commit.Commit(db, refs, cfg, entries, commit.Options{
		Branch:  branch,
		Message: "wip",
		Now:     time.Unix(1700000000, 0),
		Hooks: commit.Hooks{
			CommitMsg:  func(m string) (string, error) { return m + "\n\nSigned-off-by: ci", nil },
			PostCommit: func(o plumbing.OID) { posted = o },
		},
	})
	require.NoError(t, err)
	require.True(t, posted.Equal(oid))

	_, payload, err := db.ReadObject(oid)
	require.NoError(t, err)
	c, err := object.DecodeCommit(payload)
	require.NoError(t, err)
	require.Contains(t, c.Message, "Signed-off-by: ci")
}
