package wire_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/repository"
	"github.com/opencore/gitcore/storage/memory"
	"github.com/opencore/gitcore/wire"
)

var fixedTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *repository.Repository {
	t.Helper()
	cfg := config.New()
	cfg.User.Name = "Ada Lovelace"
	cfg.User.Email = "ada@example.com"

	r, err := repository.Init(memory.NewBackend(), cfg, memfs.New())
	require.NoError(t, err)
	return r
}

func commitFile(t *testing.T, r *repository.Repository, name, content, message string) plumbing.OID {
	t.Helper()
	blob, err := r.DB.WriteObject(plumbing.BlobObject, []byte(content))
	require.NoError(t, err)

	idx, err := r.LoadIndex()
	require.NoError(t, err)
	idx.Remove(name)
	e := idx.Add(name)
	e.Hash = blob
	e.Mode = filemode.Regular
	require.NoError(t, r.SaveIndex(idx))

	var parents []plumbing.OID
	if branch, err := r.Refs.Reference(repository.DefaultBranch); err == nil {
		parents = append(parents, branch.Hash())
	}

	oid, err := commit.Commit(r.DB, r.Refs, r.Cfg, idx.Entries, commit.Options{
		Branch:  repository.DefaultBranch,
		Message: message,
		Parents: parents,
		Now:     fixedTime,
	})
	require.NoError(t, err)
	return oid
}

func TestAdvRefsEncodeDecodeRoundTrip(t *testing.T) {
	r := newRepo(t)
	commitFile(t, r, "a.txt", "v1\n", "first")

	adv, err := wire.AdvertiseRefs(r.Refs, wire.UploadPackCapabilities)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, adv.Encode(&buf))

	decoded, err := wire.DecodeAdvRefs(&buf)
	require.NoError(t, err)
	require.NotNil(t, decoded.Head)
	require.Equal(t, adv.Head.String(), decoded.Head.String())
	require.Equal(t, len(adv.References), len(decoded.References))
	for name, oid := range adv.References {
		got, ok := decoded.References[name]
		require.True(t, ok)
		require.True(t, oid.Equal(got))
	}
}

func TestAdvRefsEncodeEmptyRepository(t *testing.T) {
	r := newRepo(t)

	adv, err := wire.AdvertiseRefs(r.Refs, wire.UploadPackCapabilities)
	require.NoError(t, err)
	require.Nil(t, adv.Head)
	require.Empty(t, adv.References)

	var buf bytes.Buffer
	require.NoError(t, adv.Encode(&buf))

	decoded, err := wire.DecodeAdvRefs(&buf)
	require.NoError(t, err)
	require.Nil(t, decoded.Head)
	require.Empty(t, decoded.References)
}
