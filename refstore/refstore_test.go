package refstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/storage/memory"
)

func oid(s byte) plumbing.OID {
	return plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, []byte{s})
}

func newStore(t *testing.T) *refstore.RefStore {
	t.Helper()
	backend := memory.NewBackend()
	root, err := backend.Root()
	require.NoError(t, err)
	return refstore.New(root, nil)
}

func TestSetAndGetHashReference(t *testing.T) {
	s := newStore(t)
	name := refstore.NewBranchReferenceName("main")
	ref := refstore.NewHashReference(name, oid('a'))

	require.NoError(t, s.SetReference(ref))

	got, err := s.Reference(name)
	require.NoError(t, err)
	require.Equal(t, refstore.HashReference, got.Type())
	require.True(t, got.Hash().Equal(oid('a')))
}

func TestResolveFollowsSymbolicChain(t *testing.T) {
	s := newStore(t)
	branch := refstore.NewBranchReferenceName("main")
	require.NoError(t, s.SetReference(refstore.NewHashReference(branch, oid('a'))))
	require.NoError(t, s.SetReference(refstore.NewSymbolicReference(refstore.HEAD, branch)))

	resolved, err := s.Resolve(refstore.HEAD)
	require.NoError(t, err)
	require.Equal(t, refstore.HashReference, resolved.Type())
	require.True(t, resolved.Hash().Equal(oid('a')))
}

func TestCheckAndSetReferenceRejectsStaleOld(t *testing.T) {
	s := newStore(t)
	name := refstore.NewBranchReferenceName("main")
	require.NoError(t, s.SetReference(refstore.NewHashReference(name, oid('a'))))

	wrongOld := refstore.NewHashReference(name, oid('b'))
	err := s.CheckAndSetReference(refstore.NewHashReference(name, oid('c')), wrongOld)
	require.Error(t, err)

	current, err := s.Reference(name)
	require.NoError(t, err)
	require.True(t, current.Hash().Equal(oid('a')))
}

func TestCheckAndSetReferenceAcceptsMatchingOld(t *testing.T) {
	s := newStore(t)
	name := refstore.NewBranchReferenceName("main")
	first := refstore.NewHashReference(name, oid('a'))
	require.NoError(t, s.SetReference(first))

	second := refstore.NewHashReference(name, oid('b'))
	require.NoError(t, s.CheckAndSetReference(second, first))

	current, err := s.Reference(name)
	require.NoError(t, err)
	require.True(t, current.Hash().Equal(oid('b')))
}

func TestCheckAndSetReferenceCreatesWhenOldNil(t *testing.T) {
	s := newStore(t)
	name := refstore.NewBranchReferenceName("feature")
	require.NoError(t, s.CheckAndSetReference(refstore.NewHashReference(name, oid('a')), nil))

	err := s.CheckAndSetReference(refstore.NewHashReference(name, oid('b')), nil)
	require.Error(t, err)
}

func TestIterReferencesListsLooseAndHEAD(t *testing.T) {
	s := newStore(t)
	main := refstore.NewBranchReferenceName("main")
	require.NoError(t, s.SetReference(refstore.NewHashReference(main, oid('a'))))
	require.NoError(t, s.SetReference(refstore.NewSymbolicReference(refstore.HEAD, main)))

	var names []string
	require.NoError(t, s.IterReferences(func(r *refstore.Reference) error {
		names = append(names, string(r.Name()))
		return nil
	}))
	require.Contains(t, names, "HEAD")
	require.Contains(t, names, "refs/heads/main")
}

func TestPackMovesLooseRefsIntoPackedRefs(t *testing.T) {
	s := newStore(t)
	main := refstore.NewBranchReferenceName("main")
	require.NoError(t, s.SetReference(refstore.NewHashReference(main, oid('a'))))
	require.NoError(t, s.SetReference(refstore.NewSymbolicReference(refstore.HEAD, main)))

	require.NoError(t, s.Pack())

	got, err := s.Reference(main)
	require.NoError(t, err)
	require.True(t, got.Hash().Equal(oid('a')))

	head, err := s.Reference(refstore.HEAD)
	require.NoError(t, err)
	require.Equal(t, refstore.SymbolicReference, head.Type())
}

func TestReferenceNameValidate(t *testing.T) {
	valid := []refstore.ReferenceName{
		"refs/heads/master",
		"HEAD",
		"refs/tags/v3.1.1",
		"refs/pulls/1/abc.123",
		"refs/-",
		"refs/ab/-testing",
	}
	for _, n := range valid {
		require.NoError(t, n.Validate(), string(n))
	}

	invalid := []refstore.ReferenceName{
		"refs",
		"refs/",
		"abc",
		"",
		"refs/heads/..",
		"refs/heads/foo.lock",
		"refs/heads/foo@{bar}",
		"refs/heads/-foo",
		"refs/tags/-",
	}
	for _, n := range invalid {
		require.Error(t, n.Validate(), string(n))
	}
}

func TestReferenceNameShort(t *testing.T) {
	require.Equal(t, "main", refstore.ReferenceName("refs/heads/main").Short())
	require.Equal(t, "origin/main", refstore.ReferenceName("refs/remotes/origin/main").Short())
	require.Equal(t, "notes/foo", refstore.ReferenceName("refs/notes/foo").Short())
}
