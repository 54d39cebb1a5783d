package repository_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/repository"
)

func TestTagLightweightPointsDirectlyAtTarget(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	require.NoError(t, r.Tag("v1.0.0", repository.TagOptions{Target: first}))

	ref, err := r.Refs.Reference(refstore.NewTagReferenceName("v1.0.0"))
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(first))
}

func TestTagAnnotatedWritesTagObject(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	require.NoError(t, r.Tag("v1.0.0", repository.TagOptions{
		Target:    first,
		Annotated: true,
		Message:   "release v1.0.0\n",
		Now:       fixedTime,
	}))

	ref, err := r.Refs.Reference(refstore.NewTagReferenceName("v1.0.0"))
	require.NoError(t, err)

	typ, payload, err := r.DB.ReadObject(ref.Hash())
	require.NoError(t, err)
	require.Equal(t, plumbing.TagObject, typ)

	tag, err := object.DecodeTag(payload)
	require.NoError(t, err)
	require.Equal(t, "v1.0.0", tag.Name)
	require.True(t, tag.Object.Equal(first))
	require.Equal(t, "Ada Lovelace", tag.Tagger.Name)
}

func TestTagRejectsDuplicateName(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	require.NoError(t, r.Tag("v1.0.0", repository.TagOptions{Target: first}))
	require.Error(t, r.Tag("v1.0.0", repository.TagOptions{Target: first}))
}

func TestDeleteTagRemovesReference(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	require.NoError(t, r.Tag("v1.0.0", repository.TagOptions{Target: first}))
	require.NoError(t, r.DeleteTag("v1.0.0"))

	_, err = r.Refs.Reference(refstore.NewTagReferenceName("v1.0.0"))
	require.Error(t, err)
}
