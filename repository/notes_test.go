package repository_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/repository"
)

var noteAuthor = commit.Identity{Name: "Ada Lovelace", Email: "ada@example.com"}

func TestNotesAddAndRead(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	notes := r.NotesIn(repository.DefaultNotesRef)
	_, err = notes.Add(first, "reviewed-by: grace\n", noteAuthor, fixedTime)
	require.NoError(t, err)

	text, ok, err := notes.Read(first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "reviewed-by: grace\n", text)
}

func TestNotesAddTwiceReplacesText(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	notes := r.NotesIn(repository.DefaultNotesRef)
	_, err = notes.Add(first, "first note\n", noteAuthor, fixedTime)
	require.NoError(t, err)
	_, err = notes.Add(first, "replacement note\n", noteAuthor, fixedTime)
	require.NoError(t, err)

	text, ok, err := notes.Read(first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "replacement note\n", text)
}

func TestNotesRemove(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	notes := r.NotesIn(repository.DefaultNotesRef)
	_, err = notes.Add(first, "note\n", noteAuthor, fixedTime)
	require.NoError(t, err)
	_, err = notes.Remove(first, noteAuthor, fixedTime)
	require.NoError(t, err)

	_, ok, err := notes.Read(first)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNotesReadMissingReturnsFalse(t *testing.T) {
	r := newRepo(t)
	writeFile(t, r, "a.txt", "v1\n")
	require.NoError(t, r.Add("a.txt"))
	first, err := commitAll(t, r, "first", nil)
	require.NoError(t, err)

	notes := r.NotesIn(repository.DefaultNotesRef)
	_, ok, err := notes.Read(first)
	require.NoError(t, err)
	require.False(t, ok)
}
