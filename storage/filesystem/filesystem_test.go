package filesystem_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/storage"
	storagefs "github.com/opencore/gitcore/storage/filesystem"
)

func TestLooseObjectWriteReadRoundTrip(t *testing.T) {
	b := storagefs.NewBackend(memfs.New())

	payload := []byte("hello, world\n")
	oid := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, payload)

	has, err := b.HasLooseObject(oid)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, b.WriteLooseObject(oid, storage.LooseObject{Type: plumbing.BlobObject, Data: payload}))

	has, err = b.HasLooseObject(oid)
	require.NoError(t, err)
	require.True(t, has)

	got, err := b.ReadLooseObject(oid)
	require.NoError(t, err)
	require.Equal(t, plumbing.BlobObject, got.Type)
	require.Equal(t, payload, got.Data)

	var seen []plumbing.OID
	require.NoError(t, b.IterLooseObjects(func(o plumbing.OID) error {
		seen = append(seen, o)
		return nil
	}))
	require.Len(t, seen, 1)
	require.True(t, seen[0].Equal(oid))
}

func TestWritePackAndOpenRoundTrip(t *testing.T) {
	b := storagefs.NewBackend(memfs.New())

	blobA := []byte("alpha\n")
	blobB := []byte("beta\n")
	oidA := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, blobA)
	oidB := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, blobB)

	src := fakeSource{oidA: {plumbing.BlobObject, blobA}, oidB: {plumbing.BlobObject, blobB}}

	var buf bytes.Buffer
	_, err := packfile.WritePack(&buf, plumbing.FormatSHA1, src, []plumbing.OID{oidA, oidB})
	require.NoError(t, err)

	name, err := b.WritePack(bytes.NewReader(buf.Bytes()), plumbing.FormatSHA1)
	require.NoError(t, err)

	names, err := b.ListPacks()
	require.NoError(t, err)
	require.Equal(t, []string{name}, names)

	pack, err := b.OpenPack(name)
	require.NoError(t, err)
	require.EqualValues(t, 2, pack.Index.Count())

	off, err := pack.Index.FindOffset(oidA)
	require.NoError(t, err)

	section := io.NewSectionReader(pack.Pack, 0, pack.Size)
	reader := packfile.NewReader(section, plumbing.SHA1Size, nil, 16)
	typ, data, err := reader.ReadAt(off)
	require.NoError(t, err)
	require.Equal(t, plumbing.BlobObject, typ)
	require.Equal(t, blobA, data)
}

type fakeSource map[plumbing.OID]struct {
	typ  plumbing.ObjectType
	data []byte
}

func (s fakeSource) ReadObject(oid plumbing.OID) (plumbing.ObjectType, []byte, error) {
	e := s[oid]
	return e.typ, e.data, nil
}
