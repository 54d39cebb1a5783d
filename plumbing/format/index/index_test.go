package index_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
)

func blobOID(t *testing.T, seed byte) plumbing.OID {
	t.Helper()
	return plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, bytes.Repeat([]byte{seed}, 5))
}

// TestEncodeDecodeRoundTrip checks that a staging index with a
// merged entry and an unresolved three-way conflict survives
// encode/decode intact, including stage separation.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	idx := &index.Index{Version: index.VersionSupported}
	e1 := idx.Add("README.md")
	e1.Hash = blobOID(t, 1)
	e1.Mode = filemode.Regular
	e1.Size = 42
	e1.ModifiedAt = time.Unix(1000, 0)

	base := idx.Add("conflict.txt")
	base.Hash = blobOID(t, 2)
	base.Mode = filemode.Regular
	base.Stage = index.AncestorStage

	ours := idx.Add("conflict.txt")
	ours.Hash = blobOID(t, 3)
	ours.Mode = filemode.Regular
	ours.Stage = index.OurStage

	theirs := idx.Add("conflict.txt")
	theirs.Hash = blobOID(t, 4)
	theirs.Mode = filemode.Regular
	theirs.Stage = index.TheirStage

	var buf bytes.Buffer
	enc := index.NewEncoder(&buf, plumbing.FormatSHA1)
	require.NoError(t, enc.Encode(idx))

	var got index.Index
	dec := index.NewDecoder(bytes.NewReader(buf.Bytes()), plumbing.FormatSHA1)
	require.NoError(t, dec.Decode(&got))

	require.EqualValues(t, index.VersionSupported, got.Version)
	require.Len(t, got.Entries, 4)
	require.True(t, got.Unmerged())
	require.Equal(t, []string{"conflict.txt"}, got.UnmergedPaths())

	readme, err := got.Entry("README.md")
	require.NoError(t, err)
	require.True(t, readme.Hash.Equal(e1.Hash))
	require.EqualValues(t, 42, readme.Size)

	for _, stage := range []index.Stage{index.AncestorStage, index.OurStage, index.TheirStage} {
		got, err := got.EntryStage("conflict.txt", stage)
		require.NoError(t, err)
		require.Equal(t, stage, got.Stage)
	}
}

// TestEncodeDecodeTreeExtensionRoundTrip checks the TREE cache
// extension round-trips.
func TestEncodeDecodeTreeExtensionRoundTrip(t *testing.T) {
	idx := &index.Index{Version: index.VersionSupported}
	e := idx.Add("a.txt")
	e.Hash = blobOID(t, 9)
	e.Mode = filemode.Regular

	idx.Cache = &index.Tree{
		Entries: []index.TreeEntry{
			{Path: "", Entries: 1, Trees: 0, Hash: blobOID(t, 10)},
			{Path: "sub", Entries: -1, Trees: 0},
		},
	}

	var buf bytes.Buffer
	enc := index.NewEncoder(&buf, plumbing.FormatSHA1)
	require.NoError(t, enc.Encode(idx))

	var got index.Index
	dec := index.NewDecoder(bytes.NewReader(buf.Bytes()), plumbing.FormatSHA1)
	require.NoError(t, dec.Decode(&got))

	require.NotNil(t, got.Cache)
	require.Len(t, got.Cache.Entries, 2)
	require.Equal(t, "", got.Cache.Entries[0].Path)
	require.Equal(t, 1, got.Cache.Entries[0].Entries)
	require.Equal(t, -1, got.Cache.Entries[1].Entries)
}
