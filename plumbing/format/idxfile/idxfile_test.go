package idxfile_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/idxfile"
)

func oidForTest(t *testing.T, seed byte) plumbing.OID {
	t.Helper()
	payload := bytes.Repeat([]byte{seed}, 7)
	return plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, payload)
}

// TestWriteOpenRoundTrip checks that an index built by Write is
// fully navigable (by-OID lookup and in-order enumeration) through
// Open, including the 64-bit offset overflow path.
func TestWriteOpenRoundTrip(t *testing.T) {
	entries := []idxfile.Entry{
		{OID: oidForTest(t, 1), Offset: 12, CRC32: 0x1111},
		{OID: oidForTest(t, 2), Offset: 1 << 33, CRC32: 0x2222}, // forces 64-bit overflow slot
		{OID: oidForTest(t, 3), Offset: 999999, CRC32: 0x3333},
	}
	packChecksum := oidForTest(t, 99)

	var buf bytes.Buffer
	trailer, err := idxfile.Write(&buf, plumbing.FormatSHA1, entries, packChecksum)
	require.NoError(t, err)
	require.False(t, trailer.IsZero())

	idx, err := idxfile.Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), plumbing.SHA1Size)
	require.NoError(t, err)
	require.Equal(t, len(entries), idx.Count())
	require.True(t, idx.PackChecksum.Equal(packChecksum))
	require.True(t, idx.IdxChecksum.Equal(trailer))

	for _, e := range entries {
		off, err := idx.FindOffset(e.OID)
		require.NoError(t, err)
		require.Equal(t, e.Offset, off)

		crc, err := idx.FindCRC32(e.OID)
		require.NoError(t, err)
		require.Equal(t, e.CRC32, crc)

		ok, err := idx.Contains(e.OID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	missing := oidForTest(t, 200)
	_, err = idx.FindOffset(missing)
	require.ErrorIs(t, err, idxfile.ErrNotFound)

	got, err := idx.Entries()
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		require.True(t, got[i-1].OID.Compare(got[i].OID) < 0)
	}
}
