package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/wire"
)

func TestUploadPackAdvertiseListsRefs(t *testing.T) {
	r := newRepo(t)
	commitFile(t, r, "a.txt", "v1\n", "first")

	var buf bytes.Buffer
	require.NoError(t, wire.UploadPackAdvertise(&buf, r.Refs))

	adv, err := wire.DecodeAdvRefs(&buf)
	require.NoError(t, err)
	require.NotNil(t, adv.Head)
	require.Contains(t, adv.Capabilities, "ofs-delta")
}

func TestUploadPackRequestRoundTrip(t *testing.T) {
	want := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, []byte("v1\n"))
	have := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, []byte("v0\n"))

	var buf bytes.Buffer
	require.NoError(t, wire.WritePacketString(&buf, "want "+want.String()+"\n"))
	require.NoError(t, wire.WritePacketString(&buf, "have "+have.String()+"\n"))
	require.NoError(t, wire.WritePacketString(&buf, "done\n"))

	req, err := wire.DecodeUploadPackRequest(&buf)
	require.NoError(t, err)
	require.True(t, req.Done)
	require.Len(t, req.Wants, 1)
	require.True(t, req.Wants[0].Equal(want))
	require.Len(t, req.Haves, 1)
	require.True(t, req.Haves[0].Equal(have))
}

func TestUploadPackPackSendsRequestedObjects(t *testing.T) {
	r := newRepo(t)
	first := commitFile(t, r, "a.txt", "v1\n", "first")
	second := commitFile(t, r, "b.txt", "v2\n", "second")

	req := &wire.UploadPackRequest{Wants: []plumbing.OID{second}}

	var buf bytes.Buffer
	require.NoError(t, wire.UploadPackPack(&buf, r.DB, req))

	length, line, err := wire.ReadPacketLine(&buf)
	require.NoError(t, err)
	require.NotEqual(t, wire.Flush, length)
	require.Equal(t, "NAK", string(line))

	hashSize := r.DB.Format().Size()
	scanner, err := packfile.NewScanner(&buf, hashSize)
	require.NoError(t, err)

	seen := make(map[plumbing.OID]bool)
	for {
		rec, err := scanner.Next()
		if err != nil {
			break
		}
		oid := plumbing.HashObject(r.DB.Format(), rec.Header.Type, rec.Data)
		seen[oid] = true
	}

	require.True(t, seen[second], "pack must contain the wanted commit")
	require.True(t, seen[first], "pack must contain ancestor objects too")
}
