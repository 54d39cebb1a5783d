package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/wire"
)

func TestReceivePackAdvertiseListsCapabilities(t *testing.T) {
	r := newRepo(t)

	var buf bytes.Buffer
	require.NoError(t, wire.ReceivePackAdvertise(&buf, r.Refs))

	adv, err := wire.DecodeAdvRefs(&buf)
	require.NoError(t, err)
	require.Contains(t, adv.Capabilities, "report-status")
}

func TestDecodeCommandsRoundTrip(t *testing.T) {
	old := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, []byte("old\n"))
	newOID := plumbing.HashObject(plumbing.FormatSHA1, plumbing.BlobObject, []byte("new\n"))

	cmds := []*wire.Command{
		{Name: "refs/heads/main", Old: old, New: newOID},
	}

	var buf bytes.Buffer
	require.NoError(t, wire.EncodeCommands(&buf, cmds, wire.ReceivePackCapabilities))

	decoded, err := wire.DecodeCommands(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, refstore.ReferenceName("refs/heads/main"), decoded[0].Name)
	require.True(t, decoded[0].Old.Equal(old))
	require.True(t, decoded[0].New.Equal(newOID))
}

func TestReceivePackUnpackAppliesCommandsBetweenRepositories(t *testing.T) {
	source := newRepo(t)
	first := commitFile(t, source, "a.txt", "v1\n", "first")

	target := newRepo(t)

	var packBuf bytes.Buffer
	req := &wire.UploadPackRequest{Wants: []plumbing.OID{first}}
	require.NoError(t, wire.UploadPackPack(&packBuf, source.DB, req))

	_, _, err := wire.ReadPacketLine(&packBuf) // discard "NAK"
	require.NoError(t, err)

	cmds := []*wire.Command{
		{Name: "refs/heads/topic", Old: plumbing.OID{}, New: first},
	}

	status := wire.ReceivePackUnpack(&packBuf, target, cmds)
	require.Nil(t, status.Err())

	ref, err := target.Refs.Reference(refstore.ReferenceName("refs/heads/topic"))
	require.NoError(t, err)
	require.True(t, ref.Hash().Equal(first))

	typ, _, err := target.DB.ReadObject(first)
	require.NoError(t, err)
	require.Equal(t, plumbing.CommitObject, typ)
}

func TestReceivePackUnpackDeletesRefOnZeroNew(t *testing.T) {
	target := newRepo(t)
	first := commitFile(t, target, "a.txt", "v1\n", "first")
	require.NoError(t, target.Refs.SetReference(refstore.NewHashReference("refs/heads/topic", first)))

	status := wire.ReceivePackUnpack(&bytes.Buffer{}, target, nil)
	require.Equal(t, "ok", status.UnpackStatus)

	// A delete-only push still carries a (empty) pack on the wire.
	var emptyPack bytes.Buffer
	_, err := packfile.WritePack(&emptyPack, target.DB.Format(), target.DB, nil)
	require.NoError(t, err)

	cmds := []*wire.Command{{Name: "refs/heads/topic", Old: first, New: plumbing.OID{}}}
	status = wire.ReceivePackUnpack(&emptyPack, target, cmds)
	require.Nil(t, status.Err())

	_, err = target.Refs.Reference(refstore.ReferenceName("refs/heads/topic"))
	require.Error(t, err)
}
