package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/wire"
)

func TestWritePacketReadPacketRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WritePacketString(&buf, "hello\n"))
	require.NoError(t, wire.WriteFlush(&buf))

	length, data, err := wire.ReadPacket(&buf)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
	require.Greater(t, length, wire.Delim)

	length, data, err = wire.ReadPacket(&buf)
	require.NoError(t, err)
	require.Equal(t, wire.Flush, length)
	require.Nil(t, data)
}

func TestWritePacketEmptyIsFlush(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WritePacket(&buf, nil))
	require.Equal(t, "0000", buf.String())
}

func TestWritePacketTooLong(t *testing.T) {
	var buf bytes.Buffer
	err := wire.WritePacket(&buf, make([]byte, wire.MaxPayloadSize+1))
	require.ErrorIs(t, err, wire.ErrPayloadTooLong)
}

func TestReadPacketLineTrimsNewline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WritePacketString(&buf, "want abc\n"))

	_, line, err := wire.ReadPacketLine(&buf)
	require.NoError(t, err)
	require.Equal(t, "want abc", string(line))
}

func TestReadPacketRemoteError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WritePacketString(&buf, "ERR access denied\n"))

	_, _, err := wire.ReadPacket(&buf)
	require.Error(t, err)
	var remoteErr *wire.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "access denied", remoteErr.Text)
}
