// Package wire implements the pkt-line framing, advertise-refs payload and
// pack-stream plumbing the Git smart protocols build on: enough to answer a
// git-upload-pack or git-receive-pack request, without a transport client or
// server of our own (HTTP/SSH framing and capability negotiation are out
// of scope here; no protocol version line is written or read).
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/opencore/gitcore/errkind"
)

// MaxPayloadSize is the largest payload a single pkt-line may carry.
const MaxPayloadSize = 65516

const lenSize = 4

// Sentinel lengths returned by ReadPacket for the zero-payload control
// packets. Any non-negative length greater than these is a data packet.
const (
	Flush = 0
	Delim = 1
)

var (
	flushPkt = []byte("0000")
	delimPkt = []byte("0001")

	errPrefix = []byte("ERR ")
)

// ErrPayloadTooLong is returned by WritePacket when the payload exceeds
// MaxPayloadSize.
var ErrPayloadTooLong = errors.New("wire: pkt-line payload too long")

// ErrInvalidPktLen is returned by ReadPacket when the four-byte length
// prefix doesn't parse as a sane pkt-line length.
var ErrInvalidPktLen = errors.New("wire: invalid pkt-line length")

// RemoteError is a pkt-line carrying an "ERR " prefixed message, which by
// convention terminates the data transfer it appears in.
type RemoteError struct {
	Text string
}

func (e *RemoteError) Error() string { return e.Text }

// WritePacket writes one data pkt-line. An empty payload writes a
// flush-pkt instead, as WriteFlush does.
func WritePacket(w io.Writer, p []byte) error {
	if len(p) == 0 {
		return WriteFlush(w)
	}
	if len(p) > MaxPayloadSize {
		return ErrPayloadTooLong
	}
	n := len(p) + lenSize
	if _, err := w.Write([]byte(fmt.Sprintf("%04x", n))); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// WritePacketString is WritePacket for a string payload.
func WritePacketString(w io.Writer, s string) error {
	return WritePacket(w, []byte(s))
}

// WritePacketf formats a string and writes it as one data pkt-line.
func WritePacketf(w io.Writer, format string, a ...interface{}) error {
	return WritePacketString(w, fmt.Sprintf(format, a...))
}

// WriteFlush writes a flush-pkt ("0000"), the packet that ends a section
// of the protocol (e.g. the advertised-refs list, or a negotiation round).
func WriteFlush(w io.Writer) error {
	_, err := w.Write(flushPkt)
	return err
}

// WriteDelim writes a delim-pkt ("0001"), used by protocol v2 to separate
// sections within one message.
func WriteDelim(w io.Writer) error {
	_, err := w.Write(delimPkt)
	return err
}

// ReadPacket reads one pkt-line and returns its payload. Flush and delim
// packets are reported as (Flush, nil, nil) and (Delim, nil, nil)
// respectively; any other non-negative length is a data packet.
func ReadPacket(r io.Reader) (int, []byte, error) {
	var lenHdr [lenSize]byte
	if _, err := io.ReadFull(r, lenHdr[:]); err != nil {
		return -1, nil, err
	}

	length, err := parseLength(lenHdr[:])
	if err != nil {
		return -1, nil, err
	}

	switch length {
	case 0:
		return Flush, nil, nil
	case 1:
		return Delim, nil, nil
	}

	if length <= lenSize {
		return -1, nil, ErrInvalidPktLen
	}

	data := make([]byte, length-lenSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return -1, nil, err
	}

	if bytes.HasPrefix(data, errPrefix) {
		return -1, data, &RemoteError{Text: string(bytes.TrimSpace(data[len(errPrefix):]))}
	}

	return length, data, nil
}

// ReadPacketLine is ReadPacket with trailing "\n" trimmed from data
// payloads, matching the line-oriented pkt-lines most of the protocol uses.
func ReadPacketLine(r io.Reader) (int, []byte, error) {
	length, data, err := ReadPacket(r)
	if err != nil {
		return length, data, err
	}
	return length, bytes.TrimSuffix(data, []byte("\n")), nil
}

func parseLength(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		default:
			return 0, errkind.New(errkind.ParseError, "wire.parseLength", ErrInvalidPktLen)
		}
	}
	if n > MaxPayloadSize+lenSize {
		return 0, errkind.New(errkind.ParseError, "wire.parseLength", ErrInvalidPktLen)
	}
	return n, nil
}
