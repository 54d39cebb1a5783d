package packfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

// Signature is the 4-byte packfile magic.
var Signature = [4]byte{'P', 'A', 'C', 'K'}

// VersionSupported is the only packfile version this implementation
// produces or consumes.
const VersionSupported = 2

var (
	errBadSignature = errors.New("gitcore: not a packfile (bad signature)")
	errBadVersion   = errors.New("gitcore: unsupported packfile version")
)

// ObjectHeader is one packfile record header: its type, declared
// inflated size, and (for delta types) the information needed to locate
// the base.
type ObjectHeader struct {
	Type       plumbing.ObjectType
	Size       int64
	Offset     int64        // absolute offset of this record in the pack
	BaseOffset int64        // set for OFSDeltaObject: absolute offset of the base
	BaseOID    plumbing.OID // set for REFDeltaObject
	HeaderLen  int64        // bytes occupied by the header+delta-base fields
}

// readObjectHeader decodes one packfile object header starting at the
// current position of br. hashSize selects 20 (SHA-1) or 32 (SHA-256)
// for REF-delta base OIDs.
func readObjectHeader(br *BoundaryReader, hashSize int) (ObjectHeader, error) {
	start := br.Tell()
	var h ObjectHeader

	c, err := br.ReadByte()
	if err != nil {
		return h, errkind.New(errkind.ParseError, "readObjectHeader", err)
	}
	typ := plumbing.ObjectType((c >> 4) & 0x07)
	size := int64(c & 0x0f)
	shift := uint(4)
	for c&0x80 != 0 {
		c, err = br.ReadByte()
		if err != nil {
			return h, errkind.New(errkind.ParseError, "readObjectHeader", err)
		}
		size |= int64(c&0x7f) << shift
		shift += 7
	}
	h.Type = typ
	h.Size = size

	switch typ {
	case plumbing.OFSDeltaObject:
		negOffset, err := readOffsetDelta(br)
		if err != nil {
			return h, err
		}
		h.BaseOffset = start - negOffset
	case plumbing.REFDeltaObject:
		raw := make([]byte, hashSize)
		if _, err := io.ReadFull(br, raw); err != nil {
			return h, errkind.New(errkind.ParseError, "readObjectHeader", err)
		}
		format := plumbing.FormatSHA1
		if hashSize == plumbing.SHA256Size {
			format = plumbing.FormatSHA256
		}
		oid, err := plumbing.FromBytes(format, raw)
		if err != nil {
			return h, errkind.New(errkind.ParseError, "readObjectHeader", err)
		}
		h.BaseOID = oid
	}

	h.HeaderLen = br.Tell() - start
	return h, nil
}

// readOffsetDelta decodes the OFS-delta negative offset encoding: each
// byte contributes 7 bits, MSB signals continuation, and every
// continuation byte implicitly adds 1 before shifting (the encoding
// used by real Git to avoid representing the same offset two ways).
func readOffsetDelta(br *BoundaryReader) (int64, error) {
	c, err := br.ReadByte()
	if err != nil {
		return 0, errkind.New(errkind.ParseError, "readOffsetDelta", err)
	}
	offset := int64(c & 0x7f)
	for c&0x80 != 0 {
		c, err = br.ReadByte()
		if err != nil {
			return 0, errkind.New(errkind.ParseError, "readOffsetDelta", err)
		}
		offset++
		offset = (offset << 7) | int64(c&0x7f)
	}
	return offset, nil
}

// writeObjectHeader encodes a non-delta object header.
func writeObjectHeader(w io.Writer, t plumbing.ObjectType, size int64) error {
	c := byte(t<<4) | byte(size&0x0f)
	size >>= 4
	for size != 0 {
		if _, err := w.Write([]byte{c | 0x80}); err != nil {
			return err
		}
		c = byte(size & 0x7f)
		size >>= 7
	}
	_, err := w.Write([]byte{c})
	return err
}

// writeOffsetDelta encodes the OFS-delta negative offset.
func writeOffsetDelta(w io.Writer, negOffset int64) error {
	if negOffset < 0 {
		return fmt.Errorf("gitcore: negative ofs-delta offset must be non-negative, got %d", negOffset)
	}
	var buf [16]byte
	i := len(buf)
	i--
	buf[i] = byte(negOffset & 0x7f)
	negOffset >>= 7
	for negOffset != 0 {
		negOffset--
		i--
		buf[i] = byte(negOffset&0x7f) | 0x80
		negOffset >>= 7
	}
	_, err := w.Write(buf[i:])
	return err
}
