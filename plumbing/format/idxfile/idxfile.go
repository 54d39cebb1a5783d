// Package idxfile implements the pack index v2 format: the
// per-pack sidecar that maps object ids to pack offsets without
// requiring a sequential scan of the pack itself.
package idxfile

import (
	"errors"

	"github.com/opencore/gitcore/plumbing"
)

// Layout constants for pack index v2.
const (
	HeaderSize   = 8 // 4-byte signature + 4-byte version
	FanoutSize   = 256 * 4
	CRCSize      = 4
	Offset32Size = 4
	Offset64Size = 8

	VersionSupported = 2

	// is64BitMask marks a 32-bit offset slot as an index into the
	// 64-bit overflow table rather than a literal offset.
	is64BitMask = uint32(1) << 31
)

// Signature is the 4-byte pack index magic: 0xff, 't', 'O', 'c'.
var Signature = [4]byte{0xff, 't', 'O', 'c'}

var (
	// ErrNotFound is returned when an OID has no entry in the index.
	ErrNotFound = errors.New("gitcore: object not present in pack index")
	// ErrInvalidIndex is returned when the index bytes are malformed.
	ErrInvalidIndex = errors.New("gitcore: invalid pack index")
)

// Entry is one object's record in the index: its id, its absolute
// offset within the packfile, and the CRC32 of its on-disk (compressed)
// record.
type Entry struct {
	OID    plumbing.OID
	Offset int64
	CRC32  uint32
}
