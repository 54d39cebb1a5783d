package idxfile

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/opencore/gitcore/plumbing"
)

// Write encodes entries into pack index v2 format and returns the
// index's own trailing checksum. entries need not be pre-sorted; Write
// sorts a copy by OID before encoding, as the format requires.
func Write(w io.Writer, format plumbing.ObjectFormat, entries []Entry, packChecksum plumbing.OID) (plumbing.OID, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OID.Compare(sorted[j].OID) < 0 })

	hasher := plumbing.NewPlainHash(format)
	out := io.MultiWriter(w, hasher)

	if _, err := out.Write(Signature[:]); err != nil {
		return plumbing.OID{}, err
	}
	if err := writeUint32(out, VersionSupported); err != nil {
		return plumbing.OID{}, err
	}

	var fanout [256]uint32
	for _, e := range sorted {
		b := e.OID.Bytes()[0]
		for i := int(b); i < 256; i++ {
			fanout[i]++
		}
	}
	for _, c := range fanout {
		if err := writeUint32(out, c); err != nil {
			return plumbing.OID{}, err
		}
	}

	for _, e := range sorted {
		if _, err := out.Write(e.OID.Bytes()); err != nil {
			return plumbing.OID{}, err
		}
	}

	for _, e := range sorted {
		if err := writeUint32(out, e.CRC32); err != nil {
			return plumbing.OID{}, err
		}
	}

	var overflow []int64
	for _, e := range sorted {
		if e.Offset <= 0x7fffffff {
			if err := writeUint32(out, uint32(e.Offset)); err != nil {
				return plumbing.OID{}, err
			}
			continue
		}
		idx := len(overflow)
		overflow = append(overflow, e.Offset)
		if err := writeUint32(out, is64BitMask|uint32(idx)); err != nil {
			return plumbing.OID{}, err
		}
	}
	for _, off := range overflow {
		if err := writeUint64(out, uint64(off)); err != nil {
			return plumbing.OID{}, err
		}
	}

	if _, err := out.Write(packChecksum.Bytes()); err != nil {
		return plumbing.OID{}, err
	}

	sum := hasher.Sum(nil)
	trailer, err := plumbing.FromBytes(format, sum)
	if err != nil {
		return plumbing.OID{}, err
	}
	if _, err := w.Write(trailer.Bytes()); err != nil {
		return plumbing.OID{}, err
	}
	return trailer, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}
