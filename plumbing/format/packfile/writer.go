package packfile

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

// Source supplies an object's type and raw (unwrapped) content by OID,
// for WritePack to encode.
type Source interface {
	ReadObject(oid plumbing.OID) (plumbing.ObjectType, []byte, error)
}

// WritePack emits an undeltified packfile containing exactly the objects named
// by oids, in the given order, and returns the pack's trailing checksum.
func WritePack(w io.Writer, format plumbing.ObjectFormat, src Source, oids []plumbing.OID) (plumbing.OID, error) {
	hasher := plumbing.NewPlainHash(format)
	out := io.MultiWriter(w, hasher)

	var hdr [headerSize]byte
	copy(hdr[:4], Signature[:])
	binary.BigEndian.PutUint32(hdr[4:8], VersionSupported)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(oids)))
	if _, err := out.Write(hdr[:]); err != nil {
		return plumbing.OID{}, errkind.New(errkind.ParseError, "WritePack", err)
	}

	for _, oid := range oids {
		typ, payload, err := src.ReadObject(oid)
		if err != nil {
			return plumbing.OID{}, err
		}
		if err := writeObjectHeader(out, typ, int64(len(payload))); err != nil {
			return plumbing.OID{}, errkind.New(errkind.ParseError, "WritePack", err)
		}
		zw := zlib.NewWriter(out)
		if _, err := zw.Write(payload); err != nil {
			return plumbing.OID{}, errkind.New(errkind.ParseError, "WritePack", err)
		}
		if err := zw.Close(); err != nil {
			return plumbing.OID{}, errkind.New(errkind.ParseError, "WritePack", err)
		}
	}

	sum := hasher.Sum(nil)
	trailer, err := plumbing.FromBytes(format, sum)
	if err != nil {
		return plumbing.OID{}, errkind.New(errkind.ParseError, "WritePack", err)
	}
	if _, err := w.Write(trailer.Bytes()); err != nil {
		return plumbing.OID{}, errkind.New(errkind.ParseError, "WritePack", err)
	}
	return trailer, nil
}
