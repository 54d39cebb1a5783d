package packfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/opencore/gitcore/errkind"
)

// headerSize is the fixed 12-byte packfile prelude: 4-byte magic,
// 4-byte version, 4-byte object count.
const headerSize = 12

// Scanner walks a packfile sequentially, decoding one object record at a
// time and reporting the exact byte range it occupied. This is pass 1 of
// pack-index construction; the random-access Reader does not use it but
// shares its header and inflate routines.
type Scanner struct {
	br       *BoundaryReader
	hashSize int
	Count    uint32
	read     uint32
}

// NewScanner reads the packfile prelude from r and returns a Scanner
// positioned at the first object record. hashSize is 20 for SHA-1
// repositories, 32 for SHA-256.
func NewScanner(r io.Reader, hashSize int) (*Scanner, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errkind.New(errkind.ParseError, "NewScanner", err)
	}
	if !bytes.Equal(hdr[:4], Signature[:]) {
		return nil, errkind.New(errkind.ParseError, "NewScanner", errBadSignature)
	}
	version := binary.BigEndian.Uint32(hdr[4:8])
	if version != VersionSupported {
		return nil, errkind.New(errkind.ParseError, "NewScanner", errBadVersion)
	}
	count := binary.BigEndian.Uint32(hdr[8:12])
	return &Scanner{br: NewBoundaryReader(r), hashSize: hashSize, Count: count}, nil
}

// Record is one decoded packfile object: its header, inflated bytes
// (literal content for non-delta types, the raw delta stream for delta
// types), and the byte range [Offset, Offset+Length) it occupies.
type Record struct {
	Header ObjectHeader
	Data   []byte
	Offset int64
	Length int64
}

// Next decodes the following record, or returns io.EOF once Count
// records have been read.
func (s *Scanner) Next() (*Record, error) {
	if s.read >= s.Count {
		return nil, io.EOF
	}
	offset := headerSize + s.br.Tell()

	hdr, err := readObjectHeader(s.br, s.hashSize)
	if err != nil {
		return nil, err
	}
	hdr.Offset = offset

	plaintext, used, err := Inflate(s.br, hdr.Size)
	if err != nil {
		return nil, err
	}
	s.read++

	return &Record{
		Header: hdr,
		Data:   plaintext,
		Offset: offset,
		Length: hdr.HeaderLen + used,
	}, nil
}
