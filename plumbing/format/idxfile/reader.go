package idxfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/opencore/gitcore/plumbing"
)

// Index provides random access to a parsed pack index v2 file. It reads through an io.ReaderAt so the whole file needn't be
// resident in memory, grounded on go-git's ReaderAtIndex, but
// simplified to the scale this implementation targets (no reverse-index
// cache, no buffer pooling).
type Index struct {
	ra       io.ReaderAt
	hashSize int
	count    int

	fanout [256]uint32

	namesStart int64
	crcStart   int64
	off32Start int64
	off64Start int64

	PackChecksum plumbing.OID
	IdxChecksum  plumbing.OID
}

// Open parses the index header and fanout table from ra (size bytes
// total) and returns an Index ready for lookups. hashSize is 20 for
// SHA-1, 32 for SHA-256.
func Open(ra io.ReaderAt, size int64, hashSize int) (*Index, error) {
	minSize := int64(HeaderSize + FanoutSize + 2*hashSize)
	if size < minSize {
		return nil, fmt.Errorf("%w: too small (%d bytes)", ErrInvalidIndex, size)
	}

	hdr := make([]byte, HeaderSize)
	if _, err := ra.ReadAt(hdr, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	if !bytes.Equal(hdr[:4], Signature[:]) {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidIndex)
	}
	if v := binary.BigEndian.Uint32(hdr[4:8]); v != VersionSupported {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidIndex, v)
	}

	fanoutBuf := make([]byte, FanoutSize)
	if _, err := ra.ReadAt(fanoutBuf, HeaderSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}

	idx := &Index{ra: ra, hashSize: hashSize}
	for i := 0; i < 256; i++ {
		idx.fanout[i] = binary.BigEndian.Uint32(fanoutBuf[i*4 : i*4+4])
	}
	idx.count = int(idx.fanout[255])

	idx.namesStart = HeaderSize + FanoutSize
	idx.crcStart = idx.namesStart + int64(idx.count*hashSize)
	idx.off32Start = idx.crcStart + int64(idx.count*CRCSize)
	idx.off64Start = idx.off32Start + int64(idx.count*Offset32Size)

	trailerStart := size - int64(2*hashSize)
	if trailerStart < idx.off64Start {
		return nil, fmt.Errorf("%w: truncated offsets/trailer", ErrInvalidIndex)
	}
	trailer := make([]byte, 2*hashSize)
	if _, err := ra.ReadAt(trailer, trailerStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	format := plumbing.FormatSHA1
	if hashSize == plumbing.SHA256Size {
		format = plumbing.FormatSHA256
	}
	packSum, err := plumbing.FromBytes(format, trailer[:hashSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	idxSum, err := plumbing.FromBytes(format, trailer[hashSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	idx.PackChecksum = packSum
	idx.IdxChecksum = idxSum

	return idx, nil
}

// Count returns the number of objects indexed.
func (idx *Index) Count() int { return idx.count }

// FindOffset returns the pack offset of oid, or ErrNotFound.
func (idx *Index) FindOffset(oid plumbing.OID) (int64, error) {
	pos, found, err := idx.search(oid)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	return idx.offsetAt(pos)
}

// FindCRC32 returns the stored CRC32 of oid's on-disk record, or
// ErrNotFound.
func (idx *Index) FindCRC32(oid plumbing.OID) (uint32, error) {
	pos, found, err := idx.search(oid)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	return idx.crc32At(pos)
}

// Contains reports whether oid is present in the index.
func (idx *Index) Contains(oid plumbing.OID) (bool, error) {
	_, found, err := idx.search(oid)
	return found, err
}

// OIDAt returns the OID stored at sorted position pos (0 <= pos <
// Count()).
func (idx *Index) OIDAt(pos int) (plumbing.OID, error) {
	if pos < 0 || pos >= idx.count {
		return plumbing.OID{}, fmt.Errorf("%w: position %d out of range", ErrInvalidIndex, pos)
	}
	buf := make([]byte, idx.hashSize)
	if _, err := idx.ra.ReadAt(buf, idx.namesStart+int64(pos*idx.hashSize)); err != nil {
		return plumbing.OID{}, err
	}
	format := plumbing.FormatSHA1
	if idx.hashSize == plumbing.SHA256Size {
		format = plumbing.FormatSHA256
	}
	return plumbing.FromBytes(format, buf)
}

// Entries returns every entry in OID-sorted order.
func (idx *Index) Entries() ([]Entry, error) {
	out := make([]Entry, idx.count)
	for i := 0; i < idx.count; i++ {
		oid, err := idx.OIDAt(i)
		if err != nil {
			return nil, err
		}
		off, err := idx.offsetAt(i)
		if err != nil {
			return nil, err
		}
		crc, err := idx.crc32At(i)
		if err != nil {
			return nil, err
		}
		out[i] = Entry{OID: oid, Offset: off, CRC32: crc}
	}
	return out, nil
}

func (idx *Index) search(oid plumbing.OID) (pos int, found bool, err error) {
	first := int(oid.Bytes()[0])
	lo := 0
	if first > 0 {
		lo = int(idx.fanout[first-1])
	}
	hi := int(idx.fanout[first])

	want := oid.Bytes()
	var searchErr error
	p := lo + sort.Search(hi-lo, func(i int) bool {
		got, e := idx.nameAt(lo + i)
		if e != nil {
			searchErr = e
			return true
		}
		return bytes.Compare(got, want) >= 0
	})
	if searchErr != nil {
		return 0, false, searchErr
	}
	if p >= hi {
		return 0, false, nil
	}
	got, err := idx.nameAt(p)
	if err != nil {
		return 0, false, err
	}
	return p, bytes.Equal(got, want), nil
}

func (idx *Index) nameAt(pos int) ([]byte, error) {
	buf := make([]byte, idx.hashSize)
	_, err := idx.ra.ReadAt(buf, idx.namesStart+int64(pos*idx.hashSize))
	return buf, err
}

func (idx *Index) crc32At(pos int) (uint32, error) {
	var buf [CRCSize]byte
	if _, err := idx.ra.ReadAt(buf[:], idx.crcStart+int64(pos*CRCSize)); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (idx *Index) offsetAt(pos int) (int64, error) {
	var buf [Offset32Size]byte
	if _, err := idx.ra.ReadAt(buf[:], idx.off32Start+int64(pos*Offset32Size)); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(buf[:])
	if v&is64BitMask == 0 {
		return int64(v), nil
	}
	overflowIdx := int64(v &^ is64BitMask)
	var buf64 [Offset64Size]byte
	if _, err := idx.ra.ReadAt(buf64[:], idx.off64Start+overflowIdx*Offset64Size); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf64[:])), nil
}
