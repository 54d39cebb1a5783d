// Package packfile implements the packfile wire format: the zlib boundary inflator, the delta resolver, and the
// sequential packfile reader/writer.
package packfile

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/opencore/gitcore/errkind"
)

// chunkSize bounds how many bytes BoundaryReader pulls from the
// underlying stream per refill. Small chunks minimize how far a zlib
// decoder can read past the true end of a stream before we notice.
const chunkSize = 128

// readerFunc adapts a plain function to io.Reader so we can intercept
// every physical read performed by the bufio layer beneath us.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

// BoundaryReader is the chunked byte reader contract a boundary-aware
// decompressor consumes: it exposes Read/ReadByte, while Tell()
// reports the exact number of bytes logically consumed from the
// underlying stream, net of the reader's own buffered read-ahead. A
// single BoundaryReader is reused across every object in a packfile, so
// that whatever one object's decoder over-reads becomes the start of
// the next object's stream rather than being lost.
type BoundaryReader struct {
	pos int64
	buf *bufio.Reader
}

// NewBoundaryReader wraps r for exact-boundary zlib decoding.
func NewBoundaryReader(r io.Reader) *BoundaryReader {
	br := &BoundaryReader{}
	counting := readerFunc(func(p []byte) (int, error) {
		n, err := r.Read(p)
		br.pos += int64(n)
		return n, err
	})
	br.buf = bufio.NewReaderSize(counting, chunkSize)
	return br
}

func (b *BoundaryReader) Read(p []byte) (int, error) { return b.buf.Read(p) }
func (b *BoundaryReader) ReadByte() (byte, error)    { return b.buf.ReadByte() }

// Tell reports the exact number of input bytes consumed so far.
func (b *BoundaryReader) Tell() int64 { return b.pos - int64(b.buf.Buffered()) }

// Inflate decompresses exactly one zlib stream from br, expecting `want`
// bytes of plaintext, and reports the exact number of compressed input
// bytes the stream occupied. br is left positioned
// at the first byte following the consumed stream, ready for the next
// object.
func Inflate(br *BoundaryReader, want int64) (plaintext []byte, usedBytes int64, err error) {
	before := br.Tell()

	zr, zerr := zlib.NewReader(br)
	if zerr != nil {
		return nil, 0, errkind.New(errkind.InflateError, "Inflate", zerr)
	}
	defer zr.Close()

	buf := make([]byte, want)
	n, rerr := io.ReadFull(zr, buf)
	if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
		return nil, 0, errkind.New(errkind.InflateError, "Inflate", rerr)
	}
	if int64(n) != want {
		return nil, 0, errkind.New(errkind.InflateError, "Inflate", io.ErrUnexpectedEOF)
	}

	// Force the decoder to consume and verify its trailing checksum so
	// that br.Tell() reflects the true end of the zlib stream rather
	// than stopping the instant `want` bytes were produced.
	var tail [1]byte
	if tn, terr := zr.Read(tail[:]); terr != io.EOF || tn != 0 {
		if terr == nil {
			return nil, 0, errkind.New(errkind.InflateError, "Inflate", io.ErrUnexpectedEOF)
		}
		if terr != io.EOF {
			return nil, 0, errkind.New(errkind.InflateError, "Inflate", terr)
		}
	}

	return buf, br.Tell() - before, nil
}

// SearchBoundary is the binary-search fallback used when a decoder is
// fed a fully-buffered candidate slice instead of
// a live BoundaryReader (e.g. to validate a boundary an alternate code
// path computed some other way). It returns the minimal prefix length k
// of data such that decompressing data[:k] both succeeds and yields
// exactly `want` bytes.
//
// The search space is capped at min(len(data), 3*want+128) to avoid
// quadratic work on large packs.
func SearchBoundary(data []byte, want int64) (int, error) {
	upper := int64(len(data))
	if cap3 := 3*want + 128; cap3 < upper {
		upper = cap3
	}

	lo, hi := int64(1), upper
	best := int64(-1)
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if n, ok := tryDecompress(data[:mid], want); ok {
			best = n
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	if best < 0 {
		return 0, errkind.New(errkind.InflateError, "SearchBoundary", io.ErrUnexpectedEOF)
	}
	return int(best), nil
}

// tryDecompress reports whether data decompresses cleanly to exactly
// want bytes, returning the candidate length on success (len(data) is
// itself the candidate prefix length the caller is testing).
func tryDecompress(data []byte, want int64) (int64, bool) {
	zr, err := zlib.NewReader(sliceReader(data))
	if err != nil {
		return 0, false
	}
	defer zr.Close()

	buf := make([]byte, want+1)
	n, err := io.ReadFull(zr, buf)
	if int64(n) != want {
		return 0, false
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, false
	}
	// Any further byte would mean want was too small for this prefix.
	var extra [1]byte
	if en, _ := zr.Read(extra[:]); en != 0 {
		return 0, false
	}
	return int64(len(data)), true
}

func sliceReader(b []byte) io.Reader {
	return &bytesReaderNoSeek{b: b}
}

// bytesReaderNoSeek is a minimal io.Reader over a byte slice; kept
// distinct from bytes.Reader so SearchBoundary's candidate-prefix reads
// never accidentally rely on Seek semantics.
type bytesReaderNoSeek struct {
	b []byte
	i int
}

func (r *bytesReaderNoSeek) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
