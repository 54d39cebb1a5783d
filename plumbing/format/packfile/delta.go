package packfile

import (
	"fmt"

	"github.com/opencore/gitcore/errkind"
)

// decodeDeltaSize reads the variable-length size encoding used at the
// head of a delta: 7 bits per byte, little-endian, MSB of
// each byte set means "more bytes follow".
func decodeDeltaSize(b []byte) (size uint64, n int) {
	var shift uint
	for n < len(b) {
		c := b[n]
		size |= uint64(c&0x7f) << shift
		n++
		if c&0x80 == 0 {
			return size, n
		}
		shift += 7
	}
	return size, n
}

// ApplyDelta reconstructs a target object from base and a delta stream
// . It enforces both size invariants: the delta's declared
// source size must equal len(base), and the produced output's length
// must equal the delta's declared target size.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	srcSize, n := decodeDeltaSize(delta)
	if n == 0 {
		return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("truncated delta header"))
	}
	delta = delta[n:]

	if srcSize != uint64(len(base)) {
		return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("delta source size %d does not match base length %d", srcSize, len(base)))
	}

	targetSize, n := decodeDeltaSize(delta)
	if n == 0 {
		return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("truncated delta header"))
	}
	delta = delta[n:]

	out := make([]byte, 0, targetSize)
	for len(delta) > 0 {
		op := delta[0]
		delta = delta[1:]

		if op&0x80 != 0 {
			// Copy: bits 0-3 select which offset bytes follow (LE),
			// bits 4-6 select which size bytes follow (LE).
			var offset, size uint32
			for i := uint(0); i < 4; i++ {
				if op&(1<<i) != 0 {
					if len(delta) == 0 {
						return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("truncated copy offset"))
					}
					offset |= uint32(delta[0]) << (8 * i)
					delta = delta[1:]
				}
			}
			for i := uint(0); i < 3; i++ {
				if op&(1<<(4+i)) != 0 {
					if len(delta) == 0 {
						return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("truncated copy size"))
					}
					size |= uint32(delta[0]) << (8 * i)
					delta = delta[1:]
				}
			}
			if size == 0 {
				size = 0x10000
			}
			if uint64(offset)+uint64(size) > uint64(len(base)) {
				return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("copy op out of base bounds: offset=%d size=%d base=%d", offset, size, len(base)))
			}
			out = append(out, base[offset:offset+size]...)
		} else if op != 0 {
			// Insert: op itself is the literal byte count (1..127).
			count := int(op)
			if len(delta) < count {
				return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("truncated insert literal"))
			}
			out = append(out, delta[:count]...)
			delta = delta[count:]
		} else {
			return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("delta op byte 0 is reserved"))
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, errkind.New(errkind.DeltaError, "ApplyDelta", fmt.Errorf("delta produced %d bytes, expected %d", len(out), targetSize))
	}
	return out, nil
}
