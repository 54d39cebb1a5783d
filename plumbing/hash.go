package plumbing

import (
	"bytes"
	"crypto"
	_ "crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strconv"

	"github.com/pjbgf/sha1cd"
)

// OID is a fixed-width, content-addressed object identifier. It holds
// either a 20-byte SHA-1 or a 32-byte SHA-256 digest; the format is part
// of the value so callers can't accidentally compare across formats.
type OID struct {
	format ObjectFormat
	size   int
	b      [SHA256Size]byte
}

// ZeroOID is the all-zero OID in the (unset, defaults to SHA-1-sized) form
// used to represent "no prior value" in reflogs.
var ZeroOID OID

// Bytes returns the raw digest bytes (length Size()).
func (o OID) Bytes() []byte { return o.b[:o.Size()] }

// Size returns the digest length in bytes: 20 for SHA-1, 32 for SHA-256.
// An OID with no format set (the zero value) is treated as SHA-1-sized.
func (o OID) Size() int {
	if o.size != 0 {
		return o.size
	}
	return o.format.byteSize()
}

// Format reports which hash algorithm produced this OID.
func (o OID) Format() ObjectFormat {
	if o.format == "" {
		return FormatSHA1
	}
	return o.format
}

// IsZero reports whether this is the all-zero OID for its size.
func (o OID) IsZero() bool {
	for _, c := range o.Bytes() {
		if c != 0 {
			return false
		}
	}
	return true
}

// String renders the OID as lowercase hex.
func (o OID) String() string { return hex.EncodeToString(o.Bytes()) }

// Compare provides a total order over OIDs of the same size; differing
// sizes compare by size first.
func (o OID) Compare(other OID) int {
	if o.Size() != other.Size() {
		if o.Size() < other.Size() {
			return -1
		}
		return 1
	}
	return bytes.Compare(o.Bytes(), other.Bytes())
}

// Equal reports whether two OIDs hold the same bytes (format-agnostic:
// two OIDs of different declared format but identical bytes are unequal
// only if their sizes differ).
func (o OID) Equal(other OID) bool { return o.Compare(other) == 0 }

// FromHex parses a lowercase or uppercase hex OID, inferring the format
// from its length (40 => SHA-1, 64 => SHA-256).
func FromHex(s string) (OID, error) {
	var o OID
	b, err := hex.DecodeString(s)
	if err != nil {
		return o, fmt.Errorf("gitcore: invalid oid %q: %w", s, err)
	}
	switch len(b) {
	case SHA1Size:
		o.format = FormatSHA1
		o.size = SHA1Size
	case SHA256Size:
		o.format = FormatSHA256
		o.size = SHA256Size
	default:
		return o, fmt.Errorf("gitcore: invalid oid length %d", len(b))
	}
	copy(o.b[:], b)
	return o, nil
}

// FromBytes builds an OID from raw digest bytes of a known format.
func FromBytes(f ObjectFormat, b []byte) (OID, error) {
	var o OID
	if len(b) != f.byteSize() {
		return o, fmt.Errorf("gitcore: invalid digest length %d for %s", len(b), f)
	}
	o.format = f
	o.size = len(b)
	copy(o.b[:], b)
	return o, nil
}

// IsValidHex reports whether s has the shape of a SHA-1 or SHA-256 hex OID.
func IsValidHex(s string) bool {
	switch len(s) {
	case SHA1HexSize, SHA256HexSize:
		_, err := hex.DecodeString(s)
		return err == nil
	default:
		return false
	}
}

// SortOIDs sorts a slice of OIDs in ascending order (used for pack index
// construction and tree diffing).
func SortOIDs(a []OID) {
	sort.Slice(a, func(i, j int) bool { return a[i].Compare(a[j]) < 0 })
}

// Hasher wraps a hash.Hash to compute the git object hash: the digest of
// the wrapped "<type> <len>\0<payload>" form. Dispatch on ObjectFormat
// follows go-git's Hasher/ObjectHasher split: SHA-1 uses sha1cd (a
// collision-detecting SHA-1, the same choice go-git makes) and SHA-256
// uses the standard library.
type Hasher struct {
	hash.Hash
	format ObjectFormat
}

// NewHasher returns a Hasher primed with the object header for t/size.
func NewHasher(f ObjectFormat, t ObjectType, size int64) Hasher {
	h := Hasher{format: f}
	switch f {
	case FormatSHA256:
		h.Hash = crypto.SHA256.New()
	default:
		h.Hash = sha1cd.New()
		h.format = FormatSHA1
	}
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
	return h
}

// Sum returns the OID for everything written so far.
func (h Hasher) Sum() OID {
	sum := h.Hash.Sum(nil)
	o, _ := FromBytes(h.format, sum)
	return o
}

// NewPlainHash returns an unprimed hash.Hash for the given format, used
// where git hashes raw bytes with no "<type> <len>\0" wrapper (e.g. a
// packfile's trailing checksum).
func NewPlainHash(f ObjectFormat) hash.Hash {
	if f == FormatSHA256 {
		return crypto.SHA256.New()
	}
	return sha1cd.New()
}

// HashObject computes the OID of an object's wrapped form directly,
// without a streaming Hasher, used by the ODB for small objects.
func HashObject(f ObjectFormat, t ObjectType, payload []byte) OID {
	h := NewHasher(f, t, int64(len(payload)))
	h.Write(payload)
	return h.Sum()
}
