package packfile

import (
	"fmt"
	"io"

	"github.com/golang/groupcache/lru"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

// BaseResolver locates a delta base that REF-delta names by OID rather
// than by in-pack offset. A caller backed by a pack index typically
// tries that index first (for bases earlier in the same pack) and falls
// back to the wider object database for thin-pack bases.
type BaseResolver interface {
	ResolveBase(oid plumbing.OID) (plumbing.ObjectType, []byte, error)
}

// Reader provides random access to the objects in a packfile, resolving
// OFS-delta and REF-delta chains transparently. It keeps a
// bounded LRU of resolved bases keyed by pack offset, so that a fan of
// deltas sharing a common ancestor doesn't re-apply the chain from
// scratch for each one.
type Reader struct {
	ra       io.ReaderAt
	hashSize int
	resolver BaseResolver
	cache    *lru.Cache
}

type cacheEntry struct {
	typ  plumbing.ObjectType
	data []byte
}

// NewReader returns a Reader over the packfile accessible through ra.
// resolver may be nil if REF-delta bases are never expected to lie
// outside what the reader itself can resolve by offset (e.g. a pack
// that is known to be self-contained and always addressed via idx
// offsets). cacheSize bounds the number of resolved objects kept.
func NewReader(ra io.ReaderAt, hashSize int, resolver BaseResolver, cacheSize int) *Reader {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	return &Reader{ra: ra, hashSize: hashSize, resolver: resolver, cache: lru.New(cacheSize)}
}

// ReadAt decodes the object whose record starts at the given absolute
// pack offset, fully resolving any delta chain.
func (r *Reader) ReadAt(offset int64) (plumbing.ObjectType, []byte, error) {
	return r.readAt(offset, make(map[int64]bool))
}

func (r *Reader) readAt(offset int64, visiting map[int64]bool) (plumbing.ObjectType, []byte, error) {
	if v, ok := r.cache.Get(offset); ok {
		e := v.(cacheEntry)
		return e.typ, e.data, nil
	}
	if visiting[offset] {
		return plumbing.InvalidObject, nil, errkind.New(errkind.DeltaError, "Reader.ReadAt",
			fmt.Errorf("delta cycle detected at pack offset %d", offset))
	}
	visiting[offset] = true

	section := io.NewSectionReader(r.ra, offset, maxSectionLen(r.ra, offset))
	br := NewBoundaryReader(section)

	hdr, err := readObjectHeader(br, r.hashSize)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	hdr.Offset = offset

	payload, _, err := Inflate(br, hdr.Size)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	switch hdr.Type {
	case plumbing.CommitObject, plumbing.TreeObject, plumbing.BlobObject, plumbing.TagObject:
		r.cache.Add(offset, cacheEntry{hdr.Type, payload})
		return hdr.Type, payload, nil

	case plumbing.OFSDeltaObject:
		baseType, baseData, err := r.readAt(hdr.BaseOffset, visiting)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		out, err := ApplyDelta(baseData, payload)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		r.cache.Add(offset, cacheEntry{baseType, out})
		return baseType, out, nil

	case plumbing.REFDeltaObject:
		if r.resolver == nil {
			return plumbing.InvalidObject, nil, errkind.New(errkind.DeltaError, "Reader.ReadAt",
				fmt.Errorf("ref-delta base %s unresolvable: no resolver configured", hdr.BaseOID))
		}
		baseType, baseData, err := r.resolver.ResolveBase(hdr.BaseOID)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		out, err := ApplyDelta(baseData, payload)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		r.cache.Add(offset, cacheEntry{baseType, out})
		return baseType, out, nil

	default:
		return plumbing.InvalidObject, nil, errkind.New(errkind.ParseError, "Reader.ReadAt",
			fmt.Errorf("unexpected object type %s in packfile", hdr.Type))
	}
}

// maxSectionLen bounds a SectionReader at the end of the underlying
// ReaderAt when that's knowable (it implements io.Seeker over an
// *os.File-like value isn't assumed here, so callers pass generously
// sized ReaderAt values and rely on Inflate stopping at the zlib
// trailer rather than at EOF).
func maxSectionLen(ra io.ReaderAt, offset int64) int64 {
	if s, ok := ra.(interface{ Size() int64 }); ok {
		return s.Size() - offset
	}
	return 1 << 40
}
