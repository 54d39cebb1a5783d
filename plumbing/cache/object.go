// Package cache provides the object-content caching layer shared by
// the object database: a byte-budgeted LRU for decoded
// object payloads, and a read deduplicator so that concurrent requests
// for the same cold object only do the work once.
package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	"github.com/opencore/gitcore/plumbing"
)

// Byte-size units, matching go-git's plumbing/cache sizing constants.
const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// DefaultSize is the default object cache budget: 96 MiB, the same
// default go-git's filesystem storage wires in.
const DefaultSize = 96 * MiByte

// Object is an object's type and unwrapped payload, as held in cache.
type Object struct {
	Type plumbing.ObjectType
	Data []byte
}

func (o Object) size() int64 { return int64(len(o.Data)) + 32 }

// ObjectLRU is a byte-budgeted, least-recently-used cache of decoded
// objects keyed by OID. Unlike groupcache/lru's own MaxEntries cap,
// capacity here is a byte budget: entries are evicted oldest-first
// until the running total fits, since object sizes vary by orders of
// magnitude and an entry-count cap would let a few large blobs starve
// everything else.
type ObjectLRU struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64
	inner    *lru.Cache
}

// NewObjectLRU returns an ObjectLRU budgeted at maxBytes.
func NewObjectLRU(maxBytes int64) *ObjectLRU {
	c := &ObjectLRU{maxBytes: maxBytes, inner: lru.New(0)} // 0: unlimited entries, we enforce bytes ourselves
	c.inner.OnEvicted = func(key lru.Key, value interface{}) {
		c.curBytes -= value.(Object).size()
	}
	return c
}

// NewObjectLRUDefault returns an ObjectLRU budgeted at DefaultSize.
func NewObjectLRUDefault() *ObjectLRU { return NewObjectLRU(DefaultSize) }

// Add inserts or replaces the cached payload for oid.
func (c *ObjectLRU) Add(oid plumbing.OID, obj Object) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.inner.Get(oid); ok {
		c.curBytes -= existing.(Object).size()
		c.inner.Remove(oid)
	}

	sz := obj.size()
	if sz > c.maxBytes {
		// Too large to ever fit: don't cache it, but don't error either;
		// callers still get the object from the read they just did.
		return
	}

	c.inner.Add(oid, obj)
	c.curBytes += sz

	for c.curBytes > c.maxBytes && c.inner.Len() > 0 {
		c.inner.RemoveOldest()
	}
}

// Get returns the cached payload for oid, if present.
func (c *ObjectLRU) Get(oid plumbing.OID) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.inner.Get(oid)
	if !ok {
		return Object{}, false
	}
	return v.(Object), true
}

// Clear empties the cache.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Clear()
	c.curBytes = 0
}

// Len reports the number of entries currently cached.
func (c *ObjectLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// Loader reads a single object from its backing store, used by
// ReadThrough to fill the cache on a miss.
type Loader func(oid plumbing.OID) (Object, error)

// ReadThrough dedupes concurrent cold reads for the same OID, so a
// flurry of requests for one uncached object results in exactly one
// backing read, and populates the cache with the result.
type ReadThrough struct {
	cache *ObjectLRU
	group singleflight.Group
}

// NewReadThrough wraps cache with singleflight-deduplicated loading.
func NewReadThrough(cache *ObjectLRU) *ReadThrough {
	return &ReadThrough{cache: cache}
}

// Put inserts obj into the underlying cache directly, bypassing
// Loader, used when a caller already has the bytes in hand (e.g. a
// freshly-written object) and wants it warm for the next read.
func (r *ReadThrough) Put(oid plumbing.OID, obj Object) {
	r.cache.Add(oid, obj)
}

// Get returns the cached object for oid, or calls load exactly once
// across any concurrently-racing callers and caches the result.
func (r *ReadThrough) Get(oid plumbing.OID, load Loader) (Object, error) {
	if obj, ok := r.cache.Get(oid); ok {
		return obj, nil
	}

	v, err, _ := r.group.Do(oid.String(), func() (interface{}, error) {
		obj, err := load(oid)
		if err != nil {
			return Object{}, err
		}
		r.cache.Add(oid, obj)
		return obj, nil
	})
	if err != nil {
		return Object{}, err
	}
	return v.(Object), nil
}
