// Package odb is the object database facade: it answers "read object
// X", "write object X", "does X exist" and "what does this abbreviated
// OID mean" over a storage.Backend, transparently combining loose
// objects and however many packfiles the backend currently holds, with
// a byte-budgeted cache and in-flight read dedup in front of both.
package odb

import (
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/cache"
	"github.com/opencore/gitcore/plumbing/format/idxfile"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/storage"
)

// packBaseCacheSize is the per-pack LRU size for resolved delta bases,
// handed to each packfile.Reader this DB opens.
const packBaseCacheSize = 256

// DB is the object database built on top of a storage.Backend.
type DB struct {
	backend storage.Backend
	format  plumbing.ObjectFormat
	cache   *cache.ReadThrough

	mu    sync.RWMutex
	packs map[string]*openPack
}

type openPack struct {
	handle *storage.Pack
	reader *packfile.Reader
}

// New returns a DB over backend with the default object-cache budget.
func New(backend storage.Backend, format plumbing.ObjectFormat) *DB {
	return NewWithCacheSize(backend, format, cache.DefaultSize)
}

// NewWithCacheSize returns a DB over backend with an object cache
// budgeted at cacheBytes.
func NewWithCacheSize(backend storage.Backend, format plumbing.ObjectFormat, cacheBytes int64) *DB {
	return &DB{
		backend: backend,
		format:  format,
		cache:   cache.NewReadThrough(cache.NewObjectLRU(cacheBytes)),
		packs:   make(map[string]*openPack),
	}
}

// Format returns the hash format this DB hashes and reads objects
// under.
func (db *DB) Format() plumbing.ObjectFormat { return db.format }

// HasObject reports whether oid is present, loose or packed, without
// reading its payload.
func (db *DB) HasObject(oid plumbing.OID) (bool, error) {
	ok, err := db.backend.HasLooseObject(oid)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	names, err := db.backend.ListPacks()
	if err != nil {
		return false, err
	}
	for _, name := range names {
		p, err := db.getPack(name)
		if err != nil {
			return false, err
		}
		found, err := p.handle.Index.Contains(oid)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// ReadObject returns oid's type and raw (unwrapped) content, searching
// loose storage first and then every packfile the backend lists.
func (db *DB) ReadObject(oid plumbing.OID) (plumbing.ObjectType, []byte, error) {
	obj, err := db.cache.Get(oid, db.load)
	if err != nil {
		return 0, nil, err
	}
	return obj.Type, obj.Data, nil
}

func (db *DB) load(oid plumbing.OID) (cache.Object, error) {
	loose, err := db.backend.ReadLooseObject(oid)
	if err == nil {
		return cache.Object{Type: loose.Type, Data: loose.Data}, nil
	}
	if err != storage.ErrNotExist {
		return cache.Object{}, err
	}

	names, err := db.backend.ListPacks()
	if err != nil {
		return cache.Object{}, err
	}
	for _, name := range names {
		p, err := db.getPack(name)
		if err != nil {
			return cache.Object{}, err
		}
		offset, err := p.handle.Index.FindOffset(oid)
		if errors.Is(err, idxfile.ErrNotFound) {
			continue
		}
		if err != nil {
			return cache.Object{}, err
		}
		typ, data, err := p.reader.ReadAt(offset)
		if err != nil {
			return cache.Object{}, err
		}
		return cache.Object{Type: typ, Data: data}, nil
	}

	return cache.Object{}, errkind.New(errkind.NotFound, "readObject", storage.ErrNotExist).WithData(oid.String())
}

// WriteObject hashes payload, stores it as a loose object, and returns
// its OID. Packing (reducing many loose objects to one packfile) is a
// separate operation, WritePack.
func (db *DB) WriteObject(typ plumbing.ObjectType, payload []byte) (plumbing.OID, error) {
	oid := plumbing.HashObject(db.format, typ, payload)

	has, err := db.backend.HasLooseObject(oid)
	if err != nil {
		return plumbing.OID{}, err
	}
	if has {
		return oid, nil
	}

	if err := db.backend.WriteLooseObject(oid, storage.LooseObject{Type: typ, Data: payload}); err != nil {
		return plumbing.OID{}, err
	}
	db.cache.Put(oid, cache.Object{Type: typ, Data: payload})
	return oid, nil
}

// WritePack hands src's object set to the packfile writer and stores
// the resulting stream through the backend, invalidating this DB's
// open-pack table so the next read picks up the new pack.
func (db *DB) WritePack(src packfile.Source, oids []plumbing.OID) (string, error) {
	r, w := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		_, err := packfile.WritePack(w, db.format, src, oids)
		errc <- err
		w.Close()
	}()

	name, werr := db.backend.WritePack(r, db.format)
	if err := <-errc; err != nil {
		return "", err
	}
	if werr != nil {
		return "", werr
	}

	db.mu.Lock()
	delete(db.packs, name)
	db.mu.Unlock()
	return name, nil
}

func (db *DB) getPack(name string) (*openPack, error) {
	db.mu.RLock()
	p, ok := db.packs[name]
	db.mu.RUnlock()
	if ok {
		return p, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.packs[name]; ok {
		return p, nil
	}

	handle, err := db.backend.OpenPack(name)
	if err != nil {
		return nil, err
	}
	p = &openPack{
		handle: handle,
		reader: packfile.NewReader(handle.Pack, db.format.Size(), &resolver{db}, packBaseCacheSize),
	}
	db.packs[name] = p
	return p, nil
}

// resolver lets a packfile.Reader resolve a REF-delta base without
// knowing whether it lives in the same pack, another pack, or loose;
// it just asks the DB, which already searches all three.
type resolver struct{ db *DB }

func (r *resolver) ResolveBase(oid plumbing.OID) (plumbing.ObjectType, []byte, error) {
	return r.db.ReadObject(oid)
}

// IterOIDs calls fn once for every object in the database, loose then
// packed, deduplicating OIDs that are present in more than one place.
func (db *DB) IterOIDs(fn func(plumbing.OID) error) error {
	seen := make(map[plumbing.OID]bool)

	if err := db.backend.IterLooseObjects(func(oid plumbing.OID) error {
		seen[oid] = true
		return fn(oid)
	}); err != nil {
		return err
	}

	names, err := db.backend.ListPacks()
	if err != nil {
		return err
	}
	for _, name := range names {
		p, err := db.getPack(name)
		if err != nil {
			return err
		}
		entries, err := p.handle.Index.Entries()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if seen[e.OID] {
				continue
			}
			seen[e.OID] = true
			if err := fn(e.OID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExpandPrefix resolves an abbreviated hex OID to its single matching
// full OID, mirroring git's own disambiguation rules: zero matches is
// NotFound, more than one is Ambiguous.
func (db *DB) ExpandPrefix(prefix string) (plumbing.OID, error) {
	prefix = strings.ToLower(prefix)
	if len(prefix) == db.format.Size()*2 {
		if oid, err := plumbing.FromHex(prefix); err == nil {
			if ok, _ := db.HasObject(oid); ok {
				return oid, nil
			}
		}
	}

	var matches []plumbing.OID
	err := db.IterOIDs(func(oid plumbing.OID) error {
		if strings.HasPrefix(oid.String(), prefix) {
			matches = append(matches, oid)
		}
		return nil
	})
	if err != nil {
		return plumbing.OID{}, err
	}

	switch len(matches) {
	case 0:
		return plumbing.OID{}, errkind.New(errkind.NotFound, "expandPrefix", nil).WithData(prefix)
	case 1:
		return matches[0], nil
	default:
		plumbing.SortOIDs(matches)
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.String()
		}
		sort.Strings(names)
		return plumbing.OID{}, errkind.New(errkind.Ambiguous, "expandPrefix", nil).WithData(names)
	}
}
