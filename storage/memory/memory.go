// Package memory implements an in-memory storage.Backend: no disk I/O
// at all, used for throwaway repositories, tests, and bare in-process
// merges.
package memory

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/idxfile"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/storage"
)

func init() {
	storage.Default.Register("memory", func(string) (storage.Backend, error) {
		return NewBackend(), nil
	})
}

// Backend is a map-backed storage.Backend.
type Backend struct {
	mu    sync.RWMutex
	loose map[plumbing.OID]storage.LooseObject
	packs map[string]*memPack
	files map[string][]byte
}

type memPack struct {
	data []byte
	idx  *idxfile.Index
}

// NewBackend returns an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		loose: make(map[plumbing.OID]storage.LooseObject),
		packs: make(map[string]*memPack),
		files: make(map[string][]byte),
	}
}

func (b *Backend) HasLooseObject(oid plumbing.OID) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.loose[oid]
	return ok, nil
}

func (b *Backend) ReadLooseObject(oid plumbing.OID) (storage.LooseObject, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.loose[oid]
	if !ok {
		return storage.LooseObject{}, storage.ErrNotExist
	}
	return obj, nil
}

func (b *Backend) WriteLooseObject(oid plumbing.OID, obj storage.LooseObject) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(obj.Data))
	copy(cp, obj.Data)
	b.loose[oid] = storage.LooseObject{Type: obj.Type, Data: cp}
	return nil
}

func (b *Backend) IterLooseObjects(fn func(plumbing.OID) error) error {
	b.mu.RLock()
	oids := make([]plumbing.OID, 0, len(b.loose))
	for oid := range b.loose {
		oids = append(oids, oid)
	}
	b.mu.RUnlock()

	plumbing.SortOIDs(oids)
	for _, oid := range oids {
		if err := fn(oid); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) ListPacks() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.packs))
	for name := range b.packs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) OpenPack(name string) (*storage.Pack, error) {
	b.mu.RLock()
	p, ok := b.packs[name]
	b.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotExist
	}
	return &storage.Pack{Name: name, Index: p.idx, Pack: bytes.NewReader(p.data), Size: int64(len(p.data))}, nil
}

// WritePack buffers r fully, scans it to build an in-memory index, and
// stores both under the pack's trailing-checksum name.
func (b *Backend) WritePack(r io.Reader, format plumbing.ObjectFormat) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	hashSize := format.Size()
	if len(data) < hashSize {
		return "", fmt.Errorf("gitcore: pack stream too short")
	}
	trailer := data[len(data)-hashSize:]
	checksum, err := plumbing.FromBytes(format, trailer)
	if err != nil {
		return "", err
	}

	entries, err := scanPackEntries(data, hashSize)
	if err != nil {
		return "", err
	}

	var idxBuf bytes.Buffer
	if _, err := idxfile.Write(&idxBuf, format, entries, checksum); err != nil {
		return "", err
	}
	idx, err := idxfile.Open(bytes.NewReader(idxBuf.Bytes()), int64(idxBuf.Len()), hashSize)
	if err != nil {
		return "", err
	}

	name := checksum.String()
	b.mu.Lock()
	b.packs[name] = &memPack{data: data, idx: idx}
	b.mu.Unlock()
	return name, nil
}

// scanPackEntries walks a freshly-written pack to recover each
// record's OID (by resolving any delta chain) and on-disk offset, the
// same pass a filesystem backend runs before persisting the sidecar
// .idx file.
func scanPackEntries(data []byte, hashSize int) ([]idxfile.Entry, error) {
	scanner, err := packfile.NewScanner(bytes.NewReader(data), hashSize)
	if err != nil {
		return nil, err
	}
	reader := packfile.NewReader(bytes.NewReader(data), hashSize, nil, 1024)

	var entries []idxfile.Entry
	for {
		rec, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		typ, content, err := reader.ReadAt(rec.Offset)
		if err != nil {
			return nil, err
		}
		format := plumbing.FormatSHA1
		if hashSize == plumbing.SHA256Size {
			format = plumbing.FormatSHA256
		}
		oid := plumbing.HashObject(format, typ, content)

		entries = append(entries, idxfile.Entry{OID: oid, Offset: rec.Offset, CRC32: 0})
	}
	return entries, nil
}

func (b *Backend) Root() (storage.RootFS, error) { return &rootFS{b: b}, nil }

type rootFS struct{ b *Backend }

func (r *rootFS) ReadFile(name string) ([]byte, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	data, ok := r.b.files[name]
	if !ok {
		return nil, storage.ErrNotExist
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (r *rootFS) WriteFile(name string, data []byte) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	r.b.files[name] = cp
	return nil
}

func (r *rootFS) RemoveFile(name string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, ok := r.b.files[name]; !ok {
		return storage.ErrNotExist
	}
	delete(r.b.files, name)
	return nil
}

func (r *rootFS) ListDir(prefix string) ([]string, error) {
	r.b.mu.RLock()
	defer r.b.mu.RUnlock()
	dir := prefix
	if dir != "" && dir[len(dir)-1] != '/' {
		dir += "/"
	}
	var out []string
	for name := range r.b.files {
		if len(name) >= len(dir) && name[:len(dir)] == dir {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
