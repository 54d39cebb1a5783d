// Package filesystem implements a storage.Backend over a billy.Filesystem,
// laying objects out the way a real.git directory does: loose objects
// under objects/xx/rest, packs under objects/pack, both reached through
// go-billy so the same backend works against an OS filesystem, an
// in-memory one (tests), or a chroot'd one.
//
// Grounded on go-git's storage/filesystem/dotgit package: the same
// fan-out layout and the same temp-file-then-rename write discipline
// (dotgit.PackWriter), simplified to this module's narrower object set.
package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/klauspost/compress/zlib"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/idxfile"
	"github.com/opencore/gitcore/plumbing/format/packfile"
	"github.com/opencore/gitcore/storage"
)

// isNotExist reports whether err indicates a missing file/directory,
// across both osfs (plain *os.PathError) and memfs-style backends.
func isNotExist(err error) bool {
	return err != nil && (errors.Is(err, os.ErrNotExist) || os.IsNotExist(err))
}

func init() {
	storage.Default.Register("filesystem", func(root string) (storage.Backend, error) {
		return NewBackend(osfs.New(root)), nil
	})
}

const (
	objectsDir = "objects"
	packDir    = "objects/pack"
	tmpDir     = "objects/tmp"
)

// Backend is a storage.Backend rooted at a billy.Filesystem (typically
// the ".git" directory).
type Backend struct {
	fs     billy.Filesystem
	format plumbing.ObjectFormat
}

// NewBackend returns a SHA-1 Backend rooted at fs.
func NewBackend(fs billy.Filesystem) *Backend {
	return NewBackendWithFormat(fs, plumbing.FormatSHA1)
}

// NewBackendWithFormat returns a Backend rooted at fs, using format for
// loose-object and pack-index hashing.
func NewBackendWithFormat(fs billy.Filesystem, format plumbing.ObjectFormat) *Backend {
	return &Backend{fs: fs, format: format}
}

func looseObjectPath(oid plumbing.OID) string {
	hex := oid.String()
	return path.Join(objectsDir, hex[:2], hex[2:])
}

func (b *Backend) HasLooseObject(oid plumbing.OID) (bool, error) {
	_, err := b.fs.Stat(looseObjectPath(oid))
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *Backend) ReadLooseObject(oid plumbing.OID) (storage.LooseObject, error) {
	f, err := b.fs.Open(looseObjectPath(oid))
	if err != nil {
		if isNotExist(err) {
			return storage.LooseObject{}, storage.ErrNotExist
		}
		return storage.LooseObject{}, err
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return storage.LooseObject{}, fmt.Errorf("gitcore: corrupt loose object %s: %w", oid, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return storage.LooseObject{}, fmt.Errorf("gitcore: corrupt loose object %s: %w", oid, err)
	}

	typ, payload, err := unwrap(raw)
	if err != nil {
		return storage.LooseObject{}, err
	}
	return storage.LooseObject{Type: typ, Data: payload}, nil
}

// WriteLooseObject deflates obj and writes it to a temp file, renaming
// into place only once the write is complete; a reader either sees no
// file or the complete file, never a partial one.
func (b *Backend) WriteLooseObject(oid plumbing.OID, obj storage.LooseObject) error {
	if err := b.fs.MkdirAll(tmpDir, 0o755); err != nil {
		return err
	}
	tmp, err := b.fs.TempFile(tmpDir, "obj-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	zw := zlib.NewWriter(tmp)
	if _, err := zw.Write(wrap(obj.Type, obj.Data)); err != nil {
		zw.Close()
		tmp.Close()
		b.fs.Remove(tmpName)
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		b.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		b.fs.Remove(tmpName)
		return err
	}

	dst := looseObjectPath(oid)
	dir := path.Dir(dst)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		b.fs.Remove(tmpName)
		return err
	}
	if ok, _ := b.HasLooseObject(oid); ok {
		// Content-addressed: an existing object with this name is
		// already byte-identical. Avoid the rename (and its
		// requirement that the destination not exist on some
		// filesystems) entirely.
		b.fs.Remove(tmpName)
		return nil
	}
	if err := b.fs.Rename(tmpName, dst); err != nil {
		b.fs.Remove(tmpName)
		return err
	}
	return nil
}

func (b *Backend) IterLooseObjects(fn func(plumbing.OID) error) error {
	entries, err := b.fs.ReadDir(objectsDir)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}

	var oids []plumbing.OID
	for _, fanout := range entries {
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}
		subEntries, err := b.fs.ReadDir(path.Join(objectsDir, fanout.Name()))
		if err != nil {
			return err
		}
		for _, e := range subEntries {
			hex := fanout.Name() + e.Name()
			if !plumbing.IsValidHex(hex) {
				continue
			}
			oid, err := plumbing.FromHex(hex)
			if err != nil {
				continue
			}
			oids = append(oids, oid)
		}
	}

	plumbing.SortOIDs(oids)
	for _, oid := range oids {
		if err := fn(oid); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) ListPacks() ([]string, error) {
	entries, err := b.fs.ReadDir(packDir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".pack") {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(e.Name(), "pack-"), ".pack"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) OpenPack(name string) (*storage.Pack, error) {
	packPath := path.Join(packDir, "pack-"+name+".pack")
	idxPath := path.Join(packDir, "pack-"+name+".idx")

	packFile, err := b.fs.Open(packPath)
	if err != nil {
		if isNotExist(err) {
			return nil, storage.ErrNotExist
		}
		return nil, err
	}
	stat, err := b.fs.Stat(packPath)
	if err != nil {
		return nil, err
	}

	idxFile, err := b.fs.Open(idxPath)
	if err != nil {
		return nil, err
	}
	idxStat, err := b.fs.Stat(idxPath)
	if err != nil {
		return nil, err
	}
	idxData, err := io.ReadAll(idxFile)
	idxFile.Close()
	if err != nil {
		return nil, err
	}

	idx, err := idxfile.Open(bytes.NewReader(idxData), idxStat.Size(), b.format.Size())
	if err != nil {
		return nil, err
	}

	return &storage.Pack{Name: name, Index: idx, Pack: packFile, Size: stat.Size()}, nil
}

func (b *Backend) WritePack(r io.Reader, format plumbing.ObjectFormat) (string, error) {
	if err := b.fs.MkdirAll(tmpDir, 0o755); err != nil {
		return "", err
	}
	tmp, err := b.fs.TempFile(tmpDir, "pack-")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	data, err := io.ReadAll(io.TeeReader(r, tmp))
	tmp.Close()
	if err != nil {
		b.fs.Remove(tmpName)
		return "", err
	}

	hashSize := format.Size()
	if len(data) < hashSize {
		b.fs.Remove(tmpName)
		return "", fmt.Errorf("gitcore: pack stream too short")
	}
	checksum, err := plumbing.FromBytes(format, data[len(data)-hashSize:])
	if err != nil {
		b.fs.Remove(tmpName)
		return "", err
	}
	name := checksum.String()

	entries, err := scanPackEntries(data, hashSize, format)
	if err != nil {
		b.fs.Remove(tmpName)
		return "", err
	}

	var idxBuf bytes.Buffer
	if _, err := idxfile.Write(&idxBuf, format, entries, checksum); err != nil {
		b.fs.Remove(tmpName)
		return "", err
	}

	if err := b.fs.MkdirAll(packDir, 0o755); err != nil {
		b.fs.Remove(tmpName)
		return "", err
	}
	packPath := path.Join(packDir, "pack-"+name+".pack")
	if err := b.fs.Rename(tmpName, packPath); err != nil {
		b.fs.Remove(tmpName)
		return "", err
	}

	idxPath := path.Join(packDir, "pack-"+name+".idx")
	idxFile, err := b.fs.Create(idxPath)
	if err != nil {
		return "", err
	}
	if _, err := idxFile.Write(idxBuf.Bytes()); err != nil {
		idxFile.Close()
		return "", err
	}
	if err := idxFile.Close(); err != nil {
		return "", err
	}

	return name, nil
}

func scanPackEntries(data []byte, hashSize int, format plumbing.ObjectFormat) ([]idxfile.Entry, error) {
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
		oid := plumbing.HashObject(format, typ, content)
		entries = append(entries, idxfile.Entry{OID: oid, Offset: rec.Offset})
	}
	return entries, nil
}

func (b *Backend) Root() (storage.RootFS, error) {
	return &rootFS{fs: b.fs}, nil
}

type rootFS struct{ fs billy.Filesystem }

func (r *rootFS) ReadFile(name string) ([]byte, error) {
	f, err := r.fs.Open(name)
	if err != nil {
		if isNotExist(err) {
			return nil, storage.ErrNotExist
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (r *rootFS) WriteFile(name string, data []byte) error {
	if dir := path.Dir(name); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := r.fs.TempFile(path.Dir(name), ".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		r.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	if err := r.fs.Rename(tmpName, name); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	return nil
}

func (r *rootFS) RemoveFile(name string) error {
	err := r.fs.Remove(name)
	if isNotExist(err) {
		return storage.ErrNotExist
	}
	return err
}

// ListDir returns every regular file found by recursively walking the
// directory named by prefix (trailing slash optional), as paths
// relative to the backend root, e.g. ListDir("refs") on a tree
// containing refs/heads/main yields "refs/heads/main".
func (r *rootFS) ListDir(prefix string) ([]string, error) {
	dir := strings.TrimSuffix(prefix, "/")
	var out []string
	var walk func(d string) error
	walk = func(d string) error {
		entries, err := r.fs.ReadDir(d)
		if err != nil {
			if isNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			full := path.Join(d, e.Name())
			if e.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			out = append(out, full)
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func wrap(t plumbing.ObjectType, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(t.Bytes())
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, "%d", len(payload))
	buf.WriteByte(0)
	buf.Write(payload)
	return buf.Bytes()
}

func unwrap(raw []byte) (plumbing.ObjectType, []byte, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return 0, nil, fmt.Errorf("gitcore: malformed object: no header terminator")
	}
	header := string(raw[:nul])
	sp := strings.IndexByte(header, ' ')
	if sp < 0 {
		return 0, nil, fmt.Errorf("gitcore: malformed object header %q", header)
	}
	typ, err := plumbing.ParseObjectType(header[:sp])
	if err != nil {
		return 0, nil, err
	}
	return typ, raw[nul+1:], nil
}
