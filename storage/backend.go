// Package storage defines the backend facade the object database and
// ref store are built on.
package storage

import (
	"errors"
	"io"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/idxfile"
)

// ErrNotExist is returned by backend lookups for a name/OID that isn't
// present.
var ErrNotExist = errors.New("gitcore: object does not exist")

// LooseObject is a decoded loose-object payload: its type and raw
// (unwrapped) content.
type LooseObject struct {
	Type plumbing.ObjectType
	Data []byte
}

// Pack is a handle onto one packfile plus its index, opened for random
// access.
type Pack struct {
	Name  string // the packfile's trailing checksum, hex-encoded
	Index *idxfile.Index
	Pack  io.ReaderAt
	Size  int64
}

// Backend is the storage facade every object-database implementation
// satisfies: loose-object byte I/O, enumeration and access to
// packfiles, and raw access to the repository's non-object files
// (refs, config) that sit alongside them. The object database (package
// odb) layers caching, delta resolution and hashing on top; Backend
// itself deals only in bytes.
type Backend interface {
	// HasLooseObject reports whether oid has a loose-object record.
	HasLooseObject(oid plumbing.OID) (bool, error)
	// ReadLooseObject returns oid's decoded loose-object payload.
	ReadLooseObject(oid plumbing.OID) (LooseObject, error)
	// WriteLooseObject stores obj under oid, atomically with respect
	// to concurrent readers.
	WriteLooseObject(oid plumbing.OID, obj LooseObject) error
	// IterLooseObjects calls fn once per loose OID currently stored.
	IterLooseObjects(fn func(plumbing.OID) error) error

	// ListPacks returns the name of every packfile present.
	ListPacks() ([]string, error)
	// OpenPack opens the named pack and its index for random access.
	OpenPack(name string) (*Pack, error)
	// WritePack stores a complete packfile stream (with trailing
	// checksum already appended by the caller) and builds its index,
	// returning the pack's name.
	WritePack(r io.Reader, format plumbing.ObjectFormat) (string, error)

	// Root returns a path usable for non-object files this backend
	// shares a root with (HEAD, refs/, config); refstore and config
	// read/write through this rather than through Backend directly,
	// since those aren't content-addressed.
	Root() (RootFS, error)
}

// RootFS is the minimal filesystem surface refstore/config need: named
// file read/write/remove rooted at the repository's metadata
// directory. Kept separate from Backend's object methods because an
// in-memory backend (package storage/memory) still needs *some*
// filesystem to back refs even though it has no on-disk object store.
type RootFS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	RemoveFile(name string) error
	// ListDir returns every regular file found under prefix (a
	// directory path, trailing slash optional), recursively, as paths
	// relative to the root, e.g. ListDir("refs") on a tree containing
	// refs/heads/main yields "refs/heads/main".
	ListDir(prefix string) ([]string, error)
}
