// Package index implements the git staging-index format:
// the DIRC file that records what the next commit will contain,
// including the stage-1/2/3 slots a three-way merge leaves behind for
// an unresolved path.
package index

import (
	"errors"
	"time"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
)

// VersionSupported is the only staging-index version this
// implementation reads or writes. Versions 3 (extended flags) and 4
// (prefix-compressed names) exist in real git but add no capability
// this package's operations need.
const VersionSupported = 2

var (
	Signature        = [4]byte{'D', 'I', 'R', 'C'}
	treeExtSignature = [4]byte{'T', 'R', 'E', 'E'}
	reucExtSignature = [4]byte{'R', 'E', 'U', 'C'}
)

var (
	ErrUnsupportedVersion = errors.New("gitcore: unsupported index version")
	ErrEntryNotFound      = errors.New("gitcore: index entry not found")
	ErrInvalidChecksum    = errors.New("gitcore: index checksum mismatch")
	ErrMalformedSignature = errors.New("gitcore: malformed index signature")
)

// Stage identifies which side of a three-way merge an entry represents
// . A path is fully merged when its only entry carries
// Merged; an unresolved conflict leaves up to three entries for the
// same path, one per non-zero stage.
type Stage uint8

const (
	Merged        Stage = 0
	AncestorStage Stage = 1
	OurStage      Stage = 2
	TheirStage    Stage = 3
)

// Index is the staging area.
type Index struct {
	Version     uint32
	Entries     []*Entry
	Cache       *Tree
	ResolveUndo *ResolveUndo
}

// Add appends a new stage-0 entry for path. The caller is responsible
// for checking no conflicting entry already exists.
func (idx *Index) Add(path string) *Entry {
	e := &Entry{Name: path}
	idx.Entries = append(idx.Entries, e)
	return e
}

// Entry returns the merged (stage 0) entry for path, if any.
func (idx *Index) Entry(path string) (*Entry, error) {
	return idx.EntryStage(path, Merged)
}

// EntryStage returns the entry for path at the given stage.
func (idx *Index) EntryStage(path string, stage Stage) (*Entry, error) {
	for _, e := range idx.Entries {
		if e.Name == path && e.Stage == stage {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// StagesFor returns every entry recorded for path, across all stages;
// more than one means path has an unresolved conflict.
func (idx *Index) StagesFor(path string) []*Entry {
	var out []*Entry
	for _, e := range idx.Entries {
		if e.Name == path {
			out = append(out, e)
		}
	}
	return out
}

// Remove deletes every entry (at any stage) for path.
func (idx *Index) Remove(path string) []*Entry {
	var removed []*Entry
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name == path {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	idx.Entries = kept
	return removed
}

// Unmerged reports whether any path still carries a non-zero stage.
func (idx *Index) Unmerged() bool {
	for _, e := range idx.Entries {
		if e.Stage != Merged {
			return true
		}
	}
	return false
}

// UnmergedPaths returns the distinct paths that have an outstanding
// conflict.
func (idx *Index) UnmergedPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range idx.Entries {
		if e.Stage != Merged && !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	return out
}

// Entry is a single staged path at a single stage.
type Entry struct {
	Hash         plumbing.OID
	Name         string
	CreatedAt    time.Time
	ModifiedAt   time.Time
	Dev, Inode   uint32
	Mode         filemode.FileMode
	UID, GID     uint32
	Size         uint32
	Stage        Stage
	SkipWorktree bool
	IntentToAdd  bool
}

// Tree is the 'TREE' cache extension: precomputed subtree OIDs so a
// commit can skip rehashing trees whose covered entries are unchanged
// .
type Tree struct {
	Entries []TreeEntry
}

// TreeEntry covers a contiguous run of index entries.
type TreeEntry struct {
	Path    string
	Entries int // -1 means invalidated: not safe to reuse
	Trees   int
	Hash    plumbing.OID
}

// ResolveUndo is the 'REUC' extension: the higher-stage entries of a
// path whose conflict was just resolved, kept around so `git checkout
// -m` can restore them.
type ResolveUndo struct {
	Entries []ResolveUndoEntry
}

type ResolveUndoEntry struct {
	Path   string
	Stages map[Stage]plumbing.OID
}
