package repository

import (
	"time"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
)

// DefaultNotesRef is the notes namespace `git notes` uses when none is
// given explicitly.
const DefaultNotesRef refstore.ReferenceName = "refs/notes/commits"

// Notes is a handle onto one notes namespace: a commit-like history
// whose tree maps a target object's hex OID to a blob holding the note
// text, exactly the layout real git's builtin/notes.c builds. Not
// grounded on any one teacher file (go-git doesn't implement notes);
// the tree-of-hex-OID-keyed-blobs layout comes from git's own documented
// notes format. Each change is recorded as a new notes commit whose
// parent is the previous tip of the notes ref.
type Notes struct {
	r   *Repository
	ref refstore.ReferenceName
}

// NotesIn returns a Notes handle for ref (e.g. DefaultNotesRef).
func (r *Repository) NotesIn(ref refstore.ReferenceName) *Notes {
	return &Notes{r: r, ref: ref}
}

// Add attaches or replaces the note text for target, committing the
// updated notes tree onto n.ref.
func (n *Notes) Add(target plumbing.OID, text string, author commit.Identity, now time.Time) (plumbing.OID, error) {
	entries, parent, err := n.currentEntries()
	if err != nil {
		return plumbing.OID{}, err
	}

	blob, err := n.r.DB.WriteObject(plumbing.BlobObject, []byte(text))
	if err != nil {
		return plumbing.OID{}, err
	}

	path := target.String()
	entries = removeEntry(entries, path)
	entries = append(entries, &index.Entry{Name: path, Mode: filemode.Regular, Hash: blob, Stage: index.Merged})

	return n.commitTree(entries, parent, author, now, "Notes added by 'gitcore notes add'")
}

// Remove deletes target's note, if any, committing the updated notes
// tree onto n.ref. A no-op (returning the current tip) if target has no
// note.
func (n *Notes) Remove(target plumbing.OID, author commit.Identity, now time.Time) (plumbing.OID, error) {
	entries, parent, err := n.currentEntries()
	if err != nil {
		return plumbing.OID{}, err
	}

	path := target.String()
	before := len(entries)
	entries = removeEntry(entries, path)
	if len(entries) == before {
		return parent, nil
	}

	return n.commitTree(entries, parent, author, now, "Notes removed by 'gitcore notes remove'")
}

// Read returns target's note text, and false if target has no note.
func (n *Notes) Read(target plumbing.OID) (string, bool, error) {
	entries, _, err := n.currentEntries()
	if err != nil {
		return "", false, err
	}
	path := target.String()
	for _, e := range entries {
		if e.Name == path {
			_, payload, err := n.r.DB.ReadObject(e.Hash)
			if err != nil {
				return "", false, err
			}
			return string(payload), true, nil
		}
	}
	return "", false, nil
}

func removeEntry(entries []*index.Entry, path string) []*index.Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Name != path {
			out = append(out, e)
		}
	}
	return out
}

// currentEntries flattens the notes tree n.ref currently points at
// into index.Entry form (so Add/Remove can reuse commit.BuildTree),
// plus the current tip OID (the zero OID if the namespace has no
// commits yet).
func (n *Notes) currentEntries() ([]*index.Entry, plumbing.OID, error) {
	ref, err := n.r.Refs.Reference(n.ref)
	if err != nil {
		if isNotFound(err) {
			return nil, plumbing.OID{}, nil
		}
		return nil, plumbing.OID{}, err
	}

	typ, payload, err := n.r.DB.ReadObject(ref.Hash())
	if err != nil {
		return nil, plumbing.OID{}, err
	}
	if typ != plumbing.CommitObject {
		return nil, plumbing.OID{}, errkind.New(errkind.ObjectTypeAssertion, "repository.Notes", nil).WithData(ref.Hash().String())
	}
	c, err := object.DecodeCommit(payload)
	if err != nil {
		return nil, plumbing.OID{}, err
	}

	flat, err := merge.Flatten(n.r.DB, c.Tree)
	if err != nil {
		return nil, plumbing.OID{}, err
	}
	entries := make([]*index.Entry, 0, len(flat))
	for name, e := range flat {
		entries = append(entries, &index.Entry{Name: name, Mode: e.Mode, Hash: e.OID, Stage: index.Merged})
	}
	return entries, ref.Hash(), nil
}

func (n *Notes) commitTree(entries []*index.Entry, parent plumbing.OID, author commit.Identity, now time.Time, message string) (plumbing.OID, error) {
	var parents []plumbing.OID
	if !parent.IsZero() {
		parents = []plumbing.OID{parent}
	}
	return commit.Commit(n.r.DB, n.r.Refs, n.r.Cfg, entries, commit.Options{
		Branch:    n.ref,
		Message:   message,
		Author:    author,
		Committer: author,
		Parents:   parents,
		Now:       now,
	})
}
