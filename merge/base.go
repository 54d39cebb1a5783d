// Package merge finds common ancestors, performs three-way tree merges
// with a default line-based content-merge driver, and tracks in-progress
// merge state (MERGE_HEAD, MERGE_MSG) the same way a merge commit does.
package merge

import (
	"github.com/emirpasic/gods/v2/trees/binaryheap"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
)

type walkCommit struct {
	oid plumbing.OID
	c   *object.Commit
}

// newCommitHeap returns a max-heap of commits ordered by committer date,
// newest first, so the merge-base walk always expands the most recent
// frontier first.
func newCommitHeap() *binaryheap.Heap[*walkCommit] {
	return binaryheap.NewWith(func(a, b *walkCommit) int {
		switch {
		case a.c.Committer.When.After(b.c.Committer.When):
			return -1
		case a.c.Committer.When.Before(b.c.Committer.When):
			return 1
		default:
			return 0
		}
	})
}

const (
	sideOurs   = 1
	sideTheirs = 2
)

// Base finds the best common ancestor of ours and theirs, the same walk
// as Bases but collapsed to a single result: callers that can't handle
// a criss-cross merge (more than one non-dominated common ancestor)
// should call Bases directly and decide for themselves, per
// errkind.MergeNotSupported. Returns a zero OID and no error if the two
// histories share no ancestor (an unrelated-histories merge).
func Base(db *odb.DB, ours, theirs plumbing.OID) (plumbing.OID, error) {
	bases, err := Bases(db, ours, theirs)
	if err != nil {
		return plumbing.OID{}, err
	}
	if len(bases) == 0 {
		return plumbing.OID{}, nil
	}
	return bases[0], nil
}

// Bases finds every non-dominated common ancestor of ours and theirs by
// walking both commit histories outward from the tips in date order. In
// the common case exactly one commit becomes reachable from both
// sides; a criss-cross history (each branch has previously merged the
// other) can produce more than one, since neither ancestor dominates
// the other. A commit that becomes reachable from both sides is
// recorded and its own parents are never expanded further: anything
// behind it is necessarily dominated by it. Returns an empty slice and
// no error if the two histories share no ancestor at all.
func Bases(db *odb.DB, ours, theirs plumbing.OID) ([]plumbing.OID, error) {
	if ours.Equal(theirs) {
		return []plumbing.OID{ours}, nil
	}

	loadCommit := func(oid plumbing.OID) (*walkCommit, error) {
		typ, payload, err := db.ReadObject(oid)
		if err != nil {
			return nil, err
		}
		if typ != plumbing.CommitObject {
			return nil, errkind.New(errkind.ObjectTypeAssertion, "merge.Bases", nil).WithData(oid.String())
		}
		c, err := object.DecodeCommit(payload)
		if err != nil {
			return nil, err
		}
		return &walkCommit{oid: oid, c: c}, nil
	}

	oursCommit, err := loadCommit(ours)
	if err != nil {
		return nil, err
	}
	theirsCommit, err := loadCommit(theirs)
	if err != nil {
		return nil, err
	}

	visited := make(map[plumbing.OID]int)
	visited[ours] = sideOurs
	visited[theirs] |= sideTheirs

	h := newCommitHeap()
	h.Push(oursCommit, theirsCommit)

	var bases []plumbing.OID
	seen := make(map[plumbing.OID]bool)
	record := func(oid plumbing.OID) {
		if !seen[oid] {
			seen[oid] = true
			bases = append(bases, oid)
		}
	}

	for {
		cur, ok := h.Pop()
		if !ok {
			break
		}
		side := visited[cur.oid]
		if side == sideOurs|sideTheirs {
			record(cur.oid)
			continue
		}

		for _, parentOID := range cur.c.Parents {
			prevSide := visited[parentOID]
			newSide := prevSide | side
			if newSide == prevSide {
				continue
			}
			visited[parentOID] = newSide
			if newSide == sideOurs|sideTheirs {
				record(parentOID)
				continue
			}
			parent, err := loadCommit(parentOID)
			if err != nil {
				return nil, err
			}
			h.Push(parent)
		}
	}

	return bases, nil
}
