package wire

import (
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
)

// closure walks every object reachable from roots (commits, trees, blobs
// and tags, following parents/tree/subtree/tag-target edges) and returns
// the ones not already present in ignore. Used to compute the set of
// objects a fetch response's pack must contain: roots are the wants,
// ignore is everything reachable from the haves.
func closure(db *odb.DB, roots []plumbing.OID, ignore map[plumbing.OID]bool) (map[plumbing.OID]bool, error) {
	seen := make(map[plumbing.OID]bool, len(ignore))
	for oid := range ignore {
		seen[oid] = true
	}
	result := make(map[plumbing.OID]bool)

	var walk func(oid plumbing.OID) error
	walk = func(oid plumbing.OID) error {
		if seen[oid] {
			return nil
		}
		seen[oid] = true

		typ, payload, err := db.ReadObject(oid)
		if err != nil {
			return err
		}
		if !ignore[oid] {
			result[oid] = true
		}

		switch typ {
		case plumbing.CommitObject:
			c, err := object.DecodeCommit(payload)
			if err != nil {
				return err
			}
			if err := walk(c.Tree); err != nil {
				return err
			}
			for _, p := range c.Parents {
				if err := walk(p); err != nil {
					return err
				}
			}
		case plumbing.TreeObject:
			t, err := object.DecodeTree(db.Format(), payload)
			if err != nil {
				return err
			}
			for _, e := range t.Entries {
				if err := walk(e.OID); err != nil {
					return err
				}
			}
		case plumbing.TagObject:
			t, err := object.DecodeTag(payload)
			if err != nil {
				return err
			}
			if err := walk(t.Object); err != nil {
				return err
			}
		}

		return nil
	}

	for _, oid := range roots {
		if err := walk(oid); err != nil {
			return nil, err
		}
	}

	return result, nil
}
