package merge

import (
	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/plumbing/object"
)

// Conflict describes one path that a three-way tree merge could not
// resolve automatically.
type Conflict struct {
	Path   string
	Base   *object.TreeEntry
	Ours   *object.TreeEntry
	Theirs *object.TreeEntry
	Reason string
}

// TreeResult is the outcome of a three-way tree merge: the OID of a
// provisional merged tree (built from whatever paths resolved cleanly,
// plus the "ours" side of anything conflicted, matching git's own
// working-tree convention of rendering the ours version at a
// conflicted path), the list of paths that need manual resolution, and
// the staging-index entries the merge actually produced.
type TreeResult struct {
	Tree      plumbing.OID
	Conflicts []Conflict

	// Entries holds one stage-0 (index.Merged) entry per cleanly
	// resolved path, and one entry per surviving side (stages
	// index.AncestorStage/OurStage/TheirStage) for every conflicted
	// path, mirroring git's own staging-index conflict representation:
	// a conflicted path carries no stage-0 entry at all.
	Entries []*index.Entry
}

// ContentMergeFunc is the shape of a pluggable content-merge driver: see
// Content for the default line-based implementation.
type ContentMergeFunc func(base, ours, theirs, labelOurs, labelTheirs string) ContentResult

// Tree performs a three-way merge of base, ours and theirs trees (any of
// which may be the zero OID, denoting an empty tree) and writes the
// result using the default Content driver. Paths changed on only one
// side are taken from that side; paths changed identically on both
// sides are taken once; paths changed differently on both sides are
// merged with Content when all three sides are regular files, and
// reported as a Conflict otherwise (add/add, delete/modify, mode
// changes the base cannot reconcile, and differing file kinds).
func Tree(db *odb.DB, base, ours, theirs plumbing.OID) (*TreeResult, error) {
	return treeMerge(db, base, ours, theirs, Content)
}

// treeMerge is Tree with the content-merge driver parameterized, so
// Options.MergeDriver can override it without disturbing Tree's public
// signature.
func treeMerge(db *odb.DB, base, ours, theirs plumbing.OID, driver ContentMergeFunc) (*TreeResult, error) {
	baseEntries, err := Flatten(db, base)
	if err != nil {
		return nil, err
	}
	oursEntries, err := Flatten(db, ours)
	if err != nil {
		return nil, err
	}
	theirsEntries, err := Flatten(db, theirs)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range baseEntries {
		paths[p] = true
	}
	for p := range oursEntries {
		paths[p] = true
	}
	for p := range theirsEntries {
		paths[p] = true
	}

	result := &TreeResult{}
	var merged []*index.Entry

	for path := range paths {
		b, hasBase := baseEntries[path]
		o, hasOurs := oursEntries[path]
		t, hasTheirs := theirsEntries[path]

		entry, conflict, err := mergeEntry(db, path, asPtr(b, hasBase), asPtr(o, hasOurs), asPtr(t, hasTheirs), driver)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
			result.Entries = append(result.Entries, stageEntries(path, conflict)...)

			// Render "ours" (or "theirs" if ours doesn't have the path)
			// at the conflicted path in the provisional tree, matching
			// git's working-tree convention; the index carries the real
			// stage 1/2/3 records above, not a stage-0 entry for this
			// path.
			fallback := conflict.Ours
			if fallback == nil {
				fallback = conflict.Theirs
			}
			entry = fallback
		} else if entry != nil {
			result.Entries = append(result.Entries, &index.Entry{
				Name:  path,
				Mode:  entry.Mode,
				Hash:  entry.OID,
				Stage: index.Merged,
			})
		}
		if entry != nil {
			merged = append(merged, &index.Entry{
				Name:  path,
				Mode:  entry.Mode,
				Hash:  entry.OID,
				Stage: index.Merged,
			})
		}
	}

	oid, err := commit.BuildTree(db, merged)
	if err != nil {
		return nil, err
	}
	result.Tree = oid
	return result, nil
}

// stageEntries builds the index stage 1/2/3 entries for one conflicted
// path, one per side that still has a version, mirroring
// repository.stageEntry's stage-0 construction generalized across the
// three merge sides.
func stageEntries(path string, c *Conflict) []*index.Entry {
	var out []*index.Entry
	add := func(e *object.TreeEntry, stage index.Stage) {
		if e == nil {
			return
		}
		out = append(out, &index.Entry{Name: path, Mode: e.Mode, Hash: e.OID, Stage: stage})
	}
	add(c.Base, index.AncestorStage)
	add(c.Ours, index.OurStage)
	add(c.Theirs, index.TheirStage)
	return out
}

func asPtr(e object.TreeEntry, present bool) *object.TreeEntry {
	if !present {
		return nil
	}
	return &e
}

// mergeEntry classifies and resolves one path across the three sides.
func mergeEntry(db *odb.DB, path string, base, ours, theirs *object.TreeEntry, driver ContentMergeFunc) (*object.TreeEntry, *Conflict, error) {
	sameEntry := func(a, b *object.TreeEntry) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Mode == b.Mode && a.OID.Equal(b.OID)
	}

	oursChanged := !sameEntry(base, ours)
	theirsChanged := !sameEntry(base, theirs)

	switch {
	case !oursChanged && !theirsChanged:
		return base, nil, nil
	case oursChanged && !theirsChanged:
		return ours, nil, nil
	case !oursChanged && theirsChanged:
		return theirs, nil, nil
	}

	// Both sides touched this path.
	if sameEntry(ours, theirs) {
		return ours, nil, nil
	}
	if ours != nil && theirs != nil && ours.Mode.IsDir() && theirs.Mode.IsDir() {
		// Sub-paths already carry the conflict individually; the
		// directory entry itself needs no separate resolution.
		return nil, nil, nil
	}

	switch {
	case ours == nil && theirs != nil:
		return nil, &Conflict{Path: path, Base: base, Ours: ours, Theirs: theirs, Reason: "delete/modify"}, nil
	case ours != nil && theirs == nil:
		return nil, &Conflict{Path: path, Base: base, Ours: ours, Theirs: theirs, Reason: "modify/delete"}, nil
	case ours != nil && theirs != nil && ours.Mode.IsRegular() && theirs.Mode.IsRegular() &&
		(base == nil || base.Mode.IsRegular()):
		// Covers both a genuine modify/modify and an add/add of two text
		// files: readBlob treats a nil base entry as empty content, which
		// is exactly how git itself resolves an add/add text conflict.
		return mergeTextEntry(db, path, base, ours, theirs, driver)
	default:
		reason := "content"
		if base == nil {
			reason = "add/add"
		}
		return nil, &Conflict{Path: path, Base: base, Ours: ours, Theirs: theirs, Reason: reason}, nil
	}
}

// mergeTextEntry runs the default content-merge driver over a path that
// is a regular file on all three sides, returning a clean merged blob
// when possible and a Conflict (with conflict markers already baked into
// the written blob content) otherwise.
func mergeTextEntry(db *odb.DB, path string, base, ours, theirs *object.TreeEntry, driver ContentMergeFunc) (*object.TreeEntry, *Conflict, error) {
	baseText, err := readBlob(db, base)
	if err != nil {
		return nil, nil, err
	}
	oursText, err := readBlob(db, ours)
	if err != nil {
		return nil, nil, err
	}
	theirsText, err := readBlob(db, theirs)
	if err != nil {
		return nil, nil, err
	}

	result := driver(baseText, oursText, theirsText, "ours", "theirs")
	oid, err := db.WriteObject(plumbing.BlobObject, []byte(result.Text))
	if err != nil {
		return nil, nil, err
	}

	mode := ours.Mode
	switch {
	case ours.Mode == theirs.Mode:
	case base != nil && base.Mode == ours.Mode:
		mode = theirs.Mode
	case base != nil && base.Mode == theirs.Mode:
	default:
		return nil, &Conflict{Path: path, Base: base, Ours: ours, Theirs: theirs, Reason: "mode"}, nil
	}
	merged := &object.TreeEntry{Mode: mode, Name: path, OID: oid}

	if result.HasConflict {
		return nil, &Conflict{Path: path, Base: base, Ours: ours, Theirs: theirs, Reason: "content"}, nil
	}
	return merged, nil, nil
}

func readBlob(db *odb.DB, e *object.TreeEntry) (string, error) {
	if e == nil {
		return "", nil
	}
	typ, payload, err := db.ReadObject(e.OID)
	if err != nil {
		return "", err
	}
	if typ != plumbing.BlobObject {
		return "", errkind.New(errkind.ObjectTypeAssertion, "merge.readBlob", nil).WithData(e.Name)
	}
	return string(payload), nil
}

// Flatten walks a tree recursively and returns every leaf (non-directory)
// entry keyed by its full slash-separated path. A zero OID denotes an
// empty tree.
func Flatten(db *odb.DB, oid plumbing.OID) (map[string]object.TreeEntry, error) {
	out := map[string]object.TreeEntry{}
	if oid.IsZero() {
		return out, nil
	}
	if err := flattenInto(db, oid, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(db *odb.DB, oid plumbing.OID, prefix string, out map[string]object.TreeEntry) error {
	typ, payload, err := db.ReadObject(oid)
	if err != nil {
		return err
	}
	if typ != plumbing.TreeObject {
		return errkind.New(errkind.ObjectTypeAssertion, "merge.Flatten", nil).WithData(oid.String())
	}
	tree, err := object.DecodeTree(db.Format(), payload)
	if err != nil {
		return err
	}

	for _, e := range tree.Entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		if e.Mode.IsDir() {
			if err := flattenInto(db, e.OID, path, out); err != nil {
				return err
			}
			continue
		}
		out[path] = object.TreeEntry{Mode: e.Mode, Name: path, OID: e.OID}
	}
	return nil
}
