package repository

import (
	"bytes"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/storage"
)

const indexPath = "index"

// LoadIndex reads back the staging index, grounded on the same
// named-file persistence merge/state.go uses for MERGE_HEAD/MERGE_MSG.
// A repository that has never staged anything has no index file yet;
// that is not an error, it decodes as an empty Index.
func (r *Repository) LoadIndex() (*index.Index, error) {
	root, err := r.Backend.Root()
	if err != nil {
		return nil, err
	}
	return loadIndex(root, r.DB.Format())
}

func loadIndex(root storage.RootFS, format plumbing.ObjectFormat) (*index.Index, error) {
	data, err := root.ReadFile(indexPath)
	if err != nil {
		if err == storage.ErrNotExist {
			return &index.Index{Version: index.VersionSupported}, nil
		}
		return nil, err
	}
	idx := &index.Index{}
	if err := index.NewDecoder(bytes.NewReader(data), format).Decode(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// SaveIndex encodes idx and persists it as the repository's staging
// index.
func (r *Repository) SaveIndex(idx *index.Index) error {
	root, err := r.Backend.Root()
	if err != nil {
		return err
	}
	return saveIndex(root, idx, r.DB.Format())
}

func saveIndex(root storage.RootFS, idx *index.Index, format plumbing.ObjectFormat) error {
	var buf bytes.Buffer
	if err := index.NewEncoder(&buf, format).Encode(idx); err != nil {
		return err
	}
	return root.WriteFile(indexPath, buf.Bytes())
}

// indexFromEntries builds a fresh stage-0-only Index out of entries,
// the shape Checkout and Reset both want: no prior conflict state
// survives moving the worktree to a different tree wholesale.
func indexFromEntries(entries []*index.Entry) *index.Index {
	return &index.Index{Version: index.VersionSupported, Entries: entries}
}
