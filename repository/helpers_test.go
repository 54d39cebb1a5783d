package repository_test

import (
	"testing"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/repository"
)

// commitIndex builds a commit straight from idx's stage-0 entries onto
// the repository's DefaultBranch, the same shape a real commit porcelain
// command would call through after Add has staged the changes.
func commitIndex(t *testing.T, r *repository.Repository, idx *index.Index, message string, parents []plumbing.OID) (plumbing.OID, error) {
	t.Helper()
	return commit.Commit(r.DB, r.Refs, r.Cfg, idx.Entries, commit.Options{
		Branch:  repository.DefaultBranch,
		Message: message,
		Parents: parents,
		Now:     fixedTime,
	})
}
