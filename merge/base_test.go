package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/refstore"
)

func TestBaseWalksSeveralGenerationsBack(t *testing.T) {
	e := newEnv(t)
	branch := refstore.NewBranchReferenceName("main")

	root := e.commitFiles(t, branch, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))
	mid := e.commitFiles(t, branch, []plumbing.OID{root}, map[string]string{"a.txt": "a2"}, time.Unix(1050, 0))

	ours := e.commitFiles(t, branch, []plumbing.OID{mid}, map[string]string{"a.txt": "a2", "ours.txt": "o"}, time.Unix(1100, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, mid)))
	theirs := e.commitFiles(t, branch, []plumbing.OID{mid}, map[string]string{"a.txt": "a2", "theirs.txt": "t"}, time.Unix(1110, 0))

	got, err := merge.Base(e.db, ours, theirs)
	require.NoError(t, err)
	require.True(t, got.Equal(mid))
}

func TestBaseReturnsZeroForUnrelatedHistories(t *testing.T) {
	e := newEnv(t)
	branchA := refstore.NewBranchReferenceName("a")
	branchB := refstore.NewBranchReferenceName("b")

	a := e.commitFiles(t, branchA, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))
	b := e.commitFiles(t, branchB, nil, map[string]string{"b.txt": "b"}, time.Unix(1000, 0))

	got, err := merge.Base(e.db, a, b)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

// buildCrissCross builds a history where each branch has merged the
// other: a1/b1 both descend from root, a2 merges b1 into a1 and b2
// merges a1 into b1, leaving neither a1 nor b1 dominating the other.
func buildCrissCross(t *testing.T, e env) (a1, b1, a2, b2 plumbing.OID) {
	t.Helper()
	branch := refstore.NewBranchReferenceName("main")

	root := e.commitFiles(t, branch, nil, map[string]string{"f.txt": "root"}, time.Unix(1000, 0))
	a1 = e.commitFiles(t, branch, []plumbing.OID{root}, map[string]string{"f.txt": "a1"}, time.Unix(1010, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, root)))
	b1 = e.commitFiles(t, branch, []plumbing.OID{root}, map[string]string{"f.txt": "b1"}, time.Unix(1010, 0))

	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, a1)))
	a2 = e.commitFiles(t, branch, []plumbing.OID{a1, b1}, map[string]string{"f.txt": "a1"}, time.Unix(1020, 0))
	require.NoError(t, e.refs.SetReference(refstore.NewHashReference(branch, b1)))
	b2 = e.commitFiles(t, branch, []plumbing.OID{b1, a1}, map[string]string{"f.txt": "b1"}, time.Unix(1020, 0))
	return a1, b1, a2, b2
}

func TestBasesReturnsEveryNonDominatedAncestorForCrissCrossHistory(t *testing.T) {
	e := newEnv(t)
	a1, b1, a2, b2 := buildCrissCross(t, e)

	bases, err := merge.Bases(e.db, a2, b2)
	require.NoError(t, err)
	require.Len(t, bases, 2)
	require.ElementsMatch(t, []plumbing.OID{a1, b1}, bases)
}

func TestRunRejectsCrissCrossHistoryAsMergeNotSupported(t *testing.T) {
	e := newEnv(t)
	_, _, a2, b2 := buildCrissCross(t, e)
	branch := refstore.NewBranchReferenceName("main")

	_, err := merge.Run(e.db, e.refs, e.cfg, a2, b2, merge.Options{Branch: branch})
	require.Error(t, err)
	require.ErrorIs(t, err, &errkind.Error{Kind: errkind.MergeNotSupported})
}

func TestRunRejectsUnrelatedHistoriesByDefault(t *testing.T) {
	e := newEnv(t)
	branchA := refstore.NewBranchReferenceName("a")
	branchB := refstore.NewBranchReferenceName("b")

	a := e.commitFiles(t, branchA, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))
	b := e.commitFiles(t, branchB, nil, map[string]string{"b.txt": "b"}, time.Unix(1000, 0))

	_, err := merge.Run(e.db, e.refs, e.cfg, a, b, merge.Options{Branch: branchA})
	require.Error(t, err)
	require.ErrorIs(t, err, &errkind.Error{Kind: errkind.MergeNotSupported})
}

func TestRunAllowsUnrelatedHistoriesWhenOptedIn(t *testing.T) {
	e := newEnv(t)
	branchA := refstore.NewBranchReferenceName("a")
	branchB := refstore.NewBranchReferenceName("b")

	a := e.commitFiles(t, branchA, nil, map[string]string{"a.txt": "a"}, time.Unix(1000, 0))
	b := e.commitFiles(t, branchB, nil, map[string]string{"b.txt": "b"}, time.Unix(1000, 0))

	result, err := merge.Run(e.db, e.refs, e.cfg, a, b, merge.Options{
		Branch: branchA, Message: "merge unrelated", Now: time.Unix(1100, 0),
		AllowUnrelatedHistories: true,
	})
	require.NoError(t, err)
	require.False(t, result.Commit.IsZero())
	require.Empty(t, result.Conflicts)
}
