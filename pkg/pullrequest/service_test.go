package pullrequest_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/pullrequest"
	"github.com/odvcencio/twig/pkg/repo"
)

type fakeRepo struct {
	branches map[string]object.Hash
	outcome  *repo.MergeOutcome
	changes  []merge.Change
	merged   [][2]string
	diffed   [][2]string
}

func (f *fakeRepo) BranchTip(name string) (object.Hash, error) {
	h, ok := f.branches[name]
	if !ok {
		return "", repo.ErrNoSuchRef
	}
	return h, nil
}

func (f *fakeRepo) MergeBranches(target, source string, _ repo.MergeOptions) (*repo.MergeOutcome, error) {
	f.merged = append(f.merged, [2]string{target, source})
	return f.outcome, nil
}

func (f *fakeRepo) DiffCommits(a, b string) ([]merge.Change, error) {
	f.diffed = append(f.diffed, [2]string{a, b})
	return f.changes, nil
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return t }
}

func newService(t *testing.T, f *fakeRepo) (*pullrequest.Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), pullrequest.FileName)
	return pullrequest.New(f, path, pullrequest.WithClock(fixedClock())), path
}

func TestCreateAndList(t *testing.T) {
	f := &fakeRepo{branches: map[string]object.Hash{"main": "a", "feature": "b", "fix": "c"}}
	svc, path := newService(t, f)

	list, err := svc.List("")
	require.NoError(t, err)
	assert.Empty(t, list)

	pr1, err := svc.Create("feature", "main", pullrequest.CreateOptions{Title: "Add feature", Author: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, pr1.ID)
	assert.Equal(t, pullrequest.StatusOpen, pr1.Status)
	assert.Equal(t, "#1 feature -> main (open)", pr1.String())

	pr2, err := svc.Create("fix", "main", pullrequest.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, pr2.ID)

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened := pullrequest.New(f, path)
	list, err = reopened.List("")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Add feature", list[0].Title)
	assert.Equal(t, "alice", list[0].Author)
	assert.Equal(t, fixedClock()(), list[0].CreatedAt)
	assert.Equal(t, "fix", list[1].Source)
}

func TestCreateErrors(t *testing.T) {
	f := &fakeRepo{branches: map[string]object.Hash{"main": "a"}}
	svc, _ := newService(t, f)

	_, err := svc.Create("missing", "main", pullrequest.CreateOptions{})
	require.ErrorIs(t, err, pullrequest.ErrNoSuchBranch)

	_, err = svc.Create("main", "missing", pullrequest.CreateOptions{})
	require.ErrorIs(t, err, pullrequest.ErrNoSuchBranch)

	_, err = svc.Create("main", "main", pullrequest.CreateOptions{})
	require.ErrorIs(t, err, pullrequest.ErrSameBranch)

	list, err := svc.List("")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetAndClose(t *testing.T) {
	f := &fakeRepo{branches: map[string]object.Hash{"main": "a", "feature": "b"}}
	svc, _ := newService(t, f)
	_, err := svc.Create("feature", "main", pullrequest.CreateOptions{})
	require.NoError(t, err)

	_, err = svc.Get(7)
	require.ErrorIs(t, err, pullrequest.ErrNotFound)

	closed, err := svc.Close(1)
	require.NoError(t, err)
	assert.Equal(t, pullrequest.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	got, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, pullrequest.StatusClosed, got.Status)

	_, err = svc.Close(1)
	require.ErrorIs(t, err, pullrequest.ErrNotOpen)
	_, err = svc.Merge(1, repo.MergeOptions{})
	require.ErrorIs(t, err, pullrequest.ErrNotOpen)
	assert.Empty(t, f.merged)

	open, err := svc.List(pullrequest.StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMergeMarksMerged(t *testing.T) {
	f := &fakeRepo{
		branches: map[string]object.Hash{"main": "a", "feature": "b"},
		outcome:  &repo.MergeOutcome{Kind: repo.MergeFastForward, Commit: "b"},
	}
	svc, _ := newService(t, f)
	_, err := svc.Create("feature", "main", pullrequest.CreateOptions{})
	require.NoError(t, err)

	res, err := svc.Merge(1, repo.MergeOptions{})
	require.NoError(t, err)
	assert.False(t, res.Conflicted())
	assert.Equal(t, [][2]string{{"main", "feature"}}, f.merged)
	assert.Equal(t, pullrequest.StatusMerged, res.PullRequest.Status)
	assert.Equal(t, object.Hash("b"), res.PullRequest.MergedCommit)

	got, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, pullrequest.StatusMerged, got.Status)
}

func TestMergeConflictStaysOpen(t *testing.T) {
	f := &fakeRepo{
		branches: map[string]object.Hash{"main": "a", "feature": "b"},
		outcome: &repo.MergeOutcome{
			Kind:      repo.MergeConflicted,
			Conflicts: []merge.Conflict{{Path: "file.txt", Ours: "x", Theirs: "y"}},
		},
	}
	svc, _ := newService(t, f)
	_, err := svc.Create("feature", "main", pullrequest.CreateOptions{})
	require.NoError(t, err)

	res, err := svc.Merge(1, repo.MergeOptions{})
	require.NoError(t, err)
	assert.True(t, res.Conflicted())
	require.Len(t, res.Outcome.Conflicts, 1)
	assert.Equal(t, "file.txt", res.Outcome.Conflicts[0].Path)

	got, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, pullrequest.StatusOpen, got.Status)
}

func TestDiffComparesTargetToSource(t *testing.T) {
	f := &fakeRepo{
		branches: map[string]object.Hash{"main": "a", "feature": "b"},
		changes:  []merge.Change{{Path: "new.txt", Type: merge.Added, To: "h"}},
	}
	svc, _ := newService(t, f)
	_, err := svc.Create("feature", "main", pullrequest.CreateOptions{})
	require.NoError(t, err)

	changes, err := svc.Diff(1)
	require.NoError(t, err)
	assert.Equal(t, f.changes, changes)
	assert.Equal(t, [][2]string{{"main", "feature"}}, f.diffed)

	_, err = svc.Diff(2)
	require.ErrorIs(t, err, pullrequest.ErrNotFound)
}

func TestCorruptDatabase(t *testing.T) {
	f := &fakeRepo{branches: map[string]object.Hash{"main": "a"}}
	svc, path := newService(t, f)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := svc.List("")
	require.Error(t, err)
}
