// Package pullrequest keeps review requests between branches of one
// repository. A pull request is bookkeeping only: it names a source and a
// target branch, and merging it runs the repository merge of source into
// target.
package pullrequest

import (
	"errors"
	"fmt"
	"time"

	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/repo"
)

var (
	ErrNotFound     = errors.New("pull request not found")
	ErrNotOpen      = errors.New("pull request is not open")
	ErrNoSuchBranch = errors.New("branch does not exist")
	ErrSameBranch   = errors.New("source and target are the same branch")
)

// Status is the lifecycle state of a pull request.
type Status string

const (
	StatusOpen   Status = "open"
	StatusMerged Status = "merged"
	StatusClosed Status = "closed"
)

// PullRequest is one stored request to merge Source into Target.
type PullRequest struct {
	ID           int         `json:"id"`
	Title        string      `json:"title,omitempty"`
	Author       string      `json:"author,omitempty"`
	Source       string      `json:"source"`
	Target       string      `json:"target"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	MergedCommit object.Hash `json:"merged_commit,omitempty"`
}

func (p *PullRequest) String() string {
	return fmt.Sprintf("#%d %s -> %s (%s)", p.ID, p.Source, p.Target, p.Status)
}

// Repository is what a Service needs from a repository. *repo.Repo
// satisfies it.
type Repository interface {
	BranchTip(name string) (object.Hash, error)
	MergeBranches(target, source string, opts repo.MergeOptions) (*repo.MergeOutcome, error)
	DiffCommits(a, b string) ([]merge.Change, error)
}

// CreateOptions carries optional metadata for Create.
type CreateOptions struct {
	Title  string
	Author string
}

// MergeResult is the outcome of merging a pull request. PullRequest reflects
// the stored state after the attempt; it stays open when Outcome conflicted.
type MergeResult struct {
	PullRequest *PullRequest
	Outcome     *repo.MergeOutcome
}

// Conflicted reports whether the merge left conflicts to resolve.
func (m *MergeResult) Conflicted() bool {
	return m.Outcome != nil && m.Outcome.Kind == repo.MergeConflicted
}
