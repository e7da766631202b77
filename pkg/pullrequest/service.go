package pullrequest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/repo"
)

// FileName is the pull request database inside the metadata directory.
const FileName = "pulls.json"

// Service stores pull requests in a JSON file and merges them through a
// Repository.
type Service struct {
	repo Repository
	path string
	log  logging.Logger
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithClock overrides the clock used for creation and close times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New returns a Service over r whose records live in path.
func New(r Repository, path string, opts ...Option) *Service {
	s := &Service{
		repo: r,
		path: path,
		log:  logging.Dummy(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForRepo returns a Service backed by .twig/pulls.json of r, logging
// through the repository logger.
func ForRepo(r *repo.Repo, opts ...Option) *Service {
	opts = append([]Option{WithLogger(r.Logger())}, opts...)
	return New(r, filepath.Join(r.TwigDir, FileName), opts...)
}

// Create records a new open pull request from source into target. Both
// branches must exist. Ids are sequential starting at 1.
func (s *Service) Create(source, target string, opts CreateOptions) (*PullRequest, error) {
	if source == target {
		return nil, fmt.Errorf("create pull request: %w: %q", ErrSameBranch, source)
	}
	for _, b := range []string{source, target} {
		if _, err := s.repo.BranchTip(b); err != nil {
			return nil, fmt.Errorf("create pull request: %w: %q: %v", ErrNoSuchBranch, b, err)
		}
	}

	prs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("create pull request: %w", err)
	}
	pr := &PullRequest{
		ID:        nextID(prs),
		Title:     opts.Title,
		Author:    opts.Author,
		Source:    source,
		Target:    target,
		Status:    StatusOpen,
		CreatedAt: s.now().UTC(),
	}
	prs = append(prs, pr)
	if err := s.save(prs); err != nil {
		return nil, fmt.Errorf("create pull request: %w", err)
	}

	s.log.WithFields(logging.Fields{
		"pull":   pr.ID,
		"source": source,
		"target": target,
	}).Debug("pull request created")
	return pr, nil
}

// List returns every pull request ordered by id. An empty status matches
// all of them.
func (s *Service) List(status Status) ([]*PullRequest, error) {
	prs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}
	if status == "" {
		return prs, nil
	}
	out := prs[:0]
	for _, pr := range prs {
		if pr.Status == status {
			out = append(out, pr)
		}
	}
	return out, nil
}

// Get returns the pull request with the given id.
func (s *Service) Get(id int) (*PullRequest, error) {
	prs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	pr, err := find(prs, id)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	return pr, nil
}

// Close marks an open pull request closed without merging.
func (s *Service) Close(id int) (*PullRequest, error) {
	prs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("close pull request: %w", err)
	}
	pr, err := find(prs, id)
	if err != nil {
		return nil, fmt.Errorf("close pull request: %w", err)
	}
	if pr.Status != StatusOpen {
		return nil, fmt.Errorf("close pull request #%d: %w (%s)", id, ErrNotOpen, pr.Status)
	}
	now := s.now().UTC()
	pr.Status = StatusClosed
	pr.ClosedAt = &now
	if err := s.save(prs); err != nil {
		return nil, fmt.Errorf("close pull request: %w", err)
	}
	s.log.WithField("pull", id).Debug("pull request closed")
	return pr, nil
}

// Merge merges the source branch into the target branch. Fast-forward,
// clean and already-merged outcomes mark the pull request merged. A
// conflicted merge leaves it open and returns the conflicts in the outcome;
// the repository error, if any, is returned as is.
func (s *Service) Merge(id int, opts repo.MergeOptions) (*MergeResult, error) {
	prs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("merge pull request: %w", err)
	}
	pr, err := find(prs, id)
	if err != nil {
		return nil, fmt.Errorf("merge pull request: %w", err)
	}
	if pr.Status != StatusOpen {
		return nil, fmt.Errorf("merge pull request #%d: %w (%s)", id, ErrNotOpen, pr.Status)
	}
	if opts.Message == "" {
		opts.Message = fmt.Sprintf("Merge pull request #%d from %s into %s", pr.ID, pr.Source, pr.Target)
	}

	out, err := s.repo.MergeBranches(pr.Target, pr.Source, opts)
	if err != nil {
		return nil, fmt.Errorf("merge pull request #%d: %w", id, err)
	}
	res := &MergeResult{PullRequest: pr, Outcome: out}
	if out.Kind == repo.MergeConflicted {
		s.log.WithFields(logging.Fields{
			"pull":      id,
			"conflicts": len(out.Conflicts),
		}).Debug("pull request merge conflicted")
		return res, nil
	}

	now := s.now().UTC()
	pr.Status = StatusMerged
	pr.ClosedAt = &now
	pr.MergedCommit = out.Commit
	if err := s.save(prs); err != nil {
		return nil, fmt.Errorf("merge pull request #%d: %w", id, err)
	}
	s.log.WithFields(logging.Fields{
		"pull":                 id,
		"kind":                 out.Kind.String(),
		logging.CommitFieldKey: string(out.Commit),
	}).Debug("pull request merged")
	return res, nil
}

// Diff returns the path-level changes from the target tip to the source
// tip.
func (s *Service) Diff(id int) ([]merge.Change, error) {
	pr, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	changes, err := s.repo.DiffCommits(pr.Target, pr.Source)
	if err != nil {
		return nil, fmt.Errorf("diff pull request #%d: %w", id, err)
	}
	return changes, nil
}

func find(prs []*PullRequest, id int) (*PullRequest, error) {
	for _, pr := range prs {
		if pr.ID == id {
			return pr, nil
		}
	}
	return nil, fmt.Errorf("%w: #%d", ErrNotFound, id)
}

func nextID(prs []*PullRequest) int {
	highest := 0
	for _, pr := range prs {
		if pr.ID > highest {
			highest = pr.ID
		}
	}
	return highest + 1
}

func (s *Service) load() ([]*PullRequest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	var prs []*PullRequest
	if err := json.Unmarshal(data, &prs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	sort.Slice(prs, func(i, j int) bool { return prs[i].ID < prs[j].ID })
	return prs, nil
}

func (s *Service) save(prs []*PullRequest) error {
	data, err := json.MarshalIndent(prs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", FileName, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	return nil
}
