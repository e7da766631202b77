package repo

import (
	"fmt"
	"sort"

	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
)

// StatusReport summarizes HEAD, the staging set and the working directory.
//
// Staged lists what the next commit would change relative to HEAD. Staged
// paths are read from the working directory at commit time, so a staged
// path never also shows up as modified. Modified and Deleted cover tracked
// files that differ from HEAD but are not staged. Untracked lists files
// outside HEAD and staging that no ignore rule covers.
type StatusReport struct {
	Branch    string
	Detached  bool
	Head      object.Hash
	MergeHead object.Hash
	Staged    []merge.Change
	Modified  []string
	Deleted   []string
	Untracked []string
}

// Clean reports whether nothing is staged and no tracked file differs from
// HEAD. Untracked files do not count.
func (s *StatusReport) Clean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 && len(s.Deleted) == 0
}

// Status computes the status of the working tree.
func (r *Repo) Status() (*StatusReport, error) {
	rep := &StatusReport{}
	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	rep.Branch = branch
	rep.Detached = branch == ""
	if rep.Head, _, err = r.HeadCommit(); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if rep.MergeHead, _, err = r.readMergeHead(); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	tracked, err := r.headFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	for _, p := range stg.Paths {
		head, inHead := tracked[p]
		if !r.Work.Exists(p) {
			if inHead {
				rep.Staged = append(rep.Staged, merge.Change{Path: p, Type: merge.Deleted, From: head.BlobHash})
			}
			continue
		}
		h, err := r.workBlobHash(p)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		switch {
		case !inHead:
			rep.Staged = append(rep.Staged, merge.Change{Path: p, Type: merge.Added, To: h})
		case head.BlobHash != h:
			rep.Staged = append(rep.Staged, merge.Change{Path: p, Type: merge.Modified, From: head.BlobHash, To: h})
		}
	}

	for _, p := range sortedFileKeys(tracked) {
		if stg.Has(p) {
			continue
		}
		if !r.Work.Exists(p) {
			rep.Deleted = append(rep.Deleted, p)
			continue
		}
		h, err := r.workBlobHash(p)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if h != tracked[p].BlobHash {
			rep.Modified = append(rep.Modified, p)
		}
	}

	files, err := r.Work.List()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	for _, p := range files {
		if _, ok := tracked[p]; ok || stg.Has(p) {
			continue
		}
		rep.Untracked = append(rep.Untracked, p)
	}
	sort.Strings(rep.Untracked)
	return rep, nil
}

// workBlobHash returns the digest the file at p would get as a blob,
// without storing it.
func (r *Repo) workBlobHash(p string) (object.Hash, error) {
	data, err := r.Work.ReadFile(p)
	if err != nil {
		return "", err
	}
	return object.BlobHash(data), nil
}

// ensureClean returns ErrDirtyWorktree when anything is staged or a tracked
// file differs from HEAD.
func (r *Repo) ensureClean() error {
	st, err := r.Status()
	if err != nil {
		return err
	}
	if !st.Clean() {
		return fmt.Errorf("%w: %d staged, %d modified, %d deleted",
			ErrDirtyWorktree, len(st.Staged), len(st.Modified), len(st.Deleted))
	}
	return nil
}
