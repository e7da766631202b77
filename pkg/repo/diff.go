package repo

import (
	"fmt"
	"sort"

	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
)

// DiffCommits returns the file-level changes from commit a to commit b.
// Both arguments go through Resolve.
func (r *Repo) DiffCommits(a, b string) ([]merge.Change, error) {
	var trees [2]object.Hash
	for i, ref := range []string{a, b} {
		h, err := r.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
		if trees[i], err = r.commitTree(h); err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
	}
	changes, err := merge.DiffTrees(r.Store, trees[0], trees[1])
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return changes, nil
}

// WorktreeChanges returns the changes from the HEAD tree to the working
// directory for every tracked or staged path. Untracked files are left out.
func (r *Repo) WorktreeChanges() ([]merge.Change, error) {
	st, err := r.Status()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	tracked, err := r.headFiles()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}

	changes := append([]merge.Change(nil), st.Staged...)
	for _, p := range st.Modified {
		h, err := r.workBlobHash(p)
		if err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
		changes = append(changes, merge.Change{Path: p, Type: merge.Modified, From: tracked[p].BlobHash, To: h})
	}
	for _, p := range st.Deleted {
		changes = append(changes, merge.Change{Path: p, Type: merge.Deleted, From: tracked[p].BlobHash})
	}
	sortChanges(changes)
	return changes, nil
}

func sortChanges(changes []merge.Change) {
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
}
