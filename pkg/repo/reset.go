package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
)

// Unstage removes paths from the staging set. Directory paths drop every
// staged path below them. With no paths the whole set is cleared. The
// working tree is not touched.
func (r *Repo) Unstage(paths []string) error {
	if len(paths) == 0 {
		if err := r.ClearStaging(); err != nil {
			return fmt.Errorf("unstage: %w", err)
		}
		return nil
	}
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("unstage: %w", err)
	}

	drop := make(map[string]struct{})
	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("unstage: %w", err)
		}
		matched := false
		for _, s := range stg.Paths {
			if rel == "" || s == rel || strings.HasPrefix(s, rel+"/") {
				drop[s] = struct{}{}
				matched = true
			}
		}
		if !matched {
			return fmt.Errorf("unstage: %w: %q is not staged", ErrPathspec, p)
		}
	}

	kept := &Staging{}
	for _, s := range stg.Paths {
		if _, ok := drop[s]; !ok {
			kept.Add(s)
		}
	}
	if err := r.WriteStaging(kept); err != nil {
		return fmt.Errorf("unstage: %w", err)
	}
	return nil
}

// Reset moves HEAD (the current branch, or HEAD itself when detached) back
// to an ancestor commit. Tracked files are restored to the target's content,
// files only tracked after it are removed, and staging is cleared. Local
// edits to tracked files are discarded.
func (r *Repo) Reset(ref string) (object.Hash, error) {
	if r.MergeInProgress() {
		return "", fmt.Errorf("reset: %w", ErrMergeInProgress)
	}
	target, err := r.Resolve(ref)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	head, ok, err := r.HeadCommit()
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("reset: %w: HEAD has no commits", ErrNoSuchCommit)
	}
	isAncestor, err := r.IsAncestor(target, head)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	if !isAncestor {
		return "", fmt.Errorf("reset: %w: %s is not an ancestor of HEAD", ErrNotAncestor, target.Short(12))
	}

	headTree, err := r.commitTree(head)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	targetTree, err := r.commitTree(target)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}

	name, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	if !strings.HasPrefix(name, "refs/") {
		name = "HEAD"
	}
	err = r.applyRefUpdate(refUpdate{
		name:     name,
		newHash:  target,
		oldHash:  head,
		checkOld: true,
		reason:   "reset: moving to " + ref,
	})
	if err != nil {
		if !errors.Is(err, ErrRefUpdatedButReflogAppendFailed) {
			return "", fmt.Errorf("reset: %w", err)
		}
		r.log.WithError(err).Warn("reset recorded without reflog entry")
	}

	if err := r.forceTree(headTree, targetTree, stg.Paths); err != nil {
		return "", fmt.Errorf("reset: restore working tree: %w", err)
	}
	if err := r.ClearStaging(); err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}

	r.log.WithFields(logging.Fields{
		logging.RefFieldKey:    name,
		logging.CommitFieldKey: string(target),
	}).Debug("reset")
	return target, nil
}
