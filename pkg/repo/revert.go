package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
)

// RevertOutcome is the result of Revert. Commit is empty when the revert
// conflicted with later changes; Conflicts then lists the paths involved.
type RevertOutcome struct {
	Reverted  object.Hash
	Commit    object.Hash
	Tree      object.Hash
	Conflicts []merge.Conflict
}

// Revert records a new commit on the current branch that undoes the changes
// one commit introduced relative to its first parent. The commit's tree is
// the base of a three-way merge between HEAD and the first parent, so later
// edits to unrelated paths survive. Conflicts are returned without
// committing or touching the working tree. Root commits cannot be reverted.
//
// The working tree must be clean.
func (r *Repo) Revert(ref string, opts CommitOptions) (*RevertOutcome, error) {
	if r.MergeInProgress() {
		return nil, fmt.Errorf("revert: %w", ErrMergeInProgress)
	}
	target, err := r.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	c, err := r.Store.ReadCommit(target)
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	if len(c.Parents) == 0 {
		return nil, fmt.Errorf("revert: %w: %s", ErrRootCommit, target.Short(12))
	}
	if err := r.ensureClean(); err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}

	head, ok, err := r.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("revert: %w: HEAD has no commits", ErrNoSuchCommit)
	}
	headTree, err := r.commitTree(head)
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	parentTree, err := r.commitTree(c.Parents[0])
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}

	res, err := merge.Trees(r.Store, c.TreeHash, headTree, parentTree)
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	out := &RevertOutcome{Reverted: target, Tree: res.Tree, Conflicts: res.Conflicts}
	if !res.Clean() {
		return out, nil
	}

	changes, err := merge.DiffTrees(r.Store, headTree, res.Tree)
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	if err := r.checkOverwrites(changes); err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}

	message := fmt.Sprintf("Revert \"%s\"\n\nThis reverts commit %s.", subjectLine(c.Message), target)
	h, err := r.CommitTree(res.Tree, message, []object.Hash{head}, opts)
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}

	name, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("revert: %w", err)
	}
	if !strings.HasPrefix(name, "refs/") {
		name = "HEAD"
	}
	err = r.applyRefUpdate(refUpdate{
		name:     name,
		newHash:  h,
		oldHash:  head,
		checkOld: true,
		reason:   "revert: " + subjectLine(c.Message),
	})
	if err != nil {
		if !errors.Is(err, ErrRefUpdatedButReflogAppendFailed) {
			return nil, fmt.Errorf("revert: %w", err)
		}
		r.log.WithError(err).Warn("revert recorded without reflog entry")
	}
	if err := r.applyChanges(changes); err != nil {
		return nil, fmt.Errorf("revert: update working tree: %w", err)
	}

	out.Commit = h
	r.log.WithFields(logging.Fields{
		logging.CommitFieldKey: string(h),
		"reverted":             string(target),
	}).Debug("revert")
	return out, nil
}
