package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

var (
	ErrNotARepository                  = errors.New("not a twig repository (or any parent up to /)")
	ErrRepositoryExists                = errors.New("repository already exists")
	ErrEmptyCommit                     = errors.New("nothing to commit")
	ErrBranchExists                    = errors.New("branch already exists")
	ErrNoSuchCommit                    = errors.New("no such commit")
	ErrNoSuchRef                       = errors.New("no such ref")
	ErrAmbiguousRef                    = errors.New("ambiguous ref")
	ErrNoCommonAncestor                = errors.New("no common ancestor")
	ErrInvalidBranchName               = errors.New("invalid branch name")
	ErrDirtyWorktree                   = errors.New("working tree has uncommitted changes")
	ErrMergeInProgress                 = errors.New("merge in progress")
	ErrNoMergeInProgress               = errors.New("no merge in progress")
	ErrTooManyParents                  = errors.New("a commit has at most two parents")
	ErrProtectedBranch                 = errors.New("branch cannot be deleted")
	ErrNotAncestor                     = errors.New("target is not an ancestor of the current branch")
	ErrRootCommit                      = errors.New("cannot revert a root commit")
	ErrDetachedHead                    = errors.New("HEAD is detached")
	ErrPathspec                        = errors.New("pathspec did not match any files")
	ErrRefCASMismatch                  = errors.New("ref compare-and-swap mismatch")
	ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")
)

// AmbiguousRefError lists the stored commits a digest prefix matched.
type AmbiguousRefError struct {
	Ref        string
	Candidates []object.Hash
}

func (e *AmbiguousRefError) Error() string {
	short := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		short[i] = c.Short(12)
	}
	return fmt.Sprintf("%s %q: candidates %s", ErrAmbiguousRef, e.Ref, strings.Join(short, ", "))
}

func (e *AmbiguousRefError) Is(target error) bool {
	return target == ErrAmbiguousRef
}

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}
