package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

// Resolve turns a ref into a commit digest.
//
// Resolution order:
//  1. "HEAD" resolves through the current branch, or is the detached digest.
//  2. A branch name, or a full "refs/heads/<name>" path.
//  3. A hex digest prefix, matched against stored commits only.
//
// A prefix matching several commits fails with an *AmbiguousRefError
// (matching ErrAmbiguousRef); nothing matching fails with ErrNoSuchRef.
func (r *Repo) Resolve(ref string) (object.Hash, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("resolve: %w: empty ref", ErrNoSuchRef)
	}

	if ref == "HEAD" {
		h, ok, err := r.HeadCommit()
		if err != nil {
			return "", fmt.Errorf("resolve HEAD: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("resolve HEAD: %w: no commits yet", ErrNoSuchRef)
		}
		return h, nil
	}

	name := strings.TrimPrefix(ref, headsPrefix)
	if ValidateBranchName(name) == nil {
		h, err := r.BranchTip(name)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, ErrNoSuchRef) {
			return "", fmt.Errorf("resolve %q: %w", ref, err)
		}
	}

	prefix := strings.ToLower(ref)
	if !object.ValidPrefix(prefix) {
		return "", fmt.Errorf("resolve %q: %w", ref, ErrNoSuchRef)
	}
	candidates, err := r.Store.FindPrefix(prefix)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	var commits []object.Hash
	for _, h := range candidates {
		typ, err := r.Store.TypeOf(h)
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", ref, err)
		}
		if typ == object.TypeCommit {
			commits = append(commits, h)
		}
	}

	switch len(commits) {
	case 0:
		return "", fmt.Errorf("resolve %q: %w", ref, ErrNoSuchRef)
	case 1:
		return commits[0], nil
	default:
		return "", &AmbiguousRefError{Ref: ref, Candidates: commits}
	}
}
