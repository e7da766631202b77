package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
)

// ValidateBranchName checks that name can be stored as a single file under
// refs/heads/.
func ValidateBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidBranchName)
	case name == "HEAD":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidBranchName, name)
	case strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q must not start with '.' or '-'", ErrInvalidBranchName, name)
	case strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("%w: %q must not end with .lock", ErrInvalidBranchName, name)
	}
	for _, c := range name {
		if c == '/' || c == '\\' || unicode.IsSpace(c) || unicode.IsControl(c) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidBranchName, name, c)
		}
	}
	return nil
}

func branchRef(name string) string {
	return headsPrefix + name
}

// BranchTip returns the commit a branch points at.
func (r *Repo) BranchTip(name string) (object.Hash, error) {
	if err := ValidateBranchName(name); err != nil {
		return "", err
	}
	h, err := readRefHash(filepath.Join(r.TwigDir, "refs", "heads", name))
	if err != nil {
		return "", fmt.Errorf("branch %q: %w", name, err)
	}
	if h == "" {
		return "", fmt.Errorf("branch %q: %w", name, ErrNoSuchRef)
	}
	if !object.ValidHash(h) {
		return "", fmt.Errorf("branch %q: %w: ref holds %q", name, ErrNoSuchCommit, h)
	}
	return h, nil
}

// BranchExists reports whether refs/heads/<name> exists.
func (r *Repo) BranchExists(name string) bool {
	_, err := r.BranchTip(name)
	return err == nil
}

// CreateBranch creates a new branch pointing at the given commit. It fails
// with ErrBranchExists when the name is taken and ErrNoSuchCommit when at is
// not a stored commit.
func (r *Repo) CreateBranch(name string, at object.Hash) error {
	if err := ValidateBranchName(name); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	if typ, err := r.Store.TypeOf(at); err != nil || typ != object.TypeCommit {
		return fmt.Errorf("create branch %q: %w: %s", name, ErrNoSuchCommit, at)
	}
	err := r.applyRefUpdate(refUpdate{
		name:     branchRef(name),
		newHash:  at,
		checkOld: true,
		reason:   "branch: created from " + at.Short(12),
	})
	if err != nil {
		if errors.Is(err, ErrRefCASMismatch) {
			return fmt.Errorf("create branch: %w: %q", ErrBranchExists, name)
		}
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes refs/heads/<name>. The current branch and the
// configured default branch cannot be deleted. Commits are never deleted.
func (r *Repo) DeleteBranch(name string) error {
	if err := ValidateBranchName(name); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch: %w: %q is the current branch", ErrProtectedBranch, name)
	}
	if r.Config != nil && name == r.Config.Core.DefaultBranch {
		return fmt.Errorf("delete branch: %w: %q is the default branch", ErrProtectedBranch, name)
	}

	refPath := filepath.Join(r.TwigDir, "refs", "heads", name)
	old, _ := readRefHash(refPath)
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete branch: %w: %q", ErrNoSuchRef, name)
		}
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	if err := r.appendReflog(branchRef(name), old, "", "branch: deleted"); err != nil {
		return &RefUpdateReflogError{Ref: branchRef(name), OldHash: old, Err: err}
	}
	r.log.WithField(logging.BranchFieldKey, name).Debug("branch deleted")
	return nil
}

// ListBranches reads .twig/refs/heads/ and returns the branch names sorted
// alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	headsDir := filepath.Join(r.TwigDir, "refs", "heads")

	entries, err := os.ReadDir(headsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch reads HEAD and returns the branch name if HEAD is a symbolic
// ref (e.g. "ref: refs/heads/main" -> "main"). If HEAD is detached it
// returns "".
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if strings.HasPrefix(head, headsPrefix) {
		return strings.TrimPrefix(head, headsPrefix), nil
	}
	return "", nil
}
