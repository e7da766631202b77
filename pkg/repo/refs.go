package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

// ListRefs lists references under .twig/refs. Names are full ref names,
// e.g. "refs/heads/main". Lock files are skipped.
func (r *Repo) ListRefs() (map[string]object.Hash, error) {
	root := filepath.Join(r.TwigDir, "refs")

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		rel, err := filepath.Rel(r.TwigDir, path)
		if err != nil {
			return err
		}
		h, err := readRefHash(path)
		if err != nil {
			return err
		}
		refs[filepath.ToSlash(rel)] = h
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

// IntegrityReport combines the object store check with a walk of
// everything the refs keep alive.
type IntegrityReport struct {
	Objects   *object.VerifySummary
	Refs      int
	Reachable int
	Commits   int // reachable commits
}

// Verify checks every stored object and then walks the history of every
// ref, HEAD and MERGE_HEAD included. A ref naming a missing commit, or any
// reachable object pointing at a missing one, fails the check.
func (r *Repo) Verify() (*IntegrityReport, error) {
	summary, err := r.Store.Verify()
	if err != nil {
		return &IntegrityReport{Objects: summary}, fmt.Errorf("verify: %w", err)
	}
	refs, err := r.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	roots := make([]object.Hash, 0, len(refs)+2)
	for _, name := range sortedRefNames(refs) {
		h := refs[name]
		if typ, err := r.Store.TypeOf(h); err != nil || typ != object.TypeCommit {
			return nil, fmt.Errorf("verify: ref %s: %w: %s", name, ErrNoSuchCommit, displayHash(h))
		}
		roots = append(roots, h)
	}
	if h, ok, err := r.HeadCommit(); err == nil && ok {
		roots = append(roots, h)
	}
	if h, ok, err := r.readMergeHead(); err == nil && ok {
		roots = append(roots, h)
	}

	kinds, missing, err := r.Store.Reachable(roots)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	rep := &IntegrityReport{Objects: summary, Refs: len(refs), Reachable: len(kinds)}
	for _, typ := range kinds {
		if typ == object.TypeCommit {
			rep.Commits++
		}
	}
	if len(missing) > 0 {
		return rep, fmt.Errorf("verify: %d reachable object(s) missing, first %s: %w",
			len(missing), missing[0], object.ErrNotFound)
	}
	return rep, nil
}

func sortedRefNames(refs map[string]object.Hash) []string {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
