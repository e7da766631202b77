package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Staging is the set of repo-relative paths whose working-directory state
// the next commit will record. A staged path that no longer exists records a
// deletion.
type Staging struct {
	Paths []string `json:"paths"`
}

// Has reports whether p is staged.
func (s *Staging) Has(p string) bool {
	i := sort.SearchStrings(s.Paths, p)
	return i < len(s.Paths) && s.Paths[i] == p
}

// Add inserts paths, keeping the set sorted and unique.
func (s *Staging) Add(paths ...string) {
	set := make(map[string]struct{}, len(s.Paths)+len(paths))
	for _, p := range s.Paths {
		set[p] = struct{}{}
	}
	for _, p := range paths {
		set[p] = struct{}{}
	}
	s.Paths = sortedPathSet(set)
}

// Len returns the number of staged paths.
func (s *Staging) Len() int {
	return len(s.Paths)
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.TwigDir, "index")
}

// ReadStaging loads the staging set from .twig/index. If the file does not
// exist, an empty Staging is returned (no error).
func (r *Repo) ReadStaging() (*Staging, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Staging{}, nil
		}
		return nil, fmt.Errorf("read staging: %w", err)
	}

	var stg Staging
	if err := json.Unmarshal(data, &stg); err != nil {
		return nil, fmt.Errorf("read staging: unmarshal: %w", err)
	}
	normalized := &Staging{}
	normalized.Add(stg.Paths...)
	return normalized, nil
}

// WriteStaging atomically writes the staging set to .twig/index.
func (r *Repo) WriteStaging(s *Staging) error {
	if s.Paths == nil {
		s.Paths = []string{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("write staging: marshal: %w", err)
	}
	if err := writeFileAtomic(r.indexPath(), data); err != nil {
		return fmt.Errorf("write staging: %w", err)
	}
	return nil
}

// ClearStaging empties the staging set.
func (r *Repo) ClearStaging() error {
	if err := os.Remove(r.indexPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear staging: %w", err)
	}
	return nil
}

// Add stages the given paths. Each path is resolved relative to the repo
// root. A directory stages every non-ignored file below it plus any tracked
// file below it that was deleted. A tracked file missing from disk stages
// its deletion. File contents are read when the commit is built.
func (r *Repo) Add(paths []string) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	tracked, err := r.headFiles()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		matched, err := r.expandPathspec(rel, tracked)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		stg.Add(matched...)
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// expandPathspec turns one repo-relative path ("" for the whole tree) into
// the file paths it stages.
func (r *Repo) expandPathspec(rel string, tracked map[string]TreeFileEntry) ([]string, error) {
	if rel != "" && r.Work.Exists(rel) {
		if r.Work.IsIgnored(rel) {
			return nil, fmt.Errorf("path %q is ignored", rel)
		}
		return []string{rel}, nil
	}

	var out []string
	if rel == "" || r.Work.IsDir(rel) {
		files, err := r.Work.ListUnder(rel)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	if _, ok := tracked[rel]; ok && !r.Work.Exists(rel) {
		out = append(out, rel)
	}
	prefix := rel + "/"
	for p := range tracked {
		if (rel == "" || strings.HasPrefix(p, prefix)) && !r.Work.Exists(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		if rel == "" || r.Work.IsDir(rel) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrPathspec, rel)
	}
	return out, nil
}

// StageAll stages every new, modified and deleted file in the working
// directory.
func (r *Repo) StageAll() error {
	st, err := r.Status()
	if err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	stg.Add(st.Modified...)
	stg.Add(st.Deleted...)
	stg.Add(st.Untracked...)
	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	return nil
}

// repoRelPath converts a path (absolute, or relative to CWD) into a
// slash-separated path relative to the repository root. The root itself
// maps to "".
func (r *Repo) repoRelPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve path %q: %w", p, err)
		}
		abs = filepath.Join(cwd, p)
	}
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
	}
	rel = filepath.ToSlash(rel)
	if !filepath.IsAbs(p) && (rel == ".." || strings.HasPrefix(rel, "../")) {
		// Outside the repo relative to CWD: treat p as repo-relative.
		rel = filepath.ToSlash(filepath.Clean(p))
	}
	if rel == "." {
		return "", nil
	}
	clean, err := r.Work.CleanPath(rel)
	if err != nil {
		return "", err
	}
	return clean, nil
}

func sortedPathSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
