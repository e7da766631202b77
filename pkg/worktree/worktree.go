// Package worktree reads snapshots from and materializes trees into the
// working directory of a repository.
package worktree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidPath is returned for paths that are absolute or escape the root.
var ErrInvalidPath = errors.New("invalid worktree path")

// Dir is a working directory rooted at Root. Paths passed to its methods are
// repo-relative and slash-separated.
type Dir struct {
	Root    string
	ignore  *Matcher
	metaDir string
}

// Open returns a Dir for root. metaDir names the repository metadata
// directory (for example ".twig"), which is never listed or modified.
func Open(root, metaDir string) (*Dir, error) {
	m, err := LoadMatcher(root, metaDir)
	if err != nil {
		return nil, err
	}
	return &Dir{Root: root, ignore: m, metaDir: metaDir}, nil
}

// CleanPath normalizes a repo-relative path. It rejects empty, absolute and
// escaping paths, and paths inside the metadata directory.
func (d *Dir) CleanPath(p string) (string, error) {
	p = filepath.ToSlash(p)
	if p == "" || path.IsAbs(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if clean == d.metaDir || strings.HasPrefix(clean, d.metaDir+"/") {
		return "", fmt.Errorf("%w: %q is repository metadata", ErrInvalidPath, p)
	}
	return clean, nil
}

func (d *Dir) abs(rel string) string {
	return filepath.Join(d.Root, filepath.FromSlash(rel))
}

// IsIgnored reports whether rel is excluded by .twigignore rules.
func (d *Dir) IsIgnored(rel string) bool {
	info, err := os.Lstat(d.abs(rel))
	isDir := err == nil && info.IsDir()
	return d.ignore.IsIgnored(rel, isDir)
}

// List returns every regular, non-ignored file under the root, sorted.
func (d *Dir) List() ([]string, error) {
	return d.ListUnder("")
}

// ListUnder is List restricted to the subtree at prefix. An empty prefix
// means the whole working directory.
func (d *Dir) ListUnder(prefix string) ([]string, error) {
	start := d.Root
	if prefix != "" {
		start = d.abs(prefix)
	}
	var files []string
	err := filepath.WalkDir(start, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && p == start {
				return fs.SkipAll
			}
			return walkErr
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.ignore.Match(rel, entry.IsDir()) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list worktree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Exists reports whether rel is a regular file in the working directory.
func (d *Dir) Exists(rel string) bool {
	info, err := os.Lstat(d.abs(rel))
	return err == nil && info.Mode().IsRegular()
}

// IsDir reports whether rel is a directory in the working directory.
func (d *Dir) IsDir(rel string) bool {
	info, err := os.Lstat(d.abs(rel))
	return err == nil && info.IsDir()
}

// ReadFile returns the content of rel.
func (d *Dir) ReadFile(rel string) ([]byte, error) {
	data, err := os.ReadFile(d.abs(rel))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// WriteFile writes data to rel, creating parent directories. A directory
// occupying rel is removed first when it is empty.
func (d *Dir) WriteFile(rel string, data []byte) error {
	abs := d.abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("write %s: mkdir: %w", rel, err)
	}
	if info, err := os.Lstat(abs); err == nil && info.IsDir() {
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("write %s: directory in the way: %w", rel, err)
		}
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Remove deletes rel and prunes parent directories left empty, stopping at
// the root. A missing file is not an error.
func (d *Dir) Remove(rel string) error {
	abs := d.abs(rel)
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	d.removeEmptyParents(filepath.Dir(abs))
	return nil
}

func (d *Dir) removeEmptyParents(dir string) {
	root := filepath.Clean(d.Root)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
