package worktree

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreFile is the name of the per-repository ignore file.
const IgnoreFile = ".twigignore"

type ignoreRule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	hasSlash bool // match against the full relative path instead of the base name
	g        glob.Glob
}

// Matcher decides whether a repo-relative path is ignored. The last matching
// rule wins so that "!pattern" lines can re-include paths.
type Matcher struct {
	metaDir string
	rules   []ignoreRule
}

// NewMatcher builds a Matcher from .twigignore lines. metaDir is always
// ignored and cannot be re-included.
func NewMatcher(metaDir string, lines []string) (*Matcher, error) {
	m := &Matcher{metaDir: metaDir}
	for i, line := range lines {
		rule, err := parseIgnoreLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", IgnoreFile, i+1, err)
		}
		if rule != nil {
			m.rules = append(m.rules, *rule)
		}
	}
	return m, nil
}

// LoadMatcher reads root/.twigignore. A missing file yields a Matcher that
// only ignores metaDir.
func LoadMatcher(root, metaDir string) (*Matcher, error) {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewMatcher(metaDir, nil)
		}
		return nil, fmt.Errorf("read %s: %w", IgnoreFile, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", IgnoreFile, err)
	}
	return NewMatcher(metaDir, lines)
}

func parseIgnoreLine(line string) (*ignoreRule, error) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	r := &ignoreRule{}
	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return nil, nil
	}
	r.hasSlash = strings.Contains(line, "/")
	r.pattern = line

	g, err := glob.Compile(line, '/')
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", line, err)
	}
	r.g = g
	return r, nil
}

func (r *ignoreRule) matches(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.hasSlash {
		return r.g.Match(rel)
	}
	return r.g.Match(path.Base(rel))
}

// Match reports whether rel itself is ignored, without looking at its
// parent directories.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	if rel == m.metaDir || strings.HasPrefix(rel, m.metaDir+"/") {
		return true
	}
	ignored := false
	for i := range m.rules {
		if m.rules[i].matches(rel, isDir) {
			ignored = !m.rules[i].negated
		}
	}
	return ignored
}

// IsIgnored reports whether rel is ignored either directly or because one of
// its parent directories is.
func (m *Matcher) IsIgnored(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' && m.Match(rel[:i], true) {
			return true
		}
	}
	return m.Match(rel, isDir)
}
