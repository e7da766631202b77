// Package merge computes path-level three-way merges and two-way diffs of
// tree objects.
package merge

import (
	"fmt"
	"sort"

	"github.com/odvcencio/twig/pkg/object"
)

// TreeReader reads tree objects.
type TreeReader interface {
	ReadTree(h object.Hash) (*object.TreeObj, error)
}

// TreeStore reads and writes tree objects. *object.Store implements it.
type TreeStore interface {
	TreeReader
	WriteTree(tr *object.TreeObj) (object.Hash, error)
}

// Conflict is a path both sides changed incompatibly. Ours and Theirs are
// the entry digests on each side, empty when that side deleted the path.
type Conflict struct {
	Path       string
	Ours       object.Hash
	Theirs     object.Hash
	OursKind   object.EntryKind
	TheirsKind object.EntryKind
}

// PathResult records the outcome for one file-level path. Result is the
// digest carried into the merged tree, empty when the path is absent.
type PathResult struct {
	Path     string
	Status   Status
	Conflict bool
	Result   object.Hash
}

// Stats tracks counts of path statuses during a tree merge.
type Stats struct {
	TotalPaths     int
	Unchanged      int
	OursModified   int
	TheirsModified int
	BothModified   int
	Added          int
	Deleted        int
	Conflicts      int
}

// Result holds the output of a three-way tree merge. Conflicts are data:
// the merge itself succeeded and Tree is always a stored tree.
type Result struct {
	Tree      object.Hash
	Conflicts []Conflict
	Paths     []PathResult
	Stats     Stats
}

// Clean reports whether the merge produced no conflicts.
func (r *Result) Clean() bool {
	return len(r.Conflicts) == 0
}

// Trees merges the ours and theirs trees against their common ancestor base.
// An empty base digest stands for the empty tree.
//
// Entries identical on all three sides are carried over without descending.
// Directories on every side where they exist are merged recursively. Every
// other path is classified as a unit by comparing kind and digest:
//
//   - changed on one side only: that side wins
//   - changed identically on both sides: the common version wins
//   - changed differently, or deleted on one side and modified on the other:
//     conflict; the merged tree keeps the base version (or omits the path
//     when base has none)
//
// Directories left empty by the merge are dropped.
func Trees(store TreeStore, base, ours, theirs object.Hash) (*Result, error) {
	m := &treeMerger{store: store}
	root, err := m.mergeDir("", base, ours, theirs)
	if err != nil {
		return nil, err
	}
	if root == "" {
		root, err = store.WriteTree(&object.TreeObj{})
		if err != nil {
			return nil, fmt.Errorf("merge: write empty tree: %w", err)
		}
	}

	sort.Slice(m.conflicts, func(i, j int) bool { return m.conflicts[i].Path < m.conflicts[j].Path })
	sort.Slice(m.paths, func(i, j int) bool { return m.paths[i].Path < m.paths[j].Path })
	m.stats.TotalPaths = len(m.paths)
	m.stats.Conflicts = len(m.conflicts)

	return &Result{
		Tree:      root,
		Conflicts: m.conflicts,
		Paths:     m.paths,
		Stats:     m.stats,
	}, nil
}

type treeMerger struct {
	store     TreeStore
	conflicts []Conflict
	paths     []PathResult
	stats     Stats
}

// mergeDir merges three directory versions and returns the merged subtree
// digest, or "" when the merged directory is empty.
func (m *treeMerger) mergeDir(prefix string, base, ours, theirs object.Hash) (object.Hash, error) {
	baseEntries, err := readEntries(m.store, base)
	if err != nil {
		return "", err
	}
	oursEntries, err := readEntries(m.store, ours)
	if err != nil {
		return "", err
	}
	theirsEntries, err := readEntries(m.store, theirs)
	if err != nil {
		return "", err
	}

	var merged []object.TreeEntry
	for _, name := range unionNames(baseEntries, oursEntries, theirsEntries) {
		b, o, t := baseEntries[name], oursEntries[name], theirsEntries[name]
		path := joinPath(prefix, name)

		if b == o && b == t {
			merged = append(merged, object.TreeEntry{Name: name, Kind: b.kind, Hash: b.hash})
			continue
		}

		if !b.isFile() && !o.isFile() && !t.isFile() {
			sub, err := m.mergeDir(path, b.hash, o.hash, t.hash)
			if err != nil {
				return "", err
			}
			if sub != "" {
				merged = append(merged, object.TreeEntry{Name: name, Kind: object.KindTree, Hash: sub})
			}
			continue
		}

		status, conflict, result := classify(b, o, t)
		m.record(path, status, conflict, result)
		if conflict {
			m.conflicts = append(m.conflicts, Conflict{
				Path:       path,
				Ours:       o.hash,
				Theirs:     t.hash,
				OursKind:   o.kind,
				TheirsKind: t.kind,
			})
		}
		if result.present() {
			merged = append(merged, object.TreeEntry{Name: name, Kind: result.kind, Hash: result.hash})
		}
	}

	if len(merged) == 0 {
		return "", nil
	}
	h, err := m.store.WriteTree(&object.TreeObj{Entries: merged})
	if err != nil {
		return "", fmt.Errorf("merge: write tree %q: %w", prefix, err)
	}
	return h, nil
}

func (m *treeMerger) record(path string, status Status, conflict bool, result version) {
	m.paths = append(m.paths, PathResult{
		Path:     path,
		Status:   status,
		Conflict: conflict,
		Result:   result.hash,
	})
	if conflict {
		return
	}
	switch status {
	case Unchanged:
		m.stats.Unchanged++
	case ModifiedOurs:
		m.stats.OursModified++
	case ModifiedTheirs:
		m.stats.TheirsModified++
	case ModifiedBoth:
		m.stats.BothModified++
	case AddedOurs, AddedTheirs, AddedBoth:
		m.stats.Added++
	case DeletedOurs, DeletedTheirs, DeletedBoth:
		m.stats.Deleted++
	}
}

// readEntries loads a tree as a name -> version map. An empty digest or the
// empty-tree digest yields an empty map without touching the store.
func readEntries(store TreeReader, h object.Hash) (map[string]version, error) {
	out := make(map[string]version)
	if h == "" || h == object.EmptyTreeHash {
		return out, nil
	}
	tr, err := store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("merge: read tree %s: %w", h, err)
	}
	for _, e := range tr.Entries {
		out[e.Name] = versionOf(e)
	}
	return out, nil
}

func unionNames(sides ...map[string]version) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, side := range sides {
		for name := range side {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
