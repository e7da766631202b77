package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

// Snapshot is the read side of a working directory: whether a path holds a
// regular file and what it contains. *worktree.Dir implements it.
type Snapshot interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
}

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
}

// BuildTree applies staged paths on top of the parent tree and returns the
// new root tree digest. parent may be "" for the first commit.
//
// A staged path present in the snapshot is stored as a blob and replaces the
// parent's entry. A staged path absent from the snapshot deletes the entry.
// Subtrees with no staged path below them are reused from the parent
// without being read. Directories left empty are dropped; the root may be
// the empty tree.
func (r *Repo) BuildTree(parent object.Hash, staged []string, snap Snapshot) (object.Hash, error) {
	sorted := append([]string(nil), staged...)
	sort.Strings(sorted)
	h, err := r.buildTreeDir(parent, "", sorted, snap)
	if err != nil {
		return "", err
	}
	if h == "" {
		return r.Store.WriteTree(&object.TreeObj{})
	}
	return h, nil
}

// buildTreeDir rebuilds the directory at prefix. staged holds paths relative
// to prefix. It returns "" when the directory ends up empty.
func (r *Repo) buildTreeDir(parent object.Hash, prefix string, staged []string, snap Snapshot) (object.Hash, error) {
	entries := make(map[string]object.TreeEntry)
	if parent != "" && parent != object.EmptyTreeHash {
		tr, err := r.Store.ReadTree(parent)
		if err != nil {
			return "", fmt.Errorf("build tree %q: %w", prefix, err)
		}
		for _, e := range tr.Entries {
			entries[e.Name] = e
		}
	}

	// Direct children and per-subdirectory groups.
	var files []string
	groups := make(map[string][]string)
	var groupNames []string
	for _, p := range staged {
		slash := strings.IndexByte(p, '/')
		if slash < 0 {
			files = append(files, p)
			continue
		}
		name := p[:slash]
		if _, ok := groups[name]; !ok {
			groupNames = append(groupNames, name)
		}
		groups[name] = append(groups[name], p[slash+1:])
	}

	for _, name := range groupNames {
		var sub object.Hash
		if e, ok := entries[name]; ok && e.IsDir() {
			sub = e.Hash
		}
		h, err := r.buildTreeDir(sub, joinTreePath(prefix, name), groups[name], snap)
		if err != nil {
			return "", err
		}
		if h == "" {
			if e, ok := entries[name]; ok && e.IsDir() {
				delete(entries, name)
			}
			continue
		}
		entries[name] = object.TreeEntry{Name: name, Kind: object.KindTree, Hash: h}
	}

	// Files go second so that a file replacing a directory wins.
	for _, name := range files {
		full := joinTreePath(prefix, name)
		if !snap.Exists(full) {
			if e, ok := entries[name]; ok && !e.IsDir() {
				delete(entries, name)
			}
			continue
		}
		data, err := snap.ReadFile(full)
		if err != nil {
			return "", fmt.Errorf("build tree: %w", err)
		}
		h, err := r.Store.WriteBlob(&object.Blob{Data: data})
		if err != nil {
			return "", fmt.Errorf("build tree: write blob %q: %w", full, err)
		}
		entries[name] = object.TreeEntry{Name: name, Kind: object.KindBlob, Hash: h}
	}

	if len(entries) == 0 {
		return "", nil
	}
	out := &object.TreeObj{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, e)
	}
	h, err := r.Store.WriteTree(out)
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// WriteTreeFromFiles builds and stores a tree graph from a flat map of
// slash-separated paths to blob digests.
func (r *Repo) WriteTreeFromFiles(files map[string]object.Hash) (object.Hash, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	h, err := r.writeTreeFromFiles("", paths, files)
	if err != nil {
		return "", err
	}
	if h == "" {
		return r.Store.WriteTree(&object.TreeObj{})
	}
	return h, nil
}

func (r *Repo) writeTreeFromFiles(prefix string, rels []string, files map[string]object.Hash) (object.Hash, error) {
	var entries []object.TreeEntry
	groups := make(map[string][]string)
	var groupNames []string
	for _, rel := range rels {
		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			entries = append(entries, object.TreeEntry{
				Name: rel,
				Kind: object.KindBlob,
				Hash: files[joinTreePath(prefix, rel)],
			})
			continue
		}
		name := rel[:slash]
		if _, ok := groups[name]; !ok {
			groupNames = append(groupNames, name)
		}
		groups[name] = append(groups[name], rel[slash+1:])
	}
	for _, name := range groupNames {
		h, err := r.writeTreeFromFiles(joinTreePath(prefix, name), groups[name], files)
		if err != nil {
			return "", err
		}
		entries = append(entries, object.TreeEntry{Name: name, Kind: object.KindTree, Hash: h})
	}
	if len(entries) == 0 {
		return "", nil
	}
	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes), sorted by path.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	if h == "" || h == object.EmptyTreeHash {
		return nil, nil
	}
	result, err := r.flattenTreeRec(h, "")
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path:     fullPath,
				BlobHash: entry.Hash,
			})
		}
	}
	return result, nil
}

// treeFileMap flattens a tree into path -> entry.
func (r *Repo) treeFileMap(h object.Hash) (map[string]TreeFileEntry, error) {
	entries, err := r.FlattenTree(h)
	if err != nil {
		return nil, err
	}
	out := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		out[e.Path] = e
	}
	return out, nil
}

// headFiles flattens the HEAD tree. An unborn branch yields an empty map.
func (r *Repo) headFiles() (map[string]TreeFileEntry, error) {
	tree, err := r.headTree()
	if err != nil {
		return nil, err
	}
	return r.treeFileMap(tree)
}

func joinTreePath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
