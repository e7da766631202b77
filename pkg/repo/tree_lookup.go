package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

func (r *Repo) treeEntryAtPath(treeHash object.Hash, relPath string) (object.TreeEntry, bool, error) {
	if treeHash == "" {
		return object.TreeEntry{}, false, nil
	}
	parts := strings.Split(relPath, "/")
	current := treeHash

	for i, part := range parts {
		treeObj, err := r.Store.ReadTree(current)
		if err != nil {
			return object.TreeEntry{}, false, fmt.Errorf("read tree %s: %w", current, err)
		}
		entry, found := treeObj.Entry(part)
		if !found {
			return object.TreeEntry{}, false, nil
		}
		if i == len(parts)-1 {
			return entry, true, nil
		}
		if !entry.IsDir() {
			return object.TreeEntry{}, false, nil
		}
		current = entry.Hash
	}

	return object.TreeEntry{}, false, nil
}

// FileAt returns the content of path as recorded in the commit ref resolves
// to. ok is false when the commit has no file at that path.
func (r *Repo) FileAt(ref, path string) (data []byte, ok bool, err error) {
	h, err := r.Resolve(ref)
	if err != nil {
		return nil, false, fmt.Errorf("show: %w", err)
	}
	tree, err := r.commitTree(h)
	if err != nil {
		return nil, false, fmt.Errorf("show: %w", err)
	}
	entry, found, err := r.treeEntryAtPath(tree, path)
	if err != nil {
		return nil, false, fmt.Errorf("show: %w", err)
	}
	if !found || entry.IsDir() {
		return nil, false, nil
	}
	blob, err := r.Store.ReadBlob(entry.Hash)
	if err != nil {
		return nil, false, fmt.Errorf("show: %w", err)
	}
	return blob.Data, true, nil
}
