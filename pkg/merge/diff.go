package merge

import (
	"fmt"
	"sort"

	"github.com/odvcencio/twig/pkg/object"
)

// ChangeType classifies a path in a two-way tree diff.
type ChangeType int

const (
	Added ChangeType = iota
	Deleted
	Modified
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	}
	return fmt.Sprintf("ChangeType(%d)", int(c))
}

// Change is one file that differs between two trees. From and To are blob
// digests, empty on the side where the file is absent.
type Change struct {
	Path string
	Type ChangeType
	From object.Hash
	To   object.Hash
}

// DiffTrees returns the file-level changes that turn tree from into tree to,
// sorted by path. Identical subtrees are skipped without being read. Empty
// digests stand for the empty tree.
func DiffTrees(store TreeReader, from, to object.Hash) ([]Change, error) {
	var changes []Change
	if err := diffDir(store, "", from, to, &changes); err != nil {
		return nil, err
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

func diffDir(store TreeReader, prefix string, from, to object.Hash, out *[]Change) error {
	if from == to {
		return nil
	}
	fromEntries, err := readEntries(store, from)
	if err != nil {
		return err
	}
	toEntries, err := readEntries(store, to)
	if err != nil {
		return err
	}

	for _, name := range unionNames(fromEntries, toEntries) {
		f, t := fromEntries[name], toEntries[name]
		if f == t {
			continue
		}
		path := joinPath(prefix, name)

		switch {
		case f.isFile() && t.isFile():
			*out = append(*out, Change{Path: path, Type: Modified, From: f.hash, To: t.hash})
			continue
		case f.isFile():
			*out = append(*out, Change{Path: path, Type: Deleted, From: f.hash})
		case t.isFile():
			*out = append(*out, Change{Path: path, Type: Added, To: t.hash})
		}

		// Whatever directory content sits on either side is compared
		// against nothing on the other.
		var fromDir, toDir object.Hash
		if f.kind == object.KindTree {
			fromDir = f.hash
		}
		if t.kind == object.KindTree {
			toDir = t.hash
		}
		if fromDir != "" || toDir != "" {
			if err := diffDir(store, path, fromDir, toDir, out); err != nil {
				return err
			}
		}
	}
	return nil
}
