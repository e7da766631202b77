package object

import (
	"errors"
	"fmt"
	"sort"
)

// Reachable walks the object graph from roots, following commit trees,
// commit parents and tree entries. It returns the kind of every stored
// object it reached and, sorted, the digests that were referenced but are
// not stored. Empty roots are skipped. A subtree shared by several trees
// is read once.
func (s *Store) Reachable(roots []Hash) (map[Hash]ObjectType, []Hash, error) {
	kinds := make(map[Hash]ObjectType)
	missing := make(map[Hash]struct{})

	queue := make([]Hash, 0, len(roots))
	for _, h := range roots {
		if h != "" {
			queue = append(queue, h)
		}
	}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, done := kinds[h]; done {
			continue
		}
		if _, gone := missing[h]; gone {
			continue
		}

		objType, data, err := s.Read(h)
		if errors.Is(err, ErrNotFound) {
			missing[h] = struct{}{}
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", h, err)
		}
		kinds[h] = objType

		refs, err := referencedHashes(objType, data)
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s (%s): %w", h, objType, err)
		}
		queue = append(queue, refs...)
	}

	gone := make([]Hash, 0, len(missing))
	for h := range missing {
		gone = append(gone, h)
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	return kinds, gone, nil
}

// referencedHashes lists the digests an encoded object points at: the tree
// and parents of a commit, the entries of a tree, nothing for a blob.
func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, len(tree.Entries))
		for i, e := range tree.Entries {
			refs[i] = e.Hash
		}
		return refs, nil
	case TypeCommit:
		c, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		return append([]Hash{c.TreeHash}, c.Parents...), nil
	}
	return nil, fmt.Errorf("unsupported object type %q", objType)
}
