package repo

import (
	"container/heap"
	"fmt"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
)

// walkLimit bounds the number of commits a single ancestry query visits.
// Tests lower it.
var walkLimit = 1_000_000

func walkLimitError() error {
	return fmt.Errorf("commit walk exceeded %d commits", walkLimit)
}

// paint marks which side of an ancestry query reached a commit.
type paint uint8

const (
	paintOurs paint = 1 << iota
	paintTheirs

	paintBoth = paintOurs | paintTheirs
)

// LowestCommonAncestor returns the most recent commit reachable from both a
// and b. "Most recent" means highest generation; ties go to the smaller
// digest. Disjoint histories give ErrNoCommonAncestor.
func (r *Repo) LowestCommonAncestor(a, b object.Hash) (object.Hash, error) {
	for _, h := range [...]object.Hash{a, b} {
		if typ, err := r.Store.TypeOf(h); err != nil || typ != object.TypeCommit {
			return "", fmt.Errorf("lowest common ancestor: %w: %s", ErrNoSuchCommit, displayHash(h))
		}
	}
	if a == b {
		return a, nil
	}

	ans, cached := r.graph.lookupAncestor(a, b)
	if !cached {
		base, found, err := r.paintDown(a, b)
		if err != nil {
			return "", fmt.Errorf("lowest common ancestor: %w", err)
		}
		ans = ancestorAnswer{base: base, found: found}
		r.graph.rememberAncestor(a, b, base, found)
		r.log.WithFields(logging.Fields{
			"ours":                 string(a),
			"theirs":               string(b),
			logging.CommitFieldKey: string(base),
		}).Debug("lowest common ancestor")
	}
	if !ans.found {
		return "", fmt.Errorf("lowest common ancestor: %w", ErrNoCommonAncestor)
	}
	return ans.base, nil
}

// paintDown walks both histories at once, newest generation first, painting
// each commit with the side(s) it is reachable from. A commit's children all
// have higher generations, so its paint is final when it leaves the queue
// and the first commit popped with both paints is the answer.
func (r *Repo) paintDown(ours, theirs object.Hash) (object.Hash, bool, error) {
	g := r.graph
	paints := map[object.Hash]paint{ours: paintOurs, theirs: paintTheirs}

	var queue generationQueue
	for _, h := range [...]object.Hash{ours, theirs} {
		gen, err := g.generation(r, h)
		if err != nil {
			return "", false, err
		}
		heap.Push(&queue, queuedCommit{hash: h, generation: gen})
	}

	for steps := 0; queue.Len() > 0; steps++ {
		if steps >= walkLimit {
			return "", false, walkLimitError()
		}
		cur := heap.Pop(&queue).(queuedCommit)
		p := paints[cur.hash]
		if p == paintBoth {
			return cur.hash, true, nil
		}

		c, err := g.commit(r, cur.hash)
		if err != nil {
			return "", false, err
		}
		for _, parent := range c.Parents {
			prev, queued := paints[parent]
			if prev|p == prev {
				continue
			}
			paints[parent] = prev | p
			if queued {
				continue
			}
			gen, err := g.generation(r, parent)
			if err != nil {
				return "", false, err
			}
			heap.Push(&queue, queuedCommit{hash: parent, generation: gen})
		}
	}
	return "", false, nil
}

// IsAncestor reports whether ancestor is reachable from descendant by
// following parent links. A commit is its own ancestor.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	g := r.graph
	floor, err := g.generation(r, ancestor)
	if err != nil {
		return false, fmt.Errorf("is ancestor: %w", err)
	}

	seen := map[object.Hash]bool{descendant: true}
	stack := []object.Hash{descendant}
	for steps := 0; len(stack) > 0; steps++ {
		if steps >= walkLimit {
			return false, fmt.Errorf("is ancestor: %w", walkLimitError())
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == ancestor {
			return true, nil
		}
		// Nothing at or below the ancestor's generation can lead to it.
		gen, err := g.generation(r, cur)
		if err != nil {
			return false, fmt.Errorf("is ancestor: %w", err)
		}
		if gen <= floor {
			continue
		}
		c, err := g.commit(r, cur)
		if err != nil {
			return false, fmt.Errorf("is ancestor: %w", err)
		}
		for _, p := range c.Parents {
			if !seen[p] {
				seen[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false, nil
}
