package repo

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
)

// commitGraph memoizes what walks over the commit DAG learn: parsed
// commits, generation numbers and answered lowest-common-ancestor queries.
// Objects are immutable, so nothing is ever invalidated. It shares the
// Repo's single-goroutine contract.
type commitGraph struct {
	commits     map[object.Hash]*object.CommitObj
	generations map[object.Hash]uint64
	ancestors   map[commitPair]ancestorAnswer
}

// commitPair is an unordered pair of commits.
type commitPair struct {
	lo, hi object.Hash
}

func pairOf(a, b object.Hash) commitPair {
	if b < a {
		a, b = b, a
	}
	return commitPair{lo: a, hi: b}
}

type ancestorAnswer struct {
	base  object.Hash
	found bool
}

func newCommitGraph() *commitGraph {
	return &commitGraph{
		commits:     make(map[object.Hash]*object.CommitObj),
		generations: make(map[object.Hash]uint64),
		ancestors:   make(map[commitPair]ancestorAnswer),
	}
}

func (g *commitGraph) commit(r *Repo, h object.Hash) (*object.CommitObj, error) {
	if c, ok := g.commits[h]; ok {
		return c, nil
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", h, err)
	}
	g.commits[h] = c
	return c, nil
}

func (g *commitGraph) lookupAncestor(a, b object.Hash) (ancestorAnswer, bool) {
	ans, ok := g.ancestors[pairOf(a, b)]
	return ans, ok
}

func (g *commitGraph) rememberAncestor(a, b, base object.Hash, found bool) {
	g.ancestors[pairOf(a, b)] = ancestorAnswer{base: base, found: found}
}

// generation returns 1 for a root commit and 1 + the largest parent
// generation otherwise. Every ancestor's generation is memoized on the way.
// The walk keeps an explicit stack so long linear histories do not grow
// the goroutine stack.
func (g *commitGraph) generation(r *Repo, h object.Hash) (uint64, error) {
	if h == "" {
		return 0, nil
	}
	if gen, ok := g.generations[h]; ok {
		return gen, nil
	}

	type frame struct {
		hash     object.Hash
		expanded bool
	}
	stack := []frame{{hash: h}}
	onPath := make(map[object.Hash]bool)

	for len(stack) > 0 {
		top := len(stack) - 1
		cur := stack[top].hash
		if _, done := g.generations[cur]; done {
			stack = stack[:top]
			continue
		}
		c, err := g.commit(r, cur)
		if err != nil {
			return 0, err
		}

		if !stack[top].expanded {
			stack[top].expanded = true
			onPath[cur] = true
			for _, p := range c.Parents {
				if _, done := g.generations[p]; done || p == "" {
					continue
				}
				if onPath[p] {
					return 0, fmt.Errorf("commit graph cycle detected at %s", p)
				}
				stack = append(stack, frame{hash: p})
			}
			continue
		}

		var highest uint64
		for _, p := range c.Parents {
			if pg := g.generations[p]; pg > highest {
				highest = pg
			}
		}
		g.generations[cur] = highest + 1
		delete(onPath, cur)
		stack = stack[:top]
	}
	return g.generations[h], nil
}

// queuedCommit is an entry of a generationQueue. timestamp only breaks ties;
// left zero, equal generations pop in digest order.
type queuedCommit struct {
	hash       object.Hash
	generation uint64
	timestamp  int64
}

// generationQueue is a max-heap for container/heap. It pops the highest
// generation first, then the newest timestamp, then the smallest digest, so
// a commit always comes out before its ancestors.
type generationQueue []queuedCommit

func (q generationQueue) Len() int { return len(q) }

func (q generationQueue) Less(i, j int) bool {
	if q[i].generation != q[j].generation {
		return q[i].generation > q[j].generation
	}
	if q[i].timestamp != q[j].timestamp {
		return q[i].timestamp > q[j].timestamp
	}
	return q[i].hash < q[j].hash
}

func (q generationQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *generationQueue) Push(x any) { *q = append(*q, x.(queuedCommit)) }

func (q *generationQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
