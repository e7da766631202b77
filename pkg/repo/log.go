package repo

import (
	"container/heap"
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
)

// LogEntry is one commit produced by a LogIterator.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// LogIterator walks the ancestry of a commit. A commit is only yielded after
// every one of its descendants in the walked graph, and exactly once.
//
//	it := r.Log(h)
//	for it.Next() {
//		e := it.Value()
//	}
//	if err := it.Err(); err != nil { ... }
type LogIterator struct {
	repo    *Repo
	graph   *commitGraph
	start   object.Hash
	started bool
	queue   generationQueue
	seen    map[object.Hash]struct{}
	value   *LogEntry
	err     error
}

// Log returns an iterator over start and all its ancestors. Nothing is read
// until the first call to Next.
func (r *Repo) Log(start object.Hash) *LogIterator {
	return &LogIterator{
		repo:  r,
		graph: r.graph,
		start: start,
		seen:  make(map[object.Hash]struct{}),
	}
}

func (it *LogIterator) push(h object.Hash) error {
	if _, ok := it.seen[h]; ok {
		return nil
	}
	it.seen[h] = struct{}{}
	c, err := it.graph.commit(it.repo, h)
	if err != nil {
		return err
	}
	g, err := it.graph.generation(it.repo, h)
	if err != nil {
		return err
	}
	heap.Push(&it.queue, queuedCommit{hash: h, generation: g, timestamp: c.Timestamp})
	return nil
}

// Next advances to the next commit. It returns false at the end of history
// or on error.
func (it *LogIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		if typ, err := it.repo.Store.TypeOf(it.start); err != nil || typ != object.TypeCommit {
			it.err = fmt.Errorf("log: %w: %s", ErrNoSuchCommit, displayHash(it.start))
			return false
		}
		if err := it.push(it.start); err != nil {
			it.err = fmt.Errorf("log: %w", err)
			return false
		}
	}
	if it.queue.Len() == 0 {
		it.value = nil
		return false
	}

	item := heap.Pop(&it.queue).(queuedCommit)
	c, err := it.graph.commit(it.repo, item.hash)
	if err != nil {
		it.err = fmt.Errorf("log: %w", err)
		it.value = nil
		return false
	}
	for _, p := range c.Parents {
		if err := it.push(p); err != nil {
			it.err = fmt.Errorf("log: %w", err)
			it.value = nil
			return false
		}
	}
	it.value = &LogEntry{Hash: item.hash, Commit: c}
	return true
}

// Value returns the current entry. It is nil before Next and after the end.
func (it *LogIterator) Value() *LogEntry {
	return it.value
}

// Err returns the error that stopped iteration, if any.
func (it *LogIterator) Err() error {
	return it.err
}

// LogN collects up to limit entries from start. A non-positive limit means
// the whole history.
func (r *Repo) LogN(start object.Hash, limit int) ([]*LogEntry, error) {
	var out []*LogEntry
	it := r.Log(start)
	for it.Next() {
		out = append(out, it.Value())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
