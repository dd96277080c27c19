package conveyor

import (
	"sync"

	"github.com/google/btree"
)

// MissEvent is one recorded deadline miss.
type MissEvent struct {
	At       int64 // finish timestamp, microseconds
	Task     string
	Response int64
	Deadline int64
	seq      uint64
}

func lessMissEvent(a, b MissEvent) bool {
	if a.At == b.At {
		return a.seq < b.seq
	}
	return a.At < b.At
}

// Journal keeps a bounded, timestamp-ordered record of deadline misses so a
// post-mortem can see when they clustered. Several tasks write concurrently;
// the btree is guarded by a mutex. When the bound is reached the oldest
// event is evicted.
type Journal struct {
	mu    sync.Mutex
	tree  *btree.BTreeG[MissEvent]
	seq   uint64
	limit int
}

func NewJournal(limit int) *Journal {
	return &Journal{
		tree:  btree.NewG(2, lessMissEvent),
		limit: limit,
	}
}

func (j *Journal) Record(e MissEvent) {
	j.mu.Lock()
	j.seq++
	e.seq = j.seq
	j.tree.ReplaceOrInsert(e)
	if j.limit > 0 && j.tree.Len() > j.limit {
		j.tree.DeleteMin()
	}
	j.mu.Unlock()
}

func (j *Journal) Len() int {
	j.mu.Lock()
	n := j.tree.Len()
	j.mu.Unlock()
	return n
}

// Events returns the recorded misses in timestamp order.
func (j *Journal) Events() []MissEvent {
	j.mu.Lock()
	out := make([]MissEvent, 0, j.tree.Len())
	j.tree.Ascend(func(e MissEvent) bool {
		out = append(out, e)
		return true
	})
	j.mu.Unlock()
	return out
}
