package conveyor

import (
	"sync"
	"sync/atomic"
)

// Job is one aperiodic work descriptor: an opaque action plus the arrival
// timestamp assigned at enqueue.
type Job struct {
	Do      func()
	Arrival int64
	next    *Job
}

// JobQueue is a singly-linked FIFO guarded by one mutex and one condition
// variable. Unlike the event signals it is count-preserving: every accepted
// enqueue is eventually dequeued exactly once. A fixed bound caps admission;
// jobs over the bound are dropped and counted, producers never block.
//
// Invariant: tail is nil iff head is nil; otherwise tail.next is nil and
// tail is reachable from head.
type JobQueue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	head     *Job
	tail     *Job
	size     int
	limit    int
	closed   bool

	clock   *Clock
	dropped atomic.Uint32
}

// NewJobQueue creates a queue stamping arrivals from clock. limit <= 0 means
// unbounded.
func NewJobQueue(clock *Clock, limit int) *JobQueue {
	q := &JobQueue{clock: clock, limit: limit}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a job, stamping its arrival time, and wakes one consumer.
// Returns false (and counts the drop) when the queue is closed or full.
func (q *JobQueue) Enqueue(do func()) bool {
	q.mu.Lock()
	if q.closed || (q.limit > 0 && q.size >= q.limit) {
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}
	j := &Job{Do: do, Arrival: q.clock.Now()}
	if q.tail == nil {
		q.head = j
	} else {
		q.tail.next = j
	}
	q.tail = j
	q.size++
	q.mu.Unlock()
	q.nonEmpty.Signal()
	return true
}

// TryDequeue removes and returns the head job, or nil when the queue is
// empty. The aperiodic server uses this inside its budget loop so that an
// empty queue ends the service burst instead of blocking past the period.
func (q *JobQueue) TryDequeue() *Job {
	q.mu.Lock()
	j := q.pop()
	q.mu.Unlock()
	return j
}

// Dequeue blocks until a job is available or the queue is closed.
func (q *JobQueue) Dequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == nil && !q.closed {
		q.nonEmpty.Wait()
	}
	if j := q.pop(); j != nil {
		return j, true
	}
	return nil, false
}

func (q *JobQueue) pop() *Job {
	j := q.head
	if j == nil {
		return nil
	}
	q.head = j.next
	if q.head == nil {
		q.tail = nil
	}
	j.next = nil
	q.size--
	return j
}

// Close rejects further enqueues and wakes every blocked consumer.
func (q *JobQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.nonEmpty.Broadcast()
}

// Drain discards any remaining jobs, returning how many were dropped. The
// owner calls this after the consumer has exited.
func (q *JobQueue) Drain() int {
	q.mu.Lock()
	n := 0
	for q.pop() != nil {
		n++
	}
	q.mu.Unlock()
	return n
}

// Len returns the number of queued jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	n := q.size
	q.mu.Unlock()
	return n
}

// Dropped returns the number of rejected enqueues.
func (q *JobQueue) Dropped() uint32 {
	return q.dropped.Load()
}
