package conveyor

import (
	"fmt"
	"math"
	"math/bits"
	"sync/atomic"
)

// DefaultWindow is the default (m,k)-firm window size.
const DefaultWindow = 10

// maxWindow is the hard cap on the (m,k) window; the outcome history is a
// bitmask and k bits must fit it.
const maxWindow = 16

// TaskStats is the per-task instrumentation record. It is written by exactly
// one task at its release/start/finish boundaries and read by the reporter
// without locking: every field is an atomic, loaded at most once per
// snapshot, so a reporter tick sees an internally consistent-enough view
// without ever blocking the RT path.
type TaskStats struct {
	name string
	k    uint32
	mask uint32

	released atomic.Uint32
	started  atomic.Uint32
	finished atomic.Uint32
	hardMiss atomic.Uint32
	softMiss atomic.Uint32

	lastRelease atomic.Int64
	lastStart   atomic.Int64
	lastEnd     atomic.Int64

	worstExec     atomic.Int64
	worstLatency  atomic.Int64
	worstResponse atomic.Int64

	blocked   atomic.Int64
	preempted atomic.Uint32

	window atomic.Uint32
	filled atomic.Uint32

	responses Reservoir[int32]
}

// NewTaskStats creates a record for the named task with an (m,k) window of
// the given size. Window sizes above 16 are clamped.
func NewTaskStats(name string, window uint32) *TaskStats {
	if window == 0 {
		window = DefaultWindow
	}
	if window > maxWindow {
		window = maxWindow
	}
	return &TaskStats{
		name: name,
		k:    window,
		mask: (1 << window) - 1,
	}
}

func (s *TaskStats) Name() string { return s.name }

// OnRelease records that a job of this task became eligible to run at t.
func (s *TaskStats) OnRelease(t int64) {
	satInc(&s.released)
	s.lastRelease.Store(t)
}

// OnStart records that the task began executing the current job at t.
func (s *TaskStats) OnStart(t int64) {
	satInc(&s.started)
	s.lastStart.Store(t)
	storeMax(&s.worstLatency, t-s.lastRelease.Load())
}

// OnFinish records completion of the current job at t against the given
// relative deadline (microseconds). Returns true when the job missed its
// deadline. Updates the worst-case figures, the response reservoir and the
// (m,k) outcome window.
func (s *TaskStats) OnFinish(t, deadline int64, hard bool) bool {
	satInc(&s.finished)
	s.lastEnd.Store(t)

	release := s.lastRelease.Load()
	start := s.lastStart.Load()
	exec := t - start
	response := t - release
	latency := start - release
	storeMax(&s.worstExec, exec)
	storeMax(&s.worstResponse, response)
	storeMax(&s.worstLatency, latency)

	missed := response > deadline
	if missed {
		if hard {
			satInc(&s.hardMiss)
		} else {
			satInc(&s.softMiss)
		}
	}

	r := response
	if r > math.MaxInt32 {
		r = math.MaxInt32
	}
	s.responses.Append(int32(r))

	w := (s.window.Load() << 1) & s.mask
	if !missed {
		w |= 1
	}
	s.window.Store(w)
	if f := s.filled.Load(); f < s.k {
		s.filled.Store(f + 1)
	}
	return missed
}

// AddBlocked accumulates time spent waiting for the release signal.
func (s *TaskStats) AddBlocked(d int64) {
	if d > 0 {
		s.blocked.Add(d)
	}
}

// AddPreemption bumps the (optional) preemption counter.
func (s *TaskStats) AddPreemption() {
	satInc(&s.preempted)
}

// storeMax is a single-writer max update; the reporter may read a stale
// value but never a torn one.
func storeMax(a *atomic.Int64, v int64) {
	if v > a.Load() {
		a.Store(v)
	}
}

// satInc increments a counter, saturating at 2³²−1.
func satInc(a *atomic.Uint32) {
	if a.Load() != math.MaxUint32 {
		a.Add(1)
	}
}

// StatsSnapshot is the reporter's copy of a TaskStats record: each field was
// read exactly once.
type StatsSnapshot struct {
	Name     string
	Released uint32
	Started  uint32
	Finished uint32
	HardMiss uint32
	SoftMiss uint32

	LastRelease int64
	LastStart   int64
	LastEnd     int64

	WorstExec     int64
	WorstLatency  int64
	WorstResponse int64

	Blocked   int64
	Preempted uint32

	Window uint32
	Filled uint32
	K      uint32

	Responses []int32
}

// Snapshot reads the record without locking.
func (s *TaskStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Name:          s.name,
		Released:      s.released.Load(),
		Started:       s.started.Load(),
		Finished:      s.finished.Load(),
		HardMiss:      s.hardMiss.Load(),
		SoftMiss:      s.softMiss.Load(),
		LastRelease:   s.lastRelease.Load(),
		LastStart:     s.lastStart.Load(),
		LastEnd:       s.lastEnd.Load(),
		WorstExec:     s.worstExec.Load(),
		WorstLatency:  s.worstLatency.Load(),
		WorstResponse: s.worstResponse.Load(),
		Blocked:       s.blocked.Load(),
		Preempted:     s.preempted.Load(),
		Window:        s.window.Load(),
		Filled:        s.filled.Load(),
		K:             s.k,
		Responses:     s.responses.Snapshot(),
	}
}

// P99 returns the 99th percentile of the snapshotted responses, 0 when none.
func (sn StatsSnapshot) P99() int32 {
	return Percentile(sn.Responses, 0.99)
}

// WindowHits returns the number of on-time outcomes in the (m,k) window,
// reported as 0 until the window has filled.
func (sn StatsSnapshot) WindowHits() uint32 {
	if sn.Filled < sn.K {
		return 0
	}
	mask := uint32(1)<<sn.K - 1
	return uint32(bits.OnesCount32(sn.Window & mask))
}

// Line renders the reporter summary line for this task.
func (sn StatsSnapshot) Line() string {
	return fmt.Sprintf("%s: rel=%d fin=%d hard=%d WCRT=%dus HWM99≈%dus Lmax=%dus Cmax=%dus (m,k)=(%d,%d) [blk=%dus]",
		sn.Name, sn.Released, sn.Finished, sn.HardMiss,
		sn.WorstResponse, sn.P99(), sn.WorstLatency, sn.WorstExec,
		sn.WindowHits(), sn.K, sn.Blocked)
}
