package conveyor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Reporter wakes once per report period (absolute scheduling, like the RT
// tasks) and prints one summary line per task from a lock-free snapshot of
// each statistics record. Event-driven tasks are omitted until they have
// been released at least once.
type Reporter struct {
	clock  *Clock
	belt   *Belt
	tasks  []*TaskStats
	server *Server
	queue  *JobQueue
	period time.Duration
}

func NewReporter(clock *Clock, belt *Belt, tasks []*TaskStats, server *Server, queue *JobQueue, period time.Duration) *Reporter {
	return &Reporter{
		clock:  clock,
		belt:   belt,
		tasks:  tasks,
		server: server,
		queue:  queue,
		period: period,
	}
}

func (r *Reporter) Run(ctx context.Context) {
	period := r.period.Microseconds()
	next := r.clock.Now() + period
	for {
		if err := r.clock.SleepUntil(ctx, next); err != nil {
			return
		}
		r.Report()
		next += period
	}
}

// Report emits one STATS header plus the per-task and server lines.
func (r *Reporter) Report() {
	measured, setpoint, position := r.belt.Snapshot()
	logger.Info(fmt.Sprintf("STATS rpm=%.1f set=%.1f pos=%.2f", measured, setpoint, position))
	for _, t := range r.tasks {
		sn := t.Snapshot()
		if sn.Released == 0 {
			continue
		}
		logger.Info(sn.Line())
	}
	if r.server != nil {
		logger.Info(r.server.Stats().Snapshot().Line(r.queue.Dropped(), r.queue.Len()))
	}
}

// DumpJournal logs the recorded deadline misses in timestamp order.
func (r *Reporter) DumpJournal(j *Journal) {
	for _, e := range j.Events() {
		logger.Warn("deadline miss",
			slog.String("task", e.Task),
			slog.Int64("at_us", e.At),
			slog.Int64("response_us", e.Response),
			slog.Int64("deadline_us", e.Deadline))
	}
}
