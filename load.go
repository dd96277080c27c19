package conveyor

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// LoadGenerator turns job specs into aperiodic jobs on the queue,
// optionally pacing submissions with a rate limiter. It exists only to
// drive the server; any equivalent producer would do.
type LoadGenerator struct {
	queue   *JobQueue
	limiter *rate.Limiter
	spin    func(time.Duration)
}

func NewLoadGenerator(queue *JobQueue, limiter *rate.Limiter, spin func(time.Duration)) *LoadGenerator {
	return &LoadGenerator{queue: queue, limiter: limiter, spin: spin}
}

// Submit enqueues one job per spec, returning how many were accepted.
// Unknown actions are skipped with a warning.
func (g *LoadGenerator) Submit(ctx context.Context, specs iter.Seq[JobSpec]) int {
	accepted := 0
	for spec := range specs {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return accepted
			}
		}
		job := g.makeJob(spec)
		if job == nil {
			logger.Warn("unknown job action", slog.String("action", spec.Action))
			continue
		}
		if g.queue.Enqueue(job) {
			accepted++
		}
	}
	return accepted
}

// SubmitOne enqueues a single synthetic job of the given cost.
func (g *LoadGenerator) SubmitOne(cost time.Duration) bool {
	spin := g.spin
	return g.queue.Enqueue(func() { spin(cost) })
}

func (g *LoadGenerator) makeJob(spec JobSpec) func() {
	d := time.Duration(spec.Ms) * time.Millisecond
	spin := g.spin
	switch spec.Action {
	case "spin", "":
		return func() { spin(d) }
	case "log":
		return func() {
			logger.Info("aperiodic log job", slog.Duration("cost", d))
			spin(d)
		}
	default:
		return nil
	}
}
