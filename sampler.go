package conveyor

import (
	"context"
	"time"
)

// Sampler is the 5 ms periodic encoder task. Releases are absolute: the next
// release is the previous release plus the period, never the sampling time
// plus the period, so a late wakeup turns into latency instead of drift.
// Each job advances the belt simulation and then signals the controller,
// handing it this job's release timestamp for end-to-end attribution.
type Sampler struct {
	clock    *Clock
	belt     *Belt
	stats    *TaskStats
	notify   *Signal
	journal  *Journal
	period   time.Duration
	deadline time.Duration
	work     time.Duration
	spin     func(time.Duration)
}

func NewSampler(clock *Clock, belt *Belt, stats *TaskStats, notify *Signal, journal *Journal, cfg *Config, spin func(time.Duration)) *Sampler {
	return &Sampler{
		clock:    clock,
		belt:     belt,
		stats:    stats,
		notify:   notify,
		journal:  journal,
		period:   cfg.SamplerPeriod,
		deadline: cfg.SamplerDeadline,
		work:     cfg.SamplerWork,
		spin:     spin,
	}
}

func (s *Sampler) Run(ctx context.Context) {
	period := s.period.Microseconds()
	deadline := s.deadline.Microseconds()
	dt := s.period.Seconds()
	next := s.clock.Now() + period
	for {
		if err := s.clock.SleepUntil(ctx, next); err != nil {
			return
		}
		release := next
		s.stats.OnRelease(release)
		s.stats.OnStart(s.clock.Now())

		s.belt.Step(dt)
		s.spin(s.work)

		finish := s.clock.Now()
		if s.stats.OnFinish(finish, deadline, true) {
			s.journal.Record(MissEvent{At: finish, Task: s.stats.Name(), Response: finish - release, Deadline: deadline})
		}
		// exactly one notification per job; a still-pending one collapses
		s.notify.Post(release)
		next = release + period
	}
}
