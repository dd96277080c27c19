package conveyor

import (
	"context"
	"time"
)

// Actuator is an event-driven hard-RT task: it blocks on its signal and runs
// one job per event. The release timestamp is the producer's observation
// instant carried by the signal, not this task's wake instant, so the
// measured response covers the whole event-to-completion path.
//
// Both the sort diverter and the safety e-stop are actuators; they differ
// only in deadline, action and scheduling priority.
type Actuator struct {
	clock    *Clock
	stats    *TaskStats
	sig      *Signal
	journal  *Journal
	deadline time.Duration
	work     time.Duration
	action   func()
	spin     func(time.Duration)
}

func NewActuator(clock *Clock, stats *TaskStats, sig *Signal, journal *Journal, deadline, work time.Duration, action func(), spin func(time.Duration)) *Actuator {
	return &Actuator{
		clock:    clock,
		stats:    stats,
		sig:      sig,
		journal:  journal,
		deadline: deadline,
		work:     work,
		action:   action,
		spin:     spin,
	}
}

func (a *Actuator) Run(ctx context.Context) {
	deadline := a.deadline.Microseconds()
	for {
		before := a.clock.Now()
		release, ok := a.sig.Wait(ctx)
		if !ok {
			return
		}
		after := a.clock.Now()
		a.stats.AddBlocked(after - before)
		a.stats.OnRelease(release)
		a.stats.OnStart(after)

		if a.action != nil {
			a.action()
		}
		a.spin(a.work)

		finish := a.clock.Now()
		if a.stats.OnFinish(finish, deadline, true) {
			a.journal.Record(MissEvent{At: finish, Task: a.stats.Name(), Response: finish - release, Deadline: deadline})
		}
	}
}
