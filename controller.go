package conveyor

import (
	"context"
	"log/slog"
	"time"
)

// Controller is the chained speed-control task. It is released by the
// sampler's notification and borrows the sampler's release timestamp: any
// queuing delay between the signal and this task's wakeup is charged to
// controller latency, which is what an end-to-end chain deadline measures.
// Using the wake instant as the release would hide that delay.
type Controller struct {
	clock    *Clock
	belt     *Belt
	stats    *TaskStats
	notify   *Signal
	hmi      *Signal
	journal  *Journal
	pi       PIController
	dt       float64
	deadline time.Duration
	work     time.Duration
	hmiWait  time.Duration
	spin     func(time.Duration)
}

func NewController(clock *Clock, belt *Belt, stats *TaskStats, notify, hmi *Signal, journal *Journal, cfg *Config, spin func(time.Duration)) *Controller {
	return &Controller{
		clock:    clock,
		belt:     belt,
		stats:    stats,
		notify:   notify,
		hmi:      hmi,
		journal:  journal,
		pi:       PIController{Kp: 0.8, Ki: 0.2, Limit: 50},
		dt:       cfg.SamplerPeriod.Seconds(),
		deadline: cfg.ControllerDeadline,
		work:     cfg.ControllerWork,
		hmiWait:  cfg.HMIWait,
		spin:     spin,
	}
}

func (c *Controller) Run(ctx context.Context) {
	deadline := c.deadline.Microseconds()
	for {
		before := c.clock.Now()
		release, ok := c.notify.Wait(ctx)
		if !ok {
			return
		}
		after := c.clock.Now()
		c.stats.AddBlocked(after - before)
		c.stats.OnRelease(release)
		c.stats.OnStart(after)

		c.belt.Correct(&c.pi, c.dt)
		c.spin(c.work)

		// opportunistic soft-RT HMI handling; no deadline accounting
		if _, ok := c.hmi.WaitTimeout(ctx, c.hmiWait); ok {
			sp := c.belt.RaiseSetpoint()
			logger.Debug("HMI setpoint change", slog.Float64("setpoint", sp))
		}

		finish := c.clock.Now()
		if c.stats.OnFinish(finish, deadline, true) {
			c.journal.Record(MissEvent{At: finish, Task: c.stats.Name(), Response: finish - release, Deadline: deadline})
		}
	}
}
