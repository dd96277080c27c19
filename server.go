package conveyor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ServerStats is the aperiodic server's observable state. Written only by
// the server goroutine; read lock-free by the reporter.
type ServerStats struct {
	jobsExecuted    atomic.Uint32
	totalResponse   atomic.Int64
	maxResponse     atomic.Int64
	periodsExecuted atomic.Uint32
	periodsIdle     atomic.Uint32
	totalBudget     atomic.Int64
	maxBudget       atomic.Int64
}

// ServerSnapshot is a reporter-side copy of ServerStats.
type ServerSnapshot struct {
	JobsExecuted    uint32
	TotalResponse   int64
	MaxResponse     int64
	PeriodsExecuted uint32
	PeriodsIdle     uint32
	TotalBudget     int64
	MaxBudget       int64
}

func (s *ServerStats) Snapshot() ServerSnapshot {
	return ServerSnapshot{
		JobsExecuted:    s.jobsExecuted.Load(),
		TotalResponse:   s.totalResponse.Load(),
		MaxResponse:     s.maxResponse.Load(),
		PeriodsExecuted: s.periodsExecuted.Load(),
		PeriodsIdle:     s.periodsIdle.Load(),
		TotalBudget:     s.totalBudget.Load(),
		MaxBudget:       s.maxBudget.Load(),
	}
}

// Server is a periodic aperiodic-server: every period Ts it drains the job
// queue FIFO, executing jobs until the budget Cs is consumed. The budget is
// checked between jobs, never inside one, so a single admitted job may
// overrun Cs but the period boundary is never deferred: the next release is
// always the previous release plus Ts.
type Server struct {
	clock  *Clock
	queue  *JobQueue
	period time.Duration
	budget time.Duration
	stats  ServerStats
}

// NewServer validates Cs ≤ Ts and builds the server.
func NewServer(clock *Clock, queue *JobQueue, period, budget time.Duration) (*Server, error) {
	if period <= 0 {
		return nil, fmt.Errorf("server period must be positive, got %v", period)
	}
	if budget <= 0 || budget > period {
		return nil, fmt.Errorf("server budget must be in (0, Ts=%v], got %v", period, budget)
	}
	return &Server{clock: clock, queue: queue, period: period, budget: budget}, nil
}

func (s *Server) Stats() *ServerStats { return &s.stats }

func (s *Server) Run(ctx context.Context) {
	period := s.period.Microseconds()
	budget := s.budget.Microseconds()
	next := s.clock.Now() + period
	for {
		if ctx.Err() != nil {
			return
		}
		var consumed int64
		hadJobs := false
		for consumed < budget {
			if ctx.Err() != nil {
				return
			}
			j := s.queue.TryDequeue()
			if j == nil {
				// unused budget is not carried forward
				break
			}
			hadJobs = true
			before := s.clock.Now()
			j.Do()
			after := s.clock.Now()

			satInc(&s.stats.jobsExecuted)
			response := after - j.Arrival
			s.stats.totalResponse.Add(response)
			storeMax(&s.stats.maxResponse, response)
			consumed += after - before
		}
		satInc(&s.stats.periodsExecuted)
		if !hadJobs {
			satInc(&s.stats.periodsIdle)
		}
		s.stats.totalBudget.Add(consumed)
		storeMax(&s.stats.maxBudget, consumed)

		if err := s.clock.SleepUntil(ctx, next); err != nil {
			return
		}
		next += period
	}
}

// Line renders the reporter summary line for the server.
func (sn ServerSnapshot) Line(dropped uint32, queued int) string {
	return fmt.Sprintf("server: jobs=%d drop=%d q=%d Rmax=%dus Rtot=%dus periods=%d idle=%d Bmax=%dus Btot=%dus",
		sn.JobsExecuted, dropped, queued, sn.MaxResponse, sn.TotalResponse,
		sn.PeriodsExecuted, sn.PeriodsIdle, sn.MaxBudget, sn.TotalBudget)
}
