package conveyor

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerRejectsBadParameters(t *testing.T) {
	clock := NewClock()
	q := NewJobQueue(clock, 0)
	_, err := NewServer(clock, q, 10*time.Millisecond, 11*time.Millisecond)
	require.Error(t, err)
	_, err = NewServer(clock, q, 10*time.Millisecond, 0)
	require.Error(t, err)
	_, err = NewServer(clock, q, 0, 0)
	require.Error(t, err)
	s, err := NewServer(clock, q, 10*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, s)
}

// Ten 1 ms jobs against Ts=10ms, Cs=5ms: five jobs per period, budget never
// exceeded, unused budget never carried forward, and the accumulated
// response times equal the sum of finish−arrival.
func TestServerBudget(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		clock := NewClock()
		q := NewJobQueue(clock, 0)
		for range 10 {
			require.True(t, q.Enqueue(func() { time.Sleep(time.Millisecond) }))
		}
		srv, err := NewServer(clock, q, 10*time.Millisecond, 5*time.Millisecond)
		require.NoError(t, err)

		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Run(ctx)
		}()

		time.Sleep(26 * time.Millisecond)
		cancel()
		wg.Wait()

		sn := srv.Stats().Snapshot()
		require.Equal(t, uint32(10), sn.JobsExecuted)
		require.Equal(t, int64(5000), sn.MaxBudget)
		require.Equal(t, int64(10000), sn.TotalBudget)
		require.Equal(t, uint32(3), sn.PeriodsExecuted)
		require.Equal(t, uint32(1), sn.PeriodsIdle)
		// first burst finishes at 1..5 ms, second at 11..15 ms; all
		// arrivals are at 0
		require.Equal(t, int64(80000), sn.TotalResponse)
		require.Equal(t, int64(15000), sn.MaxResponse)
	})
}

// A single 7 ms job is allowed to finish (budget is checked between jobs,
// not inside one) but the next release stays exactly one period after the
// previous one.
func TestServerOverrunDoesNotDeferPeriod(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		clock := NewClock()
		q := NewJobQueue(clock, 0)
		require.True(t, q.Enqueue(func() { time.Sleep(7 * time.Millisecond) }))
		srv, err := NewServer(clock, q, 10*time.Millisecond, 5*time.Millisecond)
		require.NoError(t, err)

		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Run(ctx)
		}()

		// the overrunning job holds the first period until t=7ms
		time.Sleep(7500 * time.Microsecond)
		sn := srv.Stats().Snapshot()
		require.Equal(t, uint32(1), sn.JobsExecuted)
		require.Equal(t, uint32(1), sn.PeriodsExecuted)
		require.Equal(t, int64(7000), sn.MaxBudget)

		// were the period deferred by the overrun, the second period would
		// only start at t=17ms
		time.Sleep(3 * time.Millisecond) // t=10.5ms
		sn = srv.Stats().Snapshot()
		require.Equal(t, uint32(2), sn.PeriodsExecuted)
		require.Equal(t, uint32(1), sn.PeriodsIdle)

		cancel()
		wg.Wait()
	})
}

func TestServerIdlePeriods(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		clock := NewClock()
		q := NewJobQueue(clock, 0)
		srv, err := NewServer(clock, q, 10*time.Millisecond, 5*time.Millisecond)
		require.NoError(t, err)

		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.Run(ctx)
		}()

		time.Sleep(35 * time.Millisecond)
		cancel()
		wg.Wait()

		sn := srv.Stats().Snapshot()
		require.Zero(t, sn.JobsExecuted)
		require.Equal(t, uint32(4), sn.PeriodsExecuted)
		require.Equal(t, sn.PeriodsExecuted, sn.PeriodsIdle)
		require.Zero(t, sn.TotalBudget)
	})
}
