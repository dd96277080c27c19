package conveyor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsJobLifecycle(t *testing.T) {
	s := NewTaskStats("enc", DefaultWindow)

	s.OnRelease(1000)
	sn := s.Snapshot()
	require.Equal(t, uint32(1), sn.Released)
	require.Zero(t, sn.Started)
	require.Zero(t, sn.Finished)

	s.OnStart(1200)
	sn = s.Snapshot()
	require.Equal(t, uint32(1), sn.Started)
	require.Equal(t, int64(200), sn.WorstLatency)

	missed := s.OnFinish(1800, 5000, true)
	require.False(t, missed)
	sn = s.Snapshot()
	require.Equal(t, uint32(1), sn.Finished)
	require.Equal(t, int64(600), sn.WorstExec)
	require.Equal(t, int64(800), sn.WorstResponse)
	require.Equal(t, int64(200), sn.WorstLatency)
	require.Zero(t, sn.HardMiss)
	require.Equal(t, []int32{800}, sn.Responses)

	// releases ≥ starts ≥ finishes throughout, and the worst response
	// bounds the worst latency
	require.GreaterOrEqual(t, sn.Released, sn.Started)
	require.GreaterOrEqual(t, sn.Started, sn.Finished)
	require.GreaterOrEqual(t, sn.WorstResponse, sn.WorstLatency)
}

func TestStatsMissCounters(t *testing.T) {
	s := NewTaskStats("enc", DefaultWindow)

	s.OnRelease(0)
	s.OnStart(100)
	require.True(t, s.OnFinish(6000, 5000, true))
	require.Equal(t, uint32(1), s.Snapshot().HardMiss)
	require.Zero(t, s.Snapshot().SoftMiss)

	s.OnRelease(10000)
	s.OnStart(10100)
	require.True(t, s.OnFinish(16000, 5000, false))
	require.Equal(t, uint32(1), s.Snapshot().HardMiss)
	require.Equal(t, uint32(1), s.Snapshot().SoftMiss)
}

func TestWindowFill(t *testing.T) {
	s := NewTaskStats("enc", 10)
	finish := func(miss bool) {
		base := int64(s.Snapshot().Finished) * 10000
		s.OnRelease(base)
		s.OnStart(base)
		response := int64(100)
		if miss {
			response = 9000
		}
		s.OnFinish(base+response, 5000, true)
	}

	// hits report 0 until the window has filled
	for range 9 {
		finish(false)
	}
	sn := s.Snapshot()
	require.Equal(t, uint32(9), sn.Filled)
	require.Zero(t, sn.WindowHits())

	finish(false)
	sn = s.Snapshot()
	require.Equal(t, uint32(10), sn.Filled)
	require.Equal(t, uint32(10), sn.WindowHits())

	// exactly 3 misses among the last 10 outcomes
	finish(true)
	finish(false)
	finish(true)
	finish(false)
	finish(true)
	for range 5 {
		finish(false)
	}
	sn = s.Snapshot()
	require.Equal(t, uint32(10), sn.Filled)
	require.Equal(t, uint32(7), sn.WindowHits())
	require.Equal(t, uint32(3), sn.HardMiss)
}

func TestPreemptionCounter(t *testing.T) {
	s := NewTaskStats("enc", DefaultWindow)
	require.Zero(t, s.Snapshot().Preempted)
	s.AddPreemption()
	require.Equal(t, uint32(1), s.Snapshot().Preempted)
}

func TestWindowClamped(t *testing.T) {
	s := NewTaskStats("enc", 40)
	require.Equal(t, uint32(maxWindow), s.Snapshot().K)
}

func TestSnapshotLine(t *testing.T) {
	s := NewTaskStats("sort", 10)
	s.OnRelease(1000)
	s.OnStart(1500)
	s.OnFinish(2500, 10000, true)
	s.AddBlocked(300)
	line := s.Snapshot().Line()
	require.Contains(t, line, "sort: rel=1 fin=1 hard=0")
	require.Contains(t, line, "WCRT=1500us")
	require.Contains(t, line, "Lmax=500us")
	require.Contains(t, line, "Cmax=1000us")
	require.Contains(t, line, "(m,k)=(0,10)")
	require.Contains(t, line, "[blk=300us]")
}
