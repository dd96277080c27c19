package conveyor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewJobQueue(NewClock(), 0)
	var order []int
	for i := range 3 {
		require.True(t, q.Enqueue(func() { order = append(order, i) }))
	}
	require.Equal(t, 3, q.Len())
	var arrivals []int64
	for {
		j := q.TryDequeue()
		if j == nil {
			break
		}
		arrivals = append(arrivals, j.Arrival)
		j.Do()
	}
	require.Equal(t, []int{0, 1, 2}, order)
	require.IsNonDecreasing(t, arrivals)
	require.Zero(t, q.Len())
}

func TestQueueBound(t *testing.T) {
	q := NewJobQueue(NewClock(), 2)
	require.True(t, q.Enqueue(func() {}))
	require.True(t, q.Enqueue(func() {}))
	require.False(t, q.Enqueue(func() {}))
	require.Equal(t, uint32(1), q.Dropped())
	require.Equal(t, 2, q.Len())
}

func TestQueueCloseWakesDequeue(t *testing.T) {
	q := NewJobQueue(NewClock(), 0)
	done := make(chan bool)
	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake on Close")
	}
	require.False(t, q.Enqueue(func() {}))
}

func TestQueueDequeueDelivers(t *testing.T) {
	q := NewJobQueue(NewClock(), 0)
	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Enqueue(func() {})
	}()
	j, ok := q.Dequeue()
	require.True(t, ok)
	require.NotNil(t, j)
}

func TestQueueDrain(t *testing.T) {
	q := NewJobQueue(NewClock(), 0)
	for range 4 {
		q.Enqueue(func() {})
	}
	q.Close()
	require.Equal(t, 4, q.Drain())
	require.Zero(t, q.Len())
}
