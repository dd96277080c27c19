package conveyor

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignalCollapse(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		s := NewSignal()

		// posts while pending collapse; the earliest stamp survives
		require.True(t, s.Post(5))
		require.False(t, s.Post(9))
		require.False(t, s.Post(13))

		got, ok := s.Wait(ctx)
		require.True(t, ok)
		require.Equal(t, int64(5), got)

		// exactly one wake per pending signal
		_, ok = s.WaitTimeout(ctx, time.Millisecond)
		require.False(t, ok)
	})
}

func TestSignalWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSignal()
	_, ok := s.Wait(ctx)
	require.False(t, ok)
}

func TestSignalWaitTimeoutDelivery(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := NewSignal()
		go func() {
			time.Sleep(500 * time.Microsecond)
			s.Post(42)
		}()
		got, ok := s.WaitTimeout(context.Background(), time.Millisecond)
		require.True(t, ok)
		require.Equal(t, int64(42), got)
	})
}
