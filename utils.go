package conveyor

import (
	"context"
	"fmt"
	"time"
)

// Sleep waits for the given duration, returning early if the context is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Spin burns CPU for the given duration. Tasks use it to emulate a
// deterministic worst-case execution time; tests substitute time.Sleep.
func Spin(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}

func FriendlyDuration(d time.Duration) string {
	if d < 2*time.Second {
		return fmt.Sprintf("%.0f milliseconds", d.Seconds()*1000)
	}
	if d < time.Minute*2 {
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	}
	if d < time.Minute*10 {
		return fmt.Sprintf("%.1f minutes", d.Seconds()/60)
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0f minutes", d.Seconds()/60)
	}
	return fmt.Sprintf("%.1f hours", d.Seconds()/3600)
}
