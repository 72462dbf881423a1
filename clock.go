package spiglow

import (
	"context"
	"time"
)

// Clock suspends the calling task. The daemon only ever waits through a
// Clock, so tests can run it without real time passing.
type Clock interface {
	// Sleep blocks for d or until ctx is done, in which case it returns
	// ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is a Clock backed by real timers.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
