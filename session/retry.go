package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retry bounds repeated attempts at a flaky browser interaction.
// Delays grow linearly: Delay, 2*Delay, 3*Delay.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

func (r Retry) withDefaults() Retry {
	if r.Attempts <= 0 {
		r.Attempts = 3
	}
	if r.Delay <= 0 {
		r.Delay = 500 * time.Millisecond
	}
	return r
}

// Do runs fn until it succeeds or attempts are exhausted. Applied at
// the collaborator boundary; the verification engine never retries.
func (r Retry) Do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	r = r.withDefaults()
	var err error
	for i := 0; i < r.Attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == r.Attempts-1 {
			break
		}
		logger.Debug("session: retrying", "op", op, "attempt", i+1, "err", err)
		if serr := sleepCtx(ctx, time.Duration(i+1)*r.Delay); serr != nil {
			return fmt.Errorf("session: %s: cancelled during retry: %w", op, serr)
		}
	}
	return fmt.Errorf("session: %s: %d attempts: %w", op, r.Attempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
