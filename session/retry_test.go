package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestRetryEventualSuccess(t *testing.T) {
	// WHAT: A flaky operation succeeding on the third attempt does not
	// surface an error.
	calls := 0
	r := Retry{Attempts: 3, Delay: time.Millisecond}
	err := r.Do(context.Background(), slog.Default(), "probe", func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	// WHAT: The last underlying error is wrapped when attempts run out.
	sentinel := errors.New("element vanished")
	r := Retry{Attempts: 2, Delay: time.Millisecond}
	err := r.Do(context.Background(), slog.Default(), "probe", func() error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	// WHAT: Cancellation interrupts the backoff sleep, not just the
	// next attempt.
	ctx, cancel := context.WithCancel(context.Background())
	r := Retry{Attempts: 5, Delay: time.Minute}
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, slog.Default(), "probe", func() error {
			return errors.New("fail")
		})
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestRetryDefaults(t *testing.T) {
	// WHAT: Zero values get usable defaults.
	r := Retry{}.withDefaults()
	if r.Attempts != 3 || r.Delay != 500*time.Millisecond {
		t.Errorf("defaults = %+v", r)
	}
}
