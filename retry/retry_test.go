package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastConfig keeps test backoffs negligible.
func fastConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := Do(ctx, fastConfig(), func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Do(ctx, fastConfig(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("exhausts retries", func(t *testing.T) {
		boom := errors.New("persistent")
		calls := 0
		err := Do(ctx, fastConfig(), func(ctx context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, ErrMaxRetries) {
			t.Errorf("expected ErrMaxRetries, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("cause not preserved: %v", err)
		}
		if calls != 4 { // initial attempt plus three retries
			t.Errorf("calls = %d, want 4", calls)
		}
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		boom := errors.New("fatal")
		cfg := fastConfig()
		cfg.IsRetryable = func(err error) bool { return false }

		calls := 0
		err := Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, ErrNotRetryable) {
			t.Errorf("expected ErrNotRetryable, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("cause not preserved: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("default predicate skips context errors", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Config{InitialBackoff: time.Microsecond}, func(ctx context.Context) error {
			calls++
			return context.Canceled
		})
		if !errors.Is(err, ErrNotRetryable) {
			t.Errorf("expected ErrNotRetryable, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("canceled context stops retries", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := Do(cctx, fastConfig(), func(ctx context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})
		if !errors.Is(err, ErrContextCanceled) {
			t.Errorf("expected ErrContextCanceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("zero retries runs once", func(t *testing.T) {
		cfg := Config{MaxRetries: 0, InitialBackoff: time.Microsecond}
		calls := 0
		err := Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
		if !errors.Is(err, ErrMaxRetries) {
			t.Errorf("expected ErrMaxRetries, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestDoWithResult(t *testing.T) {
	ctx := context.Background()

	calls := 0
	got, err := DoWithResult(ctx, fastConfig(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

// Sentinel errors returned by the retried function must stay visible through
// the wrapper, since callers match storage errors with errors.Is.
func TestErrorUnwrapping(t *testing.T) {
	sentinel := errors.New("not found")
	wrapped := &Error{Cause: sentinel, Attempts: 1, Reason: ErrNotRetryable}

	if !errors.Is(wrapped, sentinel) {
		t.Error("cause sentinel lost")
	}
	if !errors.Is(wrapped, ErrNotRetryable) {
		t.Error("reason sentinel lost")
	}
	if errors.Is(wrapped, ErrMaxRetries) {
		t.Error("matched wrong reason")
	}
	if errors.Unwrap(wrapped) != sentinel {
		t.Error("Unwrap should return the cause")
	}
}

func TestBackoffFor(t *testing.T) {
	cfg := applyDefaults(Config{
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     40 * time.Millisecond,
		Multiplier:     2.0,
		Jitter:         0, // deterministic
	})

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
		{3, 40 * time.Millisecond}, // capped
	}
	for _, c := range cases {
		if got := backoffFor(cfg, c.attempt); got != c.want {
			t.Errorf("backoffFor(attempt=%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}
