package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vyhuholl/test-backend/internal/core/port"
)

const (
	// DefaultLoginWindow is the sliding-window span for login throttling.
	DefaultLoginWindow = time.Minute
	// DefaultLoginMaxAttempts is the number of login attempts admitted per
	// window and identifier.
	DefaultLoginMaxAttempts = 5
)

// RateLimitedError reports a throttled attempt along with the wait until
// the oldest counted attempt leaves the window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// LoginLimiter enforces a sliding-window cap on login attempts per client
// identifier. Every admitted attempt counts against the window regardless
// of whether the credentials turn out to be valid.
type LoginLimiter struct {
	store       port.RateLimitStore
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewLoginLimiter constructs a limiter. Non-positive window or cap select
// the defaults.
func NewLoginLimiter(store port.RateLimitStore, window time.Duration, maxAttempts int) *LoginLimiter {
	if window <= 0 {
		window = DefaultLoginWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultLoginMaxAttempts
	}
	return &LoginLimiter{
		store:       store,
		window:      window,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (l *LoginLimiter) WithClock(clock func() time.Time) *LoginLimiter {
	if clock != nil {
		l.now = clock
	}
	return l
}

// Reserve admits or rejects one attempt for the identifier. The store
// decides atomically, so a burst of concurrent attempts can never slip
// past the cap together. An admitted attempt is recorded immediately; a
// rejected one returns *RateLimitedError and leaves the window untouched.
// Store failures propagate so callers fail closed.
func (l *LoginLimiter) Reserve(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return fmt.Errorf("rate limit identifier is required")
	}

	reference := l.now()

	admitted, err := l.store.TryAcquire(ctx, identifier, l.window, reference, l.maxAttempts)
	if err != nil {
		return fmt.Errorf("reserve login attempt: %w", err)
	}
	if admitted {
		return nil
	}

	retryAfter := l.window
	oldest, ok, err := l.store.OldestAttempt(ctx, identifier, l.window, reference)
	if err != nil {
		return fmt.Errorf("find oldest attempt: %w", err)
	}
	if ok {
		retryAfter = oldest.Add(l.window).Sub(reference)
	}
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return &RateLimitedError{RetryAfter: retryAfter.Round(time.Second)}
}
