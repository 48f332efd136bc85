package port

import (
	"context"
	"time"
)

// RateLimitStore defines the persistence operations required to enforce
// sliding-window limits on authentication attempts.
type RateLimitStore interface {
	// TryAcquire atomically drops expired attempts, records this one, and
	// admits it iff the in-window count including this attempt stays within
	// limit. A rejected attempt is withdrawn so throttled requests do not
	// extend the block. Concurrent calls must never admit more than limit
	// attempts per window.
	TryAcquire(ctx context.Context, identifier string, window time.Duration, at time.Time, limit int) (bool, error)
	// OldestAttempt returns the earliest attempt remaining inside the
	// window ending at the reference time. The second return is false when
	// the window is empty.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
