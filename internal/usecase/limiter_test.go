package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLimiter(store *memRateLimitStore, clock *time.Time) *LoginLimiter {
	return NewLoginLimiter(store, time.Minute, 3).
		WithClock(func() time.Time { return *clock })
}

func TestLoginLimiterAdmitsUpToCap(t *testing.T) {
	clock := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newMemRateLimitStore(), &clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Reserve(ctx, "203.0.113.7"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		clock = clock.Add(time.Second)
	}

	err := limiter.Reserve(ctx, "203.0.113.7")
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("fourth attempt: got %v, want *RateLimitedError", err)
	}

	// The oldest attempt was 3s ago in a 60s window.
	if limited.RetryAfter != 57*time.Second {
		t.Errorf("retry after = %s, want 57s", limited.RetryAfter)
	}
}

func TestLoginLimiterRejectionDoesNotConsume(t *testing.T) {
	clock := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := newMemRateLimitStore()
	limiter := newTestLimiter(store, &clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Reserve(ctx, "203.0.113.7"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	// Rejected attempts must not extend the block.
	for i := 0; i < 10; i++ {
		var limited *RateLimitedError
		if err := limiter.Reserve(ctx, "203.0.113.7"); !errors.As(err, &limited) {
			t.Fatalf("rejected attempt %d: got %v, want *RateLimitedError", i+1, err)
		}
	}

	if count := store.recorded("203.0.113.7", time.Minute, clock); count != 3 {
		t.Errorf("recorded attempts = %d, want 3", count)
	}
}

func TestLoginLimiterConcurrentBurst(t *testing.T) {
	clock := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newMemRateLimitStore(), &clock)
	ctx := context.Background()

	const attempts = 32
	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Reserve(ctx, "203.0.113.7")
			if err == nil {
				admitted.Add(1)
				return
			}
			var limited *RateLimitedError
			if !errors.As(err, &limited) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 3 {
		t.Errorf("admitted %d concurrent attempts, want exactly 3", got)
	}
}

func TestLoginLimiterWindowSlides(t *testing.T) {
	clock := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newMemRateLimitStore(), &clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Reserve(ctx, "203.0.113.7"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := limiter.Reserve(ctx, "203.0.113.7"); err == nil {
		t.Fatal("expected the fourth attempt to be rejected")
	}

	clock = clock.Add(61 * time.Second)
	if err := limiter.Reserve(ctx, "203.0.113.7"); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestLoginLimiterIdentifiersAreIndependent(t *testing.T) {
	clock := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(newMemRateLimitStore(), &clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Reserve(ctx, "203.0.113.7"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := limiter.Reserve(ctx, "203.0.113.7"); err == nil {
		t.Fatal("expected the fourth attempt to be rejected")
	}

	if err := limiter.Reserve(ctx, "198.51.100.9"); err != nil {
		t.Fatalf("other identifier: %v", err)
	}
}

func TestLoginLimiterRequiresIdentifier(t *testing.T) {
	clock := time.Now()
	limiter := newTestLimiter(newMemRateLimitStore(), &clock)

	if err := limiter.Reserve(context.Background(), "  "); err == nil {
		t.Fatal("blank identifier was accepted")
	}
}
