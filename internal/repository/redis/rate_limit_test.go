package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_TryAcquireHonorsLimit(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "login_attempts", TTL: 2 * time.Minute})

	ctx := context.Background()
	reference := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		admitted, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference.Add(time.Duration(i)*time.Second), 3)
		if err != nil {
			t.Fatalf("TryAcquire %d: %v", i+1, err)
		}
		if !admitted {
			t.Fatalf("attempt %d was rejected below the limit", i+1)
		}
	}

	admitted, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference.Add(3*time.Second), 3)
	if err != nil {
		t.Fatalf("TryAcquire over limit: %v", err)
	}
	if admitted {
		t.Fatal("attempt over the limit was admitted")
	}

	remaining := server.TTL("login_attempts:203.0.113.7")
	if remaining <= 0 || remaining > 2*time.Minute {
		t.Fatalf("expected ttl within (0, 2m], got %v", remaining)
	}
}

func TestRateLimitRepository_RejectedAttemptIsWithdrawn(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "login_attempts"})

	ctx := context.Background()
	reference := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference, 2); err != nil {
			t.Fatalf("TryAcquire %d: %v", i+1, err)
		}
	}
	if admitted, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference, 2); err != nil || admitted {
		t.Fatalf("third attempt: admitted=%v err=%v, want rejection", admitted, err)
	}

	// The rejected member must not linger and extend the block.
	size, err := client.ZCard(ctx, "login_attempts:203.0.113.7").Result()
	if err != nil {
		t.Fatalf("ZCard: %v", err)
	}
	if size != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", size)
	}
}

func TestRateLimitRepository_ConcurrentBurstStaysWithinLimit(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "login_attempts", TTL: 2 * time.Minute})

	ctx := context.Background()
	reference := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	const attempts = 32
	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference, 5)
			if err != nil {
				t.Errorf("TryAcquire: %v", err)
				return
			}
			if ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 5 {
		t.Fatalf("admitted %d concurrent attempts, want exactly 5", got)
	}
}

func TestRateLimitRepository_WindowSlides(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "login_attempts"})

	ctx := context.Background()
	reference := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference, 3); err != nil {
			t.Fatalf("TryAcquire %d: %v", i+1, err)
		}
	}
	if admitted, _ := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference, 3); admitted {
		t.Fatal("attempt over the limit was admitted")
	}

	later := reference.Add(61 * time.Second)
	admitted, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, later, 3)
	if err != nil {
		t.Fatalf("TryAcquire after window: %v", err)
	}
	if !admitted {
		t.Fatal("attempt after the window slid was rejected")
	}

	// The stale entries are physically gone, not just out of range.
	size, err := client.ZCard(ctx, "login_attempts:203.0.113.7").Result()
	if err != nil {
		t.Fatalf("ZCard: %v", err)
	}
	if size != 1 {
		t.Fatalf("expected 1 surviving attempt, got %d", size)
	}
}

func TestRateLimitRepository_IdentifiersAreIsolated(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "login_attempts"})

	ctx := context.Background()
	reference := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	if _, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference, 1); err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}

	admitted, err := repo.TryAcquire(ctx, "198.51.100.9", time.Minute, reference, 1)
	if err != nil {
		t.Fatalf("TryAcquire other identifier: %v", err)
	}
	if !admitted {
		t.Fatal("attempts against one identifier throttled another")
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "login_attempts"})

	ctx := context.Background()
	reference := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	_, found, err := repo.OldestAttempt(ctx, "203.0.113.7", time.Minute, reference)
	if err != nil {
		t.Fatalf("OldestAttempt: %v", err)
	}
	if found {
		t.Fatal("expected no attempt in an empty window")
	}

	oldestAt := reference.Add(-45 * time.Second)
	for _, offset := range []time.Duration{-45 * time.Second, -20 * time.Second, -time.Second} {
		if _, err := repo.TryAcquire(ctx, "203.0.113.7", time.Minute, reference.Add(offset), 5); err != nil {
			t.Fatalf("TryAcquire: %v", err)
		}
	}

	oldest, found, err := repo.OldestAttempt(ctx, "203.0.113.7", time.Minute, reference)
	if err != nil {
		t.Fatalf("OldestAttempt: %v", err)
	}
	if !found {
		t.Fatal("expected an attempt in the window")
	}
	if !oldest.Equal(oldestAt) {
		t.Fatalf("oldest = %v, want %v", oldest, oldestAt)
	}
}
