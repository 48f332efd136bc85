package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vyhuholl/test-backend/internal/core/port"
)

// SlidingWindowConfig configures the attempt-tracking sorted sets.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository keeps login attempts in Redis sorted sets, one set
// per client IP, scored by attempt timestamp in nanoseconds. Members carry
// a random suffix so simultaneous attempts never collapse into one entry.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitRepository constructs a repository using the provided Redis client.
func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

// TryAcquire records the attempt and admits it iff the resulting in-window
// count stays within limit. The trim, the insert, and the count execute in
// a single MULTI/EXEC block, so two concurrent attempts can never both
// observe a pre-insert count below the limit. A rejected attempt removes
// its own member again; admitted members are never touched, which keeps
// the admitted total capped even while rejected entries are in flight.
func (r *RateLimitRepository) TryAcquire(ctx context.Context, identifier string, window time.Duration, at time.Time, limit int) (bool, error) {
	if window <= 0 {
		return false, errors.New("window must be positive")
	}
	if limit <= 0 {
		return false, errors.New("limit must be positive")
	}

	key := r.key(identifier)
	member := fmt.Sprintf("%d:%s", at.UnixNano(), uuid.NewString())
	threshold := fmt.Sprintf("%f", float64(at.Add(-window).UnixNano()))

	var inWindow *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", threshold)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: member})
		inWindow = pipe.ZCard(ctx, key)
		if r.cfg.TTL > 0 {
			pipe.Expire(ctx, key, r.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis reserve attempt: %w", err)
	}

	if int(inWindow.Val()) > limit {
		if err := r.client.ZRem(ctx, key, member).Err(); err != nil {
			return false, fmt.Errorf("redis withdraw attempt: %w", err)
		}
		return false, nil
	}

	return true, nil
}

// OldestAttempt returns the earliest attempt remaining inside the window.
// The second return is false when the window is empty.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	key := r.key(identifier)
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	values, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}

	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	raw, _, _ := strings.Cut(values[0], ":")
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp: %w", err)
	}

	return time.Unix(0, ts), true, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
