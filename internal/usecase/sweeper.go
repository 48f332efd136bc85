package usecase

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyhuholl/test-backend/internal/core/port"
)

// DefaultSweepInterval is how often the revocation ledger is compacted.
const DefaultSweepInterval = time.Hour

var sweptEntries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "access_revocation_entries_swept_total",
	Help: "Expired revocation ledger entries removed by the background sweep.",
})

// RevocationSweeper periodically removes ledger entries whose tokens have
// expired on their own. Sweeping is an optimization only; correctness never
// depends on it because expired tokens fail signature-and-expiry checks
// regardless of ledger state.
type RevocationSweeper struct {
	store    port.RevocationStore
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewRevocationSweeper constructs a sweeper. A non-positive interval
// selects the default.
func NewRevocationSweeper(store port.RevocationStore, interval time.Duration, logger *zap.Logger) *RevocationSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &RevocationSweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RevocationSweeper) WithClock(clock func() time.Time) *RevocationSweeper {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *RevocationSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce removes currently expired entries and reports how many went.
// A failed sweep is logged and retried on the next tick.
func (s *RevocationSweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("Revocation sweep failed", zap.Error(err))
		return 0
	}

	if removed > 0 {
		sweptEntries.Add(float64(removed))
		s.logger.Info("Revocation sweep completed", zap.Int("removed", removed))
	}

	return removed
}
