// Package sweepers runs periodic maintenance against the offer store.
package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/types"
)

// Pruner deletes offers that expired before a day. *pgsource.Source
// implements it.
type Pruner interface {
	DeleteExpired(ctx context.Context, day time.Time) (int64, error)
}

// ExpiredOfferSweeper periodically removes offers that can no longer be
// bought.
type ExpiredOfferSweeper struct {
	pruner   Pruner
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

// NewExpiredOfferSweeper creates a sweeper that runs every interval.
func NewExpiredOfferSweeper(pruner Pruner, logger *zerolog.Logger, interval time.Duration) *ExpiredOfferSweeper {
	s := &ExpiredOfferSweeper{
		pruner:   pruner,
		logger:   zerolog.Nop(),
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if logger != nil {
		s.logger = logger.With().Str("component", "offer_sweeper").Logger()
	}
	return s
}

// Start sweeps once, then on every tick until ctx is done or Stop is
// called.
func (s *ExpiredOfferSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting expired offer sweeper")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Expired offer sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Expired offer sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop
func (s *ExpiredOfferSweeper) Stop() {
	close(s.stopChan)
}

// Sweep deletes offers that expired before today and returns the count.
func (s *ExpiredOfferSweeper) Sweep(ctx context.Context) (int64, error) {
	return s.pruner.DeleteExpired(ctx, types.Day(s.now()))
}

func (s *ExpiredOfferSweeper) sweep(ctx context.Context) {
	deleted, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete expired offers")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("Deleted expired offers")
	}
}
