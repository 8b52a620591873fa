package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is how often the sweeper polls for expired sessions.
// Coarse on purpose: with a 24h session lifetime, per-row timers would add
// complexity without improving anything a user can notice.
const DefaultSweepInterval = time.Hour

// Sweeper runs the expiry sweep on a timer until its context is cancelled.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper builds a Sweeper around the manager.
func NewSweeper(manager *Manager, interval time.Duration, logger zerolog.Logger) (*Sweeper, error) {
	if manager == nil {
		return nil, errors.New("manager is required")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{manager: manager, interval: interval, logger: logger}, nil
}

// Run sweeps once immediately, then on every tick, until ctx is done. A failed
// cycle is logged and simply tried again next interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ended, err := s.manager.Sweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep cycle failed")
		return
	}
	if ended > 0 {
		s.logger.Info().Int("ended", ended).Msg("swept expired sessions")
	}
}
