// Package scheduler drives the per-side simulation rounds: one tick per
// real-time delay, one clock step per tick, until market close.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// TickFunc runs one round at the given simulated time.
type TickFunc func(ctx context.Context, now time.Time)

// Scheduler runs a TickFunc once per TickDelay until the clock closes.
// The first round runs immediately.
type Scheduler struct {
	name      string
	clock     *Clock
	tickDelay time.Duration
	tick      TickFunc
	logger    *slog.Logger
}

// New creates a Scheduler. name identifies the side in log lines.
func New(name string, clock *Clock, tickDelay time.Duration, tick TickFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		name:      name,
		clock:     clock,
		tickDelay: tickDelay,
		tick:      tick,
		logger:    logger,
	}
}

// Run blocks until the market closes or ctx is cancelled. It returns
// nil at close and ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("market open",
		slog.String("side", s.name),
		slog.String("time", s.clock.Now().Format(DisplayLayout)),
		slog.Int("rounds", s.clock.Rounds()),
	)

	var wait <-chan time.Time
	if s.tickDelay > 0 {
		ticker := time.NewTicker(s.tickDelay)
		defer ticker.Stop()
		wait = ticker.C
	}

	for !s.clock.Closed() {
		s.logger.Info("round started",
			slog.String("side", s.name),
			slog.String("time", s.clock.Now().Format(DisplayLayout)),
		)
		s.tick(ctx, s.clock.Now())

		if wait != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wait:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		s.clock.Advance()
	}

	s.logger.Info("market close",
		slog.String("side", s.name),
		slog.String("time", s.clock.Now().Format(DisplayLayout)),
	)
	return nil
}
