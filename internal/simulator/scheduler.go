package simulator

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives periodic normal generation.
type Scheduler struct {
	sim      *Simulator
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler ticks sim at the simulator's configured interval.
func NewScheduler(sim *Simulator, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{sim: sim, interval: sim.Config().Interval, logger: logger}
}

// Run generates one sample per tick until ctx is cancelled. Failed ticks are logged
// and the loop continues.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("simulator scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulator scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.sim.GenerateOnce(ctx); err != nil {
				s.logger.Error("scheduled generation failed", slog.String("error", err.Error()))
			}
		}
	}
}
