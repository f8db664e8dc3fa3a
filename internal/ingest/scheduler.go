package ingest

import (
	"context"
	"time"

	"github.com/mohamedkhairy/oi-tracker/pkg/logger"
)

// DefaultInterval is the nominal polling cadence.
const DefaultInterval = 5 * time.Minute

// Scheduler invokes the pipeline on a fixed interval until the context is
// cancelled. Overlap protection lives in the pipeline itself, so an external
// trigger (the cron worker or the admin endpoint) firing alongside the
// ticker is harmless.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
}

// NewScheduler creates a scheduler.
func NewScheduler(p *Pipeline, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{pipeline: p, interval: interval}
}

// Run executes an immediate first cycle, then one per interval. Blocks
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("Ingestion scheduler started",
		logger.Duration("interval", s.interval),
	)

	s.pipeline.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Ingestion scheduler stopped")
			return
		case <-ticker.C:
			s.pipeline.RunCycle(ctx)
		}
	}
}
