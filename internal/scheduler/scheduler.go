// Package scheduler runs the periodic strategy reconciliation sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/observability"
)

// Reconciler recomputes every strategy aggregate
type Reconciler interface {
	RecomputeAll(ctx context.Context) (int, error)
}

// Scheduler manages the reconciliation cron task.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	cache      cache.Cache
	metrics    *observability.Metrics
	logger     zerolog.Logger
	ctx        context.Context
}

// New creates a Scheduler. c and metrics may be nil.
func New(ctx context.Context, reconciler Reconciler, c cache.Cache, metrics *observability.Metrics, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		reconciler: reconciler,
		cache:      c,
		metrics:    metrics,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		ctx:        ctx,
	}
}

// Register schedules the sweep. spec is a standard five-field cron
// expression or a descriptor such as "@every 1h".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register reconciliation %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunNow executes one reconciliation sweep immediately.
func (s *Scheduler) RunNow() {
	start := time.Now()
	n, err := s.reconciler.RecomputeAll(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Int("recomputed", n).Msg("Reconciliation sweep failed")
	} else {
		s.metrics.RecordReconciliation(time.Now())
		s.logger.Info().
			Int("recomputed", n).
			Dur("duration", time.Since(start)).
			Msg("Reconciliation sweep finished")
	}

	if n > 0 && s.cache != nil {
		if err := s.cache.Delete(s.ctx, cache.KeyStrategies); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to invalidate strategies cache")
		}
	}
}
