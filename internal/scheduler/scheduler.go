// Package scheduler runs the optional in-process cache cleanup. Deployments
// that use an external cron against /v1/admin/cache-cleanup leave
// CACHE_CLEANUP_SPEC empty and never start this.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"app/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// New registers the expired-row sweep on the given cron spec.
func New(spec string, cache service.CacheService, logger zerolog.Logger) (*Scheduler, error) {
	log := logger.With().Str("component", "scheduler").Logger()
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		result, err := cache.CleanupExpired(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled cache cleanup failed")
			return
		}
		log.Info().
			Int("company_deleted", result.Company).
			Int("contact_deleted", result.Contact).
			Msg("Scheduled cache cleanup complete")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup spec %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: log}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info().Msg("Cache cleanup scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Cache cleanup scheduler stopped")
}
