package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// CacheTableStats is one cache's slice of a stats report.
type CacheTableStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Live    int     `json:"live_rows"`
	Expired int     `json:"expired_rows"`
}

// CacheStats aggregates both lookup caches over a window.
type CacheStats struct {
	WindowDays int             `json:"window_days"`
	Company    CacheTableStats `json:"company"`
	Contact    CacheTableStats `json:"contact"`
}

// CleanupResult reports rows deleted per cache table.
type CleanupResult struct {
	Company int `json:"company_deleted"`
	Contact int `json:"contact_deleted"`
}

// CacheService is the time-boxed reuse store for expensive domain lookups.
type CacheService interface {
	Get(ctx context.Context, table, domain string) ([]byte, error)
	Put(ctx context.Context, table, domain string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, domain string) error
	CleanupExpired(ctx context.Context) (CleanupResult, error)
	Stats(ctx context.Context, windowDays int) (*CacheStats, error)
}

type cacheService struct {
	repo   repository.CacheRepository
	stats  CacheStatsRecorder
	logger zerolog.Logger
}

// NewCacheService creates a new CacheService.
func NewCacheService(repo repository.CacheRepository, stats CacheStatsRecorder, logger zerolog.Logger) CacheService {
	return &cacheService{
		repo:   repo,
		stats:  stats,
		logger: logger.With().Str("service", "CacheService").Logger(),
	}
}

func (s *cacheService) Get(ctx context.Context, table, domain string) ([]byte, error) {
	entry, err := s.repo.Get(ctx, table, domain)
	if err != nil {
		return nil, err
	}
	return entry.Payload, nil
}

func (s *cacheService) Put(ctx context.Context, table, domain string, payload []byte, ttl time.Duration) error {
	if err := s.repo.Put(ctx, table, domain, payload, ttl); err != nil {
		return err
	}
	s.logger.Debug().Str("table", table).Str("domain", domain).Dur("ttl", ttl).Msg("Cache entry stored")
	return nil
}

// Invalidate removes the domain from both cache tables regardless of expiry.
func (s *cacheService) Invalidate(ctx context.Context, domain string) error {
	for _, table := range []string{model.CacheTableCompany, model.CacheTableContact} {
		if _, err := s.repo.Invalidate(ctx, table, domain); err != nil {
			return fmt.Errorf("invalidating %s for domain %s: %w", table, domain, err)
		}
	}
	s.logger.Info().Str("domain", domain).Msg("Cache entries invalidated")
	return nil
}

func (s *cacheService) CleanupExpired(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	var err error
	if res.Company, err = s.repo.DeleteExpired(ctx, model.CacheTableCompany); err != nil {
		return res, err
	}
	if res.Contact, err = s.repo.DeleteExpired(ctx, model.CacheTableContact); err != nil {
		return res, err
	}
	s.logger.Info().
		Int("company_deleted", res.Company).
		Int("contact_deleted", res.Contact).
		Msg("Expired cache rows removed")
	return res, nil
}

func (s *cacheService) Stats(ctx context.Context, windowDays int) (*CacheStats, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	out := &CacheStats{WindowDays: windowDays}

	for table, dst := range map[string]*CacheTableStats{
		model.CacheTableCompany: &out.Company,
		model.CacheTableContact: &out.Contact,
	} {
		hits, misses, err := s.stats.Totals(ctx, table, windowDays)
		if err != nil {
			return nil, fmt.Errorf("reading counters for %s: %w", table, err)
		}
		counts, err := s.repo.Counts(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("reading row counts for %s: %w", table, err)
		}
		dst.Hits = hits
		dst.Misses = misses
		if hits+misses > 0 {
			dst.HitRate = float64(hits) / float64(hits+misses)
		}
		dst.Live = counts.Live
		dst.Expired = counts.Expired
	}
	return out, nil
}
