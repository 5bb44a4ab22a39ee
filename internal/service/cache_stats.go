package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// statsKeyTTL keeps daily counter keys around long enough for the widest
// stats window anyone queries.
const statsKeyTTL = 90 * 24 * time.Hour

// CacheStatsRecorder tracks cache hit/miss counters. The SEARCH path, not
// the cache itself, calls Record*; the cache layer stays a pure data store.
type CacheStatsRecorder interface {
	RecordHit(ctx context.Context, cache string)
	RecordMiss(ctx context.Context, cache string)
	// Totals sums hits and misses over the last windowDays days (inclusive
	// of today).
	Totals(ctx context.Context, cache string, windowDays int) (hits, misses int64, err error)
}

type redisStatsRecorder struct {
	rdb *redis.Client
}

// NewCacheStatsRecorder creates a Redis-backed CacheStatsRecorder using one
// counter key per cache per day.
func NewCacheStatsRecorder(rdb *redis.Client) CacheStatsRecorder {
	return &redisStatsRecorder{rdb: rdb}
}

func statsKey(cache, kind string, day time.Time) string {
	return fmt.Sprintf("cache:%s:%s:%s", cache, kind, day.UTC().Format("2006-01-02"))
}

func (r *redisStatsRecorder) record(ctx context.Context, cache, kind string) {
	key := statsKey(cache, kind, time.Now())
	pipe := r.rdb.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, statsKeyTTL)
	// Counter loss is acceptable; never fail a search over stats.
	_, _ = pipe.Exec(ctx)
}

func (r *redisStatsRecorder) RecordHit(ctx context.Context, cache string) {
	r.record(ctx, cache, "hit")
}

func (r *redisStatsRecorder) RecordMiss(ctx context.Context, cache string) {
	r.record(ctx, cache, "miss")
}

func (r *redisStatsRecorder) Totals(ctx context.Context, cache string, windowDays int) (int64, int64, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	now := time.Now()
	hitKeys := make([]string, 0, windowDays)
	missKeys := make([]string, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := now.AddDate(0, 0, -i)
		hitKeys = append(hitKeys, statsKey(cache, "hit", day))
		missKeys = append(missKeys, statsKey(cache, "miss", day))
	}

	hits, err := r.sum(ctx, hitKeys)
	if err != nil {
		return 0, 0, fmt.Errorf("summing hit counters for %s: %w", cache, err)
	}
	misses, err := r.sum(ctx, missKeys)
	if err != nil {
		return 0, 0, fmt.Errorf("summing miss counters for %s: %w", cache, err)
	}
	return hits, misses, nil
}

func (r *redisStatsRecorder) sum(ctx context.Context, keys []string) (int64, error) {
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		total += n
	}
	return total, nil
}
