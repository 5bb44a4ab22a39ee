package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCacheMiss is returned when no live (non-expired) row exists for a
// domain. Expired rows are never served, even if still present.
var ErrCacheMiss = errors.New("cache_miss")

// CacheCounts describes a cache table's row population.
type CacheCounts struct {
	Live    int `json:"live"`
	Expired int `json:"expired"`
}

// CacheRepository backs the lookup cache tables. The domain column is the
// primary key, so "at most one live row per domain" holds under concurrent
// writers by construction.
type CacheRepository interface {
	Get(ctx context.Context, table, domain string) (*model.CacheEntry, error)
	Put(ctx context.Context, table, domain string, payload []byte, ttl time.Duration) error
	// Invalidate deletes the domain's row regardless of expiry and reports
	// whether a row was removed.
	Invalidate(ctx context.Context, table, domain string) (bool, error)
	// DeleteExpired removes rows whose expiry is strictly in the past and
	// returns the count removed.
	DeleteExpired(ctx context.Context, table string) (int, error)
	Counts(ctx context.Context, table string) (CacheCounts, error)
}

type cacheRepo struct {
	pool *pgxpool.Pool
}

// NewCacheRepo creates a new CacheRepository.
func NewCacheRepo(pool *pgxpool.Pool) CacheRepository {
	return &cacheRepo{pool: pool}
}

// tableName guards against anything but the two known cache tables reaching
// the interpolated queries below.
func tableName(table string) (string, error) {
	switch table {
	case model.CacheTableCompany, model.CacheTableContact:
		return table, nil
	}
	return "", fmt.Errorf("unknown cache table %q", table)
}

func (r *cacheRepo) Get(ctx context.Context, table, domain string) (*model.CacheEntry, error) {
	t, err := tableName(table)
	if err != nil {
		return nil, err
	}
	q := `SELECT domain, payload, expires_at, created_at FROM ` + t + ` WHERE domain = $1 AND expires_at > NOW()`
	var e model.CacheEntry
	err = r.pool.QueryRow(ctx, q, domain).Scan(&e.Domain, &e.Payload, &e.ExpiresAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get %s/%s: %w", table, domain, err)
	}
	return &e, nil
}

func (r *cacheRepo) Put(ctx context.Context, table, domain string, payload []byte, ttl time.Duration) error {
	t, err := tableName(table)
	if err != nil {
		return err
	}
	q := `
        INSERT INTO ` + t + ` (domain, payload, expires_at)
        VALUES ($1, $2, NOW() + $3)
        ON CONFLICT (domain) DO UPDATE
        SET payload    = EXCLUDED.payload,
            expires_at = EXCLUDED.expires_at,
            created_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, domain, payload, ttl); err != nil {
		return fmt.Errorf("cache put %s/%s: %w", table, domain, err)
	}
	return nil
}

func (r *cacheRepo) Invalidate(ctx context.Context, table, domain string) (bool, error) {
	t, err := tableName(table)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+t+` WHERE domain = $1`, domain)
	if err != nil {
		return false, fmt.Errorf("cache invalidate %s/%s: %w", table, domain, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *cacheRepo) DeleteExpired(ctx context.Context, table string) (int, error) {
	t, err := tableName(table)
	if err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+t+` WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cache cleanup %s: %w", table, err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *cacheRepo) Counts(ctx context.Context, table string) (CacheCounts, error) {
	t, err := tableName(table)
	if err != nil {
		return CacheCounts{}, err
	}
	q := `
        SELECT
            COUNT(*) FILTER (WHERE expires_at > NOW()),
            COUNT(*) FILTER (WHERE expires_at <= NOW())
        FROM ` + t
	var c CacheCounts
	if err := r.pool.QueryRow(ctx, q).Scan(&c.Live, &c.Expired); err != nil {
		return CacheCounts{}, fmt.Errorf("cache counts %s: %w", table, err)
	}
	return c, nil
}
