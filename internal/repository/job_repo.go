package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrJobNotFound is returned when no listing exists for the given id.
var ErrJobNotFound = errors.New("job_not_found")

// JobRepository reads synced job-board listings. The board sync writes rows
// via UpsertJob; listings never change after archival.
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, includeArchived bool, limit, offset int) ([]model.Job, error)
	UpsertJob(ctx context.Context, j *model.Job) error
}

type jobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo creates a new JobRepository.
func NewJobRepo(pool *pgxpool.Pool) JobRepository {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, title, company, location, salary_min, salary_max, url, description, archived, created_at`

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	var j model.Job
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.SalaryMin, &j.SalaryMax,
		&j.URL, &j.Description, &j.Archived, &j.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("fetch job %s: %w", id, err)
	}
	return &j, nil
}

func (r *jobRepo) List(ctx context.Context, includeArchived bool, limit, offset int) ([]model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs`
	if !includeArchived {
		q += ` WHERE archived = FALSE`
	}
	q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(
			&j.ID, &j.Title, &j.Company, &j.Location, &j.SalaryMin, &j.SalaryMax,
			&j.URL, &j.Description, &j.Archived, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

// UpsertJob inserts or refreshes a listing. Archived listings are immutable:
// the update is skipped when the stored row is already archived.
func (r *jobRepo) UpsertJob(ctx context.Context, j *model.Job) error {
	const q = `
        INSERT INTO jobs (id, title, company, location, salary_min, salary_max, url, description, archived)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE
        SET title       = EXCLUDED.title,
            company     = EXCLUDED.company,
            location    = EXCLUDED.location,
            salary_min  = EXCLUDED.salary_min,
            salary_max  = EXCLUDED.salary_max,
            url         = EXCLUDED.url,
            description = EXCLUDED.description,
            archived    = EXCLUDED.archived
        WHERE jobs.archived = FALSE
    `
	_, err := r.pool.Exec(ctx, q, j.ID, j.Title, j.Company, j.Location,
		j.SalaryMin, j.SalaryMax, j.URL, j.Description, j.Archived)
	if err != nil {
		return fmt.Errorf("upserting job %s: %w", j.ID, err)
	}
	return nil
}
