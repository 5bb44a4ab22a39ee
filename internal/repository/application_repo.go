package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateApplication is returned when a user already tracks the job.
	// Enforced by the (user_id, job_id) unique index, not an application-level
	// read-then-write check.
	ErrDuplicateApplication = errors.New("duplicate_application")
	// ErrApplicationNotFound is returned when no matching row exists for the
	// user.
	ErrApplicationNotFound = errors.New("application_not_found")
)

// ApplicationRepository stores tracked job applications.
type ApplicationRepository interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id int64, userID string) (*model.Application, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Application, error)
	// Update persists stage, notes and date fields of an already-loaded row.
	Update(ctx context.Context, a *model.Application) error
	Delete(ctx context.Context, id int64, userID string) error
}

type applicationRepo struct {
	pool *pgxpool.Pool
}

// NewApplicationRepo creates a new ApplicationRepository.
func NewApplicationRepo(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepo{pool: pool}
}

const applicationColumns = `id, user_id, job_id, title, company, location, stage, notes, applied_at, interview_at, offer_at, resolved_at, created_at, updated_at`

func (r *applicationRepo) Create(ctx context.Context, a *model.Application) error {
	notesJSON, err := marshalNotes(a.Notes)
	if err != nil {
		return err
	}
	const q = `
        INSERT INTO applications (user_id, job_id, title, company, location, stage, notes, applied_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (user_id, job_id) DO NOTHING
        RETURNING id, created_at, updated_at
    `
	err = r.pool.QueryRow(ctx, q,
		a.UserID, a.JobID, a.Title, a.Company, a.Location, a.Stage, notesJSON, a.AppliedAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returns no row when the insert was skipped.
			return ErrDuplicateApplication
		}
		return fmt.Errorf("creating application for user %s job %s: %w", a.UserID, a.JobID, err)
	}
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64, userID string) (*model.Application, error) {
	q := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 AND user_id = $2`
	a, err := r.scanApplication(r.pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("fetch application %d: %w", id, err)
	}
	return a, nil
}

func (r *applicationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Application, error) {
	q := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing applications for user %s: %w", userID, err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		a, err := r.scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning application for user %s: %w", userID, err)
		}
		apps = append(apps, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applications for user %s: %w", userID, err)
	}
	return apps, nil
}

func (r *applicationRepo) Update(ctx context.Context, a *model.Application) error {
	notesJSON, err := marshalNotes(a.Notes)
	if err != nil {
		return err
	}
	const q = `
        UPDATE applications
        SET stage        = $3,
            notes        = $4,
            applied_at   = $5,
            interview_at = $6,
            offer_at     = $7,
            resolved_at  = $8,
            updated_at   = NOW()
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.pool.Exec(ctx, q, a.ID, a.UserID, a.Stage, notesJSON,
		a.AppliedAt, a.InterviewAt, a.OfferAt, a.ResolvedAt)
	if err != nil {
		return fmt.Errorf("updating application %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func (r *applicationRepo) Delete(ctx context.Context, id int64, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting application %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *applicationRepo) scanApplication(row rowScanner) (*model.Application, error) {
	var a model.Application
	var rawNotes []byte
	if err := row.Scan(
		&a.ID, &a.UserID, &a.JobID, &a.Title, &a.Company, &a.Location, &a.Stage,
		&rawNotes, &a.AppliedAt, &a.InterviewAt, &a.OfferAt, &a.ResolvedAt,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(rawNotes) > 0 {
		if err := json.Unmarshal(rawNotes, &a.Notes); err != nil {
			return nil, fmt.Errorf("unmarshal notes for application %d: %w", a.ID, err)
		}
	}
	return &a, nil
}

func marshalNotes(notes []model.Note) ([]byte, error) {
	if notes == nil {
		notes = []model.Note{}
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("marshal application notes: %w", err)
	}
	return b, nil
}
