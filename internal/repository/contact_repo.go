package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrContactNotFound is returned when no contact row exists for the user.
var ErrContactNotFound = errors.New("contact_not_found")

// ContactRepository stores discovered contacts, de-duplicated per user by
// email. Upserts are idempotent: replaying the same payload leaves exactly
// one row per (user_id, email).
type ContactRepository interface {
	UpsertContact(ctx context.Context, c *model.Contact) error
	UpsertContacts(ctx context.Context, contacts []model.Contact) error
	GetByID(ctx context.Context, id int64, userID string) (*model.Contact, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Contact, error)
	ListByUserAndDomain(ctx context.Context, userID, domain string) ([]model.Contact, error)
}

type contactRepo struct {
	pool *pgxpool.Pool
}

// NewContactRepo creates a new ContactRepository.
func NewContactRepo(pool *pgxpool.Pool) ContactRepository {
	return &contactRepo{pool: pool}
}

const upsertContactQ = `
    INSERT INTO contacts (user_id, email, first_name, last_name, position, company, domain, relevance_score, verified, reasoning)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT (user_id, email) DO UPDATE
    SET first_name      = EXCLUDED.first_name,
        last_name       = EXCLUDED.last_name,
        position        = EXCLUDED.position,
        company         = EXCLUDED.company,
        domain          = EXCLUDED.domain,
        relevance_score = EXCLUDED.relevance_score,
        verified        = EXCLUDED.verified,
        reasoning       = EXCLUDED.reasoning,
        updated_at      = NOW()
    RETURNING id, created_at, updated_at
`

func (r *contactRepo) UpsertContact(ctx context.Context, c *model.Contact) error {
	err := r.pool.QueryRow(ctx, upsertContactQ,
		c.UserID, c.Email, c.FirstName, c.LastName, c.Position,
		c.Company, c.Domain, c.RelevanceScore, c.Verified, c.Reasoning,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting contact %s for user %s: %w", c.Email, c.UserID, err)
	}
	return nil
}

func (r *contactRepo) UpsertContacts(ctx context.Context, contacts []model.Contact) error {
	for i := range contacts {
		if err := r.UpsertContact(ctx, &contacts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *contactRepo) GetByID(ctx context.Context, id int64, userID string) (*model.Contact, error) {
	const q = `
        SELECT id, user_id, email, first_name, last_name, position, company, domain, relevance_score, verified, reasoning, created_at, updated_at
        FROM contacts
        WHERE id = $1 AND user_id = $2
    `
	var c model.Contact
	err := r.pool.QueryRow(ctx, q, id, userID).Scan(
		&c.ID, &c.UserID, &c.Email, &c.FirstName, &c.LastName, &c.Position,
		&c.Company, &c.Domain, &c.RelevanceScore, &c.Verified, &c.Reasoning,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("fetch contact %d: %w", id, err)
	}
	return &c, nil
}

func (r *contactRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Contact, error) {
	const q = `
        SELECT id, user_id, email, first_name, last_name, position, company, domain, relevance_score, verified, reasoning, created_at, updated_at
        FROM contacts
        WHERE user_id = $1
        ORDER BY relevance_score DESC, created_at DESC
        LIMIT $2 OFFSET $3
    `
	return r.queryContacts(ctx, q, userID, limit, offset)
}

func (r *contactRepo) ListByUserAndDomain(ctx context.Context, userID, domain string) ([]model.Contact, error) {
	const q = `
        SELECT id, user_id, email, first_name, last_name, position, company, domain, relevance_score, verified, reasoning, created_at, updated_at
        FROM contacts
        WHERE user_id = $1 AND domain = $2
        ORDER BY relevance_score DESC
    `
	return r.queryContacts(ctx, q, userID, domain)
}

func (r *contactRepo) queryContacts(ctx context.Context, q string, args ...any) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Email, &c.FirstName, &c.LastName, &c.Position,
			&c.Company, &c.Domain, &c.RelevanceScore, &c.Verified, &c.Reasoning,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contacts: %w", err)
	}
	return contacts, nil
}
