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

// ErrInsufficientCredits is returned when a debit would take the balance
// below zero. The debit is rejected outright, never clamped.
var ErrInsufficientCredits = errors.New("insufficient_credits")

// CreditRepository is the append-only ledger plus the materialized balance
// column on users. Every balance mutation happens in the same transaction as
// its ledger insert.
type CreditRepository interface {
	// GetCredits returns the user's current balance.
	GetCredits(ctx context.Context, userID string) (int, error)
	// Debit atomically checks the balance, decrements it by cost, and logs a
	// ledger entry. Returns the remaining balance, or ErrInsufficientCredits
	// when the balance is short (in which case nothing is written).
	Debit(ctx context.Context, userID string, cost int, txnType, status, description string, metadata map[string]any) (int, error)
	// SetBalance sets an absolute new balance and logs an admin_adjustment
	// entry whose amount is the computed delta. Returns the delta.
	SetBalance(ctx context.Context, userID string, newBalance int, reason string) (int, error)
	// ListTransactions returns the most recent ledger entries for a user.
	ListTransactions(ctx context.Context, userID string, limit int) ([]model.CreditTransaction, error)
}

type creditRepo struct {
	pool *pgxpool.Pool
}

// NewCreditRepo creates a new CreditRepository.
func NewCreditRepo(pool *pgxpool.Pool) CreditRepository {
	return &creditRepo{pool: pool}
}

func (r *creditRepo) GetCredits(ctx context.Context, userID string) (int, error) {
	var credits int
	err := r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE user_id = $1`, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("fetch credits for user %s: %w", userID, err)
	}
	return credits, nil
}

func (r *creditRepo) Debit(ctx context.Context, userID string, cost int, txnType, status, description string, metadata map[string]any) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("starting transaction for debit: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var credits int
	err = tx.QueryRow(ctx, `SELECT credits FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("locking balance for user %s: %w", userID, err)
	}
	if credits < cost {
		return credits, ErrInsufficientCredits
	}

	remaining := credits - cost
	if _, err := tx.Exec(ctx, `UPDATE users SET credits = $2, updated_at = NOW() WHERE user_id = $1`, userID, remaining); err != nil {
		return 0, fmt.Errorf("decrementing balance for user %s: %w", userID, err)
	}

	metaJSON, err := marshalMetadata(metadata)
	if err != nil {
		return 0, err
	}
	const insertQ = `
        INSERT INTO credit_transactions (user_id, amount, type, status, description, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	if _, err := tx.Exec(ctx, insertQ, userID, -cost, txnType, status, description, metaJSON); err != nil {
		return 0, fmt.Errorf("recording ledger entry for user %s: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing debit for user %s: %w", userID, err)
	}
	return remaining, nil
}

func (r *creditRepo) SetBalance(ctx context.Context, userID string, newBalance int, reason string) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("starting transaction for balance set: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var credits int
	err = tx.QueryRow(ctx, `SELECT credits FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("locking balance for user %s: %w", userID, err)
	}

	delta := newBalance - credits
	if _, err := tx.Exec(ctx, `UPDATE users SET credits = $2, updated_at = NOW() WHERE user_id = $1`, userID, newBalance); err != nil {
		return 0, fmt.Errorf("setting balance for user %s: %w", userID, err)
	}

	const insertQ = `
        INSERT INTO credit_transactions (user_id, amount, type, status, description)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err := tx.Exec(ctx, insertQ, userID, delta, model.TxnTypeAdminAdjustment, model.TxnStatusCompleted, reason); err != nil {
		return 0, fmt.Errorf("recording adjustment for user %s: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing adjustment for user %s: %w", userID, err)
	}
	return delta, nil
}

func (r *creditRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]model.CreditTransaction, error) {
	const q = `
        SELECT id, user_id, amount, type, status, description, metadata, created_at
        FROM credit_transactions
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var txns []model.CreditTransaction
	for rows.Next() {
		var t model.CreditTransaction
		var rawMeta []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.Description, &rawMeta, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction for user %s: %w", userID, err)
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &t.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for transaction %d: %w", t.ID, err)
			}
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions for user %s: %w", userID, err)
	}
	return txns, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger metadata: %w", err)
	}
	return b, nil
}
