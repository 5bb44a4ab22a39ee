package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// InsufficientCreditsError reports how far short the balance is so handlers
// can surface required vs available to the user.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// CreditService gates paid operations on balance and records every spend or
// grant as a ledger entry.
type CreditService interface {
	Balance(ctx context.Context, userID string) (int, error)
	// CheckBalance returns *InsufficientCreditsError when the balance cannot
	// cover cost. It writes nothing.
	CheckBalance(ctx context.Context, userID string, cost int) error
	// Reserve debits cost and logs a completed ledger entry in one database
	// transaction. Returns the remaining balance.
	Reserve(ctx context.Context, userID string, cost int, txnType, description string, metadata map[string]any) (int, error)
	// PendingCharge debits cost but logs the entry as pending; used when the
	// paid work happens asynchronously on the workflow engine.
	PendingCharge(ctx context.Context, userID string, cost int, txnType, description string, metadata map[string]any) (int, error)
	// Grant sets an absolute new balance (admin path) and logs the delta.
	Grant(ctx context.Context, userID string, newBalance int, reason string) (int, error)
	RecentTransactions(ctx context.Context, userID string, limit int) ([]model.CreditTransaction, error)
}

type creditService struct {
	repo   repository.CreditRepository
	logger zerolog.Logger
}

// NewCreditService creates a new CreditService.
func NewCreditService(repo repository.CreditRepository, logger zerolog.Logger) CreditService {
	return &creditService{
		repo:   repo,
		logger: logger.With().Str("service", "CreditService").Logger(),
	}
}

func (s *creditService) Balance(ctx context.Context, userID string) (int, error) {
	credits, err := s.repo.GetCredits(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}
	return credits, nil
}

func (s *creditService) CheckBalance(ctx context.Context, userID string, cost int) error {
	credits, err := s.repo.GetCredits(ctx, userID)
	if err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}
	if credits < cost {
		return &InsufficientCreditsError{Required: cost, Available: credits}
	}
	return nil
}

func (s *creditService) Reserve(ctx context.Context, userID string, cost int, txnType, description string, metadata map[string]any) (int, error) {
	return s.debit(ctx, userID, cost, txnType, model.TxnStatusCompleted, description, metadata)
}

func (s *creditService) PendingCharge(ctx context.Context, userID string, cost int, txnType, description string, metadata map[string]any) (int, error) {
	return s.debit(ctx, userID, cost, txnType, model.TxnStatusPending, description, metadata)
}

func (s *creditService) debit(ctx context.Context, userID string, cost int, txnType, status, description string, metadata map[string]any) (int, error) {
	remaining, err := s.repo.Debit(ctx, userID, cost, txnType, status, description, metadata)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			// The repo saw the shortfall under lock; remaining holds the
			// observed balance.
			return 0, &InsufficientCreditsError{Required: cost, Available: remaining}
		}
		return 0, fmt.Errorf("debiting %d credits: %w", cost, err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Int("cost", cost).
		Str("type", txnType).
		Int("remaining", remaining).
		Msg("Credits debited")
	return remaining, nil
}

func (s *creditService) Grant(ctx context.Context, userID string, newBalance int, reason string) (int, error) {
	delta, err := s.repo.SetBalance(ctx, userID, newBalance, reason)
	if err != nil {
		return 0, fmt.Errorf("granting credits: %w", err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Int("new_balance", newBalance).
		Int("delta", delta).
		Msg("Balance adjusted")
	return delta, nil
}

func (s *creditService) RecentTransactions(ctx context.Context, userID string, limit int) ([]model.CreditTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txns, err := s.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}
