package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// CreditsSummary pairs a balance with its most recent ledger entries.
type CreditsSummary struct {
	Credits      int                       `json:"credits"`
	Transactions []model.CreditTransaction `json:"transactions"`
}

// UserService provisions and reads user accounts. Account lifecycle is
// driven by the identity provider's webhooks, not by user action.
type UserService interface {
	// Provision creates the account on the user.created webhook with the
	// starter credit grant. Replays are no-ops.
	Provision(ctx context.Context, userID, email, name string) error
	// Remove deletes the account and everything it owns on user.deleted.
	// Replays are no-ops, same as Provision.
	Remove(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*model.User, error)
	Credits(ctx context.Context, userID string) (*CreditsSummary, error)
}

type userService struct {
	userRepo       repository.UserRepository
	credits        CreditService
	starterCredits int
	logger         zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, credits CreditService, starterCredits int, logger zerolog.Logger) UserService {
	return &userService{
		userRepo:       userRepo,
		credits:        credits,
		starterCredits: starterCredits,
		logger:         logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Provision(ctx context.Context, userID, email, name string) error {
	u := &model.User{
		UserID:  userID,
		Email:   email,
		Name:    name,
		Credits: s.starterCredits,
		Plan:    model.PlanFree,
	}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("provisioning user: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Int("starter_credits", s.starterCredits).Msg("User provisioned")
	return nil
}

func (s *userService) Remove(ctx context.Context, userID string) error {
	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Already gone: a replayed webhook is acknowledged, not failed.
			return nil
		}
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("User removed")
	return nil
}

func (s *userService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *userService) Credits(ctx context.Context, userID string) (*CreditsSummary, error) {
	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.credits.RecentTransactions(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	return &CreditsSummary{Credits: balance, Transactions: txns}, nil
}
