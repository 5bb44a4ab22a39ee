package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ErrNoContactsFound is returned when the provider or the ranking step
// leaves nothing to show. Nothing is charged in that case.
var ErrNoContactsFound = errors.New("no_contacts_found")

// SearchResult is the outcome of a contact search, including what it cost.
type SearchResult struct {
	Contacts         []model.Contact `json:"contacts"`
	Cached           bool            `json:"cached"`
	CreditsDeducted  int             `json:"creditsDeducted"`
	RemainingCredits int             `json:"remainingCredits"`
	Company          *CompanyProfile `json:"company,omitempty"`
}

// WebhookContact is one row of a workflow-engine contact push.
type WebhookContact struct {
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Position       string `json:"position"`
	Company        string `json:"company"`
	Domain         string `json:"domain"`
	RelevanceScore int    `json:"relevance_score"`
	Verified       bool   `json:"verified"`
	Reasoning      string `json:"reasoning"`
}

// ContactServiceConfig carries the costs and freshness windows of the
// discovery flows.
type ContactServiceConfig struct {
	SearchCost int
	FinderCost int
	CompanyTTL time.Duration
	ContactTTL time.Duration
}

// ContactService runs contact discovery: cache-first search with credit
// gating, the asynchronous finder trigger, and webhook ingestion.
type ContactService interface {
	Search(ctx context.Context, userID, domain, companyName, jobID string) (*SearchResult, error)
	TriggerFinder(ctx context.Context, userID string, applicationID int64) (remainingCredits int, err error)
	IngestWebhook(ctx context.Context, userID string, contacts []WebhookContact) (int, error)
	ListContacts(ctx context.Context, userID string, limit, offset int) ([]model.Contact, error)
	ListContactsByDomain(ctx context.Context, userID, domain string) ([]model.Contact, error)
}

type contactService struct {
	contactRepo repository.ContactRepository
	appRepo     repository.ApplicationRepository
	jobRepo     repository.JobRepository
	userRepo    repository.UserRepository
	credits     CreditService
	cache       CacheService
	stats       CacheStatsRecorder
	reasoning   ReasoningService
	searcher    ContactSearcher
	workflow    WorkflowClient
	cfg         ContactServiceConfig
	logger      zerolog.Logger
}

// NewContactService creates a new ContactService.
func NewContactService(
	contactRepo repository.ContactRepository,
	appRepo repository.ApplicationRepository,
	jobRepo repository.JobRepository,
	userRepo repository.UserRepository,
	credits CreditService,
	cache CacheService,
	stats CacheStatsRecorder,
	reasoning ReasoningService,
	searcher ContactSearcher,
	workflow WorkflowClient,
	cfg ContactServiceConfig,
	logger zerolog.Logger,
) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		appRepo:     appRepo,
		jobRepo:     jobRepo,
		userRepo:    userRepo,
		credits:     credits,
		cache:       cache,
		stats:       stats,
		reasoning:   reasoning,
		searcher:    searcher,
		workflow:    workflow,
		cfg:         cfg,
		logger:      logger.With().Str("service", "ContactService").Logger(),
	}
}

// Search implements the credit-gated, cache-first discovery flow. Order
// matters for cost safety: the cache is consulted before the balance, the
// balance before any model call, and credits are reserved only after the
// paid search has produced results.
func (s *contactService) Search(ctx context.Context, userID, domain, companyName, jobID string) (*SearchResult, error) {
	// 1. Cache hit ends the flow free of charge.
	if payload, err := s.cache.Get(ctx, model.CacheTableContact, domain); err == nil {
		s.stats.RecordHit(ctx, model.CacheTableContact)
		return s.serveFromCache(ctx, userID, domain, payload)
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		return nil, fmt.Errorf("contact cache lookup: %w", err)
	}
	s.stats.RecordMiss(ctx, model.CacheTableContact)

	// 2. Gate on balance before anything costs money.
	if err := s.credits.CheckBalance(ctx, userID, s.cfg.SearchCost); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// 3. Classify. A parse failure aborts before research, ranking, or the
	// paid provider call.
	strategy, err := s.reasoning.Classify(ctx, job.Title, job.Description, companyName)
	if err != nil {
		return nil, err
	}
	if domain == "" {
		domain = strategy.Domain
	}

	// 4. Research, memoized per domain across all users.
	profile, err := s.researchCompany(ctx, companyName, domain)
	if err != nil {
		return nil, err
	}

	// 5. Paid provider call, then ranking.
	candidates, err := s.searcher.DomainSearch(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("contact provider search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoContactsFound
	}

	ranked, err := s.reasoning.Rank(ctx, strategy, candidates)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrNoContactsFound
	}

	// 6. Reserve credits in one transaction. A concurrent spender can still
	// drain the balance between the gate and here; the reservation rejects
	// rather than clamping, so the worst case is a wasted provider call.
	remaining, err := s.credits.Reserve(ctx, userID, s.cfg.SearchCost, model.TxnTypeContactSearch,
		"contact search for "+domain, map[string]any{"domain": domain, "job_id": jobID})
	if err != nil {
		return nil, err
	}

	contacts := s.toContacts(userID, domain, ranked)
	if err := s.contactRepo.UpsertContacts(ctx, contacts); err != nil {
		return nil, fmt.Errorf("storing contacts: %w", err)
	}

	if payload, err := json.Marshal(ranked); err == nil {
		if err := s.cache.Put(ctx, model.CacheTableContact, domain, payload, s.cfg.ContactTTL); err != nil {
			// A cache write failure costs the next caller a credit, nothing
			// more; the search itself succeeded.
			s.logger.Error().Err(err).Str("domain", domain).Msg("Failed to store contact cache entry")
		}
	}

	return &SearchResult{
		Contacts:         contacts,
		Cached:           false,
		CreditsDeducted:  s.cfg.SearchCost,
		RemainingCredits: remaining,
		Company:          profile,
	}, nil
}

func (s *contactService) serveFromCache(ctx context.Context, userID, domain string, payload []byte) (*SearchResult, error) {
	var ranked []RankedContact
	if err := json.Unmarshal(payload, &ranked); err != nil {
		return nil, fmt.Errorf("decoding cached contacts for %s: %w", domain, err)
	}

	contacts := s.toContacts(userID, domain, ranked)
	if err := s.contactRepo.UpsertContacts(ctx, contacts); err != nil {
		return nil, fmt.Errorf("storing cached contacts: %w", err)
	}

	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Contacts:         contacts,
		Cached:           true,
		CreditsDeducted:  0,
		RemainingCredits: balance,
	}, nil
}

func (s *contactService) researchCompany(ctx context.Context, companyName, domain string) (*CompanyProfile, error) {
	if payload, err := s.cache.Get(ctx, model.CacheTableCompany, domain); err == nil {
		s.stats.RecordHit(ctx, model.CacheTableCompany)
		var profile CompanyProfile
		if err := json.Unmarshal(payload, &profile); err == nil {
			return &profile, nil
		}
		// Corrupt entry: fall through and refresh it.
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		return nil, fmt.Errorf("company cache lookup: %w", err)
	}
	s.stats.RecordMiss(ctx, model.CacheTableCompany)

	profile, err := s.reasoning.Research(ctx, companyName, domain)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(profile); err == nil {
		if err := s.cache.Put(ctx, model.CacheTableCompany, domain, payload, s.cfg.CompanyTTL); err != nil {
			s.logger.Error().Err(err).Str("domain", domain).Msg("Failed to store company cache entry")
		}
	}
	return profile, nil
}

func (s *contactService) toContacts(userID, domain string, ranked []RankedContact) []model.Contact {
	contacts := make([]model.Contact, 0, len(ranked))
	for _, rc := range ranked {
		contacts = append(contacts, model.Contact{
			UserID:         userID,
			Email:          rc.Email,
			FirstName:      rc.FirstName,
			LastName:       rc.LastName,
			Position:       rc.Position,
			Company:        rc.Company,
			Domain:         domain,
			RelevanceScore: rc.RelevanceScore,
			Verified:       rc.Verified,
			Reasoning:      rc.Reasoning,
		})
	}
	return contacts
}

// TriggerFinder starts the asynchronous contact-finder flow on the workflow
// engine and charges for it with a pending ledger entry. Results arrive
// later on the contacts webhook.
func (s *contactService) TriggerFinder(ctx context.Context, userID string, applicationID int64) (int, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID, userID)
	if err != nil {
		return 0, err
	}

	if err := s.credits.CheckBalance(ctx, userID, s.cfg.FinderCost); err != nil {
		return 0, err
	}

	if err := s.workflow.TriggerContactFinder(ctx, FinderRequest{
		UserID:   userID,
		JobTitle: app.Title,
		Company:  app.Company,
	}); err != nil {
		return 0, fmt.Errorf("triggering contact finder: %w", err)
	}

	remaining, err := s.credits.PendingCharge(ctx, userID, s.cfg.FinderCost, model.TxnTypeContactFinder,
		"contact finder for "+app.Company, map[string]any{"application_id": applicationID})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// IngestWebhook upserts contacts pushed by the workflow engine. Replays are
// idempotent per (user_id, email). Returns the number of rows written.
func (s *contactService) IngestWebhook(ctx context.Context, userID string, incoming []WebhookContact) (int, error) {
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return 0, err
	}

	contacts := make([]model.Contact, 0, len(incoming))
	for _, wc := range incoming {
		contacts = append(contacts, model.Contact{
			UserID:         userID,
			Email:          wc.Email,
			FirstName:      wc.FirstName,
			LastName:       wc.LastName,
			Position:       wc.Position,
			Company:        wc.Company,
			Domain:         wc.Domain,
			RelevanceScore: wc.RelevanceScore,
			Verified:       wc.Verified,
			Reasoning:      wc.Reasoning,
		})
	}
	if err := s.contactRepo.UpsertContacts(ctx, contacts); err != nil {
		return 0, fmt.Errorf("ingesting webhook contacts: %w", err)
	}
	return len(contacts), nil
}

func (s *contactService) ListContacts(ctx context.Context, userID string, limit, offset int) ([]model.Contact, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.contactRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *contactService) ListContactsByDomain(ctx context.Context, userID, domain string) ([]model.Contact, error) {
	return s.contactRepo.ListByUserAndDomain(ctx, userID, domain)
}
