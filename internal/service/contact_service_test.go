package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/model"
	"app/internal/repository"
)

type fakeContactRepo struct {
	upserted []model.Contact
	byID     map[int64]*model.Contact
}

func (f *fakeContactRepo) UpsertContact(_ context.Context, c *model.Contact) error {
	f.upserted = append(f.upserted, *c)
	return nil
}

func (f *fakeContactRepo) UpsertContacts(_ context.Context, contacts []model.Contact) error {
	f.upserted = append(f.upserted, contacts...)
	return nil
}

func (f *fakeContactRepo) GetByID(_ context.Context, id int64, _ string) (*model.Contact, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, repository.ErrContactNotFound
}

func (f *fakeContactRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]model.Contact, error) {
	var out []model.Contact
	for _, c := range f.upserted {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) ListByUserAndDomain(_ context.Context, userID, domain string) ([]model.Contact, error) {
	var out []model.Contact
	for _, c := range f.upserted {
		if c.UserID == userID && c.Domain == domain {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAppRepo struct {
	apps map[int64]*model.Application
}

func (f *fakeAppRepo) Create(_ context.Context, _ *model.Application) error { return nil }
func (f *fakeAppRepo) GetByID(_ context.Context, id int64, _ string) (*model.Application, error) {
	if a, ok := f.apps[id]; ok {
		return a, nil
	}
	return nil, repository.ErrApplicationNotFound
}
func (f *fakeAppRepo) ListByUser(_ context.Context, _ string, _, _ int) ([]model.Application, error) {
	return nil, nil
}
func (f *fakeAppRepo) Update(_ context.Context, _ *model.Application) error { return nil }
func (f *fakeAppRepo) Delete(_ context.Context, _ int64, _ string) error    { return nil }

type fakeJobRepo struct {
	jobs map[string]*model.Job
}

func (f *fakeJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, repository.ErrJobNotFound
}
func (f *fakeJobRepo) List(_ context.Context, _ bool, _, _ int) ([]model.Job, error) {
	return nil, nil
}
func (f *fakeJobRepo) UpsertJob(_ context.Context, _ *model.Job) error { return nil }

type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.UserID]; !ok {
		f.users[u.UserID] = u
	}
	return nil
}
func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}
func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

// fakeCredits implements CreditService with call counting so tests can assert
// on when (and how often) the flow charges.
type fakeCredits struct {
	balance      int
	reserveCalls int
	pendingCalls int
}

func (f *fakeCredits) Balance(_ context.Context, _ string) (int, error) { return f.balance, nil }

func (f *fakeCredits) CheckBalance(_ context.Context, _ string, cost int) error {
	if f.balance < cost {
		return &InsufficientCreditsError{Required: cost, Available: f.balance}
	}
	return nil
}

func (f *fakeCredits) Reserve(_ context.Context, _ string, cost int, _, _ string, _ map[string]any) (int, error) {
	f.reserveCalls++
	if f.balance < cost {
		return 0, &InsufficientCreditsError{Required: cost, Available: f.balance}
	}
	f.balance -= cost
	return f.balance, nil
}

func (f *fakeCredits) PendingCharge(_ context.Context, _ string, cost int, _, _ string, _ map[string]any) (int, error) {
	f.pendingCalls++
	if f.balance < cost {
		return 0, &InsufficientCreditsError{Required: cost, Available: f.balance}
	}
	f.balance -= cost
	return f.balance, nil
}

func (f *fakeCredits) Grant(_ context.Context, _ string, newBalance int, _ string) (int, error) {
	delta := newBalance - f.balance
	f.balance = newBalance
	return delta, nil
}

func (f *fakeCredits) RecentTransactions(_ context.Context, _ string, _ int) ([]model.CreditTransaction, error) {
	return nil, nil
}

type fakeCache struct {
	entries map[string][]byte
	puts    []string
}

func cacheKey(table, domain string) string { return table + "/" + domain }

func (f *fakeCache) Get(_ context.Context, table, domain string) ([]byte, error) {
	if payload, ok := f.entries[cacheKey(table, domain)]; ok {
		return payload, nil
	}
	return nil, repository.ErrCacheMiss
}

func (f *fakeCache) Put(_ context.Context, table, domain string, payload []byte, _ time.Duration) error {
	if f.entries == nil {
		f.entries = map[string][]byte{}
	}
	f.entries[cacheKey(table, domain)] = payload
	f.puts = append(f.puts, cacheKey(table, domain))
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, domain string) error {
	delete(f.entries, cacheKey(model.CacheTableCompany, domain))
	delete(f.entries, cacheKey(model.CacheTableContact, domain))
	return nil
}

func (f *fakeCache) CleanupExpired(_ context.Context) (CleanupResult, error) {
	return CleanupResult{}, nil
}

func (f *fakeCache) Stats(_ context.Context, _ int) (*CacheStats, error) { return nil, nil }

type fakeStatsRecorder struct {
	hits   map[string]int
	misses map[string]int
}

func newFakeStats() *fakeStatsRecorder {
	return &fakeStatsRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (f *fakeStatsRecorder) RecordHit(_ context.Context, cache string)  { f.hits[cache]++ }
func (f *fakeStatsRecorder) RecordMiss(_ context.Context, cache string) { f.misses[cache]++ }
func (f *fakeStatsRecorder) Totals(_ context.Context, cache string, _ int) (int64, int64, error) {
	return int64(f.hits[cache]), int64(f.misses[cache]), nil
}

type fakeReasoning struct {
	strategy      *SearchStrategy
	classifyErr   error
	classifyCalls int
	profile       *CompanyProfile
	ranked        []RankedContact
}

func (f *fakeReasoning) Classify(_ context.Context, _, _, _ string) (*SearchStrategy, error) {
	f.classifyCalls++
	if f.classifyErr != nil {
		return nil, f.classifyErr
	}
	return f.strategy, nil
}

func (f *fakeReasoning) Research(_ context.Context, companyName, domain string) (*CompanyProfile, error) {
	if f.profile != nil {
		return f.profile, nil
	}
	return &CompanyProfile{Name: companyName, Domain: domain}, nil
}

func (f *fakeReasoning) Rank(_ context.Context, _ *SearchStrategy, _ []CandidateContact) ([]RankedContact, error) {
	return f.ranked, nil
}

type fakeSearcher struct {
	candidates []CandidateContact
	calls      int
}

func (f *fakeSearcher) DomainSearch(_ context.Context, _ string) ([]CandidateContact, error) {
	f.calls++
	return f.candidates, nil
}

type fakeWorkflow struct {
	calls []FinderRequest
	err   error
}

func (f *fakeWorkflow) TriggerContactFinder(_ context.Context, req FinderRequest) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, req)
	return nil
}

type searchFixture struct {
	contacts  *fakeContactRepo
	apps      *fakeAppRepo
	jobs      *fakeJobRepo
	users     *fakeUserRepo
	credits   *fakeCredits
	cache     *fakeCache
	stats     *fakeStatsRecorder
	reasoning *fakeReasoning
	searcher  *fakeSearcher
	workflow  *fakeWorkflow
	svc       ContactService
}

func newSearchFixture(balance int) *searchFixture {
	f := &searchFixture{
		contacts: &fakeContactRepo{},
		apps: &fakeAppRepo{apps: map[int64]*model.Application{
			7: {ID: 7, UserID: "u1", Title: "Backend Engineer", Company: "Acme"},
		}},
		jobs: &fakeJobRepo{jobs: map[string]*model.Job{
			"job-1": {ID: "job-1", Title: "Backend Engineer", Company: "Acme", Description: "Build APIs"},
		}},
		users:   &fakeUserRepo{users: map[string]*model.User{"u1": {UserID: "u1"}}},
		credits: &fakeCredits{balance: balance},
		cache:   &fakeCache{},
		stats:   newFakeStats(),
		reasoning: &fakeReasoning{
			strategy: &SearchStrategy{TargetTitles: []string{"EM"}, Domain: "acme.com"},
			ranked: []RankedContact{
				{CandidateContact: CandidateContact{Email: "a@acme.com", Position: "CTO"}, RelevanceScore: 95},
				{CandidateContact: CandidateContact{Email: "b@acme.com", Position: "EM"}, RelevanceScore: 80},
			},
		},
		searcher: &fakeSearcher{candidates: []CandidateContact{
			{Email: "a@acme.com", Position: "CTO"},
			{Email: "b@acme.com", Position: "EM"},
		}},
		workflow: &fakeWorkflow{},
	}
	f.svc = NewContactService(
		f.contacts, f.apps, f.jobs, f.users,
		f.credits, f.cache, f.stats, f.reasoning, f.searcher, f.workflow,
		ContactServiceConfig{
			SearchCost: 1,
			FinderCost: 3,
			CompanyTTL: 30 * 24 * time.Hour,
			ContactTTL: 14 * 24 * time.Hour,
		},
		logger.New(),
	)
	return f
}

func TestSearchCacheHitIsFree(t *testing.T) {
	f := newSearchFixture(7)
	payload, _ := json.Marshal([]RankedContact{
		{CandidateContact: CandidateContact{Email: "a@acme.com"}, RelevanceScore: 90},
	})
	f.cache.entries = map[string][]byte{cacheKey(model.CacheTableContact, "acme.com"): payload}

	result, err := f.svc.Search(context.Background(), "u1", "acme.com", "Acme", "job-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Cached {
		t.Error("expected cached result")
	}
	if result.CreditsDeducted != 0 {
		t.Errorf("cache hit deducted %d credits", result.CreditsDeducted)
	}
	if result.RemainingCredits != 7 {
		t.Errorf("remaining = %d, want untouched 7", result.RemainingCredits)
	}
	if f.credits.reserveCalls != 0 {
		t.Error("cache hit reserved credits")
	}
	if f.searcher.calls != 0 {
		t.Error("cache hit reached the provider")
	}
	if f.stats.hits[model.CacheTableContact] != 1 {
		t.Error("cache hit not counted")
	}
	if len(f.contacts.upserted) != 1 {
		t.Errorf("cached contacts not persisted for the user: %d rows", len(f.contacts.upserted))
	}
}

func TestSearchRejectsBeforePipelineWhenBroke(t *testing.T) {
	f := newSearchFixture(0)

	_, err := f.svc.Search(context.Background(), "u1", "acme.com", "Acme", "job-1")
	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if f.reasoning.classifyCalls != 0 {
		t.Error("pipeline ran for a user with no credits")
	}
	if f.searcher.calls != 0 {
		t.Error("provider called for a user with no credits")
	}
	if f.stats.misses[model.CacheTableContact] != 1 {
		t.Error("the miss should still be counted")
	}
}

func TestSearchMissChargesExactlyOnce(t *testing.T) {
	f := newSearchFixture(10)

	result, err := f.svc.Search(context.Background(), "u1", "acme.com", "Acme", "job-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Cached {
		t.Error("miss flagged as cached")
	}
	if result.CreditsDeducted != 1 {
		t.Errorf("deducted = %d, want 1", result.CreditsDeducted)
	}
	if result.RemainingCredits != 9 {
		t.Errorf("remaining = %d, want 9", result.RemainingCredits)
	}
	if f.credits.reserveCalls != 1 {
		t.Errorf("reserve calls = %d, want 1", f.credits.reserveCalls)
	}
	if len(result.Contacts) != 2 {
		t.Errorf("contacts = %d, want 2", len(result.Contacts))
	}
	// The next identical search must be served from cache.
	if _, ok := f.cache.entries[cacheKey(model.CacheTableContact, "acme.com")]; !ok {
		t.Error("results not written to the contact cache")
	}
}

func TestSearchClassifyAbortSkipsProviderAndCharge(t *testing.T) {
	f := newSearchFixture(10)
	f.reasoning.classifyErr = &UnparsableOutputError{Step: "classify", Raw: "prose"}

	_, err := f.svc.Search(context.Background(), "u1", "acme.com", "Acme", "job-1")
	if !errors.Is(err, ErrUnparsableModelOutput) {
		t.Fatalf("expected ErrUnparsableModelOutput, got %v", err)
	}
	if f.searcher.calls != 0 {
		t.Error("provider called after classify abort")
	}
	if f.credits.reserveCalls != 0 {
		t.Error("credits reserved after classify abort")
	}
	if f.credits.balance != 10 {
		t.Errorf("balance changed to %d on an aborted search", f.credits.balance)
	}
}

func TestSearchNoCandidatesIsNotCharged(t *testing.T) {
	f := newSearchFixture(10)
	f.searcher.candidates = nil

	_, err := f.svc.Search(context.Background(), "u1", "acme.com", "Acme", "job-1")
	if !errors.Is(err, ErrNoContactsFound) {
		t.Fatalf("expected ErrNoContactsFound, got %v", err)
	}
	if f.credits.reserveCalls != 0 {
		t.Error("empty result reserved credits")
	}
}

func TestSearchUsesClassifiedDomainWhenNoneGiven(t *testing.T) {
	f := newSearchFixture(10)

	result, err := f.svc.Search(context.Background(), "u1", "", "Acme", "job-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, c := range result.Contacts {
		if c.Domain != "acme.com" {
			t.Errorf("contact domain = %q, want classified acme.com", c.Domain)
		}
	}
}

func TestTriggerFinderChargesPending(t *testing.T) {
	f := newSearchFixture(10)

	remaining, err := f.svc.TriggerFinder(context.Background(), "u1", 7)
	if err != nil {
		t.Fatalf("TriggerFinder: %v", err)
	}
	if remaining != 7 {
		t.Errorf("remaining = %d, want 7", remaining)
	}
	if f.credits.pendingCalls != 1 {
		t.Errorf("pending charges = %d, want 1", f.credits.pendingCalls)
	}
	if len(f.workflow.calls) != 1 {
		t.Fatalf("workflow triggers = %d, want 1", len(f.workflow.calls))
	}
	if f.workflow.calls[0].Company != "Acme" {
		t.Errorf("trigger company = %q", f.workflow.calls[0].Company)
	}
}

func TestTriggerFinderFailureChargesNothing(t *testing.T) {
	f := newSearchFixture(10)
	f.workflow.err = errors.New("engine down")

	if _, err := f.svc.TriggerFinder(context.Background(), "u1", 7); err == nil {
		t.Fatal("expected error when the workflow engine is down")
	}
	if f.credits.pendingCalls != 0 {
		t.Error("failed trigger still charged the user")
	}
	if f.credits.balance != 10 {
		t.Errorf("balance = %d, want untouched 10", f.credits.balance)
	}
}

func TestIngestWebhookRejectsUnknownUser(t *testing.T) {
	f := newSearchFixture(10)

	_, err := f.svc.IngestWebhook(context.Background(), "ghost", []WebhookContact{{Email: "a@acme.com"}})
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.contacts.upserted) != 0 {
		t.Error("contacts written for an unknown user")
	}
}

func TestIngestWebhookCountsRows(t *testing.T) {
	f := newSearchFixture(10)

	saved, err := f.svc.IngestWebhook(context.Background(), "u1", []WebhookContact{
		{Email: "a@acme.com", Company: "Acme"},
		{Email: "b@acme.com", Company: "Acme"},
	})
	if err != nil {
		t.Fatalf("IngestWebhook: %v", err)
	}
	if saved != 2 {
		t.Errorf("saved = %d, want 2", saved)
	}
	if len(f.contacts.upserted) != 2 {
		t.Errorf("upserted rows = %d, want 2", len(f.contacts.upserted))
	}
}
