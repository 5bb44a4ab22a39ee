package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type stubCacheService struct {
	statsDays int
}

func (s *stubCacheService) Get(_ context.Context, _, _ string) ([]byte, error) { return nil, nil }
func (s *stubCacheService) Put(_ context.Context, _, _ string, _ []byte, _ time.Duration) error {
	return nil
}
func (s *stubCacheService) Invalidate(_ context.Context, _ string) error { return nil }
func (s *stubCacheService) CleanupExpired(_ context.Context) (service.CleanupResult, error) {
	return service.CleanupResult{}, nil
}
func (s *stubCacheService) Stats(_ context.Context, windowDays int) (*service.CacheStats, error) {
	s.statsDays = windowDays
	return &service.CacheStats{WindowDays: windowDays}, nil
}

type stubUserService struct {
	plan string
}

func (s *stubUserService) Provision(_ context.Context, _, _, _ string) error { return nil }
func (s *stubUserService) Remove(_ context.Context, _ string) error          { return nil }
func (s *stubUserService) Get(_ context.Context, userID string) (*model.User, error) {
	return &model.User{UserID: userID, Plan: s.plan}, nil
}
func (s *stubUserService) Credits(_ context.Context, _ string) (*service.CreditsSummary, error) {
	return nil, nil
}

type stubCreditService struct{}

func (s *stubCreditService) Balance(_ context.Context, _ string) (int, error)       { return 0, nil }
func (s *stubCreditService) CheckBalance(_ context.Context, _ string, _ int) error  { return nil }
func (s *stubCreditService) Reserve(_ context.Context, _ string, _ int, _, _ string, _ map[string]any) (int, error) {
	return 0, nil
}
func (s *stubCreditService) PendingCharge(_ context.Context, _ string, _ int, _, _ string, _ map[string]any) (int, error) {
	return 0, nil
}
func (s *stubCreditService) Grant(_ context.Context, _ string, _ int, _ string) (int, error) {
	return 0, nil
}
func (s *stubCreditService) RecentTransactions(_ context.Context, _ string, _ int) ([]model.CreditTransaction, error) {
	return nil, nil
}

func newAdminMux(cache *stubCacheService, plan string) *http.ServeMux {
	h := NewAdminHandler(cache, &stubCreditService{}, &stubUserService{plan: plan},
		validator.New(validator.WithRequiredStructEnabled()), logger.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, injectUser("admin1"), passthrough)
	return mux
}

func TestCacheStatsWindowParam(t *testing.T) {
	cases := []struct {
		query    string
		wantDays int
	}{
		{"", 7},
		{"?days=30", 30},
		{"?days=abc", 7},
		{"?days=-3", 7},
	}
	for _, c := range cases {
		cache := &stubCacheService{}
		mux := newAdminMux(cache, model.PlanAdmin)

		req := httptest.NewRequest(http.MethodGet, "/admin/cache-stats"+c.query, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status = %d, want 200", c.query, rec.Code)
		}
		if cache.statsDays != c.wantDays {
			t.Errorf("%q: window = %d days, want %d", c.query, cache.statsDays, c.wantDays)
		}
	}
}

func TestCacheStatsRequiresAdminPlan(t *testing.T) {
	cache := &stubCacheService{}
	mux := newAdminMux(cache, model.PlanFree)

	req := httptest.NewRequest(http.MethodGet, "/admin/cache-stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if cache.statsDays != 0 {
		t.Error("stats queried despite the plan check failing")
	}
}
