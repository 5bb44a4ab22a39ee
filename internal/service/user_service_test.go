package service

import (
	"context"
	"testing"

	"app/internal/logger"
	"app/internal/model"
)

func TestProvisionGrantsStarterCredits(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*model.User{}}
	svc := NewUserService(repo, &fakeCredits{}, 25, logger.New())

	if err := svc.Provision(context.Background(), "u1", "u1@example.com", "Sam"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	u := repo.users["u1"]
	if u == nil {
		t.Fatal("user not created")
	}
	if u.Credits != 25 {
		t.Errorf("credits = %d, want 25", u.Credits)
	}
	if u.Plan != model.PlanFree {
		t.Errorf("plan = %q, want free", u.Plan)
	}
}

func TestProvisionReplayIsNoOp(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*model.User{}}
	svc := NewUserService(repo, &fakeCredits{}, 25, logger.New())
	ctx := context.Background()

	if err := svc.Provision(ctx, "u1", "u1@example.com", "Sam"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	// Spend some credits, then replay the webhook.
	repo.users["u1"].Credits = 3

	if err := svc.Provision(ctx, "u1", "u1@example.com", "Sam"); err != nil {
		t.Fatalf("replayed Provision: %v", err)
	}
	if repo.users["u1"].Credits != 3 {
		t.Errorf("replay reset credits to %d", repo.users["u1"].Credits)
	}
}

func TestRemoveReplayIsNoOp(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*model.User{"u1": {UserID: "u1"}}}
	svc := NewUserService(repo, &fakeCredits{}, 25, logger.New())
	ctx := context.Background()

	if err := svc.Remove(ctx, "u1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := repo.users["u1"]; ok {
		t.Fatal("user row survived Remove")
	}
	if err := svc.Remove(ctx, "u1"); err != nil {
		t.Errorf("replayed Remove: %v", err)
	}
}

func TestCreditsSummary(t *testing.T) {
	repo := &fakeUserRepo{users: map[string]*model.User{"u1": {UserID: "u1"}}}
	svc := NewUserService(repo, &fakeCredits{balance: 12}, 25, logger.New())

	summary, err := svc.Credits(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Credits: %v", err)
	}
	if summary.Credits != 12 {
		t.Errorf("credits = %d, want 12", summary.Credits)
	}
}
