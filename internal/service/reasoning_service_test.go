package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/logger"
)

type fakeLLM struct {
	responses []string
	err       error
	calls     int
	requests  []CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func TestClassifyParsesFencedOutput(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"```json\n{\"target_titles\": [\"Engineering Manager\"], \"departments\": [\"Engineering\"], \"seniority\": \"senior\", \"domain\": \"acme.com\"}\n```",
	}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	strategy, err := svc.Classify(context.Background(), "Backend Engineer", "Build APIs", "Acme")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(strategy.TargetTitles) != 1 || strategy.TargetTitles[0] != "Engineering Manager" {
		t.Errorf("target titles = %v", strategy.TargetTitles)
	}
	if strategy.Domain != "acme.com" {
		t.Errorf("domain = %q, want acme.com", strategy.Domain)
	}
	if llm.requests[0].Temperature != 0 {
		t.Errorf("classify must run at temperature 0, got %v", llm.requests[0].Temperature)
	}
}

func TestClassifyAbortsOnUnparsableOutput(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I would recommend reaching out to the hiring manager."}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	_, err := svc.Classify(context.Background(), "Backend Engineer", "Build APIs", "Acme")
	if !errors.Is(err, ErrUnparsableModelOutput) {
		t.Fatalf("expected ErrUnparsableModelOutput, got %v", err)
	}
	var unparsable *UnparsableOutputError
	if !errors.As(err, &unparsable) || unparsable.Step != "classify" {
		t.Errorf("expected classify-step UnparsableOutputError, got %v", err)
	}
}

func TestClassifyRejectsEmptyTitles(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"target_titles": [], "departments": ["HR"], "seniority": "mid", "domain": "acme.com"}`}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	if _, err := svc.Classify(context.Background(), "Backend Engineer", "Build APIs", "Acme"); !errors.Is(err, ErrUnparsableModelOutput) {
		t.Fatalf("expected ErrUnparsableModelOutput for empty titles, got %v", err)
	}
}

func TestResearchFallsBackOnParseFailure(t *testing.T) {
	llm := &fakeLLM{responses: []string{"Acme is a mid-sized logistics company."}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	profile, err := svc.Research(context.Background(), "Acme, Inc.", "")
	if err != nil {
		t.Fatalf("Research must not fail on a parse error: %v", err)
	}
	if !profile.Fallback {
		t.Error("expected fallback profile")
	}
	if profile.Domain != "acmeinc.com" {
		t.Errorf("guessed domain = %q, want acmeinc.com", profile.Domain)
	}
	if profile.DomainVerified {
		t.Error("fallback profile must not claim a verified domain")
	}
}

func TestResearchKeepsGivenDomainWhenModelOmitsIt(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"name": "Acme", "size": "51-200", "industry": "logistics", "domain_verified": false}`}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	profile, err := svc.Research(context.Background(), "Acme", "acme.io")
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if profile.Domain != "acme.io" {
		t.Errorf("domain = %q, want acme.io", profile.Domain)
	}
}

func candidatesForRank() []CandidateContact {
	return []CandidateContact{
		{Email: "a@acme.com", Position: "CTO"},
		{Email: "b@acme.com", Position: "Engineering Manager"},
		{Email: "c@acme.com", Position: "Recruiter"},
		{Email: "d@acme.com", Position: "Staff Engineer"},
		{Email: "e@acme.com", Position: "Office Manager"},
	}
}

func TestRankFiltersThresholdAndSortsDescending(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"contacts": [
		{"email": "b@acme.com", "relevance_score": 80, "reasoning": "manages the team"},
		{"email": "e@acme.com", "relevance_score": 40, "reasoning": "unrelated"},
		{"email": "a@acme.com", "relevance_score": 95, "reasoning": "owns hiring"},
		{"email": "ghost@acme.com", "relevance_score": 99, "reasoning": "not a real candidate"},
		{"email": "c@acme.com", "relevance_score": 75, "reasoning": "runs the process"}
	]}`}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	ranked, err := svc.Rank(context.Background(), &SearchStrategy{TargetTitles: []string{"EM"}}, candidatesForRank())
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	got := make([]string, 0, len(ranked))
	for _, rc := range ranked {
		got = append(got, rc.Email)
	}
	want := []string{"a@acme.com", "b@acme.com", "c@acme.com"}
	if len(got) != len(want) {
		t.Fatalf("ranked emails = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranked emails = %v, want %v", got, want)
		}
	}
	if ranked[0].RelevanceScore != 95 {
		t.Errorf("top score = %d, want 95", ranked[0].RelevanceScore)
	}
}

func TestRankCapsAtMaxContacts(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"contacts": [
		{"email": "a@acme.com", "relevance_score": 91},
		{"email": "b@acme.com", "relevance_score": 92},
		{"email": "c@acme.com", "relevance_score": 93},
		{"email": "d@acme.com", "relevance_score": 94},
		{"email": "e@acme.com", "relevance_score": 95}
	]}`}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	ranked, err := svc.Rank(context.Background(), &SearchStrategy{}, candidatesForRank())
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(ranked) != 4 {
		t.Errorf("len(ranked) = %d, want 4", len(ranked))
	}
	if ranked[0].Email != "e@acme.com" {
		t.Errorf("top contact = %s, want e@acme.com", ranked[0].Email)
	}
}

func TestRankDegradesToUnrankedOnParseFailure(t *testing.T) {
	llm := &fakeLLM{responses: []string{"Here are my thoughts on each candidate..."}}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	ranked, err := svc.Rank(context.Background(), &SearchStrategy{}, candidatesForRank())
	if err != nil {
		t.Fatalf("Rank must degrade, not fail: %v", err)
	}
	if len(ranked) != 4 {
		t.Fatalf("len(ranked) = %d, want 4", len(ranked))
	}
	for _, rc := range ranked {
		if rc.RelevanceScore != 0 {
			t.Errorf("unranked contact %s carries score %d", rc.Email, rc.RelevanceScore)
		}
	}
}

func TestRankSkipsModelCallForNoCandidates(t *testing.T) {
	llm := &fakeLLM{}
	svc := NewReasoningService(llm, 4, 70, logger.New())

	ranked, err := svc.Rank(context.Background(), &SearchStrategy{}, nil)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if ranked != nil {
		t.Errorf("ranked = %v, want nil", ranked)
	}
	if len(llm.requests) != 0 {
		t.Error("Rank called the model for an empty candidate list")
	}
}

func TestGuessDomain(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme, Inc.", "acmeinc.com"},
		{"O'Brien & Sons", "obriensons.com"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := guessDomain(tt.name); got != tt.want {
			t.Errorf("guessDomain(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
