package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ErrUnparsableModelOutput is returned when the model's reply cannot be
// parsed as the step's expected JSON. The raw text travels alongside via
// UnparsableOutputError for diagnostics.
var ErrUnparsableModelOutput = errors.New("unparsable_model_output")

// UnparsableOutputError wraps ErrUnparsableModelOutput with the step name
// and the raw model text.
type UnparsableOutputError struct {
	Step string
	Raw  string
}

func (e *UnparsableOutputError) Error() string {
	return fmt.Sprintf("%s: model output not parseable as JSON", e.Step)
}

func (e *UnparsableOutputError) Unwrap() error { return ErrUnparsableModelOutput }

// SearchStrategy is the output of the classify step: who to look for at the
// company.
type SearchStrategy struct {
	TargetTitles []string `json:"target_titles"`
	Departments  []string `json:"departments"`
	Seniority    string   `json:"seniority"`
	Domain       string   `json:"domain"`
}

// CompanyProfile is the output of the research step.
type CompanyProfile struct {
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Size           string `json:"size"`
	Industry       string `json:"industry"`
	DomainVerified bool   `json:"domain_verified"`
	// Fallback marks a profile synthesized locally after a parse failure,
	// so downstream consumers know not to trust the guessed fields.
	Fallback bool `json:"fallback,omitempty"`
}

// RankedContact pairs a candidate with the model's relevance assessment.
type RankedContact struct {
	CandidateContact
	RelevanceScore int    `json:"relevance_score"`
	Reasoning      string `json:"reasoning"`
}

// ReasoningService is the 3-stage pipeline that narrows paid contact-search
// usage: classify the job, research the company, rank the raw candidates.
// Stages run strictly in order; each is one model round-trip with no retry.
type ReasoningService interface {
	// Classify derives a search strategy from the job posting. A parse
	// failure aborts the whole pipeline (cost safety: nothing paid has
	// happened yet).
	Classify(ctx context.Context, jobTitle, jobDescription, companyName string) (*SearchStrategy, error)
	// Research profiles the company. A parse failure degrades to a hand-built
	// fallback profile instead of aborting: research is advisory, and by this
	// point aborting would waste the classify call.
	Research(ctx context.Context, companyName, domain string) (*CompanyProfile, error)
	// Rank scores candidates against the strategy and keeps the top few above
	// the relevance threshold, descending score. A parse failure degrades to
	// the first maxContacts candidates unranked.
	Rank(ctx context.Context, strategy *SearchStrategy, candidates []CandidateContact) ([]RankedContact, error)
}

type reasoningService struct {
	llm       LLMClient
	maxRanked int
	minScore  int
	logger    zerolog.Logger
}

// NewReasoningService creates a new ReasoningService.
func NewReasoningService(llm LLMClient, maxRanked, minScore int, logger zerolog.Logger) ReasoningService {
	return &reasoningService{
		llm:       llm,
		maxRanked: maxRanked,
		minScore:  minScore,
		logger:    logger.With().Str("service", "ReasoningService").Logger(),
	}
}

const classifySystem = `You are a recruiting-research assistant. Given a job posting, decide which people at the company are most likely to influence hiring for it. Respond with JSON only, no prose, matching exactly:
{"target_titles": ["..."], "departments": ["..."], "seniority": "junior|mid|senior|executive", "domain": "best-guess company domain"}`

func (s *reasoningService) Classify(ctx context.Context, jobTitle, jobDescription, companyName string) (*SearchStrategy, error) {
	prompt := fmt.Sprintf("Company: %s\nJob title: %s\n\nJob description:\n%s", companyName, jobTitle, jobDescription)
	raw, err := s.llm.Complete(ctx, CompletionRequest{
		System:      classifySystem,
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	var strategy SearchStrategy
	if err := unmarshalModelJSON(raw, &strategy); err != nil {
		s.logger.Warn().Str("step", "classify").Msg("Model output not parseable, aborting pipeline")
		return nil, &UnparsableOutputError{Step: "classify", Raw: raw}
	}
	if len(strategy.TargetTitles) == 0 {
		return nil, &UnparsableOutputError{Step: "classify", Raw: raw}
	}
	return &strategy, nil
}

const researchSystem = `You are a company-research assistant. Given a company name and a candidate domain, estimate its size and industry and verify the domain. Respond with JSON only, matching exactly:
{"name": "...", "domain": "...", "size": "1-10|11-50|51-200|201-1000|1000+", "industry": "...", "domain_verified": true}`

func (s *reasoningService) Research(ctx context.Context, companyName, domain string) (*CompanyProfile, error) {
	prompt := fmt.Sprintf("Company: %s\nCandidate domain: %s", companyName, domain)
	raw, err := s.llm.Complete(ctx, CompletionRequest{
		System:      researchSystem,
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	var profile CompanyProfile
	if err := unmarshalModelJSON(raw, &profile); err != nil {
		s.logger.Warn().Str("step", "research").Str("company", companyName).Msg("Model output not parseable, using fallback profile")
		return fallbackProfile(companyName, domain), nil
	}
	if profile.Domain == "" {
		profile.Domain = domain
	}
	return &profile, nil
}

// fallbackProfile hand-builds a profile when research output cannot be
// parsed: the domain is guessed from the company name when none was given.
func fallbackProfile(companyName, domain string) *CompanyProfile {
	if domain == "" {
		domain = guessDomain(companyName)
	}
	return &CompanyProfile{
		Name:           companyName,
		Domain:         domain,
		Size:           "unknown",
		Industry:       "unknown",
		DomainVerified: false,
		Fallback:       true,
	}
}

// guessDomain lowercases the company name, strips non-alphanumerics and
// appends .com.
func guessDomain(companyName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(companyName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".com"
}

const rankSystem = `You are scoring potential networking contacts for a job seeker. Given the search strategy and a candidate list, score each candidate 0-100 by how likely they are to influence hiring for the role. Respond with JSON only:
{"contacts": [{"email": "...", "relevance_score": 0, "reasoning": "one sentence"}]}`

func (s *reasoningService) Rank(ctx context.Context, strategy *SearchStrategy, candidates []CandidateContact) ([]RankedContact, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	strategyJSON, err := json.Marshal(strategy)
	if err != nil {
		return nil, fmt.Errorf("rank: marshal strategy: %w", err)
	}
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("rank: marshal candidates: %w", err)
	}

	prompt := fmt.Sprintf("Search strategy:\n%s\n\nCandidates:\n%s", strategyJSON, candidatesJSON)
	raw, err := s.llm.Complete(ctx, CompletionRequest{
		System:      rankSystem,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	var parsed struct {
		Contacts []struct {
			Email          string `json:"email"`
			RelevanceScore int    `json:"relevance_score"`
			Reasoning      string `json:"reasoning"`
		} `json:"contacts"`
	}
	if err := unmarshalModelJSON(raw, &parsed); err != nil {
		s.logger.Warn().Str("step", "rank").Msg("Model output not parseable, returning unranked candidates")
		return s.unranked(candidates), nil
	}

	byEmail := make(map[string]CandidateContact, len(candidates))
	for _, c := range candidates {
		byEmail[strings.ToLower(c.Email)] = c
	}

	var ranked []RankedContact
	for _, rc := range parsed.Contacts {
		candidate, ok := byEmail[strings.ToLower(rc.Email)]
		if !ok {
			// Never surface a contact the provider did not return, no matter
			// what the model says.
			continue
		}
		if rc.RelevanceScore < s.minScore {
			continue
		}
		ranked = append(ranked, RankedContact{
			CandidateContact: candidate,
			RelevanceScore:   rc.RelevanceScore,
			Reasoning:        rc.Reasoning,
		})
	}

	// Descending score; ties keep the model's output order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	if len(ranked) > s.maxRanked {
		ranked = ranked[:s.maxRanked]
	}
	return ranked, nil
}

func (s *reasoningService) unranked(candidates []CandidateContact) []RankedContact {
	n := len(candidates)
	if n > s.maxRanked {
		n = s.maxRanked
	}
	out := make([]RankedContact, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, RankedContact{CandidateContact: c})
	}
	return out
}

// unmarshalModelJSON extracts the JSON object from model text (models
// sometimes wrap output in markdown fences or lead with prose) and strictly
// unmarshals it.
func unmarshalModelJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
		text = strings.TrimPrefix(text, "json")
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return errors.New("no JSON object found")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}
