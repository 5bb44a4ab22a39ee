package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// CandidateContact is a raw person record from the contact-search provider,
// before the reasoning pipeline ranks it.
type CandidateContact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	Company   string `json:"company"`
	Verified  bool   `json:"verified"`
}

// ContactSearcher finds people at a company domain. Each call is a paid
// operation on the provider side; callers gate it on credits and cache.
type ContactSearcher interface {
	DomainSearch(ctx context.Context, domain string) ([]CandidateContact, error)
}

type snovClient struct {
	client       *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSnovClient creates a ContactSearcher backed by the Snov.io v1 API using
// OAuth client-credentials auth.
func NewSnovClient(baseURL, clientID, clientSecret string) ContactSearcher {
	return &snovClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (c *snovClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = parsed.AccessToken
	// Refresh a minute early so an in-flight search never carries a token
	// that expires mid-request.
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *snovClient) DomainSearch(ctx context.Context, domain string) ([]CandidateContact, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating with contact-search provider: %w", err)
	}

	url := fmt.Sprintf("%s/v2/domain-emails-with-info?domain=%s&type=personal&limit=25", c.baseURL, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create domain search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("domain search failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read domain search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("domain search failed: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Emails []struct {
			Email     string `json:"email"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Position  string `json:"position"`
			Company   string `json:"companyName"`
			Status    string `json:"smtp_status"`
		} `json:"emails"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode domain search response: %w", err)
	}

	candidates := make([]CandidateContact, 0, len(parsed.Emails))
	for _, e := range parsed.Emails {
		if e.Email == "" {
			continue
		}
		candidates = append(candidates, CandidateContact{
			Email:     e.Email,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Position:  e.Position,
			Company:   e.Company,
			Verified:  e.Status == "valid",
		})
	}
	return candidates, nil
}
