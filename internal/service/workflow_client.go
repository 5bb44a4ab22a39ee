package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrWorkflowNotConfigured is returned when no trigger URL is set.
var ErrWorkflowNotConfigured = errors.New("workflow_not_configured")

// FinderRequest is the payload sent to the workflow engine's contact-finder
// flow. Results come back later on the contacts webhook.
type FinderRequest struct {
	UserID   string `json:"user_id"`
	JobTitle string `json:"job_title"`
	Company  string `json:"company"`
	Domain   string `json:"domain,omitempty"`
}

// WorkflowClient triggers flows on the external workflow engine.
type WorkflowClient interface {
	TriggerContactFinder(ctx context.Context, req FinderRequest) error
}

type workflowClient struct {
	client     *http.Client
	triggerURL string
	secret     string
}

// NewWorkflowClient creates a WorkflowClient that POSTs to the engine's
// webhook trigger URL with the shared-secret bearer.
func NewWorkflowClient(triggerURL, secret string) WorkflowClient {
	return &workflowClient{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		triggerURL: triggerURL,
		secret:     secret,
	}
}

func (c *workflowClient) TriggerContactFinder(ctx context.Context, req FinderRequest) error {
	if c.triggerURL == "" {
		return ErrWorkflowNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal finder request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.triggerURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create finder request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("finder trigger failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("finder trigger failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
