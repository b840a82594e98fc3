package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SkyvernClient submits browser-automation workflows through the Skyvern
// HTTP API. Submissions are retried per the policy; form-filling runs are
// the channel of last resort and worth a few attempts.
type SkyvernClient struct {
	APIKey  string
	BaseURL string
	Policy  Policy
	http    *http.Client
}

// NewSkyvernClient creates a Skyvern client using the default retry policy.
func NewSkyvernClient(apiKey, baseURL string) *SkyvernClient {
	if baseURL == "" {
		baseURL = "https://api.skyvern.com/v1"
	}
	return &SkyvernClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Policy:  DefaultPolicy,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type skyvernRunRequest struct {
	URL            string `json:"url"`
	WorkflowID     string `json:"workflow_id,omitempty"`
	NavigationGoal string `json:"navigation_goal,omitempty"`
}

type skyvernRunResponse struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// CreateWorkflow submits a workflow run and returns its handle. The run
// starts in pending status; progress is polled via GetRunStatus.
func (c *SkyvernClient) CreateWorkflow(ctx context.Context, req WorkflowRequest) (WorkflowRun, error) {
	var run WorkflowRun
	err := Retry(ctx, c.Policy, func(ctx context.Context) error {
		r, err := c.createOnce(ctx, req)
		if err != nil {
			return err
		}
		run = r
		return nil
	})
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: create workflow: %w", err)
	}
	return run, nil
}

func (c *SkyvernClient) createOnce(ctx context.Context, req WorkflowRequest) (WorkflowRun, error) {
	body, err := json.Marshal(skyvernRunRequest{
		URL:            req.URL,
		WorkflowID:     req.WorkflowID,
		NavigationGoal: req.Goal,
	})
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/runs", bytes.NewReader(body))
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return WorkflowRun{}, &APIError{Provider: "skyvern", StatusCode: resp.StatusCode, Body: string(data)}
	}

	var parsed skyvernRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: decode response: %w", err)
	}
	status := parsed.Status
	if status == "" {
		status = "pending"
	}
	return WorkflowRun{RunID: parsed.RunID, Status: status}, nil
}

// GetRunStatus fetches the current state of a workflow run.
func (c *SkyvernClient) GetRunStatus(ctx context.Context, runID string) (WorkflowRun, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/runs/"+runID, nil)
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: get run %s: %w", runID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return WorkflowRun{}, &APIError{Provider: "skyvern", StatusCode: resp.StatusCode, Body: string(data)}
	}

	var parsed skyvernRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return WorkflowRun{}, fmt.Errorf("skyvern: decode response: %w", err)
	}
	return WorkflowRun{RunID: parsed.RunID, Status: parsed.Status}, nil
}
