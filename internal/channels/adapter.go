// Package channels provides the three outreach send paths: email, SMS, and
// the headless-browser workflow fallback. Each is an independent capability
// behind a small interface so the orchestrator can be tested with fakes.
package channels

import (
	"context"
	"fmt"
)

// EmailRequest is one outbound email.
type EmailRequest struct {
	From     string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// EmailSender delivers email and returns the provider message id.
type EmailSender interface {
	SendEmail(ctx context.Context, req EmailRequest) (string, error)
}

// SMSRequest is one outbound text message.
type SMSRequest struct {
	To   string
	Body string
}

// SMSSender delivers SMS and returns the provider SID.
type SMSSender interface {
	SendSMS(ctx context.Context, req SMSRequest) (string, error)
}

// WorkflowRequest asks the browser-automation provider to drive a dealer's
// website toward a goal.
type WorkflowRequest struct {
	URL        string
	WorkflowID string
	Goal       string
}

// WorkflowRun is the provider's handle for a submitted workflow.
type WorkflowRun struct {
	RunID  string
	Status string
}

// BrowserAutomator submits headless-browser workflows.
type BrowserAutomator interface {
	CreateWorkflow(ctx context.Context, req WorkflowRequest) (WorkflowRun, error)
}

// APIError is a non-2xx response from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.StatusCode, e.Body)
}
