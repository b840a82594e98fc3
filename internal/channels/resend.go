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

// ResendClient sends email through the Resend HTTP API.
type ResendClient struct {
	APIKey  string
	BaseURL string
	http    *http.Client
}

// NewResendClient creates a Resend email client.
func NewResendClient(apiKey, baseURL string) *ResendClient {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type resendSendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

// SendEmail delivers one email and returns the Resend message id.
func (c *ResendClient) SendEmail(ctx context.Context, req EmailRequest) (string, error) {
	body, err := json.Marshal(resendSendRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Text:    req.TextBody,
		HTML:    req.HTMLBody,
	})
	if err != nil {
		return "", fmt.Errorf("resend: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("resend: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("resend: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{Provider: "resend", StatusCode: resp.StatusCode, Body: string(data)}
	}

	var parsed resendSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("resend: decode response: %w", err)
	}
	return parsed.ID, nil
}
