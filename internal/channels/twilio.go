package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient sends SMS through the Twilio Messages API.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	http       *http.Client
}

// NewTwilioClient creates a Twilio SMS client.
func NewTwilioClient(accountSID, authToken, fromNumber, baseURL string) *TwilioClient {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	return &TwilioClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		BaseURL:    baseURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

type twilioMessageResponse struct {
	SID string `json:"sid"`
}

// SendSMS delivers one text message and returns the Twilio SID.
func (c *TwilioClient) SendSMS(ctx context.Context, req SMSRequest) (string, error) {
	if c.FromNumber == "" {
		return "", fmt.Errorf("twilio: from number is not configured")
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", c.FromNumber)
	form.Set("Body", req.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.BaseURL, c.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio: create request: %w", err)
	}
	httpReq.SetBasicAuth(c.AccountSID, c.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{Provider: "twilio", StatusCode: resp.StatusCode, Body: string(data)}
	}

	var parsed twilioMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("twilio: decode response: %w", err)
	}
	return parsed.SID, nil
}
