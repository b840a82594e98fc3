package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiFinder implements Finder against the Gemini generateContent API.
// The model is asked for a JSON array of dealership records.
type GeminiFinder struct {
	APIKey  string
	Model   string
	BaseURL string
	http    *http.Client
}

// NewGeminiFinder creates a Gemini-backed dealer lookup.
func NewGeminiFinder(apiKey, model, baseURL string) *GeminiFinder {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiFinder{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

const dealerPrompt = `Find %d authorized %s dealerships in %s.

For each dealership, provide the following information in JSON format:
- name: Full dealership name
- address: Street address
- city: City name
- state: State abbreviation (%s)
- zipcode: ZIP code
- phone: Phone number (if available)
- website: Website URL (if available)
- email: Sales department email (if available)

Return ONLY a valid JSON array of objects. Do not include any explanatory text.`

// FindDealers asks the model for up to count dealerships of one make in a
// state. Records are returned unvalidated; Discover applies the schema.
func (f *GeminiFinder) FindDealers(ctx context.Context, mk, state string, count int) ([]DealerInfo, error) {
	if f.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is not configured")
	}

	prompt := fmt.Sprintf(dealerPrompt, count, mk, state, state)
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", f.BaseURL, f.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", f.APIKey)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}

	text := stripCodeFence(parsed.Candidates[0].Content.Parts[0].Text)
	var dealers []DealerInfo
	if err := json.Unmarshal([]byte(text), &dealers); err != nil {
		return nil, fmt.Errorf("gemini: parse dealer list: %w", err)
	}
	return dealers, nil
}

// stripCodeFence removes a surrounding markdown code block; models sometimes
// wrap JSON output despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
