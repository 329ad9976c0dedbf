package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Moderator is a remote content check.
type Moderator interface {
	Moderate(ctx context.Context, text string) (Verdict, error)
}

// HTTPModerator POSTs {"text": ...} and expects {"allowed": bool, "reason": string}.
type HTTPModerator struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPModerator(url, token string, client *http.Client) *HTTPModerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPModerator{url: url, token: token, client: client}
}

func (h *HTTPModerator) Moderate(ctx context.Context, text string) (Verdict, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Verdict{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("build moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("moderation returned %s", resp.Status)
	}
	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Verdict{}, fmt.Errorf("decode moderation response: %w", err)
	}
	return v, nil
}
