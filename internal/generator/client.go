// Package generator calls the external narrative service.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"chronicle.ai/internal/protocol"
)

// TransportError is a network failure, timeout or non-2xx status that
// survived every retry.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generator transport failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response that arrived but breaks the contract. It is
// never retried.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "generator protocol error: " + e.Reason
}

type Config struct {
	URL   string
	Token string

	Attempts int
	Delay    time.Duration
	Timeout  time.Duration

	HTTPClient *http.Client
	Logger     *log.Logger
}

const (
	DefaultAttempts = 2
	DefaultDelay    = time.Second
	DefaultTimeout  = 15 * time.Second
)

type Client struct {
	url      string
	token    string
	attempts int
	delay    time.Duration
	timeout  time.Duration
	http     *http.Client
	logger   *log.Logger
}

func New(cfg Config) *Client {
	c := &Client{
		url:      cfg.URL,
		token:    cfg.Token,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
	}
	if c.attempts <= 0 {
		c.attempts = DefaultAttempts
	}
	if c.delay < 0 {
		c.delay = 0
	} else if c.delay == 0 {
		c.delay = DefaultDelay
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c
}

// Adjudicate posts the payload. Attempt N+1 starts only after attempt N
// has failed and the delay has elapsed.
func (c *Client) Adjudicate(ctx context.Context, p protocol.Payload) (*protocol.GeneratorResponse, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	attempt := 0
	op := func() (*protocol.GeneratorResponse, error) {
		attempt++
		return c.post(ctx, body)
	}
	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.delay)),
		backoff.WithMaxTries(uint(c.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Printf("generator attempt %d failed, retrying in %s: %v", attempt, next, err)
		}),
	)
	if err == nil {
		return resp, nil
	}
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return nil, perr
	}
	return nil, &TransportError{Attempts: attempt, Err: err}
}

func (c *Client) post(ctx context.Context, body []byte) (*protocol.GeneratorResponse, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build generator request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read generator response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("generator returned %s", httpResp.Status)
	}

	var out protocol.GeneratorResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, backoff.Permanent(&ProtocolError{Reason: "malformed json: " + err.Error()})
	}
	if out.Result == nil {
		return nil, backoff.Permanent(&ProtocolError{Reason: "response has no result"})
	}
	return &out, nil
}
