// Package reasoning implements a resilient client for the external reasoning
// provider: primary/secondary failover, bounded exponential backoff and
// structured-output degradation.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"scoreparse/internal/config"
	"scoreparse/internal/port"
)

const maxJitter = 250 * time.Millisecond

type endpoint struct {
	url    string
	apiKey string
}

// Client implements port.ReasoningClient.
type Client struct {
	primary     endpoint
	secondary   *endpoint
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	logRequestBody  bool
	logResponseText bool
	logMaxChars     int

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the backoff sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithJitter replaces the random jitter added to each backoff delay.
func WithJitter(fn func() time.Duration) Option {
	return func(c *Client) { c.jitter = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client from the reasoning provider config.
func NewClient(cfg *config.ReasoningConfig, opts ...Option) (*Client, error) {
	primaryURL, err := cfg.ResolveURL()
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	base := cfg.BaseBackoff
	if base <= 0 {
		base = 800 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 8 * time.Second
	}

	c := &Client{
		primary:         endpoint{url: strings.TrimRight(primaryURL, "/"), apiKey: cfg.APIKey},
		httpClient:      &http.Client{Timeout: timeout},
		maxRetries:      max(0, cfg.MaxRetries),
		baseBackoff:     base,
		maxBackoff:      maxBackoff,
		logRequestBody:  cfg.LogRequestBody,
		logResponseText: cfg.LogResponseText,
		logMaxChars:     cfg.LogMaxChars,
		sleep:           sleepContext,
		jitter:          func() time.Duration { return rand.N(maxJitter) },
		logger:          slog.Default(),
	}
	if cfg.SecondaryConfigured() {
		c.secondary = &endpoint{
			url:    strings.TrimRight(strings.TrimSpace(cfg.SecondaryURL), "/"),
			apiKey: strings.TrimSpace(cfg.SecondaryKey),
		}
	}
	if cfg.RequestsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateStructuredResponse sends one logical request. When a schema is given
// and the provider rejects schema-constrained output, the request is repeated
// once with a free-form JSON contract.
func (c *Client) CreateStructuredResponse(ctx context.Context, req port.StructuredRequest) (*port.StructuredResponse, error) {
	used, body, err := c.send(ctx, req, textFormat(req.Schema))
	if err != nil && req.Schema != nil && isSchemaRejection(err) {
		c.logger.Warn("reasoning.Client.CreateStructuredResponse: schema output rejected, retrying as free-form JSON",
			"schema", req.Schema.Name, "error", err)
		used, body, err = c.send(ctx, req, textFormat(nil))
	}
	if err != nil {
		return nil, err
	}

	resp, err := ParseEnvelope(safeURL(used.url), body)
	if err != nil {
		return nil, err
	}
	if c.logResponseText {
		c.logger.Info("reasoning.Client.CreateStructuredResponse: output text", "text", truncate(resp.Text, c.logMaxChars))
	}
	return resp, nil
}

func textFormat(schema *port.JSONSchema) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{"type": "json_object"}
	}
	return map[string]interface{}{
		"type":   "json_schema",
		"name":   schema.Name,
		"schema": schema.Schema,
		"strict": schema.Strict,
	}
}

func buildPayload(req port.StructuredRequest, model string, format map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"model": model,
		"input": []map[string]interface{}{
			{"type": "message", "role": "system", "content": req.SystemPrompt},
			{"type": "message", "role": "user", "content": req.UserPrompt},
		},
		"text": map[string]interface{}{"format": format},
	}
	if req.ReasoningEffort != "" {
		payload["reasoning"] = map[string]interface{}{"effort": req.ReasoningEffort}
	} else if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxOutputTokens > 0 {
		payload["max_output_tokens"] = req.MaxOutputTokens
	}
	return payload
}

// send tries the primary once, then the secondary once, then retries with
// backoff against whichever endpoint failed last. It returns the endpoint that
// produced the body.
func (c *Client) send(ctx context.Context, req port.StructuredRequest, format map[string]interface{}) (endpoint, []byte, error) {
	primaryBody, err := json.Marshal(buildPayload(req, req.Model, format))
	if err != nil {
		return endpoint{}, nil, fmt.Errorf("reasoning: marshal request: %w", err)
	}
	c.logPayload(c.primary, primaryBody)

	ep, payload := c.primary, primaryBody
	body, err := c.post(ctx, ep, payload)
	if err == nil {
		return ep, body, nil
	}
	if !IsTransient(err) {
		return ep, nil, err
	}

	if c.secondary != nil {
		model := req.Model
		if fm := strings.TrimSpace(req.FallbackModel); fm != "" {
			model = fm
		}
		secondaryBody, mErr := json.Marshal(buildPayload(req, model, format))
		if mErr != nil {
			return ep, nil, fmt.Errorf("reasoning: marshal request: %w", mErr)
		}
		c.logger.Warn("reasoning.Client.send: primary failed, switching to secondary",
			"error", err, "url", safeURL(c.secondary.url), "model", model)

		ep, payload = *c.secondary, secondaryBody
		body, err = c.post(ctx, ep, payload)
		if err == nil {
			return ep, body, nil
		}
		if !IsTransient(err) {
			return ep, nil, err
		}
	}

	body, err = c.retry(ctx, ep, payload, err)
	return ep, body, err
}

func (c *Client) retry(ctx context.Context, ep endpoint, payload []byte, lastErr error) ([]byte, error) {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		delay := c.backoff(attempt, lastErr)
		c.logger.Warn("reasoning.Client.retry: transient failure, backing off",
			"attempt", attempt+1, "max_retries", c.maxRetries,
			"delay", delay, "url", safeURL(ep.url), "error", lastErr)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("reasoning: retry aborted: %w", err)
		}

		body, err := c.post(ctx, ep, payload)
		if err == nil {
			return body, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// backoff returns min(maxBackoff, retry-after or base*2^attempt) plus jitter.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	d := c.baseBackoff << uint(attempt)
	var te *TransientError
	if errors.As(lastErr, &te) && te.RetryAfter > 0 {
		d = te.RetryAfter
	}
	if d > c.maxBackoff || d <= 0 {
		d = c.maxBackoff
	}
	return d + c.jitter()
}

func (c *Client) post(ctx context.Context, ep endpoint, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("reasoning: rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("reasoning: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", ep.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("reasoning: request cancelled: %w", ctx.Err())
		}
		return nil, &TransientError{Endpoint: safeURL(ep.url), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("reasoning: request cancelled: %w", ctx.Err())
		}
		return nil, &TransientError{Endpoint: safeURL(ep.url), Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case isTransientStatus(resp.StatusCode):
		return nil, &TransientError{
			Endpoint:   safeURL(ep.url),
			Status:     resp.StatusCode,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        errors.New(truncate(string(body), 500)),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &NonRecoverableError{
			Endpoint: safeURL(ep.url),
			Status:   resp.StatusCode,
			Body:     truncate(string(body), 500),
		}
	}
	return body, nil
}

func (c *Client) logPayload(ep endpoint, payload []byte) {
	if !c.logRequestBody {
		return
	}
	text := string(payload)
	if c.logMaxChars > 0 && len(text) > c.logMaxChars {
		c.logger.Info("reasoning.Client: request body (truncated)",
			"url", safeURL(ep.url), "chars", len(text), "kept", c.logMaxChars, "body", text[:c.logMaxChars])
		return
	}
	c.logger.Info("reasoning.Client: request body", "url", safeURL(ep.url), "body", text)
}

// safeURL drops query strings and credentials from a URL before logging.
func safeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.Path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
