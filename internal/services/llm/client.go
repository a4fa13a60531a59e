package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leeyeel/Sisyphus/internal/services"
)

const (
	chatCompletionsPath = "chat/completions"
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultHTTPTimeout  = 120 * time.Second
	defaultTemperature  = 0.1
	// Responses beyond this size are treated as garbage.
	maxResponseBytes = 8 << 20
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	// Temperature defaults to 0.1 when zero; use a tiny positive value to
	// request near-deterministic output from providers that reject 0.
	Temperature float64
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	retry      retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts sets how many requests one call may issue (default 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff sets the first backoff delay and the cap applied to every
// delay, Retry-After included.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleeper = sleeper
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.endpoint = chatEndpoint(cfg.BaseURL)
	return client
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// chatEndpoint accepts either an API root (".../v1") or the full
// chat/completions URL.
func chatEndpoint(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/"+chatCompletionsPath) {
		return base
	}
	return base + "/" + chatCompletionsPath
}

// Complete sends one system and one user message and returns the trimmed
// reply text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	switch {
	case systemPrompt == "":
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "system prompt required", nil)
	case strings.TrimSpace(userPrompt) == "":
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "user prompt required", nil)
	case c.cfg.APIKey == "":
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	reply, err := c.chat(ctx, "complete", chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	return reply, nil
}

// HealthCheck sends a tiny prompt to prove the key, model and endpoint work.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "llm", "health", "api key required", nil)
	}
	_, err := c.chat(ctx, "health", chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "Reply with the single word OK."},
			{Role: "user", Content: "ping"},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   8,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// chat posts payload until a non-empty reply arrives or the retry policy
// gives up.
func (c *Client) chat(ctx context.Context, op string, payload chatCompletionRequest) (string, error) {
	attempts := c.retry.maxAttempts()
	for attempt := 1; ; attempt++ {
		reply, err := c.post(ctx, payload)
		if err == nil {
			text, emptyErr := reply.text(op)
			if emptyErr == nil {
				return text, nil
			}
			err = emptyErr
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				return "", fmt.Errorf("llm %s: attempt %d of %d: %w", op, attempt, attempts, err)
			}
			return "", err
		}
		if werr := c.retry.wait(ctx, delay); werr != nil {
			return "", werr
		}
	}
}

func (c *Client) post(ctx context.Context, payload chatCompletionRequest) (chatReply, error) {
	var reply chatReply
	encoded, err := json.Marshal(payload)
	if err != nil {
		return reply, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return reply, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	// OpenRouter attribution headers; other providers ignore them.
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reply, fmt.Errorf("llm request to %s (timeout %s): %w", c.endpoint, c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return reply, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return reply, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return reply, fmt.Errorf("llm request: decode response %s: %w", snippet(string(body)), err)
	}
	if reply.Error != nil {
		return reply, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(reply.Error.Message))
	}
	reply.raw = body
	return reply, nil
}

// classify tags a request failure with the service marker callers branch on.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "llm", "request", "credentials rejected", err)
		case retryableStatus(statusErr.StatusCode):
			return services.Wrap(services.ErrTransient, "llm", "request", "", err)
		}
	}
	return services.Wrap(services.ErrExternalTool, "llm", "request", "", err)
}
