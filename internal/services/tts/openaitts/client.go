// Package openaitts synthesizes speech through an OpenAI-compatible
// /audio/speech endpoint, requesting WAV output so clips can be measured
// without a codec.
package openaitts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
)

const (
	defaultTimeout = 60 * time.Second
	maxAudioBytes  = 64 << 20
)

// Config holds endpoint and voice settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Voice          string
	TimeoutSeconds int
}

// Client implements tts.Synthesizer.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// New constructs a client.
func New(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// Synthesize requests WAV audio for req and returns it inline.
func (c *Client) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return tts.Result{}, services.Wrap(services.ErrValidation, "synthesis", "openai speech", "text is empty", nil)
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.cfg.Voice
	}
	payload, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          voice,
		Speed:          req.Speed,
		ResponseFormat: "wav",
	})
	if err != nil {
		return tts.Result{}, fmt.Errorf("openai speech: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return tts.Result{}, fmt.Errorf("openai speech: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTransient, "synthesis", "openai speech", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTransient, "synthesis", "openai speech", "read audio", err)
	}
	if resp.StatusCode >= 300 {
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		detail := strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200] + "..."
		}
		return tts.Result{}, services.Wrap(marker, "synthesis", "openai speech", fmt.Sprintf("http %d: %s", resp.StatusCode, detail), nil)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}
	return tts.Inline(body, contentType), nil
}

// Ping lists models to confirm the endpoint and key are accepted.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("openai speech ping: build request: %w", err)
	}
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "preflight", "openai speech ping", "endpoint unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16)) //nolint:errcheck
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrExternalTool, "preflight", "openai speech ping", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}
