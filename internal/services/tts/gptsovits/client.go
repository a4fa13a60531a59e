// Package gptsovits drives a GPT-SoVITS inference web UI through its Gradio
// HTTP API.
//
// One synthesis is three requests: the reference voice sample is uploaded
// once per path (/gradio_api/upload), the inference call is queued
// (POST /gradio_api/call/<api>), and its result is read from the event
// stream (GET /gradio_api/call/<api>/<event_id>).
package gptsovits

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
)

const defaultTimeout = 120 * time.Second

// Config mirrors the inference parameters exposed by the web UI.
type Config struct {
	BaseURL        string
	APIName        string
	RefWavPath     string
	PromptTextPath string
	PromptLanguage string
	TextLanguage   string
	HowToCut       string
	TopK           int
	TopP           float64
	Temperature    float64
	RefFree        bool
	IfFreeze       bool
	SampleSteps    int
	IfSR           bool
	PauseSecond    float64
	TimeoutSeconds int
}

// Client implements tts.Synthesizer against a GPT-SoVITS server.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.Mutex
	uploads    map[string]string
	promptText string
	promptRead bool
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

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
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
	cfg.APIName = strings.Trim(strings.TrimSpace(cfg.APIName), "/")
	if cfg.APIName == "" {
		cfg.APIName = "get_tts_wav"
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
		uploads:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "gptsovits")
	return client
}

// Synthesize runs one inference call. The server answers with a file it
// keeps on its side, so the result is a KindURL pointing at the Gradio file
// route (or the file path when the server and caller share a filesystem).
func (c *Client) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return tts.Result{}, services.Wrap(services.ErrValidation, "synthesis", "gptsovits", "text is empty", nil)
	}
	refPath := strings.TrimSpace(req.Voice)
	if refPath == "" {
		refPath = c.cfg.RefWavPath
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	promptText, err := c.loadPromptText()
	if err != nil {
		return tts.Result{}, err
	}
	refFile, err := c.uploadReference(ctx, refPath)
	if err != nil {
		return tts.Result{}, err
	}

	data := []any{
		refFile,
		promptText,
		c.cfg.PromptLanguage,
		text,
		c.cfg.TextLanguage,
		c.cfg.HowToCut,
		c.cfg.TopK,
		c.cfg.TopP,
		c.cfg.Temperature,
		c.cfg.RefFree,
		speed,
		c.cfg.IfFreeze,
		nil, // inp_refs
		c.cfg.SampleSteps,
		c.cfg.IfSR,
		c.cfg.PauseSecond,
	}
	eventID, err := c.queueCall(ctx, data)
	if err != nil {
		return tts.Result{}, err
	}
	output, err := c.awaitResult(ctx, eventID)
	if err != nil {
		return tts.Result{}, err
	}
	return c.resultFromFile(output)
}

// Ping checks that the Gradio API answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/gradio_api/info", nil)
	if err != nil {
		return fmt.Errorf("gptsovits ping: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "preflight", "gptsovits ping", "server unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16)) //nolint:errcheck
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrExternalTool, "preflight", "gptsovits ping", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) loadPromptText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.promptRead {
		return c.promptText, nil
	}
	path := strings.TrimSpace(c.cfg.PromptTextPath)
	if path == "" {
		c.promptRead = true
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "synthesis", "gptsovits", "read prompt text", err)
	}
	c.promptText = strings.TrimSpace(string(data))
	c.promptRead = true
	return c.promptText, nil
}

// fileData is Gradio's file reference payload.
type fileData struct {
	Path     string            `json:"path"`
	URL      string            `json:"url,omitempty"`
	OrigName string            `json:"orig_name,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

func (c *Client) uploadReference(ctx context.Context, path string) (*fileData, error) {
	if strings.TrimSpace(path) == "" {
		if c.cfg.RefFree {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "gptsovits", "reference wav path is not configured", nil)
	}
	c.mu.Lock()
	remote, ok := c.uploads[path]
	c.mu.Unlock()
	if ok {
		return gradioFile(remote, filepath.Base(path)), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "gptsovits", "open reference wav", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("gptsovits upload: create form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("gptsovits upload: copy reference: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gptsovits upload: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/gradio_api/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("gptsovits upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var paths []string
	if err := c.doJSON(req, "upload", &paths); err != nil {
		return nil, err
	}
	if len(paths) == 0 || strings.TrimSpace(paths[0]) == "" {
		return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits upload", "server returned no file path", nil)
	}

	c.mu.Lock()
	c.uploads[path] = paths[0]
	c.mu.Unlock()
	c.logger.Debug("reference voice uploaded", logging.String("local", path), logging.String("remote", paths[0]))
	return gradioFile(paths[0], filepath.Base(path)), nil
}

func gradioFile(remote, name string) *fileData {
	return &fileData{
		Path:     remote,
		OrigName: name,
		Meta:     map[string]string{"_type": "gradio.FileData"},
	}
}

func (c *Client) queueCall(ctx context.Context, data []any) (string, error) {
	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return "", fmt.Errorf("gptsovits call: encode payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/gradio_api/call/%s", c.cfg.BaseURL, c.cfg.APIName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gptsovits call: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var queued struct {
		EventID string `json:"event_id"`
	}
	if err := c.doJSON(req, "call", &queued); err != nil {
		return "", err
	}
	if strings.TrimSpace(queued.EventID) == "" {
		return "", services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits call", "server returned no event id", nil)
	}
	return queued.EventID, nil
}

func (c *Client) awaitResult(ctx context.Context, eventID string) (*fileData, error) {
	endpoint := fmt.Sprintf("%s/gradio_api/call/%s/%s", c.cfg.BaseURL, c.cfg.APIName, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("gptsovits result: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "synthesis", "gptsovits result", "stream request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError("gptsovits result", resp.StatusCode, body)
	}

	events, err := readEvents(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "read event stream", err)
	}
	for _, ev := range events {
		switch ev.name {
		case "complete":
			var outputs []json.RawMessage
			if err := json.Unmarshal([]byte(ev.data), &outputs); err != nil {
				return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "decode outputs", err)
			}
			if len(outputs) == 0 {
				return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "no outputs", nil)
			}
			var file fileData
			if err := json.Unmarshal(outputs[0], &file); err != nil {
				return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "decode audio reference", err)
			}
			return &file, nil
		case "error":
			detail := strings.TrimSpace(ev.data)
			if detail == "" || detail == "null" {
				detail = "inference failed (see server log)"
			}
			return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", detail, nil)
		}
	}
	return nil, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "stream ended without a result", nil)
}

func (c *Client) resultFromFile(file *fileData) (tts.Result, error) {
	if file == nil {
		return tts.Result{}, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "empty audio reference", nil)
	}
	if u := strings.TrimSpace(file.URL); u != "" {
		return tts.URL(u), nil
	}
	path := strings.TrimSpace(file.Path)
	if path == "" {
		return tts.Result{}, services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits result", "audio reference has no path or url", nil)
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return tts.File(path), nil
	}
	return tts.URL(fmt.Sprintf("%s/gradio_api/file=%s", c.cfg.BaseURL, path)), nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "synthesis", "gptsovits "+op, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "synthesis", "gptsovits "+op, "read response", err)
	}
	if resp.StatusCode >= 300 {
		return statusError("gptsovits "+op, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesis", "gptsovits "+op, "decode response", err)
	}
	return nil
}

func statusError(op string, status int, body []byte) error {
	marker := services.ErrExternalTool
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		marker = services.ErrTransient
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	return services.Wrap(marker, "synthesis", op, fmt.Sprintf("http %d: %s", status, detail), nil)
}

type sseEvent struct {
	name string
	data string
}

// readEvents parses a text/event-stream body until it closes.
func readEvents(r io.Reader) ([]sseEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var (
		events  []sseEvent
		current sseEvent
		data    []string
	)
	emit := func() {
		if current.name == "" && len(data) == 0 {
			return
		}
		current.data = strings.Join(data, "\n")
		events = append(events, current)
		current = sseEvent{}
		data = nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			emit()
		case strings.HasPrefix(line, "event:"):
			current.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	emit()
	if len(events) == 0 {
		return nil, errors.New("no events received")
	}
	return events, nil
}
