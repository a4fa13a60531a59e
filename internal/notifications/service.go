package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/leeyeel/Sisyphus/internal/config"
)

const userAgent = "Sisyphus/0.1.0"

// Summary describes a finished run.
type Summary struct {
	// Operation is "speech" or "translation".
	Operation string
	Input     string
	Output    string
	Items     int
	// Degraded counts skipped segments or mismatched/failed groups.
	Degraded int
	Duration time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary Summary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		completion: cfg.Notifications.Completion,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completion bool
	errors     bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary Summary) error {
	if !n.completion {
		return nil
	}
	op := strings.TrimSpace(summary.Operation)
	if op == "" {
		op = "run"
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var message strings.Builder
	fmt.Fprintf(&message, "%s finished: %s", titleCase(op), baseName(summary.Input))
	fmt.Fprintf(&message, "\n%d entries in %s", summary.Items, duration)
	if summary.Degraded > 0 {
		fmt.Fprintf(&message, ", %d degraded", summary.Degraded)
	}
	if out := strings.TrimSpace(summary.Output); out != "" {
		fmt.Fprintf(&message, "\nOutput: %s", out)
	}

	title := "Sisyphus - " + titleCase(op) + " Complete"
	tags := []string{"sisyphus", op, "completed"}
	if summary.Degraded > 0 {
		title += " (with warnings)"
		tags = append(tags, "warning")
	}
	return n.send(ctx, payload{title: title, message: message.String(), tags: tags})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "Sisyphus - Error",
		message:  builder.String(),
		tags:     []string{"sisyphus", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Sisyphus - Test",
		message:  "Notification system test",
		tags:     []string{"sisyphus", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func baseName(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "input"
	}
	return filepath.Base(path)
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error  { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
