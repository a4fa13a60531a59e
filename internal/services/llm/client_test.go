package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leeyeel/Sisyphus/internal/services"
)

func replyHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestCompleteSendsPromptsAndTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "qwen-plus" || req.Temperature != 0.1 {
			t.Errorf("unexpected model/temperature: %s %v", req.Model, req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Hello|||World" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		replyHandler(t, "  你好|||世界 \n")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/v1", Model: "qwen-plus"})
	got, err := client.Complete(context.Background(), "translate", "Hello|||World")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "你好|||世界" {
		t.Fatalf("Complete = %q", got)
	}
}

func TestChatEndpointNormalization(t *testing.T) {
	tests := map[string]string{
		"https://api.openai.com/v1":                   "https://api.openai.com/v1/chat/completions",
		"https://api.openai.com/v1/":                  "https://api.openai.com/v1/chat/completions",
		"https://openrouter.ai/api/v1/chat/completions": "https://openrouter.ai/api/v1/chat/completions",
		"": "https://api.openai.com/v1/chat/completions",
	}
	for in, want := range tests {
		if got := chatEndpoint(in); got != want {
			t.Fatalf("chatEndpoint(%q) = %q want %q", in, got, want)
		}
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
	_, err := client.Complete(context.Background(), "sys", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(replyHandler(t, "OK"))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for rejected credentials, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		replyHandler(t, "done")(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	got, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "done" {
		t.Fatalf("unexpected reply %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := ""
		if calls.Add(1) >= 3 {
			content = "third time"
		}
		replyHandler(t, content)(w, r)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	got, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "third time" || calls.Load() != 3 {
		t.Fatalf("unexpected result %q after %d calls", got, calls.Load())
	}
}

func TestClientGivesUpOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithRetryMaxAttempts(3),
	)
	_, err := client.Complete(context.Background(), "sys", "user")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if !strings.Contains(err.Error(), "http 502") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```srt\n1\n00:00:00,000 --> 00:00:01,000\nhi\n```": "1\n00:00:00,000 --> 00:00:01,000\nhi",
		"```\nplain\n```":   "plain",
		"  no fence here  ": "no fence here",
	}
	for in, want := range tests {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q want %q", in, got, want)
		}
	}
}

func TestRetryPolicyBackoffDoublesUpToCeiling(t *testing.T) {
	p := retryPolicy{attempts: 6, base: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s want %s", i+1, got, w)
		}
	}
	if _, again := p.next(context.Background(), &httpStatusError{StatusCode: http.StatusBadRequest}, 1); again {
		t.Fatal("400 must not be retried")
	}
	if d, again := p.next(context.Background(), &httpStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Minute}, 1); !again || d != 5*time.Second {
		t.Fatalf("Retry-After must be capped: got %s retry=%v", d, again)
	}
}

func TestCompleteForwardsRequestID(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("X-Request-Id"))
		replyHandler(t, "ok")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"})
	ctx := services.WithRequestID(context.Background(), "group-7")
	if _, err := client.Complete(ctx, "sys", "user"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Load() != "group-7" {
		t.Fatalf("X-Request-Id = %v", got.Load())
	}
}
