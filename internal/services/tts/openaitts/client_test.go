package openaitts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
	"github.com/leeyeel/Sisyphus/internal/services/tts/openaitts"
)

func TestSynthesizeReturnsInlineWAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["response_format"] != "wav" || body["speed"] != 1.4 || body["voice"] != "nova" || body["input"] != "hello" {
			t.Errorf("unexpected request body: %v", body)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFdata")) //nolint:errcheck
	}))
	defer srv.Close()

	client := openaitts.New(openaitts.Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "tts-1", Voice: "alloy"}, openaitts.WithHTTPClient(srv.Client()))
	result, err := client.Synthesize(context.Background(), tts.Request{Text: " hello ", Speed: 1.4, Voice: "nova"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if result.Kind != tts.KindInline || string(result.Data) != "RIFFdata" || result.ContentType != "audio/wav" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSynthesizeMapsStatusToMarkers(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, services.ErrExternalTool},
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		client := openaitts.New(openaitts.Config{BaseURL: srv.URL, Model: "tts-1"}, openaitts.WithHTTPClient(srv.Client()))
		_, err := client.Synthesize(context.Background(), tts.Request{Text: "x", Speed: 1})
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}
