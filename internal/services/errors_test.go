package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leeyeel/Sisyphus/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "translate", "group 3", "chat completion failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"translate", "group 3", "chat completion failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for nil marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestExitCodeMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "subtitles", "parse", "bad timestamp", nil)
	if code := services.ExitCode(validationErr); code != 2 {
		t.Fatalf("expected exit code 2 for validation error, got %d", code)
	}

	wrapped := fmt.Errorf("load: %w", services.Wrap(services.ErrConfiguration, "config", "", "missing key", nil))
	if code := services.ExitCode(wrapped); code != 2 {
		t.Fatalf("expected exit code 2 for configuration error, got %d", code)
	}

	transientErr := services.Wrap(services.ErrExternalTool, "translate", "complete", "http 500", errors.New("io"))
	if code := services.ExitCode(transientErr); code != 1 {
		t.Fatalf("expected exit code 1 for external tool error, got %d", code)
	}

	if code := services.ExitCode(nil); code != 0 {
		t.Fatalf("expected exit code 0 for nil error, got %d", code)
	}
}
