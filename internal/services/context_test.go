package services_test

import (
	"context"
	"testing"

	"github.com/leeyeel/Sisyphus/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "speak")
	ctx = services.WithEntryIndex(ctx, 42)
	ctx = services.WithGroup(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "speak" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if idx, ok := services.EntryIndexFromContext(ctx); !ok || idx != 42 {
		t.Fatalf("unexpected entry index: %v %v", idx, ok)
	}
	if group, ok := services.GroupFromContext(ctx); !ok || group != 3 {
		t.Fatalf("unexpected group: %v %v", group, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.EntryIndexFromContext(ctx); ok {
		t.Fatal("expected no entry index")
	}
}
