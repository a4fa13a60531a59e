package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leeyeel/Sisyphus/internal/workspace"
)

func TestOpenCreatesLockedRunDir(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.Open(root, "/videos/Episode 01.srt")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got := ws.Dir(); filepath.Dir(got) != root || !strings.HasPrefix(filepath.Base(got), "Episode 01-") {
		t.Fatalf("unexpected run dir %q", got)
	}
	if got := filepath.Base(ws.SegmentPath(7)); got != "segment_0007.wav" {
		t.Fatalf("unexpected segment name %q", got)
	}

	_, err = workspace.Open(root, "/videos/Episode 01.srt")
	if !errors.Is(err, workspace.ErrBusy) {
		t.Fatalf("expected ErrBusy for second open, got %v", err)
	}

	if err := ws.Close(false); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected run dir removed, stat err=%v", err)
	}
}

func TestCloseKeepRetainsSegments(t *testing.T) {
	ws, err := workspace.Open(t.TempDir(), "talk.srt")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	path := ws.SegmentPath(1)
	if err := os.WriteFile(path, []byte("wav"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	if err := ws.Close(true); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected segment kept: %v", err)
	}
	again, err := workspace.Open(filepath.Dir(ws.Dir()), "talk.srt")
	if err != nil {
		t.Fatalf("reopen after close returned error: %v", err)
	}
	_ = again.Close(false)
}

func TestOpenRejectsEmptyRoot(t *testing.T) {
	if _, err := workspace.Open("  ", "x"); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestOpenSeparatesInputsWithSameBaseName(t *testing.T) {
	root := t.TempDir()
	first, err := workspace.Open(root, "/shows/a/ep1.srt")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer first.Close(false)
	second, err := workspace.Open(root, "/shows/b/ep1.srt")
	if err != nil {
		t.Fatalf("second input with same base name should not be busy: %v", err)
	}
	defer second.Close(false)
	if first.Dir() == second.Dir() {
		t.Fatalf("expected distinct run dirs, both %q", first.Dir())
	}
}
