package pacing_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leeyeel/Sisyphus/internal/audio"
	"github.com/leeyeel/Sisyphus/internal/cache"
	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/pacing"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
	"github.com/leeyeel/Sisyphus/internal/workspace"
)

func pacingConfig(concurrency int) config.Pacing {
	return config.Pacing{CharsPerSecond: 2.5, SpeedMin: 0.7, SpeedMax: 1.5, DefaultSpeed: 1.0, Concurrency: concurrency}
}

func silenceWAV(t *testing.T, ms int64) []byte {
	t.Helper()
	data, err := audio.Silence(audio.DefaultFormat(), ms).WAVBytes()
	if err != nil {
		t.Fatalf("encode silence: %v", err)
	}
	return data
}

type recordingSynth struct {
	mu       sync.Mutex
	requests []tts.Request
	respond  func(req tts.Request) (tts.Result, error)
}

func (s *recordingSynth) Synthesize(_ context.Context, req tts.Request) (tts.Result, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(req)
}

func (s *recordingSynth) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type memoryCache struct {
	mu   sync.Mutex
	rows map[string][]byte
}

func (c *memoryCache) GetSegment(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.rows[key]
	return data, ok, nil
}

func (c *memoryCache) PutSegment(_ context.Context, rec cache.Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rows == nil {
		c.rows = map[string][]byte{}
	}
	c.rows[rec.Key] = rec.WAV
	return nil
}

type dirSink string

func (d dirSink) SegmentPath(index int) string {
	return filepath.Join(string(d), workspace.SegmentFileName(index))
}

func entry(index int, start, end int64, lines ...string) subtitles.Entry {
	return subtitles.Entry{Index: index, Start: start, End: end, Lines: lines}
}

func TestPlanInlineResult(t *testing.T) {
	wav := silenceWAV(t, 1800)
	synth := &recordingSynth{respond: func(tts.Request) (tts.Result, error) {
		return tts.Inline(wav, "audio/wav"), nil
	}}
	planner, err := pacing.NewPlanner(pacingConfig(1), synth, pacing.WithVoice("alloy"))
	if err != nil {
		t.Fatalf("NewPlanner returned error: %v", err)
	}

	seg := planner.Plan(context.Background(), entry(3, 0, 2000, "Hello", "world"))
	if !seg.OK() {
		t.Fatalf("expected rendered segment, got err %v", seg.Err)
	}
	if seg.ActualMs != 1800 || seg.Index != 3 {
		t.Fatalf("unexpected segment %+v", seg)
	}
	req := synth.requests[0]
	if req.Text != "Hello world" || req.Voice != "alloy" {
		t.Fatalf("unexpected request %+v", req)
	}
	// 11 code points at 2.5/s is 4.4s squeezed into 2s.
	if req.Speed != 1.5 || seg.Speed != 1.5 {
		t.Fatalf("expected clamped speed 1.5, got request %v segment %v", req.Speed, seg.Speed)
	}
	if seg.OverrunMs() != -200 {
		t.Fatalf("OverrunMs = %d", seg.OverrunMs())
	}
}

func TestPlanSpeedStaysInBoundsForExtremeRatios(t *testing.T) {
	wav := silenceWAV(t, 100)
	synth := &recordingSynth{respond: func(tts.Request) (tts.Result, error) {
		return tts.Inline(wav, ""), nil
	}}
	planner, err := pacing.NewPlanner(pacingConfig(1), synth)
	if err != nil {
		t.Fatalf("NewPlanner returned error: %v", err)
	}
	entries := []subtitles.Entry{
		entry(1, 0, 2000, strings.Repeat("字", 50)),
		entry(2, 0, 60_000, "ok"),
		entry(3, 1000, 1000, "same"),
		entry(4, 2000, 1000, "backwards"),
		entry(5, 0, 1, "tiny window"),
	}
	for _, e := range entries {
		seg := planner.Plan(context.Background(), e)
		if seg.Speed < 0.7 || seg.Speed > 1.5 {
			t.Fatalf("entry %d speed %v outside [0.7, 1.5]", e.Index, seg.Speed)
		}
		if !seg.OK() {
			t.Fatalf("entry %d: degenerate window should still synthesize, got %v", e.Index, seg.Err)
		}
	}
	if synth.calls() != len(entries) {
		t.Fatalf("expected %d synth calls, got %d", len(entries), synth.calls())
	}
}

func TestPlanFailureIsLocalAndLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	synth := &recordingSynth{respond: func(tts.Request) (tts.Result, error) {
		return tts.Result{}, errors.New("backend down")
	}}
	planner, err := pacing.NewPlanner(pacingConfig(1), synth, pacing.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewPlanner returned error: %v", err)
	}
	seg := planner.Plan(context.Background(), entry(2, 3000, 5000, "Hi"))
	if seg.Audio != nil || seg.ActualMs != 0 || seg.Err == nil {
		t.Fatalf("expected failed segment, got %+v", seg)
	}
	out := logs.String()
	for _, want := range []string{`"event_type":"synthesis_failed"`, `"entry":2`, `"component":"pacing"`, "backend down"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %s: %s", want, out)
		}
	}
}

func TestPlanRejectsUndecodableResult(t *testing.T) {
	synth := &recordingSynth{respond: func(tts.Request) (tts.Result, error) {
		return tts.Inline([]byte("not a wav"), ""), nil
	}}
	planner, _ := pacing.NewPlanner(pacingConfig(1), synth)
	seg := planner.Plan(context.Background(), entry(1, 0, 1000, "x"))
	if seg.OK() || seg.Err == nil {
		t.Fatalf("expected failure for garbage payload, got %+v", seg)
	}
}

func TestPlanResolvesFileAndURLResults(t *testing.T) {
	wav := silenceWAV(t, 500)
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/out.wav" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(wav)
	}))
	defer server.Close()

	results := map[string]tts.Result{
		"file":    tts.File(path),
		"url":     tts.URL(server.URL + "/file/out.wav"),
		"missing": tts.URL(server.URL + "/nope"),
	}
	synth := &recordingSynth{respond: func(req tts.Request) (tts.Result, error) {
		return results[req.Text], nil
	}}
	planner, _ := pacing.NewPlanner(pacingConfig(1), synth, pacing.WithHTTPClient(server.Client()))

	for _, kind := range []string{"file", "url"} {
		seg := planner.Plan(context.Background(), entry(1, 0, 1000, kind))
		if !seg.OK() || seg.ActualMs != 500 {
			t.Fatalf("%s result: unexpected segment %+v", kind, seg)
		}
	}
	if seg := planner.Plan(context.Background(), entry(1, 0, 1000, "missing")); seg.OK() {
		t.Fatal("expected failure for 404 download")
	}
}

func TestPlanEmptyTextFailsWithoutCallingBackend(t *testing.T) {
	synth := &recordingSynth{respond: func(tts.Request) (tts.Result, error) {
		t.Fatal("synthesizer should not be called")
		return tts.Result{}, nil
	}}
	planner, _ := pacing.NewPlanner(pacingConfig(1), synth)
	if seg := planner.Plan(context.Background(), entry(1, 0, 1000, "  ")); seg.Err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestPlanReusesCachedSegmentsAndWritesFiles(t *testing.T) {
	wav := silenceWAV(t, 700)
	synth := &recordingSynth{respond: func(tts.Request) (tts.Result, error) {
		return tts.Inline(wav, ""), nil
	}}
	store := &memoryCache{}
	dir := t.TempDir()
	planner, _ := pacing.NewPlanner(pacingConfig(1), synth, pacing.WithCache(store, "test"), pacing.WithSink(dirSink(dir)))

	first := planner.Plan(context.Background(), entry(4, 0, 1000, "cache me"))
	second := planner.Plan(context.Background(), entry(4, 0, 1000, "cache me"))
	if !first.OK() || !second.OK() {
		t.Fatalf("expected both rendered: %v / %v", first.Err, second.Err)
	}
	if first.Cached || !second.Cached {
		t.Fatalf("expected only second to come from cache: %v %v", first.Cached, second.Cached)
	}
	if synth.calls() != 1 {
		t.Fatalf("expected one backend call, got %d", synth.calls())
	}
	clip, err := audio.DecodeWAVFile(filepath.Join(dir, "segment_0004.wav"))
	if err != nil {
		t.Fatalf("segment file not readable: %v", err)
	}
	if clip.Millis() != 700 {
		t.Fatalf("segment file length %d", clip.Millis())
	}
}

func TestPlanAllPreservesOrderUnderConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	synth := &recordingSynth{}
	synth.respond = func(req tts.Request) (tts.Result, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		if req.Text == "bad" {
			return tts.Result{}, errors.New("rejected")
		}
		ms := int64(100 * len(req.Text))
		data, err := audio.Silence(audio.DefaultFormat(), ms).WAVBytes()
		if err != nil {
			return tts.Result{}, err
		}
		return tts.Inline(data, ""), nil
	}
	planner, _ := pacing.NewPlanner(pacingConfig(2), synth)

	entries := []subtitles.Entry{
		entry(1, 0, 1000, "a"),
		entry(2, 1000, 2000, "bb"),
		entry(3, 2000, 3000, "bad"),
		entry(4, 3000, 4000, "dddd"),
		entry(5, 4000, 5000, "eeeee"),
	}
	segments, err := planner.PlanAll(context.Background(), entries)
	if err != nil {
		t.Fatalf("PlanAll returned error: %v", err)
	}
	if len(segments) != len(entries) {
		t.Fatalf("expected %d segments, got %d", len(entries), len(segments))
	}
	for i, seg := range segments {
		if seg.Index != entries[i].Index {
			t.Fatalf("segment %d out of order: index %d", i, seg.Index)
		}
	}
	if segments[2].Err == nil || segments[4].ActualMs != 500 || segments[1].ActualMs != 200 {
		t.Fatalf("unexpected results: %+v", segments)
	}
	if peak.Load() > 2 {
		t.Fatalf("concurrency limit exceeded: %d", peak.Load())
	}
}

func TestPlanAllStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	synth := &recordingSynth{}
	synth.respond = func(tts.Request) (tts.Result, error) {
		cancel()
		return tts.Result{}, context.Canceled
	}
	planner, _ := pacing.NewPlanner(pacingConfig(1), synth)
	_, err := planner.PlanAll(ctx, []subtitles.Entry{entry(1, 0, 1000, "a"), entry(2, 1000, 2000, "b")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if synth.calls() != 1 {
		t.Fatalf("expected planning to stop after cancel, got %d calls", synth.calls())
	}
}

func TestNewPlannerValidatesInputs(t *testing.T) {
	synth := &recordingSynth{}
	if _, err := pacing.NewPlanner(pacingConfig(1), nil); err == nil {
		t.Fatal("expected error for nil synthesizer")
	}
	bad := pacingConfig(1)
	bad.SpeedMax = 0.5
	if _, err := pacing.NewPlanner(bad, synth); err == nil {
		t.Fatal("expected error for inverted bounds")
	}
	bad = pacingConfig(1)
	bad.CharsPerSecond = 0
	if _, err := pacing.NewPlanner(bad, synth); err == nil {
		t.Fatal("expected error for zero chars per second")
	}
}
