package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/notifications"
	"github.com/leeyeel/Sisyphus/internal/pacing"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
	"github.com/leeyeel/Sisyphus/internal/timeline"
	"github.com/leeyeel/Sisyphus/internal/workspace"
)

// SpeechRequest describes one speak run.
type SpeechRequest struct {
	Input string
	// Output defaults to the input path with a .wav extension.
	Output string
	// KeepSegments leaves segment_NNNN.wav files in the work directory.
	KeepSegments bool
}

// SpeechResult reports what a speak run produced.
type SpeechResult struct {
	Output   string
	Segments []pacing.Segment
	Track    *timeline.Track
	// WorkDir is set when segment files were kept.
	WorkDir  string
	Duration time.Duration
}

// Failed counts segments without audio.
func (r SpeechResult) Failed() int {
	n := 0
	for _, seg := range r.Segments {
		if !seg.OK() {
			n++
		}
	}
	return n
}

// RenderSpeech synthesizes every entry of req.Input and writes the assembled
// track to req.Output.
func (r *Runner) RenderSpeech(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	ctx, runID := WithRun(ctx)
	ctx = services.WithStage(ctx, "speech")
	logger := logging.WithContext(ctx, r.logger)

	result, err := r.renderSpeech(ctx, req, runID)
	if err != nil {
		logger.Error("speech run failed", logging.Error(err), logging.String("input", req.Input))
		r.notifyFailure(ctx, logger, err, "speech for "+req.Input)
		return result, err
	}
	r.notifyCompleted(ctx, logger, notifications.Summary{
		Operation: "speech",
		Input:     req.Input,
		Output:    result.Output,
		Items:     len(result.Segments),
		Degraded:  result.Failed(),
		Duration:  result.Duration,
	})
	return result, nil
}

func (r *Runner) renderSpeech(ctx context.Context, req SpeechRequest, runID string) (SpeechResult, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, r.logger)
	result := SpeechResult{Output: strings.TrimSpace(req.Output)}
	if result.Output == "" {
		result.Output = siblingPath(req.Input, ".wav")
	}

	track, err := LoadTrack(req.Input)
	if err != nil {
		return result, err
	}
	if track.Len() == 0 {
		return result, services.Wrap(services.ErrValidation, "input", "parse subtitles", "no entries in "+req.Input, nil)
	}

	synth := r.synth
	if synth == nil {
		backend, err := NewSynthesizer(r.cfg, r.logger)
		if err != nil {
			return result, err
		}
		synth = backend
	}

	ws, err := workspace.Open(r.cfg.Paths.WorkDir, req.Input)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "speech", "open workspace", "", err)
	}
	defer func() {
		if cerr := ws.Close(req.KeepSegments); cerr != nil {
			logger.Warn("workspace cleanup failed",
				logging.Error(cerr),
				logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory by hand"),
				logging.String(logging.FieldImpact, "stale segment files remain on disk"),
			)
		}
	}()
	if req.KeepSegments {
		result.WorkDir = ws.Dir()
	}

	opts := []pacing.Option{
		pacing.WithLogger(r.logger),
		pacing.WithSink(ws),
	}
	if r.store != nil {
		opts = append(opts, pacing.WithCache(r.store, cacheScope(r.cfg)))
	}
	planner, err := pacing.NewPlanner(r.cfg.Pacing, synth, opts...)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "speech", "build planner", "", err)
	}

	logger.Info("speech run started",
		logging.String("input", req.Input),
		logging.Int("entries", track.Len()),
		logging.String("backend", r.cfg.TTS.Backend),
		logging.Int("concurrency", r.cfg.Pacing.Concurrency),
		logging.String(logging.FieldRunID, runID),
	)
	segments, err := planner.PlanAll(ctx, track.Entries)
	result.Segments = segments
	if err != nil {
		return result, err
	}
	if failed := result.Failed(); failed == len(segments) {
		logging.WarnWithContext(logger, "every segment failed; output is silence only", "all_segments_failed",
			logging.Int("segments", failed),
			logging.String(logging.FieldErrorHint, "run 'sisyphus check' to test the TTS backend"),
			logging.String(logging.FieldImpact, fmt.Sprintf("%s contains no speech", result.Output)),
		)
	}

	assembled, err := timeline.NewAssembler(timeline.WithLogger(r.logger)).Assemble(ctx, segments)
	if err != nil {
		return result, err
	}
	result.Track = assembled
	if err := assembled.WriteFile(result.Output); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "speech", "write output", "", err)
	}
	result.Duration = time.Since(started)

	logger.Info("speech run complete",
		logging.String("output", result.Output),
		logging.Int("segments", len(segments)),
		logging.Int("failed", result.Failed()),
		logging.Int64("track_ms", assembled.DurationMs()),
		logging.Duration("elapsed", result.Duration),
	)
	return result, nil
}

// PacingRow is one line of a dry-run pacing preview.
type PacingRow struct {
	Entry    subtitles.Entry
	Decision pacing.Decision
}

// PreviewPacing computes speed decisions for every entry without calling a
// synthesis backend.
func (r *Runner) PreviewPacing(input string) ([]PacingRow, error) {
	track, err := LoadTrack(input)
	if err != nil {
		return nil, err
	}
	est, err := pacing.NewEstimator(r.cfg.Pacing.CharsPerSecond)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "estimator", "", err)
	}
	bounds := pacing.BoundsFromConfig(r.cfg.Pacing)
	rows := make([]PacingRow, len(track.Entries))
	for i, entry := range track.Entries {
		rows[i] = PacingRow{Entry: entry, Decision: pacing.DecideEntry(est, bounds, entry)}
	}
	return rows, nil
}
