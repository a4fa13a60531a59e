// Package timeline lays synthesized segments onto one continuous audio track.
package timeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gopxl/beep"

	"github.com/leeyeel/Sisyphus/internal/audio"
	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/pacing"
	"github.com/leeyeel/Sisyphus/internal/services"
)

// Placement records where a segment landed in the output.
type Placement struct {
	Index int
	// PlannedMs is the subtitle start time.
	PlannedMs int64
	// StartMs is where the audio actually begins. It trails PlannedMs when an
	// earlier segment ran long.
	StartMs  int64
	GapMs    int64
	ActualMs int64
	Skipped  bool
}

// DriftMs is how late the segment starts relative to its subtitle.
func (p Placement) DriftMs() int64 {
	return p.StartMs - p.PlannedMs
}

// Track is an assembled speech track held in memory.
type Track struct {
	Audio      *audio.Clip
	Placements []Placement
}

// DurationMs reports the total track length.
func (t *Track) DurationMs() int64 {
	if t == nil || t.Audio == nil {
		return 0
	}
	return t.Audio.Millis()
}

// Skipped returns the indices of segments that contributed no audio.
func (t *Track) Skipped() []int {
	var out []int
	for _, p := range t.Placements {
		if p.Skipped {
			out = append(out, p.Index)
		}
	}
	return out
}

// WriteFile writes the track as PCM WAV.
func (t *Track) WriteFile(path string) error {
	if t == nil || t.Audio == nil {
		return errors.New("timeline: nothing to write")
	}
	return t.Audio.WriteFile(path)
}

// Assembler concatenates segments with silence padding.
type Assembler struct {
	format *beep.Format
	logger *slog.Logger
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithFormat fixes the output format. Without it the first rendered
// segment's format is used, falling back to audio.DefaultFormat.
func WithFormat(format beep.Format) Option {
	return func(a *Assembler) {
		a.format = &format
	}
}

// WithLogger sets the assembler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAssembler returns an assembler.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "timeline")
	return a
}

// Assemble walks segments in order keeping a cursor in milliseconds. Silence
// fills the space between the cursor and each segment's start; a segment that
// starts before the cursor is appended immediately, so overruns push later
// audio back rather than being trimmed. Segments without audio contribute
// nothing and leave no placeholder.
func (a *Assembler) Assemble(ctx context.Context, segments []pacing.Segment) (*Track, error) {
	builder := audio.NewBuilder(a.outputFormat(segments))
	track := &Track{Placements: make([]Placement, 0, len(segments))}

	var cursor int64
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		place := Placement{Index: seg.Index, PlannedMs: seg.Start}
		if gap := seg.Start - cursor; gap > 0 {
			builder.AppendSilence(gap)
			place.GapMs = gap
			cursor = builder.Millis()
		}
		place.StartMs = cursor

		if !seg.OK() {
			place.Skipped = true
			track.Placements = append(track.Placements, place)
			logger := logging.WithContext(services.WithEntryIndex(ctx, seg.Index), a.logger)
			attrs := []logging.Attr{
				logging.String(logging.FieldImpact, "segment is silent in the output track"),
				logging.String(logging.FieldErrorHint, "rerun after fixing the TTS backend; cached segments are reused"),
			}
			if seg.Err != nil {
				attrs = append(attrs, logging.Error(seg.Err))
			}
			logging.WarnWithContext(logger, "skipping invalid segment", "segment_skipped", attrs...)
			continue
		}

		builder.AppendClip(seg.Audio)
		cursor = builder.Millis()
		place.ActualMs = cursor - place.StartMs
		track.Placements = append(track.Placements, place)
	}

	track.Audio = builder.Clip()
	a.logger.Info("timeline assembled",
		logging.Int("segments", len(segments)),
		logging.Int("skipped", len(track.Skipped())),
		logging.Int64("duration_ms", track.DurationMs()),
	)
	return track, nil
}

func (a *Assembler) outputFormat(segments []pacing.Segment) beep.Format {
	if a.format != nil {
		return *a.format
	}
	for _, seg := range segments {
		if seg.OK() {
			return seg.Audio.Format()
		}
	}
	return audio.DefaultFormat()
}
