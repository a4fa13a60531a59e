package pacing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leeyeel/Sisyphus/internal/audio"
	"github.com/leeyeel/Sisyphus/internal/cache"
	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
)

// SegmentCache stores rendered clips between runs.
type SegmentCache interface {
	GetSegment(ctx context.Context, key string) ([]byte, bool, error)
	PutSegment(ctx context.Context, rec cache.Segment) error
}

// SegmentSink names the file a rendered clip is written to.
type SegmentSink interface {
	SegmentPath(index int) string
}

// Planner computes speed factors and synthesizes each entry.
type Planner struct {
	estimator   Estimator
	bounds      Bounds
	synth       tts.Synthesizer
	voice       string
	concurrency int
	httpClient  *http.Client
	cache       SegmentCache
	cacheScope  string
	sink        SegmentSink
	logger      *slog.Logger
}

// Option customizes a Planner.
type Option func(*Planner)

// WithLogger sets the planner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithVoice forwards a voice selection with every synthesis request.
func WithVoice(voice string) Option {
	return func(p *Planner) {
		p.voice = strings.TrimSpace(voice)
	}
}

// WithCache enables reuse of clips rendered by earlier runs. scope names
// the backend configuration; clips from a different scope are never reused.
func WithCache(c SegmentCache, scope string) Option {
	return func(p *Planner) {
		p.cache = c
		p.cacheScope = scope
	}
}

// WithSink persists every rendered clip as segment_NNNN.wav.
func WithSink(sink SegmentSink) Option {
	return func(p *Planner) {
		p.sink = sink
	}
}

// WithHTTPClient overrides the client used to download URL results.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Planner) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewPlanner builds a planner from pacing settings.
func NewPlanner(cfg config.Pacing, synth tts.Synthesizer, opts ...Option) (*Planner, error) {
	if synth == nil {
		return nil, errors.New("pacing: synthesizer is required")
	}
	est, err := NewEstimator(cfg.CharsPerSecond)
	if err != nil {
		return nil, err
	}
	bounds := BoundsFromConfig(cfg)
	if err := bounds.validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		estimator:   est,
		bounds:      bounds,
		synth:       synth,
		concurrency: cfg.Concurrency,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pacing")
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p, nil
}

// Decide reports the speed decision for entry without synthesizing.
func (p *Planner) Decide(entry subtitles.Entry) Decision {
	return DecideEntry(p.estimator, p.bounds, entry)
}

// Plan synthesizes one entry. Failures are reported in Segment.Err. An entry
// whose text is empty or blank fails with ErrValidation without calling the
// synthesizer, and the timeline keeps its window silent.
func (p *Planner) Plan(ctx context.Context, entry subtitles.Entry) Segment {
	ctx = services.WithEntryIndex(ctx, entry.Index)
	logger := logging.WithContext(ctx, p.logger)

	decision := p.Decide(entry)
	seg := Segment{Index: entry.Index, Start: entry.Start, End: entry.End, Speed: decision.Speed}
	if decision.ZeroBudget {
		logging.WarnWithContext(logger, "entry has no display window; using default speed", "zero_budget",
			logging.Int64("window_ms", decision.TargetMs),
			logging.Float64("speed", decision.Speed),
			logging.String(logging.FieldErrorHint, "check the entry timing in the source subtitles"),
			logging.String(logging.FieldImpact, "segment will overlap the following entry"),
		)
	} else if decision.Clamped() {
		attrs := logging.DecisionAttrs("speed_clamp", fmt.Sprintf("%.2f", decision.Speed), "estimate outside bounds")
		attrs = append(attrs, logging.Float64("raw_speed", decision.Raw))
		logger.Debug("speed clamped", logging.Args(attrs...)...)
	}

	text := entry.FlatText()
	if text == "" {
		return p.fail(logger, seg, services.Wrap(services.ErrValidation, "pacing", "synthesize", "entry has no text", nil))
	}

	key := cache.SegmentKey(p.cacheScope+"|"+p.voice, text, seg.Speed)
	if clip := p.lookup(ctx, logger, key); clip != nil {
		seg.Audio, seg.ActualMs, seg.Cached = clip, clip.Millis(), true
		p.persist(logger, seg)
		logger.Debug("segment reused from cache", logging.Int64("actual_ms", seg.ActualMs))
		return seg
	}

	started := time.Now()
	result, err := p.synth.Synthesize(ctx, tts.Request{Text: text, Speed: seg.Speed, Voice: p.voice})
	if err != nil {
		return p.fail(logger, seg, err)
	}
	clip, err := resolveResult(ctx, p.httpClient, result)
	if err != nil {
		return p.fail(logger, seg, err)
	}
	seg.Audio, seg.ActualMs = clip, clip.Millis()
	p.persist(logger, seg)
	p.store(ctx, logger, key, text, seg)

	logger.Info("segment synthesized",
		logging.Float64("speed", seg.Speed),
		logging.Int64("window_ms", decision.TargetMs),
		logging.Int64("actual_ms", seg.ActualMs),
		logging.String("result_kind", result.Kind.String()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return seg
}

// PlanAll plans entries in order. With concurrency above one, entries are
// synthesized by a bounded pool and results are placed back by position. A
// failed entry never stops its siblings; only cancellation of ctx does.
func (p *Planner) PlanAll(ctx context.Context, entries []subtitles.Entry) ([]Segment, error) {
	segments := make([]Segment, len(entries))
	if p.concurrency <= 1 {
		for i, entry := range entries {
			if err := ctx.Err(); err != nil {
				return segments[:i], err
			}
			segments[i] = p.Plan(ctx, entry)
		}
		return segments, nil
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			segments[i] = p.Plan(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return segments, err
	}
	return segments, nil
}

func (p *Planner) fail(logger *slog.Logger, seg Segment, err error) Segment {
	seg.Audio, seg.ActualMs, seg.Err = nil, 0, err
	logging.WarnWithContext(logger, "speech synthesis failed; segment skipped", "synthesis_failed",
		logging.Error(err),
		logging.Float64("speed", seg.Speed),
		logging.String(logging.FieldErrorHint, "check the TTS backend with 'sisyphus check'"),
		logging.String(logging.FieldImpact, "segment is silent in the output track"),
	)
	return seg
}

func (p *Planner) lookup(ctx context.Context, logger *slog.Logger, key string) *audio.Clip {
	if p.cache == nil {
		return nil
	}
	data, found, err := p.cache.GetSegment(ctx, key)
	if err != nil {
		logging.WarnWithContext(logger, "segment cache lookup failed", "cache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment is synthesized again"),
		)
		return nil
	}
	if !found {
		return nil
	}
	clip, err := audio.DecodeWAVBytes(data)
	if err != nil {
		logger.Debug("ignoring undecodable cached segment", logging.Error(err))
		return nil
	}
	return clip
}

func (p *Planner) store(ctx context.Context, logger *slog.Logger, key, text string, seg Segment) {
	if p.cache == nil {
		return
	}
	data, err := seg.Audio.WAVBytes()
	if err == nil {
		runID, _ := services.RunIDFromContext(ctx)
		err = p.cache.PutSegment(ctx, cache.Segment{
			Key:        key,
			Voice:      p.voice,
			Text:       text,
			Speed:      seg.Speed,
			WAV:        data,
			DurationMs: seg.ActualMs,
			RunID:      runID,
		})
	}
	if err != nil {
		logging.WarnWithContext(logger, "segment cache write failed", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a rerun synthesizes this segment again"),
		)
	}
}

func (p *Planner) persist(logger *slog.Logger, seg Segment) {
	if p.sink == nil || seg.Audio == nil {
		return
	}
	path := p.sink.SegmentPath(seg.Index)
	if err := seg.Audio.WriteFile(path); err != nil {
		logging.WarnWithContext(logger, "segment file not written", "segment_write_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "output track is unaffected"),
		)
	}
}
