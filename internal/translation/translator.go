package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/leeyeel/Sisyphus/internal/cache"
	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/llm"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
)

// ChatCompleter sends one system and user prompt pair and returns the reply.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GroupCache stores aligned translations between runs.
type GroupCache interface {
	GetTranslation(ctx context.Context, key string) (string, bool, error)
	PutTranslation(ctx context.Context, rec cache.Translation) error
}

// Report summarizes a translation run.
type Report struct {
	Groups int
	// Mismatched lists group numbers that fell back to broadcasting.
	Mismatched []int
	// Failed lists group numbers kept in the source language under keep_source.
	Failed []int
	Cached int
}

// BatchTranslator translates a track group by group.
type BatchTranslator struct {
	client       ChatCompleter
	window       int
	sep          string
	source       string
	target       string
	systemPrompt string
	policy       string
	concurrency  int
	limiter      *rate.Limiter
	cache        GroupCache
	model        string
	logger       *slog.Logger
}

// Option customizes a BatchTranslator.
type Option func(*BatchTranslator)

// WithLogger sets the translator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *BatchTranslator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithCache enables group checkpoints. model is part of the cache key.
func WithCache(c GroupCache, model string) Option {
	return func(t *BatchTranslator) {
		t.cache = c
		t.model = model
	}
}

// WithSystemPrompt replaces the configured system prompt template.
func WithSystemPrompt(prompt string) Option {
	return func(t *BatchTranslator) {
		if strings.TrimSpace(prompt) != "" {
			t.systemPrompt = prompt
		}
	}
}

// NewBatchTranslator builds a translator from translation settings.
func NewBatchTranslator(cfg config.Translation, client ChatCompleter, opts ...Option) (*BatchTranslator, error) {
	if client == nil {
		return nil, errors.New("translation: chat client is required")
	}
	policy := strings.ToLower(strings.TrimSpace(cfg.FailurePolicy))
	if policy == "" {
		policy = config.FailurePolicyAbort
	}
	if policy != config.FailurePolicyAbort && policy != config.FailurePolicyKeepSource {
		return nil, fmt.Errorf("translation: unknown failure policy %q", cfg.FailurePolicy)
	}
	limit := rate.Inf
	if cfg.RequestDelayMs > 0 {
		limit = rate.Every(time.Duration(cfg.RequestDelayMs) * time.Millisecond)
	}
	t := &BatchTranslator{
		client:       client,
		window:       max(cfg.WindowSize, 1),
		sep:          cfg.Separator,
		source:       cfg.SourceLanguage,
		target:       cfg.TargetLanguage,
		systemPrompt: cfg.SystemPrompt,
		policy:       policy,
		concurrency:  max(cfg.Concurrency, 1),
		limiter:      rate.NewLimiter(limit, 1),
		logger:       logging.NewNop(),
	}
	if t.sep == "" {
		t.sep = DefaultSeparator
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "translation")
	return t, nil
}

// Translate returns a copy of track with every entry's text translated.
// Indices and timings are unchanged.
func (t *BatchTranslator) Translate(ctx context.Context, track subtitles.Track) (subtitles.Track, Report, error) {
	groups := GroupEntries(track, t.window, t.sep)
	report := Report{Groups: len(groups)}
	system := RenderPrompt(t.systemPrompt, t.source, t.target, t.sep)

	results := make([][]string, len(groups))
	var mu sync.Mutex
	record := func(fn func(*Report)) {
		mu.Lock()
		fn(&report)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, group := range groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			texts, err := t.translateGroup(gctx, system, group, record)
			if err != nil {
				return err
			}
			results[i] = texts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return subtitles.Track{}, report, err
	}
	if err := ctx.Err(); err != nil {
		return subtitles.Track{}, report, err
	}
	slices.Sort(report.Mismatched)
	slices.Sort(report.Failed)

	texts := make([]string, 0, track.Len())
	for _, r := range results {
		texts = append(texts, r...)
	}
	out, err := track.WithTexts(texts)
	if err != nil {
		return subtitles.Track{}, report, err
	}
	t.logger.Info("translation complete",
		logging.Int("groups", report.Groups),
		logging.Int("mismatched", len(report.Mismatched)),
		logging.Int("failed", len(report.Failed)),
		logging.Int("cached", report.Cached),
	)
	return out, report, nil
}

func (t *BatchTranslator) translateGroup(ctx context.Context, system string, group Group, record func(func(*Report))) ([]string, error) {
	ctx = services.WithRequestID(services.WithGroup(ctx, group.Number), uuid.NewString())
	logger := logging.WithContext(ctx, t.logger)
	if !group.Intact(t.sep) {
		logging.WarnWithContext(logger, "source text contains the group separator", "separator_in_source",
			logging.String("separator", t.sep),
			logging.Int("members", len(group.Members)),
			logging.String(logging.FieldErrorHint, "choose a translation.separator that does not occur in the subtitles"),
			logging.String(logging.FieldImpact, "group is not sent for translation"),
		)
		err := services.Wrap(services.ErrValidation, "translation", "group", fmt.Sprintf("separator %q occurs in source text", t.sep), nil)
		return t.fail(logger, group, err, "choose a translation.separator that does not occur in the subtitles", record)
	}
	key := cache.TranslationKey(t.model, t.target, t.sep, group.Merged)

	if reply, ok := t.lookup(ctx, logger, key); ok {
		if a := AlignTranslation(group, reply, t.sep); !a.Mismatch {
			record(func(r *Report) { r.Cached++ })
			logger.Debug("group reused from cache", logging.Int("members", len(group.Members)))
			return a.Texts, nil
		}
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	reply, err := t.client.Complete(ctx, system, group.Merged)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return t.fail(logger, group, err, "check the LLM profile with 'sisyphus check'", record)
	}

	a := AlignTranslation(group, reply, t.sep)
	if a.Mismatch {
		record(func(r *Report) { r.Mismatched = append(r.Mismatched, group.Number) })
		logging.WarnWithContext(logger, "translated segment count differs from group size; broadcasting full reply", "alignment_mismatch",
			logging.Int("expected", a.Expected),
			logging.Int("actual", a.Actual),
			logging.String("separator", t.sep),
			logging.String(logging.FieldErrorHint, "lower translation.window_size or choose a separator the model preserves"),
			logging.String(logging.FieldImpact, "every entry in the group shows the whole translated text"),
		)
		return a.Texts, nil
	}
	t.store(ctx, logger, key, group, reply)
	logger.Debug("group translated", logging.Int("members", len(group.Members)))
	return a.Texts, nil
}

// fail applies the failure policy to a group that could not be translated.
func (t *BatchTranslator) fail(logger *slog.Logger, group Group, err error, hint string, record func(func(*Report))) ([]string, error) {
	if t.policy != config.FailurePolicyKeepSource {
		return nil, fmt.Errorf("translate group %d: %w", group.Number, err)
	}
	record(func(r *Report) { r.Failed = append(r.Failed, group.Number) })
	attrs := logging.DecisionAttrs("failure_policy", config.FailurePolicyKeepSource, "group could not be translated")
	attrs = append(attrs,
		logging.Error(err),
		logging.Int("members", len(group.Members)),
		logging.String(logging.FieldErrorHint, hint),
	)
	logging.ErrorWithContext(logger, "group not translated; keeping source text", "translation_failed", attrs...)
	return group.Sources(), nil
}

func (t *BatchTranslator) lookup(ctx context.Context, logger *slog.Logger, key string) (string, bool) {
	if t.cache == nil {
		return "", false
	}
	reply, found, err := t.cache.GetTranslation(ctx, key)
	if err != nil {
		logging.WarnWithContext(logger, "translation cache lookup failed", "cache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "group is translated again"),
		)
		return "", false
	}
	return reply, found
}

func (t *BatchTranslator) store(ctx context.Context, logger *slog.Logger, key string, group Group, reply string) {
	if t.cache == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	err := t.cache.PutTranslation(ctx, cache.Translation{
		Key:            key,
		Model:          t.model,
		TargetLanguage: t.target,
		Separator:      t.sep,
		SourceText:     group.Merged,
		TranslatedText: reply,
		RunID:          runID,
	})
	if err != nil {
		logging.WarnWithContext(logger, "translation cache write failed", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a rerun translates this group again"),
		)
	}
}

// TranslateWholeFile sends the complete document in one request and parses
// the reply as SRT. A reply that does not parse is an error; nothing is
// written from it.
func (t *BatchTranslator) TranslateWholeFile(ctx context.Context, track subtitles.Track) (subtitles.Track, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	if err := t.limiter.Wait(ctx); err != nil {
		return subtitles.Track{}, err
	}
	system := RenderPrompt(WholeFilePrompt, t.source, t.target, t.sep)
	reply, err := t.client.Complete(ctx, system, wholeFileUserPreamble+track.Format())
	if err != nil {
		return subtitles.Track{}, fmt.Errorf("translate document: %w", err)
	}
	out, err := subtitles.ParseString(llm.StripCodeFence(reply))
	if err != nil {
		return subtitles.Track{}, services.Wrap(services.ErrExternalTool, "translation", "whole file", "reply is not valid SRT", err)
	}
	if out.Len() == 0 && track.Len() > 0 {
		return subtitles.Track{}, services.Wrap(services.ErrExternalTool, "translation", "whole file", "reply contains no subtitles", nil)
	}
	if out.Len() != track.Len() {
		logging.WarnWithContext(t.logger, "translated document has a different cue count", "cue_count_changed",
			logging.Int("expected", track.Len()),
			logging.Int("actual", out.Len()),
			logging.String(logging.FieldImpact, "output timing follows the model's reply"),
		)
	}
	t.logger.Info("document translated", logging.Int("entries", out.Len()))
	return out, nil
}
