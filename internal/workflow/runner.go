package workflow

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/leeyeel/Sisyphus/internal/cache"
	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/notifications"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
	"github.com/leeyeel/Sisyphus/internal/translation"
)

// Runner executes speech and translation runs against one configuration.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	store    *cache.Store

	synth tts.Synthesizer
	chat  translation.ChatCompleter
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithCache shares an open checkpoint store.
func WithCache(store *cache.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithSynthesizer replaces the backend built from tts.backend.
func WithSynthesizer(s tts.Synthesizer) Option {
	return func(r *Runner) {
		r.synth = s
	}
}

// WithChatCompleter replaces the LLM client built from the selected profile.
func WithChatCompleter(c translation.ChatCompleter) Option {
	return func(r *Runner) {
		r.chat = c
	}
}

// NewRunner builds a runner. cfg must already be validated.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("workflow: config is required")
	}
	r := &Runner{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	return r, nil
}

// WithRun returns ctx annotated with a fresh run ID unless one is present.
func WithRun(ctx context.Context) (context.Context, string) {
	if id, ok := services.RunIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return services.WithRunID(ctx, id), id
}

// LoadTrack parses the subtitle file at path. Parse failures are validation
// errors so the CLI exits with a usage status.
func LoadTrack(path string) (subtitles.Track, error) {
	track, err := subtitles.ParseFile(path)
	if err != nil {
		return subtitles.Track{}, services.Wrap(services.ErrValidation, "input", "parse subtitles", "", err)
	}
	return track, nil
}

func (r *Runner) notifyFailure(ctx context.Context, logger *slog.Logger, err error, label string) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if nerr := r.notifier.NotifyError(context.WithoutCancel(ctx), err, label); nerr != nil {
		logger.Debug("error notification failed", logging.Error(nerr))
	}
}

func (r *Runner) notifyCompleted(ctx context.Context, logger *slog.Logger, summary notifications.Summary) {
	if err := r.notifier.NotifyRunCompleted(ctx, summary); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

// siblingPath replaces input's extension with suffix.
func siblingPath(input, suffix string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + suffix
}
