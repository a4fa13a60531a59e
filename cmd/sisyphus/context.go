package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leeyeel/Sisyphus/internal/cache"
	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/workflow"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "flags", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// session holds what one command invocation needs: a run-scoped context and
// logger, the optional checkpoint store and a runner wired to both.
type session struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	store  *cache.Store
	runner *workflow.Runner
}

// openSession builds a session from a private copy of the loaded config.
// mutate, when non-nil, applies command flag overrides to that copy.
func (c *commandContext) openSession(cmd *cobra.Command, mutate func(*config.Config) error) (*session, error) {
	loaded, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg := *loaded
	if mutate != nil {
		if err := mutate(&cfg); err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	ctx := services.WithRunID(cmd.Context(), runID)
	logger, err := logging.NewFromConfig(&cfg, runID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "config", "logging", "", err)
	}
	logger.Debug("configuration loaded", logging.String("config_path", c.configPath))

	store, err := cache.Open(&cfg)
	if err != nil {
		logging.WarnWithContext(logger, "checkpoint cache unavailable; continuing without it", "cache_unavailable",
			logging.Error(err),
			logging.String("cache_path", cfg.Paths.CachePath),
			logging.String(logging.FieldErrorHint, "run 'sisyphus cache clear' or set cache.enabled = false"),
			logging.String(logging.FieldImpact, "finished segments and groups are not reused"),
		)
		store = nil
	}

	runner, err := workflow.NewRunner(&cfg,
		workflow.WithLogger(logger),
		workflow.WithCache(store),
	)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}
	return &session{ctx: ctx, cfg: &cfg, logger: logger, store: store, runner: runner}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close checkpoint cache", logging.Error(err))
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
