package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/leeyeel/Sisyphus/internal/logging"
	"github.com/leeyeel/Sisyphus/internal/notifications"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/llm"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
	"github.com/leeyeel/Sisyphus/internal/translation"
)

// TranslateRequest describes one translate run. Zero values fall back to
// the [translation] and [llm] config sections.
type TranslateRequest struct {
	Input string
	// Output defaults to <input>.<target>.srt.
	Output         string
	Profile        string
	Window         int
	TargetLanguage string
	WholeFile      bool
}

// TranslateResult reports what a translate run produced.
type TranslateResult struct {
	Output   string
	Track    subtitles.Track
	Report   translation.Report
	Model    string
	Duration time.Duration
}

// TranslateSubtitles translates req.Input and writes the result as SRT.
func (r *Runner) TranslateSubtitles(ctx context.Context, req TranslateRequest) (TranslateResult, error) {
	ctx, _ = WithRun(ctx)
	ctx = services.WithStage(ctx, "translation")
	logger := logging.WithContext(ctx, r.logger)

	result, err := r.translateSubtitles(ctx, req)
	if err != nil {
		logger.Error("translation run failed", logging.Error(err), logging.String("input", req.Input))
		r.notifyFailure(ctx, logger, err, "translation of "+req.Input)
		return result, err
	}
	r.notifyCompleted(ctx, logger, notifications.Summary{
		Operation: "translation",
		Input:     req.Input,
		Output:    result.Output,
		Items:     result.Track.Len(),
		Degraded:  len(result.Report.Mismatched) + len(result.Report.Failed),
		Duration:  result.Duration,
	})
	return result, nil
}

func (r *Runner) translateSubtitles(ctx context.Context, req TranslateRequest) (TranslateResult, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, r.logger)

	settings := r.cfg.Translation
	if req.Window > 0 {
		settings.WindowSize = req.Window
	}
	if target := strings.TrimSpace(req.TargetLanguage); target != "" {
		settings.TargetLanguage = target
	}
	result := TranslateResult{Output: strings.TrimSpace(req.Output)}
	if result.Output == "" {
		result.Output = siblingPath(req.Input, "."+settings.TargetLanguage+".srt")
	}

	llmCfg, err := r.cfg.ResolveLLM(req.Profile)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "translation", "select profile", "", err)
	}
	result.Model = llmCfg.Model

	track, err := LoadTrack(req.Input)
	if err != nil {
		return result, err
	}

	chat := r.chat
	if chat == nil {
		if llmCfg.APIKey == "" {
			return result, services.Wrap(services.ErrConfiguration, "translation", "select profile",
				"no api key for llm profile "+llmCfg.Profile, nil)
		}
		chat = llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
			Temperature:    settings.Temperature,
		})
	}

	opts := []translation.Option{
		translation.WithLogger(r.logger),
		translation.WithSystemPrompt(llmCfg.SystemPrompt),
	}
	if r.store != nil {
		opts = append(opts, translation.WithCache(r.store, llmCfg.Model))
	}
	translator, err := translation.NewBatchTranslator(settings, chat, opts...)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "translation", "build translator", "", err)
	}

	logger.Info("translation run started",
		logging.String("input", req.Input),
		logging.Int("entries", track.Len()),
		logging.String("profile", llmCfg.Profile),
		logging.String("model", llmCfg.Model),
		logging.String("target_language", settings.TargetLanguage),
		logging.Bool("whole_file", req.WholeFile),
	)

	var out subtitles.Track
	if req.WholeFile {
		out, err = translator.TranslateWholeFile(ctx, track)
	} else {
		out, result.Report, err = translator.Translate(ctx, track)
	}
	if err != nil {
		return result, err
	}
	result.Track = out
	if err := subtitles.WriteFile(result.Output, out); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "translation", "write output", "", err)
	}
	result.Duration = time.Since(started)

	logger.Info("translation run complete",
		logging.String("output", result.Output),
		logging.Int("entries", out.Len()),
		logging.Int("mismatched_groups", len(result.Report.Mismatched)),
		logging.Int("failed_groups", len(result.Report.Failed)),
		logging.Duration("elapsed", result.Duration),
	)
	return result, nil
}
