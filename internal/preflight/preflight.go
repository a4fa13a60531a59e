package preflight

import (
	"context"

	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets selects what RunAll probes beyond the filesystem.
type Targets struct {
	// LLMProfile names the translation profile; empty uses llm.profile.
	LLMProfile string
	// Speech is the configured synthesis backend. Nil skips the check.
	Speech tts.Pinger
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Cache.Enabled {
		results = append(results, CheckCache(ctx, cfg.Paths.CachePath))
	}

	if llmCfg, err := cfg.ResolveLLM(targets.LLMProfile); err != nil {
		results = append(results, Result{Name: "Translation LLM", Detail: err.Error()})
	} else {
		results = append(results, CheckLLM(ctx, "Translation LLM ("+llmCfg.Profile+")", llmCfg))
	}

	if targets.Speech != nil {
		results = append(results, CheckTTS(ctx, "Speech backend ("+cfg.TTS.Backend+")", targets.Speech))
	}
	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
