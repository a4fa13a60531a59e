package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
	"github.com/leeyeel/Sisyphus/internal/services/tts/gptsovits"
	"github.com/leeyeel/Sisyphus/internal/services/tts/openaitts"
)

// Backend is a synthesizer that can also report reachability.
type Backend interface {
	tts.Synthesizer
	tts.Pinger
}

// NewSynthesizer builds the backend selected by tts.backend.
func NewSynthesizer(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TTS.Backend)) {
	case config.BackendGPTSoVITS:
		g := cfg.TTS.GPTSoVITS
		return gptsovits.New(gptsovits.Config{
			BaseURL:        g.BaseURL,
			APIName:        g.APIName,
			RefWavPath:     g.RefWavPath,
			PromptTextPath: g.PromptTextPath,
			PromptLanguage: g.PromptLanguage,
			TextLanguage:   g.TextLanguage,
			HowToCut:       g.HowToCut,
			TopK:           g.TopK,
			TopP:           g.TopP,
			Temperature:    g.Temperature,
			RefFree:        g.RefFree,
			IfFreeze:       g.IfFreeze,
			SampleSteps:    g.SampleSteps,
			IfSR:           g.IfSR,
			PauseSecond:    g.PauseSecond,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
		}, gptsovits.WithLogger(logger)), nil
	case config.BackendOpenAI:
		o := cfg.TTS.OpenAI
		return openaitts.New(openaitts.Config{
			BaseURL:        o.BaseURL,
			APIKey:         o.APIKey,
			Model:          o.Model,
			Voice:          o.Voice,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "speech", "select backend",
			fmt.Sprintf("unknown tts backend %q", cfg.TTS.Backend), nil)
	}
}

// cacheScope identifies the synthesis configuration for segment cache keys.
// Segments rendered with a different reference clip or voice never collide.
func cacheScope(cfg *config.Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.TTS.Backend)) {
	case config.BackendGPTSoVITS:
		g := cfg.TTS.GPTSoVITS
		return strings.Join([]string{config.BackendGPTSoVITS, g.BaseURL, g.RefWavPath, g.PromptTextPath, g.TextLanguage}, "|")
	case config.BackendOpenAI:
		o := cfg.TTS.OpenAI
		return strings.Join([]string{config.BackendOpenAI, o.BaseURL, o.Model, o.Voice}, "|")
	default:
		return cfg.TTS.Backend
	}
}
