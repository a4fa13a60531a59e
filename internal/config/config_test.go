package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/leeyeel/Sisyphus/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DASHSCOPE_API_KEY", "dash-key")
	t.Setenv("NTFY_TOPIC", "https://ntfy.example/topic")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "sisyphus", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Pacing.CharsPerSecond != 2.5 {
		t.Fatalf("unexpected chars_per_second: %v", cfg.Pacing.CharsPerSecond)
	}
	if cfg.Pacing.SpeedMin != 0.7 || cfg.Pacing.SpeedMax != 1.5 {
		t.Fatalf("unexpected speed bounds: %v..%v", cfg.Pacing.SpeedMin, cfg.Pacing.SpeedMax)
	}
	if cfg.Translation.Separator != "|||" {
		t.Fatalf("unexpected separator: %q", cfg.Translation.Separator)
	}
	if cfg.Translation.FailurePolicy != config.FailurePolicyAbort {
		t.Fatalf("unexpected failure policy: %q", cfg.Translation.FailurePolicy)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}

	llm, err := cfg.ResolveLLM("")
	if err != nil {
		t.Fatalf("ResolveLLM returned error: %v", err)
	}
	if llm.Profile != "qwen" {
		t.Fatalf("expected qwen default profile, got %q", llm.Profile)
	}
	if llm.APIKey != "dash-key" {
		t.Fatalf("expected DASHSCOPE_API_KEY fallback, got %q", llm.APIKey)
	}
	if !strings.Contains(llm.BaseURL, "dashscope") {
		t.Fatalf("unexpected qwen base url: %q", llm.BaseURL)
	}
}

func TestLoadCustomConfigOverridesProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[pacing]
chars_per_second = 4.0
concurrency = 3

[translation]
window_size = 5
separator = "<SEP>"
failure_policy = "keep_source"

[llm]
profile = "openai"

[llm.profiles.openai]
api_key = "file-key"
model = "gpt-4.1"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Pacing.CharsPerSecond != 4.0 || cfg.Pacing.Concurrency != 3 {
		t.Fatalf("pacing not applied: %+v", cfg.Pacing)
	}
	if cfg.Translation.WindowSize != 5 || cfg.Translation.Separator != "<SEP>" {
		t.Fatalf("translation not applied: %+v", cfg.Translation)
	}
	if cfg.Translation.FailurePolicy != config.FailurePolicyKeepSource {
		t.Fatalf("unexpected failure policy: %q", cfg.Translation.FailurePolicy)
	}

	llm, err := cfg.ResolveLLM("")
	if err != nil {
		t.Fatalf("ResolveLLM returned error: %v", err)
	}
	if llm.APIKey != "file-key" || llm.Model != "gpt-4.1" {
		t.Fatalf("profile override not applied: %+v", llm)
	}
	if llm.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("expected builtin base url to survive partial profile, got %q", llm.BaseURL)
	}
	if _, err := cfg.ResolveLLM("qwen"); err != nil {
		t.Fatalf("expected builtin qwen profile to remain available: %v", err)
	}
	if _, err := cfg.ResolveLLM("missing"); err == nil {
		t.Fatal("expected error for undefined profile")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[pacing]\nchars_per_sec = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero cps", func(c *config.Config) { c.Pacing.CharsPerSecond = 0 }, "chars_per_second"},
		{"inverted bounds", func(c *config.Config) { c.Pacing.SpeedMax = 0.5 }, "speed_max"},
		{"unknown backend", func(c *config.Config) { c.TTS.Backend = "espeak" }, "tts.backend"},
		{"blank separator", func(c *config.Config) { c.Translation.Separator = "  " }, "separator"},
		{"bad policy", func(c *config.Config) { c.Translation.FailurePolicy = "retry" }, "failure_policy"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"undefined profile", func(c *config.Config) { c.LLM.Profile = "claude" }, "llm.profile"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
