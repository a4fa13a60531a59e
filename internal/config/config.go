package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	CachePath string `toml:"cache_path"`
}

// Pacing controls how subtitle text is fitted into its display window.
type Pacing struct {
	// CharsPerSecond is the assumed speaking rate at speed 1.0, in runes.
	CharsPerSecond float64 `toml:"chars_per_second"`
	SpeedMin       float64 `toml:"speed_min"`
	SpeedMax       float64 `toml:"speed_max"`
	// DefaultSpeed is used for entries whose window is empty or inverted.
	DefaultSpeed float64 `toml:"default_speed"`
	Concurrency  int     `toml:"concurrency"`
}

// GPTSoVITS mirrors the inference parameters of a GPT-SoVITS web UI.
type GPTSoVITS struct {
	BaseURL        string  `toml:"base_url"`
	APIName        string  `toml:"api_name"`
	RefWavPath     string  `toml:"ref_wav_path"`
	PromptTextPath string  `toml:"prompt_text_path"`
	PromptLanguage string  `toml:"prompt_language"`
	TextLanguage   string  `toml:"text_language"`
	HowToCut       string  `toml:"how_to_cut"`
	TopK           int     `toml:"top_k"`
	TopP           float64 `toml:"top_p"`
	Temperature    float64 `toml:"temperature"`
	RefFree        bool    `toml:"ref_free"`
	IfFreeze       bool    `toml:"if_freeze"`
	SampleSteps    int     `toml:"sample_steps"`
	IfSR           bool    `toml:"if_sr"`
	PauseSecond    float64 `toml:"pause_second"`
}

// OpenAITTS configures an OpenAI-compatible /audio/speech endpoint.
type OpenAITTS struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Voice   string `toml:"voice"`
}

// TTS selects and configures the speech synthesis backend.
type TTS struct {
	Backend        string    `toml:"backend"`
	TimeoutSeconds int       `toml:"timeout_seconds"`
	GPTSoVITS      GPTSoVITS `toml:"gptsovits"`
	OpenAI         OpenAITTS `toml:"openai"`
}

// Translation contains the batch translation settings.
type Translation struct {
	WindowSize     int     `toml:"window_size"`
	Separator      string  `toml:"separator"`
	RequestDelayMs int     `toml:"request_delay_ms"`
	SourceLanguage string  `toml:"source_language"`
	TargetLanguage string  `toml:"target_language"`
	SystemPrompt   string  `toml:"system_prompt"`
	Temperature    float64 `toml:"temperature"`
	// FailurePolicy is "abort" or "keep_source".
	FailurePolicy string `toml:"failure_policy"`
	Concurrency   int    `toml:"concurrency"`
}

// LLMProfile overrides connection settings for one provider, selected with
// --model-type on the command line.
type LLMProfile struct {
	APIKey    string `toml:"api_key"`
	APIKeyEnv string `toml:"api_key_env"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	// SystemPrompt replaces translation.system_prompt when set.
	SystemPrompt string `toml:"system_prompt"`
}

// LLM contains shared LLM connection settings.
type LLM struct {
	Profile        string                `toml:"profile"`
	APIKey         string                `toml:"api_key"`
	BaseURL        string                `toml:"base_url"`
	Model          string                `toml:"model"`
	Referer        string                `toml:"referer"`
	Title          string                `toml:"title"`
	TimeoutSeconds int                   `toml:"timeout_seconds"`
	Profiles       map[string]LLMProfile `toml:"profiles"`
}

// Cache contains checkpoint cache settings.
type Cache struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Sisyphus.
//
// Configuration sections by subsystem:
//   - Paths: work, log and cache locations
//   - Pacing: speaking rate and speed bounds
//   - TTS: synthesis backend selection and parameters
//   - Translation: grouping, separator, prompts and failure policy
//   - LLM: chat completion connection settings and provider profiles
//   - Cache: checkpoint reuse between runs
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pacing        Pacing        `toml:"pacing"`
	TTS           TTS           `toml:"tts"`
	Translation   Translation   `toml:"translation"`
	LLM           LLM           `toml:"llm"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sisyphus.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories plus the cache parent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Paths.CachePath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.CachePath), 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains resolved connection settings for one chat completion provider.
type LLMConfig struct {
	Profile        string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	SystemPrompt   string
	TimeoutSeconds int
}

// ResolveLLM merges the named profile over the [llm] section. An empty name
// selects llm.profile; an empty llm.profile uses [llm] alone.
func (c *Config) ResolveLLM(name string) (LLMConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = c.LLM.Profile
	}
	resolved := LLMConfig{
		Profile:        name,
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		SystemPrompt:   strings.TrimSpace(c.Translation.SystemPrompt),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
	if name == "" {
		return resolved, nil
	}
	profile, ok := c.LLM.Profiles[name]
	if !ok {
		return LLMConfig{}, fmt.Errorf("llm profile %q not defined (available: %s)", name, strings.Join(c.ProfileNames(), ", "))
	}
	if key := strings.TrimSpace(profile.APIKey); key != "" {
		resolved.APIKey = key
	}
	if value := strings.TrimSpace(profile.BaseURL); value != "" {
		resolved.BaseURL = value
	}
	if value := strings.TrimSpace(profile.Model); value != "" {
		resolved.Model = value
	}
	if value := strings.TrimSpace(profile.SystemPrompt); value != "" {
		resolved.SystemPrompt = value
	}
	return resolved, nil
}

// ProfileNames lists configured LLM profiles in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.LLM.Profiles))
	for name := range c.LLM.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
