package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTTS(); err != nil {
		return err
	}
	c.normalizePacing()
	c.normalizeTranslation()
	c.normalizeLLM()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath
	}
	if c.Paths.CachePath, err = expandPath(strings.TrimSpace(c.Paths.CachePath)); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizePacing() {
	if c.Pacing.DefaultSpeed == 0 {
		c.Pacing.DefaultSpeed = defaultSpeed
	}
	if c.Pacing.Concurrency <= 0 {
		c.Pacing.Concurrency = 1
	}
}

func (c *Config) normalizeTTS() error {
	c.TTS.Backend = strings.ToLower(strings.TrimSpace(c.TTS.Backend))
	if c.TTS.Backend == "" {
		c.TTS.Backend = defaultTTSBackend
	}

	g := &c.TTS.GPTSoVITS
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.BaseURL == "" {
		g.BaseURL = defaultGPTSoVITSURL
	}
	g.APIName = strings.TrimSpace(g.APIName)
	if g.APIName == "" {
		g.APIName = defaultGPTSoVITSAPIName
	}
	if !strings.HasPrefix(g.APIName, "/") {
		g.APIName = "/" + g.APIName
	}
	var err error
	if g.RefWavPath, err = expandPath(strings.TrimSpace(g.RefWavPath)); err != nil {
		return fmt.Errorf("tts.gptsovits.ref_wav_path: %w", err)
	}
	if g.PromptTextPath, err = expandPath(strings.TrimSpace(g.PromptTextPath)); err != nil {
		return fmt.Errorf("tts.gptsovits.prompt_text_path: %w", err)
	}
	if strings.TrimSpace(g.PromptLanguage) == "" {
		g.PromptLanguage = defaultGPTSoVITSLanguage
	}
	if strings.TrimSpace(g.TextLanguage) == "" {
		g.TextLanguage = defaultGPTSoVITSLanguage
	}
	if strings.TrimSpace(g.HowToCut) == "" {
		g.HowToCut = defaultGPTSoVITSHowToCut
	}

	o := &c.TTS.OpenAI
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		o.BaseURL = defaultOpenAITTSBaseURL
	}
	if o.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			o.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(o.Model) == "" {
		o.Model = defaultOpenAITTSModel
	}
	if strings.TrimSpace(o.Voice) == "" {
		o.Voice = defaultOpenAITTSVoice
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	t := &c.Translation
	if t.WindowSize < 1 {
		t.WindowSize = 1
	}
	// The separator keeps its surrounding whitespace; only an empty value
	// falls back to the default.
	if t.Separator == "" {
		t.Separator = defaultSeparator
	}
	if t.RequestDelayMs < 0 {
		t.RequestDelayMs = 0
	}
	t.SourceLanguage = strings.TrimSpace(t.SourceLanguage)
	t.TargetLanguage = strings.TrimSpace(t.TargetLanguage)
	if t.TargetLanguage == "" {
		t.TargetLanguage = defaultTargetLanguage
	}
	if strings.TrimSpace(t.SystemPrompt) == "" {
		t.SystemPrompt = defaultTranslationPromptBody
	}
	t.FailurePolicy = strings.ToLower(strings.TrimSpace(t.FailurePolicy))
	if t.FailurePolicy == "" {
		t.FailurePolicy = defaultFailurePolicy
	}
	if t.Concurrency <= 0 {
		t.Concurrency = 1
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Profile = strings.ToLower(strings.TrimSpace(c.LLM.Profile))
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SISYPHUS_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}

	profiles := make(map[string]LLMProfile, len(c.LLM.Profiles))
	for name, profile := range c.LLM.Profiles {
		profiles[strings.ToLower(strings.TrimSpace(name))] = profile
	}
	for name, builtin := range builtinProfiles() {
		profile := profiles[name]
		if strings.TrimSpace(profile.BaseURL) == "" {
			profile.BaseURL = builtin.BaseURL
		}
		if strings.TrimSpace(profile.Model) == "" {
			profile.Model = builtin.Model
		}
		if strings.TrimSpace(profile.APIKeyEnv) == "" {
			profile.APIKeyEnv = builtin.APIKeyEnv
		}
		profiles[name] = profile
	}
	for name, profile := range profiles {
		if strings.TrimSpace(profile.APIKey) == "" && strings.TrimSpace(profile.APIKeyEnv) != "" {
			if value, ok := os.LookupEnv(strings.TrimSpace(profile.APIKeyEnv)); ok {
				profile.APIKey = strings.TrimSpace(value)
			}
		}
		profiles[name] = profile
	}
	c.LLM.Profiles = profiles
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
