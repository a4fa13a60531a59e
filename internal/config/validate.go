package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePacing(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePacing() error {
	p := c.Pacing
	if p.CharsPerSecond <= 0 {
		return errors.New("pacing.chars_per_second must be positive")
	}
	if p.SpeedMin <= 0 {
		return errors.New("pacing.speed_min must be positive")
	}
	if p.SpeedMax < p.SpeedMin {
		return fmt.Errorf("pacing.speed_max (%g) must be >= pacing.speed_min (%g)", p.SpeedMax, p.SpeedMin)
	}
	if p.DefaultSpeed <= 0 {
		return errors.New("pacing.default_speed must be positive")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.TimeoutSeconds <= 0 {
		return errors.New("tts.timeout_seconds must be positive")
	}
	switch c.TTS.Backend {
	case BackendGPTSoVITS:
		g := c.TTS.GPTSoVITS
		if g.TopK <= 0 {
			return errors.New("tts.gptsovits.top_k must be positive")
		}
		if g.TopP < 0 || g.TopP > 1 {
			return errors.New("tts.gptsovits.top_p must be between 0 and 1")
		}
		if g.SampleSteps <= 0 {
			return errors.New("tts.gptsovits.sample_steps must be positive")
		}
		if g.PauseSecond < 0 {
			return errors.New("tts.gptsovits.pause_second must be >= 0")
		}
	case BackendOpenAI:
		if strings.TrimSpace(c.TTS.OpenAI.Model) == "" {
			return errors.New("tts.openai.model must be set")
		}
	default:
		return fmt.Errorf("tts.backend: unsupported value %q (want %s or %s)", c.TTS.Backend, BackendGPTSoVITS, BackendOpenAI)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	if strings.TrimSpace(t.Separator) == "" {
		return errors.New("translation.separator must contain a visible token")
	}
	switch t.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyKeepSource:
	default:
		return fmt.Errorf("translation.failure_policy: unsupported value %q (want %s or %s)", t.FailurePolicy, FailurePolicyAbort, FailurePolicyKeepSource)
	}
	if t.Temperature < 0 || t.Temperature > 2 {
		return errors.New("translation.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Profile == "" {
		return nil
	}
	if _, ok := c.LLM.Profiles[c.LLM.Profile]; !ok {
		return fmt.Errorf("llm.profile %q is not defined under [llm.profiles]", c.LLM.Profile)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
