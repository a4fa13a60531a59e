package config

const (
	defaultConfigPath            = "~/.config/sisyphus/config.toml"
	defaultWorkDir               = "~/.local/share/sisyphus/work"
	defaultLogDir                = "~/.local/share/sisyphus/logs"
	defaultCachePath             = "~/.cache/sisyphus/checkpoints.db"
	defaultCharsPerSecond        = 2.5
	defaultSpeedMin              = 0.7
	defaultSpeedMax              = 1.5
	defaultSpeed                 = 1.0
	defaultTTSBackend            = "gptsovits"
	defaultTTSTimeoutSeconds     = 120
	defaultGPTSoVITSURL          = "http://127.0.0.1:9872"
	defaultGPTSoVITSAPIName      = "/get_tts_wav"
	defaultGPTSoVITSLanguage     = "中文"
	defaultGPTSoVITSHowToCut     = "凑四句一切"
	defaultGPTSoVITSTopK         = 15
	defaultGPTSoVITSSampleSteps  = 32
	defaultGPTSoVITSPauseSecond  = 0.3
	defaultOpenAITTSBaseURL      = "https://api.openai.com/v1"
	defaultOpenAITTSModel        = "tts-1"
	defaultOpenAITTSVoice        = "alloy"
	defaultWindowSize            = 3
	defaultSeparator             = "|||"
	defaultRequestDelayMs        = 1000
	defaultSourceLanguage        = "en"
	defaultTargetLanguage        = "zh"
	defaultTranslationTemp       = 0.1
	defaultFailurePolicy         = FailurePolicyAbort
	defaultLLMProfile            = "qwen"
	defaultLLMReferer            = "https://github.com/leeyeel/Sisyphus"
	defaultLLMTitle              = "Sisyphus Subtitle Translator"
	defaultLLMTimeoutSeconds     = 120
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultOpenAIChatBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIChatModel       = "gpt-4o-mini"
	defaultQwenChatBaseURL       = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultQwenChatModel         = "qwen-plus"
	defaultTranslationPromptBody = `You are a professional subtitle translator. Translate each subtitle segment from {source} into {target}.
Segments are separated by the token {separator}. Keep exactly the same number of segments in the same order, separated by the same token.
Translate with the surrounding context in mind so the dialogue reads naturally, but never merge, split, drop or number segments.
Output only the translated segments joined by the separator, with no commentary.`
)

// Failure policies for groups whose translation request fails.
const (
	FailurePolicyAbort      = "abort"
	FailurePolicyKeepSource = "keep_source"
)

// TTS backend identifiers.
const (
	BackendGPTSoVITS = "gptsovits"
	BackendOpenAI    = "openai"
)

func builtinProfiles() map[string]LLMProfile {
	return map[string]LLMProfile{
		"openai": {
			APIKeyEnv: "OPENAI_API_KEY",
			BaseURL:   defaultOpenAIChatBaseURL,
			Model:     defaultOpenAIChatModel,
		},
		"qwen": {
			APIKeyEnv: "DASHSCOPE_API_KEY",
			BaseURL:   defaultQwenChatBaseURL,
			Model:     defaultQwenChatModel,
		},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			CachePath: defaultCachePath,
		},
		Pacing: Pacing{
			CharsPerSecond: defaultCharsPerSecond,
			SpeedMin:       defaultSpeedMin,
			SpeedMax:       defaultSpeedMax,
			DefaultSpeed:   defaultSpeed,
			Concurrency:    1,
		},
		TTS: TTS{
			Backend:        defaultTTSBackend,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			GPTSoVITS: GPTSoVITS{
				BaseURL:        defaultGPTSoVITSURL,
				APIName:        defaultGPTSoVITSAPIName,
				PromptLanguage: defaultGPTSoVITSLanguage,
				TextLanguage:   defaultGPTSoVITSLanguage,
				HowToCut:       defaultGPTSoVITSHowToCut,
				TopK:           defaultGPTSoVITSTopK,
				TopP:           1.0,
				Temperature:    1.0,
				SampleSteps:    defaultGPTSoVITSSampleSteps,
				PauseSecond:    defaultGPTSoVITSPauseSecond,
			},
			OpenAI: OpenAITTS{
				BaseURL: defaultOpenAITTSBaseURL,
				Model:   defaultOpenAITTSModel,
				Voice:   defaultOpenAITTSVoice,
			},
		},
		Translation: Translation{
			WindowSize:     defaultWindowSize,
			Separator:      defaultSeparator,
			RequestDelayMs: defaultRequestDelayMs,
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
			SystemPrompt:   defaultTranslationPromptBody,
			Temperature:    defaultTranslationTemp,
			FailurePolicy:  defaultFailurePolicy,
			Concurrency:    1,
		},
		LLM: LLM{
			Profile:        defaultLLMProfile,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Profiles:       builtinProfiles(),
		},
		Cache: Cache{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
