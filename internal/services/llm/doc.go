// Package llm provides an OpenAI-compatible chat completion client used for
// subtitle translation.
//
// # Configuration
//
// Requires api_key, model and base_url. The base URL may be either the API
// root (https://api.openai.com/v1) or the full chat completions endpoint;
// "/chat/completions" is appended when missing. Referer and title headers are
// sent when configured so OpenRouter-style gateways can attribute traffic.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive the reply text.
// Client.HealthCheck: verify API key and model availability.
// StripCodeFence: remove a Markdown fence some models wrap replies in.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty replies and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Retry-After is honoured. Context cancellation aborts retries
// immediately.
package llm
