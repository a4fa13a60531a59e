// Package config loads, normalizes, and validates Sisyphus configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY, DASHSCOPE_API_KEY and NTFY_TOPIC. The Config value is built
// once per command and handed to each component; nothing in the repository
// reads settings from package-level state.
//
// LLM provider profiles ([llm.profiles.<name>]) layer over the shared [llm]
// section and are selected per run with --model-type.
package config
