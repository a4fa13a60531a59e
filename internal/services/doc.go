// Package services defines shared utilities consumed by the pipeline stages
// and the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, entry indexes, and
//     translation group numbers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (input problems versus service failures) for the CLI exit status.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
