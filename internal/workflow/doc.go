// Package workflow wires the subtitle, pacing, timeline and translation
// packages into the two end-to-end operations the CLI exposes.
//
// RenderSpeech parses an SRT file, plans and synthesizes every entry, lays
// the clips onto a single track and writes it as WAV. TranslateSubtitles
// parses an SRT file, translates it group by group (or in one request with
// whole-file mode) and writes a new SRT with the original timing.
//
// Both operations take a run-scoped context carrying a run ID, share the
// checkpoint cache, and report their outcome through the notifications
// service. Input that fails to parse is rejected before any service is
// called.
package workflow
