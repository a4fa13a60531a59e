// Package subtitles models timed subtitle entries and reads and writes them
// in SubRip (SRT) form.
//
// Parsing is strict: the first block that cannot be read as index, timing
// and text yields a *ParseError carrying the offending line number, so
// callers can reject malformed input before any synthesis or translation
// work starts. Formatting reproduces index and timing lines exactly, which
// makes parse then format a byte-identical round trip for canonical files.
package subtitles
