// Package pacing fits synthesized speech into subtitle display windows.
//
// The Estimator guesses how long a line takes to read aloud from its
// character count. The Planner turns that guess into a clamped speed factor,
// asks a tts.Synthesizer for audio at that speed, and measures what came
// back. Fit is best effort: clamping means a segment can still overrun or
// underrun its window, and the timeline assembler tolerates both.
//
// A synthesis failure never aborts a run. The affected Segment carries the
// error and no audio, and a warning is logged.
package pacing
