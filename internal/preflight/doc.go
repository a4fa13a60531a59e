// Package preflight provides readiness checks for the services and paths a
// run depends on.
//
// The CLI "sisyphus check" command renders RunAll's results as a table, and
// the speak and translate commands call the relevant individual checks
// before starting so a dead backend fails fast instead of producing a track
// of silence.
package preflight
