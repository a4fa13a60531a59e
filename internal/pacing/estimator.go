package pacing

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Estimator predicts spoken duration from text length.
type Estimator struct {
	charsPerSecond float64
}

// NewEstimator returns an estimator reading charsPerSecond code points per
// second.
func NewEstimator(charsPerSecond float64) (Estimator, error) {
	if charsPerSecond <= 0 {
		return Estimator{}, fmt.Errorf("chars per second must be positive, got %v", charsPerSecond)
	}
	return Estimator{charsPerSecond: charsPerSecond}, nil
}

// CharsPerSecond reports the configured reading rate.
func (e Estimator) CharsPerSecond() float64 {
	return e.charsPerSecond
}

// Estimate returns the expected duration of text in seconds. Characters are
// Unicode code points after trimming surrounding whitespace.
func (e Estimator) Estimate(text string) float64 {
	if e.charsPerSecond <= 0 {
		return 0
	}
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return float64(n) / e.charsPerSecond
}
