package pacing

import (
	"fmt"

	"github.com/leeyeel/Sisyphus/internal/config"
	"github.com/leeyeel/Sisyphus/internal/subtitles"
)

// Bounds limits the speed factor handed to the synthesizer.
type Bounds struct {
	Min     float64
	Max     float64
	Default float64
}

// BoundsFromConfig extracts speed bounds from pacing settings.
func BoundsFromConfig(cfg config.Pacing) Bounds {
	return Bounds{Min: cfg.SpeedMin, Max: cfg.SpeedMax, Default: cfg.DefaultSpeed}
}

func (b Bounds) validate() error {
	if b.Min <= 0 || b.Max < b.Min {
		return fmt.Errorf("invalid speed bounds [%v, %v]", b.Min, b.Max)
	}
	return nil
}

// Clamp limits v to [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	switch {
	case v < b.Min:
		return b.Min
	case v > b.Max:
		return b.Max
	default:
		return v
	}
}

// Decision records how a speed factor was chosen for one entry.
type Decision struct {
	TargetMs     int64
	EstimatedSec float64
	// Raw is the unclamped ratio of estimated to available time. It is zero
	// for zero-budget entries.
	Raw        float64
	Speed      float64
	ZeroBudget bool
}

// Clamped reports whether the bounds changed the raw ratio.
func (d Decision) Clamped() bool {
	return !d.ZeroBudget && d.Raw != d.Speed
}

// Decide computes the speed factor for text shown during window ms.
func Decide(est Estimator, bounds Bounds, text string, windowMs int64) Decision {
	d := Decision{TargetMs: windowMs, EstimatedSec: est.Estimate(text)}
	if windowMs <= 0 {
		d.ZeroBudget = true
		d.Speed = bounds.Clamp(bounds.Default)
		return d
	}
	d.Raw = d.EstimatedSec / (float64(windowMs) / 1000)
	d.Speed = bounds.Clamp(d.Raw)
	return d
}

// DecideEntry is Decide applied to a subtitle entry's flattened text.
func DecideEntry(est Estimator, bounds Bounds, entry subtitles.Entry) Decision {
	return Decide(est, bounds, entry.FlatText(), entry.Window())
}
