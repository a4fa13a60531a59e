package pacing

import "github.com/leeyeel/Sisyphus/internal/audio"

// Segment is the planned speech for one subtitle entry. A rendered segment
// has Audio set and Err nil; a failed one has Audio nil, ActualMs zero and
// Err describing the failure.
type Segment struct {
	Index    int
	Start    int64
	End      int64
	Speed    float64
	Audio    *audio.Clip
	ActualMs int64
	Err      error
	// Cached is set when the audio came from the checkpoint cache.
	Cached bool
}

// OK reports whether the segment carries audio.
func (s Segment) OK() bool {
	return s.Audio != nil && s.Err == nil
}

// OverrunMs is how far the audio extends past the display window. Negative
// values mean the audio finishes early.
func (s Segment) OverrunMs() int64 {
	return s.ActualMs - (s.End - s.Start)
}
