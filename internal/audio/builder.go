package audio

import (
	"github.com/gopxl/beep"
)

// Builder concatenates clips and silence into one buffer of a fixed format.
type Builder struct {
	buf *beep.Buffer
}

// NewBuilder starts an empty track in format.
func NewBuilder(format beep.Format) *Builder {
	return &Builder{buf: beep.NewBuffer(format)}
}

// Format reports the output format.
func (b *Builder) Format() beep.Format {
	return b.buf.Format()
}

// AppendSilence appends ms milliseconds of silence. Non-positive values are ignored.
func (b *Builder) AppendSilence(ms int64) {
	if n := samplesFor(b.buf.Format().SampleRate, ms); n > 0 {
		b.buf.Append(beep.Silence(n))
	}
}

// AppendClip appends clip, converting it to the builder format first.
func (b *Builder) AppendClip(clip *Clip) {
	if clip == nil {
		return
	}
	b.buf.Append(clip.Conform(b.buf.Format()).Streamer())
}

// Millis reports the accumulated length in milliseconds.
func (b *Builder) Millis() int64 {
	return b.buf.Format().SampleRate.D(b.buf.Len()).Milliseconds()
}

// Clip returns the accumulated audio.
func (b *Builder) Clip() *Clip {
	return &Clip{buf: b.buf}
}
