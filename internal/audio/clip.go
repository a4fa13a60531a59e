package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// DefaultSampleRate is used when no decoded clip dictates the output rate.
// GPT-SoVITS renders at 32 kHz.
const DefaultSampleRate beep.SampleRate = 32000

const resampleQuality = 4

// DefaultFormat is mono 16-bit PCM at DefaultSampleRate.
func DefaultFormat() beep.Format {
	return beep.Format{SampleRate: DefaultSampleRate, NumChannels: 1, Precision: 2}
}

// Clip is a decoded, in-memory PCM buffer.
type Clip struct {
	buf *beep.Buffer
}

// DecodeWAV reads a complete WAV stream into a clip.
func DecodeWAV(r io.Reader) (*Clip, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()
	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode wav samples: %w", err)
	}
	return &Clip{buf: buf}, nil
}

// DecodeWAVBytes decodes WAV data held in memory.
func DecodeWAVBytes(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, errors.New("decode wav: empty payload")
	}
	return DecodeWAV(bytes.NewReader(data))
}

// DecodeWAVFile decodes the WAV file at path.
func DecodeWAVFile(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()
	return DecodeWAV(file)
}

// Silence returns a clip of ms milliseconds of silence in format.
func Silence(format beep.Format, ms int64) *Clip {
	buf := beep.NewBuffer(format)
	if n := samplesFor(format.SampleRate, ms); n > 0 {
		buf.Append(beep.Silence(n))
	}
	return &Clip{buf: buf}
}

// Format reports the clip's sample format.
func (c *Clip) Format() beep.Format {
	return c.buf.Format()
}

// Samples reports the clip length in sample frames.
func (c *Clip) Samples() int {
	return c.buf.Len()
}

// Duration reports the clip length.
func (c *Clip) Duration() time.Duration {
	return c.buf.Format().SampleRate.D(c.buf.Len())
}

// Millis reports the clip length in whole milliseconds.
func (c *Clip) Millis() int64 {
	return c.Duration().Milliseconds()
}

// Streamer returns a fresh reader over the whole clip.
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buf.Streamer(0, c.buf.Len())
}

// Conform returns the clip converted to format's sample rate, channel count
// and precision. The receiver is returned unchanged when nothing differs.
func (c *Clip) Conform(format beep.Format) *Clip {
	current := c.buf.Format()
	if current == format {
		return c
	}
	var src beep.Streamer = c.Streamer()
	if current.SampleRate != format.SampleRate {
		src = beep.Resample(resampleQuality, current.SampleRate, format.SampleRate, src)
	}
	buf := beep.NewBuffer(format)
	buf.Append(src)
	return &Clip{buf: buf}
}

// EncodeWAV writes the clip as PCM WAV.
func (c *Clip) EncodeWAV(w io.WriteSeeker) error {
	if err := wav.Encode(w, c.Streamer(), c.buf.Format()); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// WAVBytes encodes the clip into an in-memory WAV file.
func (c *Clip) WAVBytes() ([]byte, error) {
	var sink seekBuffer
	if err := c.EncodeWAV(&sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// WriteFile encodes the clip to path, replacing any existing file.
func (c *Clip) WriteFile(path string) error {
	tmp := path + ".partial"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := c.EncodeWAV(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close wav: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func samplesFor(rate beep.SampleRate, ms int64) int {
	if ms <= 0 {
		return 0
	}
	return rate.N(time.Duration(ms) * time.Millisecond)
}
