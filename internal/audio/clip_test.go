package audio_test

import (
	"path/filepath"
	"testing"

	"github.com/gopxl/beep"

	"github.com/leeyeel/Sisyphus/internal/audio"
)

func TestSilenceLength(t *testing.T) {
	clip := audio.Silence(audio.DefaultFormat(), 1800)
	if got := clip.Millis(); got != 1800 {
		t.Fatalf("Millis = %d want 1800", got)
	}
	if got := audio.Silence(audio.DefaultFormat(), -5).Millis(); got != 0 {
		t.Fatalf("negative silence should be empty, got %d", got)
	}
}

func TestWAVBytesRoundTrip(t *testing.T) {
	clip := audio.Silence(audio.DefaultFormat(), 250)
	data, err := clip.WAVBytes()
	if err != nil {
		t.Fatalf("WAVBytes returned error: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("unexpected header: %q", data[:12])
	}
	decoded, err := audio.DecodeWAVBytes(data)
	if err != nil {
		t.Fatalf("DecodeWAVBytes returned error: %v", err)
	}
	if decoded.Millis() != 250 {
		t.Fatalf("decoded Millis = %d want 250", decoded.Millis())
	}
	if decoded.Format().SampleRate != audio.DefaultSampleRate {
		t.Fatalf("unexpected sample rate: %d", decoded.Format().SampleRate)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := audio.DecodeWAVBytes(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := audio.DecodeWAVBytes([]byte("not a wav file at all, just text")); err == nil {
		t.Fatal("expected error for non-wav payload")
	}
}

func TestWriteFileAndDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := audio.Silence(audio.DefaultFormat(), 500).WriteFile(path); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	clip, err := audio.DecodeWAVFile(path)
	if err != nil {
		t.Fatalf("DecodeWAVFile returned error: %v", err)
	}
	if clip.Millis() != 500 {
		t.Fatalf("Millis = %d want 500", clip.Millis())
	}
}

func TestBuilderConformsClips(t *testing.T) {
	format := beep.Format{SampleRate: 16000, NumChannels: 1, Precision: 2}
	builder := audio.NewBuilder(format)
	builder.AppendSilence(1000)
	builder.AppendClip(audio.Silence(audio.DefaultFormat(), 1000))
	builder.AppendClip(nil)

	got := builder.Millis()
	if got < 1990 || got > 2010 {
		t.Fatalf("Millis = %d want about 2000", got)
	}
	if builder.Clip().Format() != format {
		t.Fatalf("unexpected output format: %+v", builder.Clip().Format())
	}
}
