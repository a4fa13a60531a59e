// Package tts defines the speech synthesis contract shared by all backends.
//
// A backend answers a Request with a Result whose payload may arrive in one
// of three shapes: inline WAV bytes, a path on the local filesystem, or a URL
// to download. Callers resolve the shape into decoded audio; backends never
// decode.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request describes one utterance to synthesize.
type Request struct {
	Text string
	// Speed is the playback rate multiplier, 1.0 being natural pace.
	Speed float64
	// Voice selects a backend specific voice. Empty uses the configured default.
	Voice string
}

// Kind tags which field of a Result carries the audio.
type Kind int

const (
	KindInline Kind = iota + 1
	KindFile
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindFile:
		return "file"
	case KindURL:
		return "url"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the synthesized audio in one of the Kind shapes.
type Result struct {
	Kind        Kind
	Data        []byte
	Path        string
	URL         string
	ContentType string
}

// Inline wraps audio bytes returned directly in a response body.
func Inline(data []byte, contentType string) Result {
	return Result{Kind: KindInline, Data: data, ContentType: contentType}
}

// File points at audio written to the local filesystem.
func File(path string) Result {
	return Result{Kind: KindFile, Path: path}
}

// URL points at audio that must be downloaded.
func URL(url string) Result {
	return Result{Kind: KindURL, URL: url}
}

// Validate reports whether the tagged field is populated.
func (r Result) Validate() error {
	switch r.Kind {
	case KindInline:
		if len(r.Data) == 0 {
			return errors.New("tts result: inline payload is empty")
		}
	case KindFile:
		if strings.TrimSpace(r.Path) == "" {
			return errors.New("tts result: file path is empty")
		}
	case KindURL:
		if strings.TrimSpace(r.URL) == "" {
			return errors.New("tts result: url is empty")
		}
	default:
		return fmt.Errorf("tts result: unknown kind %s", r.Kind)
	}
	return nil
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
}

// Pinger is implemented by backends that can report reachability without
// synthesizing anything.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, req Request) (Result, error)

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
