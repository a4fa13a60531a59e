package pacing

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/leeyeel/Sisyphus/internal/audio"
	"github.com/leeyeel/Sisyphus/internal/services"
	"github.com/leeyeel/Sisyphus/internal/services/tts"
)

// maxDownloadBytes bounds a downloaded clip; an hour of 48kHz stereo PCM.
const maxDownloadBytes = 700 << 20

// resolveResult turns any synthesis result shape into decoded audio.
func resolveResult(ctx context.Context, client *http.Client, result tts.Result) (*audio.Clip, error) {
	if err := result.Validate(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "pacing", "resolve audio", "", err)
	}
	var (
		clip *audio.Clip
		err  error
	)
	switch result.Kind {
	case tts.KindInline:
		clip, err = audio.DecodeWAVBytes(result.Data)
	case tts.KindFile:
		clip, err = audio.DecodeWAVFile(result.Path)
	case tts.KindURL:
		var data []byte
		data, err = download(ctx, client, result.URL)
		if err == nil {
			clip, err = audio.DecodeWAVBytes(data)
		}
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "pacing", "resolve audio", result.Kind.String()+" result", err)
	}
	return clip, nil
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download audio: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("download audio: payload exceeds %d bytes", maxDownloadBytes)
	}
	return data, nil
}
