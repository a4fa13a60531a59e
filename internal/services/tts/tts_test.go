package tts_test

import (
	"testing"

	"github.com/leeyeel/Sisyphus/internal/services/tts"
)

func TestResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  tts.Result
		wantErr bool
	}{
		{"inline ok", tts.Inline([]byte("RIFF"), "audio/wav"), false},
		{"inline empty", tts.Inline(nil, ""), true},
		{"file ok", tts.File("/tmp/a.wav"), false},
		{"file empty", tts.File(" "), true},
		{"url ok", tts.URL("http://host/a.wav"), false},
		{"url empty", tts.URL(""), true},
		{"zero value", tts.Result{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.result.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if tts.KindURL.String() != "url" || tts.Kind(9).String() != "kind(9)" {
		t.Fatalf("unexpected kind strings: %s %s", tts.KindURL, tts.Kind(9))
	}
}
