package subtitles_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leeyeel/Sisyphus/internal/subtitles"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,000
Hello there.

2
00:00:03,000 --> 00:00:05,000
How are you
doing today?

3
01:02:03,004 --> 01:02:04,500
Fine.
`

func TestParseReadsEntries(t *testing.T) {
	track, err := subtitles.ParseString(sampleSRT)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if track.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", track.Len())
	}
	second := track.Entries[1]
	if second.Index != 2 || second.Start != 3000 || second.End != 5000 {
		t.Fatalf("unexpected second entry: %+v", second)
	}
	if got, want := second.FlatText(), "How are you doing today?"; got != want {
		t.Fatalf("FlatText = %q want %q", got, want)
	}
	third := track.Entries[2]
	if third.Start != 3_723_004 || third.End != 3_724_500 {
		t.Fatalf("unexpected third timing: %d..%d", third.Start, third.End)
	}
}

func TestFormatRoundTripIsByteIdentical(t *testing.T) {
	track, err := subtitles.ParseString(sampleSRT)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if got := track.Format(); got != sampleSRT {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, sampleSRT)
	}
}

func TestRoundTripPreservesTimingAfterTextReplacement(t *testing.T) {
	track, err := subtitles.ParseString(sampleSRT)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	translated, err := track.WithTexts([]string{"你好。", "你今天\n过得怎么样？", "很好。"})
	if err != nil {
		t.Fatalf("WithTexts returned error: %v", err)
	}
	reparsed, err := subtitles.ParseString(translated.Format())
	if err != nil {
		t.Fatalf("reparse returned error: %v", err)
	}
	for i, entry := range reparsed.Entries {
		orig := track.Entries[i]
		if entry.Index != orig.Index || entry.Start != orig.Start || entry.End != orig.End {
			t.Fatalf("entry %d timing changed: got %+v want %+v", i, entry, orig)
		}
	}
	if got := reparsed.Entries[1].Text(); got != "你今天\n过得怎么样？" {
		t.Fatalf("unexpected text: %q", got)
	}
	if _, err := track.WithTexts([]string{"one"}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestParseAcceptsBOMAndCRLF(t *testing.T) {
	content := "\ufeff1\r\n00:00:01.5 --> 00:00:02,250 X1:10 X2:20\r\nHi\r\n\r\n"
	track, err := subtitles.ParseString(content)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if track.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", track.Len())
	}
	entry := track.Entries[0]
	if entry.Start != 1500 || entry.End != 2250 {
		t.Fatalf("unexpected timing: %d..%d", entry.Start, entry.End)
	}
}

func TestFormatKeepsPositionHintsAndTimingSpelling(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000 X1:40 X2:600 Y1:20 Y2:50\nhi\n\n" +
		"2\n00:00:03.250-->00:00:04.5\nthere\n"
	track, err := subtitles.ParseString(content)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if got := track.Entries[0].Position; got != "X1:40 X2:600 Y1:20 Y2:50" {
		t.Fatalf("Position = %q", got)
	}
	if e := track.Entries[1]; e.Start != 3250 || e.End != 4500 || e.Position != "" {
		t.Fatalf("unexpected second entry: %+v", e)
	}
	if got := track.Format(); got != content {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, content)
	}

	translated, err := track.WithTexts([]string{"salut", "là"})
	if err != nil {
		t.Fatalf("WithTexts returned error: %v", err)
	}
	want := "1\n00:00:01,000 --> 00:00:02,000 X1:40 X2:600 Y1:20 Y2:50\nsalut\n\n" +
		"2\n00:00:03.250-->00:00:04.5\nlà\n"
	if got := translated.Format(); got != want {
		t.Fatalf("text replacement changed timing lines:\n got %q\nwant %q", got, want)
	}
}

func TestFormatRendersEditedTimingCanonically(t *testing.T) {
	track, err := subtitles.ParseString("7\n00:00:01.5 --> 00:00:02.0 X1:1\nhi\n")
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	track.Entries[0].End = 2500
	if got, want := track.Format(), "7\n00:00:01,500 --> 00:00:02,500 X1:1\nhi\n"; got != want {
		t.Fatalf("Format = %q want %q", got, want)
	}
}

func TestParseKeepsDegenerateWindows(t *testing.T) {
	content := "1\n00:00:05,000 --> 00:00:05,000\nSame\n\n2\n00:00:09,000 --> 00:00:08,000\nBackwards\n"
	track, err := subtitles.ParseString(content)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if track.Entries[0].Window() != 0 || track.Entries[1].Window() != -1000 {
		t.Fatalf("unexpected windows: %d, %d", track.Entries[0].Window(), track.Entries[1].Window())
	}
}

func TestParseRejectsMalformedBlocks(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
	}{
		{"bad index", "one\n00:00:00,000 --> 00:00:01,000\nx\n", 1},
		{"missing timing", "1\n00:00:00,000 --> 00:00:01,000\nok\n\n2\n", 6},
		{"bad timing", "1\n00:00:00,000 -> 00:00:01,000\nx\n", 2},
		{"bad timestamp", "1\n00:61:00,000 --> 00:00:01,000\nx\n", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := subtitles.ParseString(tc.content)
			var parseErr *subtitles.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if parseErr.Line != tc.wantLine {
				t.Fatalf("line = %d want %d (%s)", parseErr.Line, tc.wantLine, parseErr.Reason)
			}
		})
	}
}

func TestWriteFileAndParseFile(t *testing.T) {
	track, err := subtitles.ParseString(sampleSRT)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.srt")
	if err := subtitles.WriteFile(path, track); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	loaded, err := subtitles.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if loaded.Format() != sampleSRT {
		t.Fatalf("file round trip mismatch")
	}
	if _, err := subtitles.ParseFile(filepath.Join(t.TempDir(), "missing.srt")); err == nil || !strings.Contains(err.Error(), "open srt") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[int64]string{
		0:          "00:00:00,000",
		1500:       "00:00:01,500",
		3_723_004:  "01:02:03,004",
		-20:        "00:00:00,000",
		36_000_000: "10:00:00,000",
	}
	for in, want := range tests {
		if got := subtitles.FormatTimestamp(in); got != want {
			t.Fatalf("FormatTimestamp(%d) = %q want %q", in, got, want)
		}
	}
}
