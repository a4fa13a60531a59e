package subtitles

import (
	"fmt"
	"strings"
)

// Entry is one numbered subtitle cue. Start and End are millisecond offsets
// from the beginning of the media.
type Entry struct {
	Index int
	Start int64
	End   int64
	// Position holds any text after the end timestamp, such as
	// "X1:40 X2:600 Y1:20 Y2:50". It is written back after the end time.
	Position string
	Lines    []string

	// Verbatim index and timing lines from the source document.
	indexLine  string
	timingLine string
}

// Window returns the display window in milliseconds. It is zero or negative
// for degenerate entries.
func (e Entry) Window() int64 {
	return e.End - e.Start
}

// Text returns the entry text with its original line breaks.
func (e Entry) Text() string {
	return strings.Join(e.Lines, "\n")
}

// FlatText joins the non-blank lines with single spaces.
func (e Entry) FlatText() string {
	parts := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// WithText returns a copy of the entry carrying text instead of its current
// lines. Index and timing are unchanged.
func (e Entry) WithText(text string) Entry {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Trim(text, "\n")
	out := e
	if text == "" {
		out.Lines = nil
		return out
	}
	out.Lines = strings.Split(text, "\n")
	return out
}

// Track is an ordered list of entries as they appeared in the source file.
type Track struct {
	Entries []Entry
}

// Len reports the number of entries.
func (t Track) Len() int {
	return len(t.Entries)
}

// WithTexts returns a new track whose entry texts are replaced positionally.
func (t Track) WithTexts(texts []string) (Track, error) {
	if len(texts) != len(t.Entries) {
		return Track{}, fmt.Errorf("replace texts: got %d texts for %d entries", len(texts), len(t.Entries))
	}
	out := Track{Entries: make([]Entry, len(t.Entries))}
	for i, entry := range t.Entries {
		out.Entries[i] = entry.WithText(texts[i])
	}
	return out, nil
}

// Span returns the end offset of the latest entry, or 0 for an empty track.
func (t Track) Span() int64 {
	var last int64
	for _, entry := range t.Entries {
		if entry.End > last {
			last = entry.End
		}
	}
	return last
}
