package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

const (
	timingArrow   = "-->"
	byteOrderMark = "\ufeff"
)

// ParseError reports the first malformed block in an SRT document.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("srt line %d: %s", e.Line, e.Reason)
}

// ParseFile reads and parses the SRT file at path.
func ParseFile(path string) (Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return Track{}, fmt.Errorf("open srt: %w", err)
	}
	defer file.Close()
	track, err := Parse(file)
	if err != nil {
		return Track{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return track, nil
}

// ParseString parses SRT content held in memory.
func ParseString(content string) (Track, error) {
	return Parse(strings.NewReader(content))
}

// Parse reads an SRT document. Blank lines separate blocks; each block is an
// index line, a timing line and zero or more text lines. A UTF-8 byte order
// mark and CRLF line endings are accepted.
func Parse(r io.Reader) (Track, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		track   Track
		block   []string
		blockAt int
		lineNo  int
	)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		entry, err := parseBlock(block, blockAt)
		if err != nil {
			return err
		}
		track.Entries = append(track.Entries, entry)
		block = block[:0]
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, byteOrderMark)
		}
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return Track{}, err
			}
			continue
		}
		if len(block) == 0 {
			blockAt = lineNo
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return Track{}, fmt.Errorf("read srt: %w", err)
	}
	if err := flush(); err != nil {
		return Track{}, err
	}
	return track, nil
}

func parseBlock(lines []string, firstLine int) (Entry, error) {
	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || index < 1 {
		return Entry{}, &ParseError{Line: firstLine, Reason: fmt.Sprintf("expected positive cue index, got %q", lines[0])}
	}
	if len(lines) < 2 {
		return Entry{}, &ParseError{Line: firstLine + 1, Reason: "missing timing line"}
	}
	start, end, position, err := parseTiming(lines[1])
	if err != nil {
		return Entry{}, &ParseError{Line: firstLine + 1, Reason: err.Error()}
	}
	var text []string
	if len(lines) > 2 {
		text = append(text, lines[2:]...)
	}
	return Entry{
		Index:      index,
		Start:      start,
		End:        end,
		Position:   position,
		Lines:      text,
		indexLine:  lines[0],
		timingLine: lines[1],
	}, nil
}

func parseTiming(line string) (start, end int64, position string, err error) {
	parts := strings.Split(line, timingArrow)
	if len(parts) != 2 {
		return 0, 0, "", fmt.Errorf("expected \"start --> end\" timing, got %q", line)
	}
	start, err = ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, "", err
	}
	rest := strings.TrimSpace(parts[1])
	if rest == "" {
		return 0, 0, "", fmt.Errorf("missing end timestamp in %q", line)
	}
	stamp := rest
	if cut := strings.IndexFunc(rest, unicode.IsSpace); cut >= 0 {
		stamp, position = rest[:cut], strings.TrimSpace(rest[cut:])
	}
	end, err = ParseTimestamp(stamp)
	if err != nil {
		return 0, 0, "", err
	}
	return start, end, position, nil
}

// ParseTimestamp converts "HH:MM:SS,mmm" (or with a period before the
// milliseconds) into a millisecond offset.
func ParseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, frac, ok := strings.Cut(value, ",")
	if !ok || frac == "" || len(frac) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	// A short fraction is a decimal fraction: "01,5" is 500ms.
	for i := len(frac); i < 3; i++ {
		millis *= 10
	}
	return int64(hours)*3_600_000 + int64(minutes)*60_000 + int64(seconds)*1000 + int64(millis), nil
}

// FormatTimestamp renders a millisecond offset as "HH:MM:SS,mmm". Negative
// values clamp to zero.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// Format renders the track as SRT with blocks separated by one blank line
// and LF line endings. Index and timing lines read by Parse are written back
// verbatim while the entry's index, timing and position are unchanged;
// otherwise they are rendered canonically.
func (t Track) Format() string {
	var sb strings.Builder
	for i, entry := range t.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(entry.renderIndex())
		sb.WriteString("\n")
		sb.WriteString(entry.renderTiming())
		sb.WriteString("\n")
		for _, line := range entry.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (e Entry) renderIndex() string {
	if e.indexLine != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(e.indexLine)); err == nil && n == e.Index {
			return e.indexLine
		}
	}
	return strconv.Itoa(e.Index)
}

func (e Entry) renderTiming() string {
	if e.timingLine != "" {
		start, end, position, err := parseTiming(e.timingLine)
		if err == nil && start == e.Start && end == e.End && position == e.Position {
			return e.timingLine
		}
	}
	line := FormatTimestamp(e.Start) + " --> " + FormatTimestamp(e.End)
	if e.Position != "" {
		line += " " + e.Position
	}
	return line
}

// WriteFile writes the track to path in SRT form.
func WriteFile(path string, track Track) error {
	if err := os.WriteFile(path, []byte(track.Format()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}
