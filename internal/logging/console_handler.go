package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// prettyHandler renders records as single human readable lines:
//
//	2026-01-02 15:04:05 INFO  [pacing] entry 12: segment synthesized speed=1.2
//
// component, entry and group move into the line prefix; run_id is dropped
// because the file log already carries it.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

type field struct {
	key   string
	value slog.Value
}

// linePrefix collects the attributes promoted into the line prefix.
type linePrefix struct {
	component, entry, group string
}

func (p *linePrefix) absorb(f field) bool {
	var slot *string
	switch f.key {
	case FieldComponent:
		slot = &p.component
	case FieldEntryIndex:
		slot = &p.entry
	case FieldGroup:
		slot = &p.group
	case FieldRunID:
		return true
	default:
		return false
	}
	if *slot == "" {
		*slot = plainString(f.value)
	}
	return true
}

func (p linePrefix) String() string {
	var sb strings.Builder
	if p.component != "" {
		sb.WriteString("[" + p.component + "] ")
	}
	var subject []string
	if p.group != "" {
		subject = append(subject, "group "+p.group)
	}
	if p.entry != "" {
		subject = append(subject, "entry "+p.entry)
	}
	if len(subject) > 0 {
		sb.WriteString(strings.Join(subject, " ") + ": ")
	}
	return sb.String()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	fields := make([]field, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		fields = flatten(fields, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields = flatten(fields, h.groups, attr)
		return true
	})

	var prefix linePrefix
	rest := fields[:0]
	for _, f := range fields {
		if !prefix.absorb(f) {
			rest = append(rest, f)
		}
	}

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s %s%s", ts.In(time.Local).Format(consoleTimeLayout), levelLabel(record.Level), prefix, msg)
	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&sb, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		if f.key != "" {
			sb.WriteString(" " + f.key + "=" + renderValue(f.value))
		}
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// flatten appends attr to dst, expanding groups into dotted keys.
func flatten(dst []field, prefix []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, child := range value.Group() {
			dst = flatten(dst, next, child)
		}
		return dst
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + attr.Key
	}
	return append(dst, field{key: key, value: value})
}

func plainString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().In(time.Local).Format(consoleTimeLayout)
	default:
		return v.String()
	}
}

// renderValue is plainString with quoting for values that would break
// key=value parsing.
func renderValue(v slog.Value) string {
	s := plainString(v.Resolve())
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
