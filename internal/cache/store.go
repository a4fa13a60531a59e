package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leeyeel/Sisyphus/internal/config"
)

// Store is a checkpoint cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Translation is one aligned translation group.
type Translation struct {
	Key            string
	Model          string
	TargetLanguage string
	Separator      string
	SourceText     string
	TranslatedText string
	RunID          string
}

// Segment is one synthesized clip stored as WAV bytes.
type Segment struct {
	Key        string
	Voice      string
	Text       string
	Speed      float64
	WAV        []byte
	DurationMs int64
	RunID      string
}

// Stats summarizes cache contents.
type Stats struct {
	Translations int
	Segments     int
	SegmentBytes int64
}

// Open opens the cache configured in cfg. It returns nil when caching is
// disabled.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil || !cfg.Cache.Enabled || strings.TrimSpace(cfg.Paths.CachePath) == "" {
		return nil, nil
	}
	return OpenPath(cfg.Paths.CachePath)
}

// OpenPath opens or creates the cache database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path reports the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TranslationKey derives the cache key for a translation group.
func TranslationKey(model, targetLanguage, separator, sourceText string) string {
	return digest("translation", model, targetLanguage, separator, sourceText)
}

// SegmentKey derives the cache key for a synthesized segment. Speed is
// rounded to two decimals so float noise does not defeat reuse.
func SegmentKey(voice, text string, speed float64) string {
	return digest("segment", voice, text, strconv.FormatFloat(speed, 'f', 2, 64))
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetTranslation returns the cached translation for key.
func (s *Store) GetTranslation(ctx context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT translated_text FROM translations WHERE cache_key = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get translation: %w", err)
	}
	return text, true, nil
}

// PutTranslation stores or replaces a translation checkpoint.
func (s *Store) PutTranslation(ctx context.Context, rec Translation) error {
	if s == nil {
		return nil
	}
	if rec.Key == "" {
		rec.Key = TranslationKey(rec.Model, rec.TargetLanguage, rec.Separator, rec.SourceText)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO translations (
            cache_key, model, target_language, separator, source_text, translated_text, run_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key,
		rec.Model,
		rec.TargetLanguage,
		rec.Separator,
		rec.SourceText,
		rec.TranslatedText,
		nullableString(rec.RunID),
		now(),
	)
	if err != nil {
		return fmt.Errorf("put translation: %w", err)
	}
	return nil
}

// GetSegment returns the cached WAV bytes for key.
func (s *Store) GetSegment(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	var wav []byte
	err := s.db.QueryRowContext(ctx, `SELECT wav FROM segments WHERE cache_key = ?`, key).Scan(&wav)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get segment: %w", err)
	}
	return wav, true, nil
}

// PutSegment stores or replaces a synthesized segment.
func (s *Store) PutSegment(ctx context.Context, rec Segment) error {
	if s == nil {
		return nil
	}
	if len(rec.WAV) == 0 {
		return errors.New("put segment: empty wav")
	}
	if rec.Key == "" {
		rec.Key = SegmentKey(rec.Voice, rec.Text, rec.Speed)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO segments (
            cache_key, voice, text, speed, wav, duration_ms, run_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key,
		rec.Voice,
		rec.Text,
		rec.Speed,
		rec.WAV,
		rec.DurationMs,
		nullableString(rec.RunID),
		now(),
	)
	if err != nil {
		return fmt.Errorf("put segment: %w", err)
	}
	return nil
}

// Stats counts cached rows.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM translations`).Scan(&stats.Translations); err != nil {
		return stats, fmt.Errorf("count translations: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(LENGTH(wav)), 0) FROM segments`,
	).Scan(&stats.Segments, &stats.SegmentBytes); err != nil {
		return stats, fmt.Errorf("count segments: %w", err)
	}
	return stats, nil
}

// Clear removes every cached row.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil {
		return nil
	}
	for _, table := range []string{"translations", "segments"} {
		if _, err := s.execWithRetry(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy covers concurrent workers writing checkpoints at once.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
