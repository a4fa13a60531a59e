// Package workspace manages the per-run working directory that holds
// intermediate segment files.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const lockFileName = ".sisyphus.lock"

// ErrBusy is returned when another process holds the run directory.
var ErrBusy = errors.New("workspace is in use by another run")

// Workspace is a locked run directory under the configured work dir.
type Workspace struct {
	dir  string
	lock *flock.Flock
}

// Open creates a run directory for input under root and takes an exclusive
// lock on it. The directory is named after the input file plus a short digest
// of its absolute path, so inputs sharing a base name in different folders
// get separate directories while two runs on the same file share one lock.
func Open(root, input string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root is empty")
	}
	dir := filepath.Join(root, dirName(input))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}
	return &Workspace{dir: dir, lock: lock}, nil
}

// Dir returns the run directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// SegmentPath returns the file that holds the clip for a subtitle index.
func (w *Workspace) SegmentPath(index int) string {
	return filepath.Join(w.dir, SegmentFileName(index))
}

// SegmentFileName formats the segment file name for a subtitle index.
func SegmentFileName(index int) string {
	return fmt.Sprintf("segment_%04d.wav", index)
}

// Close releases the lock. When keep is false the run directory is removed.
func (w *Workspace) Close(keep bool) error {
	if w == nil {
		return nil
	}
	var errs []error
	if err := w.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release workspace lock: %w", err))
	}
	if keep {
		_ = os.Remove(filepath.Join(w.dir, lockFileName))
	} else if err := os.RemoveAll(w.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove workspace: %w", err))
	}
	return errors.Join(errs...)
}

func dirName(input string) string {
	path := strings.TrimSpace(input)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return sanitizeName(input) + "-" + hex.EncodeToString(sum[:4])
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "run"
	}
	return name
}
