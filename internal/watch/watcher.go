package watch

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/unicode/norm"
)

// Watcher error backoff bounds.
const (
	watchErrInitBackoff = time.Second
	watchErrMaxBackoff  = 30 * time.Second
	watchErrBackoffMult = 2
)

// FsWatcher is the subset of *fsnotify.Watcher the mirror uses. fsnotify is
// not recursive, so every directory in the tree is added individually.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWatcher{w: w}, nil
}

func (f *fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

// alwaysExcludedSuffixes lists names that are never mirrored: partial
// downloads, editor temporaries, and SQLite files (the ledger may live
// inside the watched tree).
var alwaysExcludedSuffixes = []string{
	".partial", ".tmp", ".swp", ".crdownload",
	".db-wal", ".db-shm",
	".db",
}

// isExcluded reports whether a base name must be skipped.
func isExcluded(name string) bool {
	lower := strings.ToLower(name)

	for _, ext := range alwaysExcludedSuffixes {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	// Editor backups (~file) and LibreOffice locks (.~lock).
	return strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".~")
}

// nfcNormalize folds names to NFC so a file written on macOS (NFD) maps to
// the same remote path and ledger key as one written elsewhere.
func nfcNormalize(s string) string {
	return norm.NFC.String(s)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
