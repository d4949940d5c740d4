// Package watch mirrors a local directory tree onto remote storage. It
// uploads everything once, then follows filesystem events and periodic
// rescans, remembering what it already sent in the upload ledger.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/tonimelisma/ftpfs-go/internal/ftpfs"
	"github.com/tonimelisma/ftpfs-go/internal/ledger"
)

// Outcome labels reported to Recorder.MirrorFile.
const (
	OutcomeUploaded = "uploaded"
	OutcomeSkipped  = "skipped"
	OutcomeDeleted  = "deleted"
	OutcomeFailed   = "failed"
)

// DefaultSettle is how long a path must stay quiet before it is uploaded.
const DefaultSettle = 2 * time.Second

// Recorder receives per-file outcomes and rescan ticks. *metrics.Collector
// satisfies it.
type Recorder interface {
	MirrorFile(outcome string)
	MirrorRescan()
}

type nopRecorder struct{}

func (nopRecorder) MirrorFile(string) {}
func (nopRecorder) MirrorRescan()     {}

// Options configures a Mirror.
type Options struct {
	LocalRoot  string
	RemoteRoot string

	// Delete removes remote files whose local counterpart disappeared.
	Delete bool

	// RescanSchedule is a cron expression (robfig/cron standard syntax,
	// descriptors such as "@every 15m" included). Empty disables rescans.
	RescanSchedule string

	// Settle debounces bursts of events on one path. Zero means
	// DefaultSettle.
	Settle time.Duration
}

// Summary counts what one scan did.
type Summary struct {
	Uploaded int
	Skipped  int
	Deleted  int
	Failed   int
}

// Mirror uploads a local tree to a remote directory. All storage calls run
// on the goroutine that calls Run or Scan.
type Mirror struct {
	storage  ftpfs.Storage
	ledger   *ledger.Ledger
	opts     Options
	logger   *slog.Logger
	recorder Recorder

	newWatcher func() (FsWatcher, error)
	watcher    FsWatcher
	cycleID    string
	rescans    chan struct{}
}

// New validates opts and creates a Mirror. recorder may be nil.
func New(storage ftpfs.Storage, l *ledger.Ledger, opts Options, logger *slog.Logger, recorder Recorder) (*Mirror, error) {
	root, err := filepath.Abs(opts.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: resolving %s: %w", opts.LocalRoot, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch: local root: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("watch: local root %s is not a directory", root)
	}

	opts.LocalRoot = root

	opts.RemoteRoot = path.Clean(strings.ReplaceAll(opts.RemoteRoot, "\\", "/"))

	if opts.RescanSchedule != "" {
		if _, err := cron.ParseStandard(opts.RescanSchedule); err != nil {
			return nil, fmt.Errorf("watch: rescan schedule %q: %w", opts.RescanSchedule, err)
		}
	}

	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}

	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Mirror{
		storage:    storage,
		ledger:     l,
		opts:       opts,
		logger:     logger,
		recorder:   recorder,
		newWatcher: newFsnotifyWatcher,
		rescans:    make(chan struct{}, 1),
	}, nil
}

// Run performs an initial scan and then mirrors changes until ctx is
// canceled. It returns nil on cancellation and an error when the storage
// session or the ledger fails in a way no later event could recover from.
func (m *Mirror) Run(ctx context.Context) error {
	watcher, err := m.newWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	m.watcher = watcher

	m.logger.Info("mirror starting",
		slog.String("local_root", m.opts.LocalRoot),
		slog.String("remote_root", m.opts.RemoteRoot),
		slog.Bool("delete", m.opts.Delete),
		slog.String("rescan_schedule", m.opts.RescanSchedule),
	)

	if _, err := m.Scan(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return err
	}

	if m.opts.RescanSchedule != "" {
		c := cron.New()

		if _, err := c.AddFunc(m.opts.RescanSchedule, m.RequestRescan); err != nil {
			return fmt.Errorf("watch: scheduling rescans: %w", err)
		}

		c.Start()
		defer c.Stop()
	}

	err = m.loop(ctx, watcher, m.rescans)
	if ctx.Err() != nil {
		return nil
	}

	return err
}

// RequestRescan asks a running mirror for a full rescan. It never blocks;
// requests made while one is already pending are merged. Safe to call from
// any goroutine.
func (m *Mirror) RequestRescan() {
	select {
	case m.rescans <- struct{}{}:
	default:
	}
}

// loop processes filesystem events, watcher errors, debounce ticks, and
// rescan tokens.
func (m *Mirror) loop(ctx context.Context, watcher FsWatcher, rescans <-chan struct{}) error {
	settle := time.NewTicker(m.opts.Settle)
	defer settle.Stop()

	pending := make(map[string]time.Time)
	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			m.note(ev, pending)

			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			m.logger.Warn("filesystem watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if sleepErr := timeSleep(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff *= watchErrBackoffMult
			if errBackoff > watchErrMaxBackoff {
				errBackoff = watchErrMaxBackoff
			}

		case <-settle.C:
			if err := m.flush(ctx, pending, time.Now()); err != nil {
				return err
			}

		case <-rescans:
			m.recorder.MirrorRescan()

			if _, err := m.Scan(ctx); err != nil {
				return err
			}
		}
	}
}

// note marks the event's path dirty. The kind of event does not matter:
// flush looks at the path's current state.
func (m *Mirror) note(ev fsnotify.Event, pending map[string]time.Time) {
	// Mode changes are not mirrored.
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	rel, ok := m.relPath(ev.Name)
	if !ok || rel == "" {
		return
	}

	if isExcluded(path.Base(rel)) {
		m.logger.Debug("watch: skipping excluded path", slog.String("path", rel))
		return
	}

	pending[ev.Name] = time.Now()
}

// flush reconciles every pending path that has been quiet for the settle
// interval. Paths are handled in sorted order so parents precede children.
func (m *Mirror) flush(ctx context.Context, pending map[string]time.Time, now time.Time) error {
	var due []string

	for p, t := range pending {
		if now.Sub(t) >= m.opts.Settle {
			due = append(due, p)
		}
	}

	sort.Strings(due)

	for _, p := range due {
		delete(pending, p)

		if err := m.reconcile(ctx, p); err != nil {
			return err
		}
	}

	return nil
}

// reconcile brings the remote side of one local path up to date.
func (m *Mirror) reconcile(ctx context.Context, abs string) error {
	rel, ok := m.relPath(abs)
	if !ok || rel == "" {
		return nil
	}

	var sum Summary

	info, err := os.Lstat(abs)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return m.removed(ctx, rel, &sum)
	case err != nil:
		m.logger.Warn("stat failed for changed path",
			slog.String("path", rel), slog.String("error", err.Error()))

		return nil
	case info.IsDir():
		_, err := m.walk(ctx, abs, &sum, make(map[string]bool))
		return err
	case info.Mode().IsRegular():
		return m.syncFile(ctx, abs, rel, info, &sum)
	default:
		return nil
	}
}

// relPath returns the NFC, slash-separated path of abs below the local
// root. The root itself maps to "". ok is false outside the root.
func (m *Mirror) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(m.opts.LocalRoot, abs)
	if err != nil {
		m.logger.Warn("failed to compute relative path",
			slog.String("path", abs), slog.String("error", err.Error()))

		return "", false
	}

	rel = filepath.ToSlash(rel)

	if rel == "." {
		return "", true
	}

	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}

	return nfcNormalize(rel), true
}

func (m *Mirror) remotePath(rel string) string {
	return path.Join(m.opts.RemoteRoot, rel)
}

// fatal reports errors that end the mirror: cancellation and a session
// that can no longer be used.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ftpfs.ErrConnection) ||
		errors.Is(err, ftpfs.ErrAuth)
}
