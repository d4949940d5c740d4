package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tonimelisma/ftpfs-go/internal/ledger"
)

// Scan walks the whole local tree once: it creates remote directories,
// uploads new and changed files, and with Options.Delete removes remote
// files whose local source is gone. Each scan is tagged with a fresh cycle
// ID in the ledger.
func (m *Mirror) Scan(ctx context.Context) (Summary, error) {
	var sum Summary

	m.cycleID = uuid.NewString()

	logger := m.logger.With(slog.String("cycle_id", m.cycleID))
	logger.Info("scan starting", slog.String("local_root", m.opts.LocalRoot))

	if m.opts.RemoteRoot != "." && m.opts.RemoteRoot != "/" {
		if err := m.storage.MkDir(ctx, m.opts.RemoteRoot); err != nil {
			if fatal(err) {
				return sum, err
			}

			logger.Warn("creating remote root failed",
				slog.String("path", m.opts.RemoteRoot), slog.String("error", err.Error()))
		}
	}

	observed := make(map[string]bool)

	complete, err := m.walk(ctx, m.opts.LocalRoot, &sum, observed)
	if err != nil {
		return sum, err
	}

	if m.opts.Delete {
		if complete {
			if err := m.detectDeletions(ctx, observed, &sum); err != nil {
				return sum, err
			}
		} else {
			// An unreadable directory would look like a mass deletion.
			logger.Warn("scan incomplete, skipping deletion detection")
		}
	}

	logger.Info("scan complete",
		slog.Int("uploaded", sum.Uploaded),
		slog.Int("skipped", sum.Skipped),
		slog.Int("deleted", sum.Deleted),
		slog.Int("failed", sum.Failed),
	)

	return sum, nil
}

// walk mirrors the subtree at dir. complete is false when some entry could
// not be read.
func (m *Mirror) walk(ctx context.Context, dir string, sum *Summary, observed map[string]bool) (complete bool, err error) {
	complete = true

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if walkErr != nil {
			m.logger.Warn("walk error",
				slog.String("path", p), slog.String("error", walkErr.Error()))

			complete = false

			return nil
		}

		rel, ok := m.relPath(p)
		if !ok {
			return nil
		}

		if rel != "" && isExcluded(path.Base(rel)) {
			if d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return m.addDir(ctx, p, rel)
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			m.logger.Debug("stat failed during walk",
				slog.String("path", rel), slog.String("error", err.Error()))

			complete = false

			return nil
		}

		observed[rel] = true

		return m.syncFile(ctx, p, rel, info, sum)
	})

	return complete, err
}

// addDir watches a local directory and creates its remote counterpart.
func (m *Mirror) addDir(ctx context.Context, abs, rel string) error {
	if m.watcher != nil {
		if err := m.watcher.Add(abs); err != nil {
			m.logger.Warn("failed to add watch on directory",
				slog.String("path", abs), slog.String("error", err.Error()))
		}
	}

	if rel == "" {
		return nil
	}

	if err := m.storage.MkDir(ctx, m.remotePath(rel)); err != nil {
		if fatal(err) {
			return err
		}

		m.logger.Warn("creating remote directory failed",
			slog.String("path", rel), slog.String("error", err.Error()))
	}

	return nil
}

// syncFile uploads one file unless the ledger shows it unchanged.
func (m *Mirror) syncFile(ctx context.Context, abs, rel string, info fs.FileInfo, sum *Summary) error {
	size, mtime := info.Size(), info.ModTime().UnixNano()

	changed, err := m.ledger.Changed(ctx, rel, size, mtime)
	if err != nil {
		return err
	}

	if !changed {
		sum.Skipped++
		m.recorder.MirrorFile(OutcomeSkipped)

		return nil
	}

	ref, err := m.storage.Upload(ctx, abs, m.remotePath(rel))
	if err != nil {
		if fatal(err) {
			return err
		}

		sum.Failed++
		m.recorder.MirrorFile(OutcomeFailed)
		m.logger.Warn("upload failed", slog.String("path", rel), slog.String("error", err.Error()))

		return nil
	}

	if err := m.ledger.Record(ctx, ledger.Entry{
		LocalPath:  rel,
		RemotePath: ref.Path,
		Size:       size,
		MtimeNs:    mtime,
		CycleID:    m.cycleID,
	}); err != nil {
		return err
	}

	sum.Uploaded++
	m.recorder.MirrorFile(OutcomeUploaded)
	m.logger.Info("uploaded",
		slog.String("path", rel),
		slog.String("remote_path", ref.Path),
		slog.Int64("bytes", ref.Bytes),
	)

	return nil
}

// detectDeletions removes the remote copy of every recorded file that the
// walk did not see.
func (m *Mirror) detectDeletions(ctx context.Context, observed map[string]bool, sum *Summary) error {
	paths, err := m.ledger.Paths(ctx)
	if err != nil {
		return err
	}

	for _, p := range paths {
		if observed[p] {
			continue
		}

		if err := m.deleteFile(ctx, p, sum); err != nil {
			return err
		}
	}

	return nil
}

// removed handles a path that vanished locally. Recorded files at or below
// rel are deleted remotely, then the directories that held them, deepest
// first.
func (m *Mirror) removed(ctx context.Context, rel string, sum *Summary) error {
	if !m.opts.Delete {
		m.logger.Debug("local path removed, remote copy kept", slog.String("path", rel))
		return nil
	}

	paths, err := m.ledger.Paths(ctx)
	if err != nil {
		return err
	}

	prefix := rel + "/"
	dirs := map[string]bool{rel: true}
	isFile := false

	for _, p := range paths {
		switch {
		case p == rel:
			isFile = true
		case strings.HasPrefix(p, prefix):
			for d := path.Dir(p); d != rel && d != "."; d = path.Dir(d) {
				dirs[d] = true
			}
		default:
			continue
		}

		if err := m.deleteFile(ctx, p, sum); err != nil {
			return err
		}
	}

	if isFile {
		return nil
	}

	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return strings.Count(ordered[i], "/") > strings.Count(ordered[j], "/")
	})

	for _, d := range ordered {
		if err := m.storage.Delete(ctx, m.remotePath(d)); err != nil {
			if fatal(err) {
				return err
			}

			m.logger.Warn("remote directory delete failed",
				slog.String("path", d), slog.String("error", err.Error()))
		}
	}

	return nil
}

// deleteFile removes one recorded file remotely and forgets it.
func (m *Mirror) deleteFile(ctx context.Context, rel string, sum *Summary) error {
	if err := m.storage.Delete(ctx, m.remotePath(rel)); err != nil {
		if fatal(err) {
			return err
		}

		sum.Failed++
		m.recorder.MirrorFile(OutcomeFailed)
		m.logger.Warn("remote delete failed", slog.String("path", rel), slog.String("error", err.Error()))

		return nil
	}

	if err := m.ledger.Forget(ctx, rel); err != nil {
		return err
	}

	sum.Deleted++
	m.recorder.MirrorFile(OutcomeDeleted)
	m.logger.Info("deleted remote copy", slog.String("path", rel))

	return nil
}
