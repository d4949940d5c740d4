// Package ledger records which local files the watch mirror has already
// uploaded, so restarts and rescans only transfer what changed.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQL statements for ledger operations.
const (
	sqlLookup = `SELECT local_path, remote_path, size, mtime_ns, cycle_id, uploaded_at
		FROM uploads WHERE local_path = ?`

	sqlUpsert = `INSERT INTO uploads
		(local_path, remote_path, size, mtime_ns, cycle_id, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_path) DO UPDATE SET
		 remote_path = excluded.remote_path,
		 size = excluded.size,
		 mtime_ns = excluded.mtime_ns,
		 cycle_id = excluded.cycle_id,
		 uploaded_at = excluded.uploaded_at`

	sqlDelete = `DELETE FROM uploads WHERE local_path = ?`

	sqlPaths = `SELECT local_path FROM uploads ORDER BY local_path`

	sqlCountCycle = `SELECT COUNT(*) FROM uploads WHERE cycle_id = ?`
)

// Entry is one uploaded file. LocalPath is relative to the watched root,
// slash-separated.
type Entry struct {
	LocalPath  string
	RemotePath string
	Size       int64
	MtimeNs    int64
	CycleID    string
	UploadedAt time.Time
}

// Ledger is a SQLite-backed upload record.
type Ledger struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the ledger database at dbPath and applies
// migrations. Use ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Ledger, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
			dbPath,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database %s: %w", dbPath, err)
	}

	// Single writer; also keeps an in-memory database on one connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("upload ledger ready", slog.String("db_path", dbPath))

	return &Ledger{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("ledger: closing database: %w", err)
	}

	return nil
}

// Lookup returns the entry for localPath. found is false when the file was
// never recorded.
func (l *Ledger) Lookup(ctx context.Context, localPath string) (e Entry, found bool, err error) {
	var uploadedNs int64

	err = l.db.QueryRowContext(ctx, sqlLookup, localPath).Scan(
		&e.LocalPath, &e.RemotePath, &e.Size, &e.MtimeNs, &e.CycleID, &uploadedNs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}

	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: looking up %s: %w", localPath, err)
	}

	e.UploadedAt = time.Unix(0, uploadedNs)

	return e, true, nil
}

// Changed reports whether a file with the given size and mtime needs to be
// uploaded: it was never recorded, or either value differs from the record.
func (l *Ledger) Changed(ctx context.Context, localPath string, size, mtimeNs int64) (bool, error) {
	e, found, err := l.Lookup(ctx, localPath)
	if err != nil {
		return false, err
	}

	return !found || e.Size != size || e.MtimeNs != mtimeNs, nil
}

// Record stores a successful upload. UploadedAt defaults to now.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.UploadedAt.IsZero() {
		e.UploadedAt = l.nowFunc()
	}

	_, err := l.db.ExecContext(ctx, sqlUpsert,
		e.LocalPath, e.RemotePath, e.Size, e.MtimeNs, e.CycleID, e.UploadedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("ledger: recording %s: %w", e.LocalPath, err)
	}

	l.logger.Debug("upload recorded",
		slog.String("local_path", e.LocalPath),
		slog.String("remote_path", e.RemotePath),
		slog.Int64("size", e.Size),
	)

	return nil
}

// Forget drops the record for localPath. Forgetting an unknown path is not
// an error.
func (l *Ledger) Forget(ctx context.Context, localPath string) error {
	if _, err := l.db.ExecContext(ctx, sqlDelete, localPath); err != nil {
		return fmt.Errorf("ledger: forgetting %s: %w", localPath, err)
	}

	return nil
}

// Paths returns every recorded local path in sorted order.
func (l *Ledger) Paths(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, sqlPaths)
	if err != nil {
		return nil, fmt.Errorf("ledger: listing paths: %w", err)
	}
	defer rows.Close()

	var paths []string

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("ledger: scanning path: %w", err)
		}

		paths = append(paths, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating paths: %w", err)
	}

	return paths, nil
}

// CountCycle returns how many records were last written by cycleID.
func (l *Ledger) CountCycle(ctx context.Context, cycleID string) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, sqlCountCycle, cycleID).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: counting cycle %s: %w", cycleID, err)
	}

	return n, nil
}
