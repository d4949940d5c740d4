package ftpfs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/tonimelisma/ftpfs-go/internal/config"
	"github.com/tonimelisma/ftpfs-go/internal/staging"
	"github.com/tonimelisma/ftpfs-go/internal/transport"
)

// Operation names, used in errors, logs and metrics labels.
const (
	OpWrite        = "write"
	OpAppend       = "append"
	OpCopy         = "copy"
	OpMove         = "move"
	OpUpload       = "upload"
	OpExists       = "exists"
	OpRead         = "read"
	OpDelete       = "delete"
	OpMkDir        = "mkdir"
	OpLastModified = "last_modified"
	OpFileSize     = "file_size"
	OpReadDir      = "read_dir"
	OpIsDir        = "is_dir"
	OpIsFile       = "is_file"
)

var errEmptyListing = errors.New("empty listing")

// FileSystem implements Storage over one FTP session.
type FileSystem struct {
	session  *Session
	stager   *staging.Stager
	urls     *URLBuilder
	logger   *slog.Logger
	observer Observer
}

// New creates a FileSystem bound to a copy of cfg. No connection is made
// until the first operation. observer may be nil.
func New(cfg *config.Config, dialer transport.Dialer, logger *slog.Logger, observer Observer) *FileSystem {
	if logger == nil {
		logger = slog.Default()
	}

	if observer == nil {
		observer = nopObserver{}
	}

	bound := *cfg

	return &FileSystem{
		session:  NewSession(bound.ServerConfig, dialer, logger, observer),
		stager:   staging.New(bound.TmpDir, logger),
		urls:     NewURLBuilder(bound.BaseURL, bound.SubPath),
		logger:   logger,
		observer: observer,
	}
}

// Close ends the session. The FileSystem cannot be used afterwards.
func (fsys *FileSystem) Close() {
	fsys.session.Close()
}

// Write uploads content to p, replacing any existing file.
func (fsys *FileSystem) Write(ctx context.Context, p string, content []byte) (ref Ref, err error) {
	p = cleanPath(p)
	defer fsys.done(OpWrite, p, time.Now(), &ref.Bytes, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return Ref{}, err
	}

	tmp, err := fsys.stager.Write(content)
	if err != nil {
		return Ref{}, fsys.fail(OpWrite, p, ErrStage, err)
	}

	defer fsys.unstage(OpWrite, tmp, &err)

	n, err := fsys.putStaged(ctx, OpWrite, tmp, p)
	if err != nil {
		return Ref{}, err
	}

	return Ref{Path: p, Bytes: n}, nil
}

// Append adds content to the end of the existing file p. FTP has no partial
// write, so the whole file is downloaded, extended locally and uploaded.
func (fsys *FileSystem) Append(ctx context.Context, p string, content []byte) (ref Ref, err error) {
	p = cleanPath(p)
	defer fsys.done(OpAppend, p, time.Now(), &ref.Bytes, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return Ref{}, err
	}

	tmp, err := fsys.stager.NewPath()
	if err != nil {
		return Ref{}, fsys.fail(OpAppend, p, ErrStage, err)
	}

	defer fsys.unstage(OpAppend, tmp, &err)

	if err = fsys.fetch(ctx, OpAppend, p, tmp); err != nil {
		return Ref{}, err
	}

	if appendErr := fsys.stager.Append(tmp, content); appendErr != nil {
		return Ref{}, fsys.fail(OpAppend, p, ErrAppendWrite, appendErr)
	}

	n, err := fsys.putStaged(ctx, OpAppend, tmp, p)
	if err != nil {
		return Ref{}, err
	}

	return Ref{Path: p, Bytes: n}, nil
}

// Copy duplicates src at dst through a local round trip.
func (fsys *FileSystem) Copy(ctx context.Context, src, dst string) (ref Ref, err error) {
	src, dst = cleanPath(src), cleanPath(dst)
	defer fsys.done(OpCopy, dst, time.Now(), &ref.Bytes, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return Ref{}, err
	}

	tmp, err := fsys.stager.NewPath()
	if err != nil {
		return Ref{}, fsys.fail(OpCopy, src, ErrStage, err)
	}

	defer fsys.unstage(OpCopy, tmp, &err)

	if err = fsys.fetch(ctx, OpCopy, src, tmp); err != nil {
		return Ref{}, err
	}

	n, err := fsys.putStaged(ctx, OpCopy, tmp, dst)
	if err != nil {
		return Ref{}, err
	}

	return Ref{Path: dst, Bytes: n}, nil
}

// Move renames src to dst. When the server reports an error, the final
// state decides: a source that existed beforehand, now gone, with dst in
// place counts as success. A source that was never there always fails.
func (fsys *FileSystem) Move(ctx context.Context, src, dst string) (ref Ref, err error) {
	src, dst = cleanPath(src), cleanPath(dst)
	defer fsys.done(OpMove, dst, time.Now(), &ref.Bytes, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return Ref{}, err
	}

	srcExisted, srcErr := fsys.exists(ctx, src)
	if abortErr := abort(OpMove, src, srcErr); abortErr != nil {
		return Ref{}, abortErr
	}

	renameErr := fsys.session.Rename(ctx, src, dst)
	if renameErr == nil {
		return Ref{Path: dst}, nil
	}

	if abortErr := abort(OpMove, src, renameErr); abortErr != nil {
		return Ref{}, abortErr
	}

	if !srcExisted {
		return Ref{}, fsys.fail(OpMove, src, ErrRename, renameErr)
	}

	dstExists, dstErr := fsys.exists(ctx, dst)
	if abortErr := abort(OpMove, dst, dstErr); abortErr != nil {
		return Ref{}, abortErr
	}

	srcExists, srcErr := fsys.exists(ctx, src)
	if abortErr := abort(OpMove, src, srcErr); abortErr != nil {
		return Ref{}, abortErr
	}

	if dstExists && !srcExists {
		fsys.logger.Warn("rename reported an error but completed",
			slog.String("src", src),
			slog.String("dst", dst),
			slog.String("error", renameErr.Error()),
		)

		return Ref{Path: dst}, nil
	}

	return Ref{}, fsys.fail(OpMove, src, ErrRename, renameErr)
}

// Upload sends the local file at local to the remote path to.
func (fsys *FileSystem) Upload(ctx context.Context, local, to string) (ref Ref, err error) {
	to = cleanPath(to)
	defer fsys.done(OpUpload, to, time.Now(), &ref.Bytes, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return Ref{}, err
	}

	f, err := os.Open(local)
	if err != nil {
		return Ref{}, fsys.fail(OpUpload, to, ErrUpload, err)
	}
	defer f.Close()

	n, err := fsys.session.Put(ctx, f, to)
	if err != nil {
		return Ref{}, fsys.fail(OpUpload, to, ErrUpload, err)
	}

	return Ref{Path: to, Bytes: n}, nil
}

// Exists reports whether p names a file or directory. Only session
// failures are returned as errors; any other failed probe means false.
func (fsys *FileSystem) Exists(ctx context.Context, p string) (ok bool, err error) {
	p = cleanPath(p)
	defer fsys.done(OpExists, p, time.Now(), nil, &err)

	ok, err = fsys.exists(ctx, p)
	if abortErr := abort(OpExists, p, err); abortErr != nil {
		return false, abortErr
	}

	return ok, nil
}

// exists probes p with LIST, then the parent listing (for empty
// directories), then SIZE. The error is non-nil only when a probe failed in
// a way abort treats as fatal.
func (fsys *FileSystem) exists(ctx context.Context, p string) (bool, error) {
	if _, err := fsys.session.Conn(ctx); err != nil {
		return false, err
	}

	if isRoot(p) {
		return true, nil
	}

	entries, err := fsys.session.List(ctx, p)
	if abort(OpExists, p, err) != nil {
		return false, err
	}

	if err == nil && len(entries) > 0 {
		return true, nil
	}

	if err == nil {
		found, parentErr := fsys.inParent(ctx, p)
		if abort(OpExists, p, parentErr) != nil {
			return false, parentErr
		}

		if found {
			return true, nil
		}
	}

	_, err = fsys.session.FileSize(ctx, p)
	if err == nil {
		return true, nil
	}

	if abort(OpExists, p, err) != nil {
		return false, err
	}

	return false, nil
}

// inParent looks for the base name of p in its parent's listing. An empty
// directory lists as nothing, so this is the only way to see it.
func (fsys *FileSystem) inParent(ctx context.Context, p string) (bool, error) {
	dir, name := path.Split(p)
	if dir == "" {
		dir = "."
	}

	entries, err := fsys.session.List(ctx, dir)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.Name == name {
			return true, nil
		}
	}

	return false, nil
}

// Read downloads p and returns its content.
func (fsys *FileSystem) Read(ctx context.Context, p string) (data []byte, err error) {
	p = cleanPath(p)

	var n int64
	defer fsys.done(OpRead, p, time.Now(), &n, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return nil, err
	}

	tmp, err := fsys.stager.NewPath()
	if err != nil {
		return nil, fsys.fail(OpRead, p, ErrStage, err)
	}

	defer fsys.unstage(OpRead, tmp, &err)

	if err = fsys.fetch(ctx, OpRead, p, tmp); err != nil {
		return nil, err
	}

	data, err = fsys.stager.ReadFile(tmp)
	if err != nil {
		return nil, fsys.fail(OpRead, p, ErrStage, err)
	}

	n = int64(len(data))

	return data, nil
}

// Delete removes p, trying directory removal first and file removal second.
// If both fail but p is gone anyway, Delete succeeds.
func (fsys *FileSystem) Delete(ctx context.Context, p string) (err error) {
	p = cleanPath(p)
	defer fsys.done(OpDelete, p, time.Now(), nil, &err)

	if _, err = fsys.session.Conn(ctx); err != nil {
		return err
	}

	rmdirErr := fsys.session.RemoveDir(ctx, p)
	if rmdirErr == nil {
		return nil
	}

	if abortErr := abort(OpDelete, p, rmdirErr); abortErr != nil {
		return abortErr
	}

	deleteErr := fsys.session.Delete(ctx, p)
	if deleteErr == nil {
		return nil
	}

	if abortErr := abort(OpDelete, p, deleteErr); abortErr != nil {
		return abortErr
	}

	ok, existsErr := fsys.exists(ctx, p)
	if abortErr := abort(OpDelete, p, existsErr); abortErr != nil {
		return abortErr
	}

	if !ok {
		fsys.logger.Debug("delete target already absent", slog.String("path", p))

		return nil
	}

	return fsys.fail(OpDelete, p, ErrDelete, errors.Join(rmdirErr, deleteErr))
}

// MkDir creates p and every missing parent. Backslashes are treated as
// separators. Creating an existing directory is a no-op.
func (fsys *FileSystem) MkDir(ctx context.Context, p string) (err error) {
	p = cleanPath(strings.ReplaceAll(p, `\`, "/"))
	defer fsys.done(OpMkDir, p, time.Now(), nil, &err)

	ok, err := fsys.exists(ctx, p)
	if abortErr := abort(OpMkDir, p, err); abortErr != nil {
		return abortErr
	}

	if ok {
		return nil
	}

	var lastErr error

	dir := ""
	if strings.HasPrefix(p, "/") {
		dir = "/"
	}

	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part == "" || part == "." {
			continue
		}

		dir = path.Join(dir, part)

		// Existing levels fail with 550; only the final check matters.
		if mkErr := fsys.session.MakeDir(ctx, dir); mkErr != nil {
			if abortErr := abort(OpMkDir, dir, mkErr); abortErr != nil {
				return abortErr
			}

			fsys.logger.Debug("mkdir level failed",
				slog.String("path", dir),
				slog.String("error", mkErr.Error()),
			)

			lastErr = mkErr
		}
	}

	ok, err = fsys.exists(ctx, p)
	if abortErr := abort(OpMkDir, p, err); abortErr != nil {
		return abortErr
	}

	if !ok {
		return fsys.fail(OpMkDir, p, ErrMkdir, lastErr)
	}

	return nil
}

// LastModified returns the server's modification time for p.
func (fsys *FileSystem) LastModified(ctx context.Context, p string) (t time.Time, err error) {
	p = cleanPath(p)
	defer fsys.done(OpLastModified, p, time.Now(), nil, &err)

	t, err = fsys.session.ModTime(ctx, p)
	if err != nil {
		return time.Time{}, fsys.statFail(OpLastModified, p, err)
	}

	return t, nil
}

// FileSize returns the size of file p in bytes.
func (fsys *FileSystem) FileSize(ctx context.Context, p string) (n int64, err error) {
	p = cleanPath(p)
	defer fsys.done(OpFileSize, p, time.Now(), nil, &err)

	n, err = fsys.session.FileSize(ctx, p)
	if err != nil {
		return 0, fsys.statFail(OpFileSize, p, err)
	}

	return n, nil
}

// ReadDir returns the base names of the entries in directory p. An empty
// or failed listing is an error.
func (fsys *FileSystem) ReadDir(ctx context.Context, p string) (names []string, err error) {
	p = cleanPath(p)
	defer fsys.done(OpReadDir, p, time.Now(), nil, &err)

	raw, err := fsys.session.NameList(ctx, p)
	if err != nil {
		return nil, fsys.fail(OpReadDir, p, ErrList, err)
	}

	names = make([]string, 0, len(raw))

	for _, r := range raw {
		name := path.Base(strings.TrimRight(r, "/"))
		if name == "." || name == ".." || name == "/" {
			continue
		}

		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, fsys.fail(OpReadDir, p, ErrList, errEmptyListing)
	}

	return names, nil
}

// IsDir reports whether p is a directory: SIZE is refused and the path
// exists.
func (fsys *FileSystem) IsDir(ctx context.Context, p string) (ok bool, err error) {
	p = cleanPath(p)
	defer fsys.done(OpIsDir, p, time.Now(), nil, &err)

	_, err = fsys.session.FileSize(ctx, p)
	if err == nil {
		return false, nil
	}

	if abortErr := abort(OpIsDir, p, err); abortErr != nil {
		return false, abortErr
	}

	ok, err = fsys.exists(ctx, p)
	if abortErr := abort(OpIsDir, p, err); abortErr != nil {
		return false, abortErr
	}

	return ok, nil
}

// IsFile reports whether p is a regular file: SIZE succeeds. An empty file
// counts, unlike a "size > 0" test, which would report it as missing.
func (fsys *FileSystem) IsFile(ctx context.Context, p string) (ok bool, err error) {
	p = cleanPath(p)
	defer fsys.done(OpIsFile, p, time.Now(), nil, &err)

	_, err = fsys.session.FileSize(ctx, p)
	if err == nil {
		return true, nil
	}

	if abortErr := abort(OpIsFile, p, err); abortErr != nil {
		return false, abortErr
	}

	return false, nil
}

// BuildPreSignedURL returns the public URL of p, valid for expires when
// expires is positive.
func (fsys *FileSystem) BuildPreSignedURL(p string, expires time.Duration) (string, error) {
	return fsys.urls.Build(p, expires)
}

// fetch downloads remote into the scratch file tmp.
func (fsys *FileSystem) fetch(ctx context.Context, op, remote, tmp string) error {
	f, err := fsys.stager.Create(tmp)
	if err != nil {
		return fsys.fail(op, remote, ErrStage, err)
	}

	_, err = fsys.session.Get(ctx, remote, f)
	closeErr := f.Close()

	if err != nil {
		return fsys.fail(op, remote, ErrDownload, err)
	}

	if closeErr != nil {
		return fsys.fail(op, remote, ErrStage, closeErr)
	}

	return nil
}

// putStaged uploads the scratch file tmp to remote.
func (fsys *FileSystem) putStaged(ctx context.Context, op, tmp, remote string) (int64, error) {
	f, err := fsys.stager.Open(tmp)
	if err != nil {
		return 0, fsys.fail(op, remote, ErrStage, err)
	}
	defer f.Close()

	n, err := fsys.session.Put(ctx, f, remote)
	if err != nil {
		return 0, fsys.fail(op, remote, ErrUpload, err)
	}

	return n, nil
}

// unstage removes tmp on every exit path. A removal failure replaces a nil
// result; on an already failing operation it is only logged.
func (fsys *FileSystem) unstage(op, tmp string, errp *error) {
	rmErr := fsys.stager.Remove(tmp)
	if rmErr == nil {
		return
	}

	if *errp == nil {
		*errp = &OpError{Op: op, Path: tmp, Kind: ErrStage, Err: rmErr}

		return
	}

	fsys.logger.Warn("removing temp file failed",
		slog.String("op", op),
		slog.String("path", tmp),
		slog.String("error", rmErr.Error()),
	)
}

// fail wraps err as an OpError of the given kind. Session failures pass
// through unchanged so callers still see ErrConnection/ErrAuth/ErrMode.
func (fsys *FileSystem) fail(op, p string, kind, err error) error {
	if isSessionError(err) || isContextError(err) {
		return err
	}

	return &OpError{Op: op, Path: p, Kind: kind, Err: err}
}

func (fsys *FileSystem) statFail(op, p string, err error) error {
	if transport.IsNotFound(err) {
		return fsys.fail(op, p, ErrNotFound, err)
	}

	if transport.IsConnectionLost(err) {
		return fsys.fail(op, p, ErrConnection, err)
	}

	return fsys.fail(op, p, ErrStat, err)
}

// done logs and reports a finished operation. bytes may be nil.
func (fsys *FileSystem) done(op, p string, start time.Time, bytes *int64, errp *error) {
	var n int64
	if bytes != nil {
		n = *bytes
	}

	elapsed := time.Since(start)
	fsys.observer.OperationDone(op, elapsed, n, *errp)

	if *errp != nil {
		fsys.logger.Debug("operation failed",
			slog.String("op", op),
			slog.String("path", p),
			slog.Duration("elapsed", elapsed),
			slog.String("error", (*errp).Error()),
		)

		return
	}

	fsys.logger.Debug("operation done",
		slog.String("op", op),
		slog.String("path", p),
		slog.Int64("bytes", n),
		slog.Duration("elapsed", elapsed),
	)
}

// abort returns the error a tolerant probe must not swallow: session
// failures, cancellation and a lost control connection. Anything else
// yields nil.
func abort(op, p string, err error) error {
	switch {
	case err == nil:
		return nil
	case isSessionError(err), isContextError(err):
		return err
	case transport.IsConnectionLost(err):
		return &OpError{Op: op, Path: p, Kind: ErrConnection, Err: err}
	default:
		return nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// cleanPath collapses duplicate and trailing slashes. Relative paths stay
// relative to the login directory.
func cleanPath(p string) string {
	if p == "" {
		return ""
	}

	return path.Clean(p)
}

func isRoot(p string) bool {
	return p == "" || p == "/" || p == "."
}
