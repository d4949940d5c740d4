// Package staging manages the local scratch files used to bridge in-memory
// content and a transport that only moves whole files. Every staged file
// lives for exactly one operation.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStage is the sentinel for local scratch-file I/O failures.
var ErrStage = errors.New("staging: temp file failure")

// NamePrefix starts every staged file name.
const NamePrefix = "ftpfs-"

const (
	dirPermissions  = 0o777 // permissive, umask applies
	filePermissions = 0o600
)

// Stager creates, fills and removes scratch files under one directory.
type Stager struct {
	dir    string
	logger *slog.Logger

	// now is the clock for name generation. Tests may override it.
	now func() time.Time
}

// New creates a Stager rooted at dir. An empty dir selects the platform
// temp directory. Forward slashes in dir are accepted on every platform.
func New(dir string, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}

	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}

	return &Stager{
		dir:    filepath.Clean(filepath.FromSlash(dir)),
		logger: logger,
		now:    time.Now,
	}
}

// Dir returns the scratch directory.
func (s *Stager) Dir() string {
	return s.dir
}

// NewPath returns a fresh, globally unique path inside the scratch
// directory, creating the directory tree when missing. The file itself is
// not created.
func (s *Stager) NewPath() (string, error) {
	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", ErrStage, s.dir, err)
	}

	name := NamePrefix + strconv.FormatInt(s.now().UnixNano(), 36) + "-" + uuid.NewString()

	return filepath.Join(s.dir, name), nil
}

// Write stores content in a new scratch file and returns its path. A short
// or failed write removes the partial file and reports ErrStage.
func (s *Stager) Write(content []byte) (string, error) {
	path, err := s.NewPath()
	if err != nil {
		return "", err
	}

	if err := writeFull(path, content, os.O_CREATE|os.O_EXCL|os.O_WRONLY); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Warn("removing partial temp file failed",
				slog.String("path", path),
				slog.String("error", rmErr.Error()),
			)
		}

		return "", err
	}

	s.logger.Debug("staged temp file", slog.String("path", path), slog.Int("bytes", len(content)))

	return path, nil
}

// Append adds content to the end of path byte for byte, creating the file
// when it does not exist.
func (s *Stager) Append(path string, content []byte) error {
	return writeFull(path, content, os.O_CREATE|os.O_APPEND|os.O_WRONLY)
}

// Create opens path for writing, truncating previous content. Downloads
// stream into the returned file.
func (s *Stager) Create(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", ErrStage, path, err)
	}

	return f, nil
}

// Open opens a scratch file for reading.
func (s *Stager) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStage, path, err)
	}

	return f, nil
}

// ReadFile returns the content of a scratch file.
func (s *Stager) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStage, path, err)
	}

	return data, nil
}

// Remove deletes a scratch file. A missing file is not an error.
func (s *Stager) Remove(path string) error {
	if path == "" {
		return nil
	}

	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("%w: removing %s: %w", ErrStage, path, err)
}

func writeFull(path string, content []byte, flag int) error {
	f, err := os.OpenFile(path, flag, filePermissions)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrStage, path, err)
	}

	n, err := f.Write(content)
	if err == nil && n < len(content) {
		err = fmt.Errorf("short write (%d of %d bytes)", n, len(content))
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStage, path, err)
	}

	return nil
}
