package ftpfs

import (
	"errors"
	"fmt"

	"github.com/tonimelisma/ftpfs-go/internal/staging"
)

// Error kinds. Every failure returned by this package is an *OpError whose
// Kind is one of these; use errors.Is(err, ftpfs.ErrUpload) to check.
var (
	// Session setup.
	ErrConnection = errors.New("ftpfs: connection failed")
	ErrAuth       = errors.New("ftpfs: login failed")
	ErrMode       = errors.New("ftpfs: transfer mode rejected")

	// Local scratch files.
	ErrStage = staging.ErrStage

	// Remote operations.
	ErrUpload      = errors.New("ftpfs: upload failed")
	ErrDownload    = errors.New("ftpfs: download failed")
	ErrAppendWrite = errors.New("ftpfs: local append failed")
	ErrRename      = errors.New("ftpfs: rename failed")
	ErrDelete      = errors.New("ftpfs: delete failed")
	ErrList        = errors.New("ftpfs: listing failed")
	ErrMkdir       = errors.New("ftpfs: mkdir failed")
	ErrStat        = errors.New("ftpfs: stat failed")
	ErrNotFound    = errors.New("ftpfs: not found")
	ErrURL         = errors.New("ftpfs: cannot build url")
)

// OpError records a failed operation, the remote path it touched, the error
// kind and the underlying cause.
type OpError struct {
	Op   string
	Path string
	Kind error // one of the Err* kinds above
	Err  error // cause, may be nil
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}

	if e.Err == nil {
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	}

	return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// isSessionError reports whether err came from establishing or using the
// session itself rather than from the operation that triggered it.
func isSessionError(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrAuth) || errors.Is(err, ErrMode)
}
