package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"syscall"
)

// Sentinel errors for FTP reply classification.
// Use errors.Is(err, transport.ErrNotFound) to check.
var (
	ErrNotFound            = errors.New("transport: file unavailable")
	ErrNotLoggedIn         = errors.New("transport: not logged in")
	ErrNotImplemented      = errors.New("transport: command not implemented")
	ErrTransient           = errors.New("transport: transient failure")
	ErrPermanent           = errors.New("transport: permanent failure")
	ErrConnectionLost      = errors.New("transport: connection lost")
	ErrActiveUnsupported   = errors.New("transport: active mode not supported")
	ErrEncodingUnsupported = errors.New("transport: unsupported filename encoding")
)

// Reply codes with a dedicated classification.
const (
	codeNotLoggedIn         = 530
	codeNotImplemented      = 502
	codeParamNotImplemented = 504
	codeFileUnavailable     = 550
	codeFileBusy            = 450
	codeTransientMin        = 400
	codePermanentMin        = 500
)

// ReplyError wraps a negative FTP reply with its code and server message.
type ReplyError struct {
	Code    int
	Message string
	Err     error // sentinel, for errors.Is()
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("transport: %d %s", e.Code, e.Message)
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}

// NewReplyError builds a classified ReplyError for the given reply code.
// Conn implementations other than Client use it so callers see the same
// error shapes regardless of the backing connection.
func NewReplyError(code int, message string) *ReplyError {
	return &ReplyError{Code: code, Message: message, Err: classifyCode(code)}
}

// classifyCode maps an FTP reply code to a sentinel error.
func classifyCode(code int) error {
	switch code {
	case codeNotLoggedIn:
		return ErrNotLoggedIn
	case codeFileUnavailable, codeFileBusy:
		return ErrNotFound
	case codeNotImplemented, codeParamNotImplemented:
		return ErrNotImplemented
	default:
		if code >= codePermanentMin {
			return ErrPermanent
		}

		if code >= codeTransientMin {
			return ErrTransient
		}

		return nil
	}
}

// classify converts an error returned by the FTP library into a ReplyError
// when the server answered, or marks it as a lost connection when the
// control channel itself failed. Other errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return NewReplyError(tpErr.Code, tpErr.Msg)
	}

	if isConnectionFailure(err) {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}

	return err
}

// isConnectionFailure reports whether err indicates that the control
// connection is unusable.
func isConnectionFailure(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

// IsConnectionLost reports whether err means the session can no longer be
// used and must be discarded.
func IsConnectionLost(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}

// IsNotFound reports whether the server answered that the path does not exist
// or is not a regular file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
