package ftpfs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tonimelisma/ftpfs-go/internal/config"
	"github.com/tonimelisma/ftpfs-go/internal/transport"
)

// errSessionClosed marks a session that was closed by its owner.
var errSessionClosed = errors.New("session closed")

// Session owns the single control connection of a FileSystem. It dials and
// logs in on the first call to Conn, then hands out the same connection
// until Close. A connection-level failure poisons the session: later calls
// report ErrConnection instead of dialing again.
type Session struct {
	cfg      config.ServerConfig
	dialer   transport.Dialer
	logger   *slog.Logger
	observer Observer

	conn   transport.Conn
	broken error
}

// NewSession creates an unconnected session. Nothing touches the network
// until the first call to Conn.
func NewSession(cfg config.ServerConfig, dialer transport.Dialer, logger *slog.Logger, observer Observer) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	if observer == nil {
		observer = nopObserver{}
	}

	return &Session{
		cfg:      cfg,
		dialer:   dialer,
		logger:   logger,
		observer: observer,
	}
}

// Open reports whether a live connection is cached.
func (s *Session) Open() bool {
	return s.conn != nil
}

// Conn returns the cached connection, establishing it on first use.
func (s *Session) Conn(ctx context.Context) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.broken != nil {
		return nil, &OpError{Op: "session", Kind: ErrConnection, Err: s.broken}
	}

	if s.conn != nil {
		return s.conn, nil
	}

	conn, err := s.establish(ctx)
	if err != nil {
		return nil, err
	}

	s.conn = conn
	s.observer.SessionOpened()

	return conn, nil
}

// establish dials, logs in, and applies the transfer settings. A connection
// that fails any step after dialing is quit before returning.
func (s *Session) establish(ctx context.Context) (transport.Conn, error) {
	addr := s.cfg.Addr()

	s.logger.Debug("connecting",
		slog.String("addr", addr),
		slog.Duration("timeout", s.cfg.ConnectTimeout()),
	)

	conn, err := s.dialer.Dial(ctx, addr, s.cfg.ConnectTimeout())
	if err != nil {
		return nil, &OpError{Op: "connect", Path: addr, Kind: ErrConnection, Err: err}
	}

	if err := conn.Login(s.cfg.Username, s.cfg.Password); err != nil {
		s.quit(conn)

		kind := ErrAuth
		if transport.IsConnectionLost(err) {
			kind = ErrConnection
		}

		return nil, &OpError{Op: "login", Path: s.cfg.Username, Kind: kind, Err: err}
	}

	s.logger.Debug("logged in", slog.String("username", s.cfg.Username))

	typ := transport.TransferASCII
	if s.cfg.Binary() {
		typ = transport.TransferBinary
	}

	if err := conn.Type(typ); err != nil {
		s.quit(conn)

		return nil, &OpError{Op: "type", Path: typ.String(), Kind: ErrMode, Err: err}
	}

	if s.cfg.Passive() {
		if err := conn.SetPassive(true); err != nil {
			s.quit(conn)

			return nil, &OpError{Op: "pasv", Kind: ErrMode, Err: err}
		}
	} else {
		s.logger.Debug("passive mode not requested")
	}

	s.logger.Info("session established",
		slog.String("host", s.cfg.Host),
		slog.Int("port", s.cfg.Port),
		slog.String("mode", typ.String()),
		slog.Bool("passive", s.cfg.Passive()),
	)

	return conn, nil
}

func (s *Session) quit(conn transport.Conn) {
	if err := conn.Quit(); err != nil {
		s.logger.Debug("quit after failed setup", slog.String("error", err.Error()))
	}
}

// Close quits the connection if one is open. The session cannot be used
// afterwards. Errors are logged, not returned: by the time a caller closes
// the session there is nothing left to do about them.
func (s *Session) Close() {
	if s.conn != nil {
		if err := s.conn.Quit(); err != nil && !transport.IsConnectionLost(err) {
			s.logger.Warn("closing session failed", slog.String("error", err.Error()))
		}

		s.logger.Debug("session closed", slog.String("host", s.cfg.Host))
		s.conn = nil
	}

	if s.broken == nil {
		s.broken = errSessionClosed
	}
}

// track poisons the session when err shows the control connection is gone.
func (s *Session) track(err error) error {
	if err != nil && transport.IsConnectionLost(err) && s.broken == nil {
		s.logger.Warn("connection lost", slog.String("host", s.cfg.Host), slog.String("error", err.Error()))
		s.poison(err)
	}

	return err
}

// poison marks the session unusable and drops its connection.
func (s *Session) poison(err error) {
	s.broken = err

	if s.conn != nil {
		s.quit(s.conn)
		s.conn = nil
	}
}

// call runs fn on the session connection and tracks its error.
func call[T any](ctx context.Context, s *Session, fn func(transport.Conn) (T, error)) (T, error) {
	var zero T

	conn, err := s.Conn(ctx)
	if err != nil {
		return zero, err
	}

	v, err := fn(conn)
	if err != nil {
		return zero, s.track(err)
	}

	return v, nil
}

// Put uploads everything r yields to remote in the configured mode and
// returns the number of bytes sent.
func (s *Session) Put(ctx context.Context, r io.Reader, remote string) (int64, error) {
	return call(ctx, s, func(c transport.Conn) (int64, error) {
		cr := &countingReader{r: r}
		err := c.Stor(remote, cr)

		return cr.n, err
	})
}

// Get downloads remote into w in the configured mode and returns the number
// of bytes received.
func (s *Session) Get(ctx context.Context, remote string, w io.Writer) (int64, error) {
	return call(ctx, s, func(c transport.Conn) (int64, error) {
		rc, err := c.Retr(remote)
		if err != nil {
			return 0, err
		}

		n, copyErr := io.Copy(w, rc)
		closeErr := rc.Close()

		if closeErr != nil {
			return n, closeErr
		}

		return n, copyErr
	})
}

// Rename renames from to to.
func (s *Session) Rename(ctx context.Context, from, to string) error {
	_, err := call(ctx, s, func(c transport.Conn) (struct{}, error) {
		return struct{}{}, c.Rename(from, to)
	})

	return err
}

// Delete removes a file.
func (s *Session) Delete(ctx context.Context, p string) error {
	_, err := call(ctx, s, func(c transport.Conn) (struct{}, error) {
		return struct{}{}, c.Delete(p)
	})

	return err
}

// RemoveDir removes an empty directory.
func (s *Session) RemoveDir(ctx context.Context, p string) error {
	_, err := call(ctx, s, func(c transport.Conn) (struct{}, error) {
		return struct{}{}, c.RemoveDir(p)
	})

	return err
}

// MakeDir creates one directory level.
func (s *Session) MakeDir(ctx context.Context, p string) error {
	_, err := call(ctx, s, func(c transport.Conn) (struct{}, error) {
		return struct{}{}, c.MakeDir(p)
	})

	return err
}

// List returns the raw listing of p.
func (s *Session) List(ctx context.Context, p string) ([]transport.Entry, error) {
	return call(ctx, s, func(c transport.Conn) ([]transport.Entry, error) {
		return c.List(p)
	})
}

// NameList returns the name listing of p.
func (s *Session) NameList(ctx context.Context, p string) ([]string, error) {
	return call(ctx, s, func(c transport.Conn) ([]string, error) {
		return c.NameList(p)
	})
}

// FileSize returns the SIZE of p. SIZE always runs under TYPE I (RFC 3659
// servers refuse it under TYPE A), so a text-mode session switches for the
// query and back afterwards. A session that cannot return to text mode is
// poisoned.
func (s *Session) FileSize(ctx context.Context, p string) (int64, error) {
	return call(ctx, s, func(c transport.Conn) (int64, error) {
		if s.cfg.Binary() {
			return c.FileSize(p)
		}

		if err := c.Type(transport.TransferBinary); err != nil {
			if transport.IsConnectionLost(err) {
				return 0, err
			}

			return 0, &OpError{Op: "type", Path: transport.TransferBinary.String(), Kind: ErrMode, Err: err}
		}

		n, sizeErr := c.FileSize(p)

		if err := c.Type(transport.TransferASCII); err != nil {
			if transport.IsConnectionLost(err) {
				return 0, err
			}

			s.logger.Warn("cannot restore text mode after SIZE",
				slog.String("host", s.cfg.Host),
				slog.String("error", err.Error()),
			)
			s.poison(err)

			return 0, &OpError{Op: "type", Path: transport.TransferASCII.String(), Kind: ErrMode, Err: err}
		}

		return n, sizeErr
	})
}

// ModTime returns the MDTM of p.
func (s *Session) ModTime(ctx context.Context, p string) (time.Time, error) {
	return call(ctx, s, func(c transport.Conn) (time.Time, error) {
		return c.GetTime(p)
	})
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
