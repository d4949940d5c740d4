package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jlaffaye/ftp"
)

// DialOptions tunes how FTPDialer opens connections.
type DialOptions struct {
	// DisableEPSV forces classic PASV for data connections. Some servers
	// behind NAT answer EPSV with an unreachable port.
	DisableEPSV bool
	// Codec translates path names to the server charset.
	Codec NameCodec
}

// FTPDialer dials real FTP servers through github.com/jlaffaye/ftp.
type FTPDialer struct {
	opts   DialOptions
	logger *slog.Logger
}

// NewFTPDialer creates a Dialer for real servers.
func NewFTPDialer(opts DialOptions, logger *slog.Logger) *FTPDialer {
	if logger == nil {
		logger = slog.Default()
	}

	return &FTPDialer{opts: opts, logger: logger}
}

// Dial connects to addr ("host:port") and reads the server greeting.
func (d *FTPDialer) Dial(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
	d.logger.Debug("dialing ftp server",
		slog.String("addr", addr),
		slog.Duration("timeout", timeout),
		slog.Bool("disable_epsv", d.opts.DisableEPSV),
	)

	sc, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(timeout),
		ftp.DialWithDisabledEPSV(d.opts.DisableEPSV),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, classify(err))
	}

	return &Client{conn: sc, codec: d.opts.Codec, logger: d.logger}, nil
}

// Client adapts *ftp.ServerConn to Conn, translating path names through the
// configured codec and classifying server replies.
type Client struct {
	conn   *ftp.ServerConn
	codec  NameCodec
	logger *slog.Logger
}

// Login authenticates the control connection.
func (c *Client) Login(user, password string) error {
	return classify(c.conn.Login(user, password))
}

// SetPassive accepts passive mode, which is how every data connection of
// this client is opened. Active mode cannot be requested.
func (c *Client) SetPassive(enabled bool) error {
	if !enabled {
		return ErrActiveUnsupported
	}

	return nil
}

// Type switches the representation type for subsequent transfers.
func (c *Client) Type(t TransferType) error {
	return classify(c.conn.Type(ftp.TransferType(t)))
}

// Stor uploads r to path.
func (c *Client) Stor(path string, r io.Reader) error {
	p, err := c.codec.Encode(path)
	if err != nil {
		return err
	}

	return classify(c.conn.Stor(p, r))
}

// Retr opens path for download.
func (c *Client) Retr(path string) (io.ReadCloser, error) {
	p, err := c.codec.Encode(path)
	if err != nil {
		return nil, err
	}

	resp, err := c.conn.Retr(p)
	if err != nil {
		return nil, classify(err)
	}

	return &response{resp: resp}, nil
}

// Rename renames from to to.
func (c *Client) Rename(from, to string) error {
	f, err := c.codec.Encode(from)
	if err != nil {
		return err
	}

	t, err := c.codec.Encode(to)
	if err != nil {
		return err
	}

	return classify(c.conn.Rename(f, t))
}

// Delete removes a file.
func (c *Client) Delete(path string) error {
	p, err := c.codec.Encode(path)
	if err != nil {
		return err
	}

	return classify(c.conn.Delete(p))
}

// RemoveDir removes an empty directory.
func (c *Client) RemoveDir(path string) error {
	p, err := c.codec.Encode(path)
	if err != nil {
		return err
	}

	return classify(c.conn.RemoveDir(p))
}

// MakeDir creates one directory level.
func (c *Client) MakeDir(path string) error {
	p, err := c.codec.Encode(path)
	if err != nil {
		return err
	}

	return classify(c.conn.MakeDir(p))
}

// List returns the parsed LIST output for path.
func (c *Client) List(path string) ([]Entry, error) {
	p, err := c.codec.Encode(path)
	if err != nil {
		return nil, err
	}

	raw, err := c.conn.List(p)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]Entry, 0, len(raw))

	for _, e := range raw {
		name, decErr := c.codec.Decode(e.Name)
		if decErr != nil {
			c.logger.Warn("skipping undecodable listing entry",
				slog.String("path", path),
				slog.String("error", decErr.Error()),
			)

			continue
		}

		entries = append(entries, Entry{
			Name:    name,
			Type:    entryType(e.Type),
			Size:    int64(e.Size), //nolint:gosec // sizes beyond int64 are not realistic
			ModTime: e.Time,
		})
	}

	return entries, nil
}

// NameList returns the NLST output for path.
func (c *Client) NameList(path string) ([]string, error) {
	p, err := c.codec.Encode(path)
	if err != nil {
		return nil, err
	}

	raw, err := c.conn.NameList(p)
	if err != nil {
		return nil, classify(err)
	}

	names := make([]string, 0, len(raw))

	for _, n := range raw {
		decoded, decErr := c.codec.Decode(n)
		if decErr != nil {
			c.logger.Warn("skipping undecodable name",
				slog.String("path", path),
				slog.String("error", decErr.Error()),
			)

			continue
		}

		names = append(names, decoded)
	}

	return names, nil
}

// FileSize issues SIZE for path.
func (c *Client) FileSize(path string) (int64, error) {
	p, err := c.codec.Encode(path)
	if err != nil {
		return 0, err
	}

	size, err := c.conn.FileSize(p)
	if err != nil {
		return 0, classify(err)
	}

	return size, nil
}

// GetTime issues MDTM for path.
func (c *Client) GetTime(path string) (time.Time, error) {
	p, err := c.codec.Encode(path)
	if err != nil {
		return time.Time{}, err
	}

	t, err := c.conn.GetTime(p)
	if err != nil {
		return time.Time{}, classify(err)
	}

	return t, nil
}

// Quit sends QUIT and closes the control connection.
func (c *Client) Quit() error {
	return classify(c.conn.Quit())
}

func entryType(t ftp.EntryType) EntryType {
	switch t {
	case ftp.EntryTypeFolder:
		return EntryFolder
	case ftp.EntryTypeLink:
		return EntryLink
	default:
		return EntryFile
	}
}

// response classifies the final transfer status reported on Close.
type response struct {
	resp *ftp.Response
}

func (r *response) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *response) Close() error {
	return classify(r.resp.Close())
}
