// Package transporttest provides an in-memory FTP server double that
// implements transport.Dialer and transport.Conn. It mimics the reply codes a
// typical Unix FTP daemon sends (550 for missing paths, 530 before login) and
// counts connects and logins so tests can assert session reuse.
package transporttest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tonimelisma/ftpfs-go/internal/transport"
)

// Command names accepted by Server.Fail. They match the FTP verbs each
// Conn method issues.
const (
	CmdUser = "USER"
	CmdPasv = "PASV"
	CmdType = "TYPE"
	CmdStor = "STOR"
	CmdRetr = "RETR"
	CmdRnto = "RNTO"
	CmdDele = "DELE"
	CmdRmd  = "RMD"
	CmdMkd  = "MKD"
	CmdList = "LIST"
	CmdNlst = "NLST"
	CmdSize = "SIZE"
	CmdMdtm = "MDTM"
	CmdQuit = "QUIT"
)

// Server is an in-memory FTP server. The zero value is not usable; call
// NewServer.
type Server struct {
	mu sync.Mutex

	users map[string]string
	files map[string]file
	dirs  map[string]bool

	failures map[string]error
	late     map[string]error
	dialErr  error
	conns    []*Conn

	// Now stamps uploaded files. Defaults to time.Now.
	Now func() time.Time

	dials   int
	logins  int
	quits   int
	lastTyp transport.TransferType
	passive bool

	// strictSize refuses SIZE under TYPE A, as ProFTPD does.
	strictSize bool
}

type file struct {
	data  []byte
	mtime time.Time
}

// NewServer creates an empty server accepting the given user.
func NewServer(user, password string) *Server {
	return &Server{
		users:    map[string]string{user: password},
		files:    make(map[string]file),
		dirs:     map[string]bool{"": true},
		failures: make(map[string]error),
		late:     make(map[string]error),
		Now:      time.Now,
	}
}

// Fail makes every subsequent cmd fail with err until Heal is called.
func (s *Server) Fail(cmd string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[cmd] = err
}

// FailAfter makes cmd carry out its effect and then reply with err, like a
// server whose reply is lost or wrong after the work is done. Only RNTO
// honours it.
func (s *Server) FailAfter(cmd string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.late[cmd] = err
}

// Heal clears an injected failure.
func (s *Server) Heal(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, cmd)
	delete(s.late, cmd)
}

// RefuseASCIISize makes SIZE fail with 550 on any connection whose current
// representation type is ASCII.
func (s *Server) RefuseASCIISize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strictSize = true
}

// RefuseDial makes Dial fail with err (nil restores normal behaviour).
func (s *Server) RefuseDial(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dialErr = err
}

// DropConnections simulates the network going away under every open
// connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conns {
		c.dropped = true
	}
}

// Dials returns the number of Dial calls.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dials
}

// Logins returns the number of Login calls.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logins
}

// Quits returns the number of Quit calls.
func (s *Server) Quits() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.quits
}

// LastType returns the representation type most recently selected.
func (s *Server) LastType() transport.TransferType {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastTyp
}

// Passive reports whether any connection requested passive mode.
func (s *Server) Passive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.passive
}

// WriteFile stores data at p, creating parent directories.
func (s *Server) WriteFile(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = clean(p)
	s.mkdirAllLocked(path.Dir("/" + p))
	s.files[p] = file{data: bytes.Clone(data), mtime: s.Now()}
}

// ReadFile returns the content at p.
func (s *Server) ReadFile(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[clean(p)]
	if !ok {
		return nil, false
	}

	return bytes.Clone(f.data), true
}

// MkdirAll creates p and its parents.
func (s *Server) MkdirAll(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mkdirAllLocked(p)
}

// IsDir reports whether p is a directory.
func (s *Server) IsDir(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dirs[clean(p)]
}

// Exists reports whether p is a file or directory.
func (s *Server) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = clean(p)
	_, isFile := s.files[p]

	return isFile || s.dirs[p]
}

func (s *Server) mkdirAllLocked(p string) {
	p = clean(p)
	if p == "" {
		return
	}

	parts := strings.Split(p, "/")
	for i := range parts {
		s.dirs[strings.Join(parts[:i+1], "/")] = true
	}
}

// Dial implements transport.Dialer.
func (s *Server) Dial(ctx context.Context, _ string, _ time.Duration) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dials++

	if s.dialErr != nil {
		return nil, s.dialErr
	}

	c := &Conn{srv: s}
	s.conns = append(s.conns, c)

	return c, nil
}

// Conn is one control connection to a Server.
type Conn struct {
	srv      *Server
	typ      transport.TransferType
	loggedIn bool
	closed   bool
	dropped  bool
}

var _ transport.Conn = (*Conn)(nil)

// check runs the common preconditions for cmd. Callers hold srv.mu.
func (c *Conn) check(cmd string) error {
	if c.closed || c.dropped {
		return fmt.Errorf("%w: %w", transport.ErrConnectionLost, io.EOF)
	}

	if err := c.srv.failures[cmd]; err != nil {
		return err
	}

	if !c.loggedIn && cmd != CmdUser && cmd != CmdQuit {
		return transport.NewReplyError(530, "Please login with USER and PASS.")
	}

	return nil
}

func unavailable(p string) error {
	return transport.NewReplyError(550, fmt.Sprintf("%s: No such file or directory.", p))
}

func clean(p string) string {
	return strings.Trim(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
}

func parent(p string) string {
	return clean(path.Dir("/" + p))
}

// Login implements transport.Conn.
func (c *Conn) Login(user, password string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	c.srv.logins++

	if err := c.check(CmdUser); err != nil {
		return err
	}

	if want, ok := c.srv.users[user]; !ok || want != password {
		return transport.NewReplyError(530, "Login incorrect.")
	}

	c.loggedIn = true

	return nil
}

// SetPassive implements transport.Conn.
func (c *Conn) SetPassive(enabled bool) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdPasv); err != nil {
		return err
	}

	c.srv.passive = enabled

	return nil
}

// Type implements transport.Conn.
func (c *Conn) Type(t transport.TransferType) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdType); err != nil {
		return err
	}

	if t != transport.TransferASCII && t != transport.TransferBinary {
		return transport.NewReplyError(504, "Unrecognised TYPE command.")
	}

	c.typ = t
	c.srv.lastTyp = t

	return nil
}

// Stor implements transport.Conn.
func (c *Conn) Stor(p string, r io.Reader) error {
	data, readErr := io.ReadAll(r)

	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdStor); err != nil {
		return err
	}

	if readErr != nil {
		return transport.NewReplyError(426, "Failure reading network stream.")
	}

	p = clean(p)
	if p == "" || c.srv.dirs[p] || !c.srv.dirs[parent(p)] {
		return transport.NewReplyError(553, "Could not create file.")
	}

	c.srv.files[p] = file{data: data, mtime: c.srv.Now()}

	return nil
}

// Retr implements transport.Conn.
func (c *Conn) Retr(p string) (io.ReadCloser, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdRetr); err != nil {
		return nil, err
	}

	f, ok := c.srv.files[clean(p)]
	if !ok {
		return nil, transport.NewReplyError(550, "Failed to open file.")
	}

	return io.NopCloser(bytes.NewReader(bytes.Clone(f.data))), nil
}

// Rename implements transport.Conn.
func (c *Conn) Rename(from, to string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdRnto); err != nil {
		return err
	}

	from, to = clean(from), clean(to)

	if !c.srv.dirs[parent(to)] {
		return transport.NewReplyError(553, "Rename failed.")
	}

	if f, ok := c.srv.files[from]; ok {
		delete(c.srv.files, from)
		c.srv.files[to] = f

		return c.srv.late[CmdRnto]
	}

	if !c.srv.dirs[from] || from == "" {
		return unavailable(from)
	}

	c.srv.renameDirLocked(from, to)

	return c.srv.late[CmdRnto]
}

func (s *Server) renameDirLocked(from, to string) {
	prefix := from + "/"

	for d := range s.dirs {
		if d == from || strings.HasPrefix(d, prefix) {
			delete(s.dirs, d)
			s.dirs[to+strings.TrimPrefix(d, from)] = true
		}
	}

	for p, f := range s.files {
		if strings.HasPrefix(p, prefix) {
			delete(s.files, p)
			s.files[to+strings.TrimPrefix(p, from)] = f
		}
	}
}

// Delete implements transport.Conn.
func (c *Conn) Delete(p string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdDele); err != nil {
		return err
	}

	p = clean(p)
	if _, ok := c.srv.files[p]; !ok {
		return unavailable(p)
	}

	delete(c.srv.files, p)

	return nil
}

// RemoveDir implements transport.Conn.
func (c *Conn) RemoveDir(p string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdRmd); err != nil {
		return err
	}

	p = clean(p)
	if p == "" || !c.srv.dirs[p] {
		return unavailable(p)
	}

	if len(c.srv.childrenLocked(p)) > 0 {
		return transport.NewReplyError(550, "Remove directory operation failed.")
	}

	delete(c.srv.dirs, p)

	return nil
}

// MakeDir implements transport.Conn.
func (c *Conn) MakeDir(p string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdMkd); err != nil {
		return err
	}

	p = clean(p)
	_, isFile := c.srv.files[p]

	if p == "" || c.srv.dirs[p] || isFile {
		return transport.NewReplyError(550, "Create directory operation failed.")
	}

	if !c.srv.dirs[parent(p)] {
		return unavailable(p)
	}

	c.srv.dirs[p] = true

	return nil
}

// childrenLocked returns the direct children of dir as sorted entries.
func (s *Server) childrenLocked(dir string) []transport.Entry {
	var out []transport.Entry

	for d := range s.dirs {
		if d != "" && d != dir && parent(d) == dir {
			out = append(out, transport.Entry{Name: path.Base(d), Type: transport.EntryFolder})
		}
	}

	for p, f := range s.files {
		if parent(p) == dir {
			out = append(out, transport.Entry{
				Name:    path.Base(p),
				Type:    transport.EntryFile,
				Size:    int64(len(f.data)),
				ModTime: f.mtime,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// List implements transport.Conn.
func (c *Conn) List(p string) ([]transport.Entry, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdList); err != nil {
		return nil, err
	}

	p = clean(p)

	if f, ok := c.srv.files[p]; ok {
		return []transport.Entry{{
			Name:    path.Base(p),
			Type:    transport.EntryFile,
			Size:    int64(len(f.data)),
			ModTime: f.mtime,
		}}, nil
	}

	if !c.srv.dirs[p] {
		return nil, unavailable(p)
	}

	return c.srv.childrenLocked(p), nil
}

// NameList implements transport.Conn. Like most daemons it prefixes each name
// with the requested directory.
func (c *Conn) NameList(p string) ([]string, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdNlst); err != nil {
		return nil, err
	}

	p = clean(p)
	if !c.srv.dirs[p] {
		return nil, unavailable(p)
	}

	children := c.srv.childrenLocked(p)
	names := make([]string, 0, len(children))

	for _, e := range children {
		names = append(names, path.Join("/", p, e.Name))
	}

	return names, nil
}

// FileSize implements transport.Conn.
func (c *Conn) FileSize(p string) (int64, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdSize); err != nil {
		return 0, err
	}

	if c.srv.strictSize && c.typ != transport.TransferBinary {
		return 0, transport.NewReplyError(550, "SIZE not allowed in ASCII mode")
	}

	f, ok := c.srv.files[clean(p)]
	if !ok {
		return 0, transport.NewReplyError(550, "Could not get file size.")
	}

	return int64(len(f.data)), nil
}

// GetTime implements transport.Conn.
func (c *Conn) GetTime(p string) (time.Time, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if err := c.check(CmdMdtm); err != nil {
		return time.Time{}, err
	}

	f, ok := c.srv.files[clean(p)]
	if !ok {
		return time.Time{}, transport.NewReplyError(550, "Could not get file modification time.")
	}

	return f.mtime.UTC().Truncate(time.Second), nil
}

// Quit implements transport.Conn.
func (c *Conn) Quit() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	c.srv.quits++

	if err := c.check(CmdQuit); err != nil {
		c.closed = true
		return err
	}

	c.closed = true

	return nil
}
