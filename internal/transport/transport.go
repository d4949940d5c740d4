// Package transport defines the FTP primitives the storage layer is built on
// and provides the jlaffaye/ftp backed implementation. The primitive set is
// deliberately small: login, whole-stream put/get, rename, delete, directory
// listing and the SIZE/MDTM queries. Anything richer (append, copy) is
// emulated one level up in package ftpfs.
package transport

import (
	"context"
	"io"
	"time"
)

// TransferType is the FTP representation type used for data transfers.
type TransferType string

// Representation types understood by TYPE.
const (
	TransferASCII  TransferType = "A"
	TransferBinary TransferType = "I"
)

func (t TransferType) String() string {
	switch t {
	case TransferASCII:
		return "text"
	case TransferBinary:
		return "binary"
	default:
		return string(t)
	}
}

// EntryType classifies a directory listing entry.
type EntryType int

// Entry types reported by LIST.
const (
	EntryFile EntryType = iota
	EntryFolder
	EntryLink
)

// Entry is one line of a LIST response.
type Entry struct {
	Name    string
	Type    EntryType
	Size    int64
	ModTime time.Time
}

// Conn is one authenticated-or-not control connection. Implementations are
// not safe for concurrent use; a single data transfer may be in flight at
// a time.
type Conn interface {
	Login(user, password string) error
	SetPassive(enabled bool) error
	Type(t TransferType) error

	// Stor uploads r to path, replacing any existing file.
	Stor(path string, r io.Reader) error
	// Retr opens path for download. The caller must Close the reader; Close
	// reports the final transfer status.
	Retr(path string) (io.ReadCloser, error)

	Rename(from, to string) error
	Delete(path string) error
	RemoveDir(path string) error
	MakeDir(path string) error

	List(path string) ([]Entry, error)
	NameList(path string) ([]string, error)
	FileSize(path string) (int64, error)
	GetTime(path string) (time.Time, error)

	Quit() error
}

// Dialer opens control connections.
type Dialer interface {
	Dial(ctx context.Context, addr string, timeout time.Duration) (Conn, error)
}
