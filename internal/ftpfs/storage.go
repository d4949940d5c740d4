package ftpfs

import (
	"context"
	"time"
)

// Ref names the remote path a mutating operation touched and the number of
// bytes it uploaded. Feed Ref.Path to BuildPreSignedURL to publish the file.
type Ref struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Storage is the file-storage contract. Paths are relative to the FTP login
// directory unless they start with "/".
type Storage interface {
	Write(ctx context.Context, path string, content []byte) (Ref, error)
	Append(ctx context.Context, path string, content []byte) (Ref, error)
	Copy(ctx context.Context, src, dst string) (Ref, error)
	Move(ctx context.Context, src, dst string) (Ref, error)
	Upload(ctx context.Context, local, to string) (Ref, error)

	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	MkDir(ctx context.Context, path string) error

	LastModified(ctx context.Context, path string) (time.Time, error)
	FileSize(ctx context.Context, path string) (int64, error)
	ReadDir(ctx context.Context, path string) ([]string, error)
	IsDir(ctx context.Context, path string) (bool, error)
	IsFile(ctx context.Context, path string) (bool, error)

	BuildPreSignedURL(path string, expires time.Duration) (string, error)

	Close()
}

var _ Storage = (*FileSystem)(nil)
