package watch

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tonimelisma/ftpfs-go/internal/ftpfs"
)

var _ ftpfs.Storage = (*MockStorage)(nil)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Write(ctx context.Context, p string, content []byte) (ftpfs.Ref, error) {
	args := m.Called(ctx, p, content)
	return args.Get(0).(ftpfs.Ref), args.Error(1)
}

func (m *MockStorage) Append(ctx context.Context, p string, content []byte) (ftpfs.Ref, error) {
	args := m.Called(ctx, p, content)
	return args.Get(0).(ftpfs.Ref), args.Error(1)
}

func (m *MockStorage) Copy(ctx context.Context, src, dst string) (ftpfs.Ref, error) {
	args := m.Called(ctx, src, dst)
	return args.Get(0).(ftpfs.Ref), args.Error(1)
}

func (m *MockStorage) Move(ctx context.Context, src, dst string) (ftpfs.Ref, error) {
	args := m.Called(ctx, src, dst)
	return args.Get(0).(ftpfs.Ref), args.Error(1)
}

func (m *MockStorage) Upload(ctx context.Context, local, to string) (ftpfs.Ref, error) {
	args := m.Called(ctx, local, to)
	return args.Get(0).(ftpfs.Ref), args.Error(1)
}

func (m *MockStorage) Exists(ctx context.Context, p string) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) Read(ctx context.Context, p string) ([]byte, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, p string) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStorage) MkDir(ctx context.Context, p string) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStorage) LastModified(ctx context.Context, p string) (time.Time, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockStorage) FileSize(ctx context.Context, p string) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ReadDir(ctx context.Context, p string) ([]string, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) IsDir(ctx context.Context, p string) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) IsFile(ctx context.Context, p string) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BuildPreSignedURL(p string, expires time.Duration) (string, error) {
	args := m.Called(p, expires)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Close() {
	m.Called()
}
