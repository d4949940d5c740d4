package ftpfs

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/ftpfs-go/internal/config"
	"github.com/tonimelisma/ftpfs-go/internal/transport/transporttest"
)

const (
	testUser     = "user"
	testPassword = "123456"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Host = "ftp.test"
	cfg.Port = 21
	cfg.Username = testUser
	cfg.Password = testPassword
	cfg.Mode = config.ModeBinary
	cfg.SubPath = "public"
	cfg.BaseURL = "http://aa.com"
	cfg.TmpDir = t.TempDir()

	return cfg
}

// newTestFS builds a FileSystem against a fresh in-memory server. mutate,
// when given, adjusts the config before the FileSystem binds it.
func newTestFS(t *testing.T, mutate func(*config.Config)) (*FileSystem, *transporttest.Server, *config.Config) {
	t.Helper()

	srv := transporttest.NewServer(testUser, testPassword)
	cfg := testConfig(t)

	if mutate != nil {
		mutate(cfg)
	}

	fsys := New(cfg, srv, testLogger(t), nil)
	t.Cleanup(fsys.Close)

	return fsys, srv, cfg
}

// requireEmptyDir fails unless dir has no entries.
func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	require.Empty(t, names, "stray files in %s", dir)
}

// recordingObserver captures Observer callbacks.
type recordingObserver struct {
	opens int
	ops   []string
	bytes map[string]int64
	errs  map[string]error
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		bytes: make(map[string]int64),
		errs:  make(map[string]error),
	}
}

func (r *recordingObserver) SessionOpened() { r.opens++ }

func (r *recordingObserver) OperationDone(op string, _ time.Duration, bytes int64, err error) {
	r.ops = append(r.ops, op)
	r.bytes[op] += bytes

	if err != nil {
		r.errs[op] = err
	}
}
