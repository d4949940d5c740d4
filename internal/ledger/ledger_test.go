package ledger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogWriter struct {
	t *testing.T
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(testLogWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), testLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return l
}

func TestOpen_InMemory(t *testing.T) {
	l, err := Open(context.Background(), ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer l.Close()

	paths, err := l.Paths(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(ctx, dbPath, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Entry{LocalPath: "a.txt", RemotePath: "/a.txt", Size: 1, MtimeNs: 2, CycleID: "c1"}))
	require.NoError(t, l.Close())

	// Migrations are idempotent and data survives.
	l, err = Open(ctx, dbPath, testLogger(t))
	require.NoError(t, err)
	defer l.Close()

	_, found, err := l.Lookup(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRecordAndLookup(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	fixed := time.Unix(1_700_000_000, 0)
	l.nowFunc = func() time.Time { return fixed }

	require.NoError(t, l.Record(ctx, Entry{
		LocalPath: "docs/a.txt", RemotePath: "/mirror/docs/a.txt", Size: 42, MtimeNs: 1000, CycleID: "c1",
	}))

	e, found, err := l.Lookup(ctx, "docs/a.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/mirror/docs/a.txt", e.RemotePath)
	assert.Equal(t, int64(42), e.Size)
	assert.Equal(t, int64(1000), e.MtimeNs)
	assert.Equal(t, "c1", e.CycleID)
	assert.True(t, fixed.Equal(e.UploadedAt))
}

func TestLookup_Missing(t *testing.T) {
	l := newTestLedger(t)

	_, found, err := l.Lookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecord_Upserts(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Record(ctx, Entry{LocalPath: "a", RemotePath: "/a", Size: 1, MtimeNs: 1, CycleID: "c1"}))
	require.NoError(t, l.Record(ctx, Entry{LocalPath: "a", RemotePath: "/a", Size: 5, MtimeNs: 9, CycleID: "c2"}))

	e, _, err := l.Lookup(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.Size)
	assert.Equal(t, "c2", e.CycleID)

	n, err := l.CountCycle(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = l.CountCycle(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChanged(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Record(ctx, Entry{LocalPath: "a", RemotePath: "/a", Size: 10, MtimeNs: 100, CycleID: "c"}))

	tests := []struct {
		name    string
		path    string
		size    int64
		mtime   int64
		changed bool
	}{
		{"unchanged", "a", 10, 100, false},
		{"size differs", "a", 11, 100, true},
		{"mtime differs", "a", 10, 101, true},
		{"never recorded", "b", 10, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := l.Changed(ctx, tt.path, tt.size, tt.mtime)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestForgetAndPaths(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for _, p := range []string{"b", "a", "c/d"} {
		require.NoError(t, l.Record(ctx, Entry{LocalPath: p, RemotePath: "/" + p, CycleID: "c"}))
	}

	paths, err := l.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c/d"}, paths)

	require.NoError(t, l.Forget(ctx, "b"))
	require.NoError(t, l.Forget(ctx, "never-there"))

	paths, err = l.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c/d"}, paths)
}

func TestRecord_ClosedDatabase(t *testing.T) {
	l, err := Open(context.Background(), ":memory:", testLogger(t))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	err = l.Record(context.Background(), Entry{LocalPath: "a", RemotePath: "/a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger: recording a")
}
