package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/ftpfs-go/internal/ftpfs"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()

	return NewCollector(prometheus.NewRegistry())
}

func TestCollector_SessionOpened(t *testing.T) {
	c := newTestCollector(t)

	c.SessionOpened()
	c.SessionOpened()

	assert.InDelta(t, 2, testutil.ToFloat64(c.sessionOpens), 0)
}

func TestCollector_OperationDone(t *testing.T) {
	c := newTestCollector(t)

	c.OperationDone(ftpfs.OpWrite, 10*time.Millisecond, 3, nil)
	c.OperationDone(ftpfs.OpWrite, 20*time.Millisecond, 9, nil)
	c.OperationDone(ftpfs.OpWrite, time.Millisecond, 100, errors.New("boom"))
	c.OperationDone(ftpfs.OpExists, time.Millisecond, 0, nil)

	assert.InDelta(t, 2, testutil.ToFloat64(c.operations.WithLabelValues(ftpfs.OpWrite, resultOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.operations.WithLabelValues(ftpfs.OpWrite, resultError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.operations.WithLabelValues(ftpfs.OpExists, resultOK)), 0)

	// Failed operations contribute no bytes.
	assert.InDelta(t, 12, testutil.ToFloat64(c.bytes.WithLabelValues(ftpfs.OpWrite)), 0)

	assert.Equal(t, 2, testutil.CollectAndCount(c.opDuration))
}

func TestCollector_Mirror(t *testing.T) {
	c := newTestCollector(t)

	c.MirrorFile("uploaded")
	c.MirrorFile("uploaded")
	c.MirrorFile("skipped")
	c.MirrorRescan()

	assert.InDelta(t, 2, testutil.ToFloat64(c.mirrorFiles.WithLabelValues("uploaded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.mirrorFiles.WithLabelValues("skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.mirrorRescans), 0)
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.SessionOpened()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ftpfs_session_opens_total 1")
}

func TestCollector_DefaultRegistry(t *testing.T) {
	c := NewCollector(nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCollector_Serve(t *testing.T) {
	c := newTestCollector(t)
	c.MirrorRescan()

	// Reserve a free port, then hand it to Serve.
	probe := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(probe.URL, "http://")
	probe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- c.Serve(ctx, addr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	var resp *http.Response

	require.Eventually(t, func() bool {
		r, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}

		resp = r

		return true
	}, 5*time.Second, 20*time.Millisecond)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), "ftpfs_mirror_rescans_total 1")

	cancel()
	require.NoError(t, <-done)
}

func TestCollector_ServeBadAddress(t *testing.T) {
	c := newTestCollector(t)

	err := c.Serve(context.Background(), "256.0.0.1:bad", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}
