// Package metrics exposes storage and mirror activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tonimelisma/ftpfs-go/internal/ftpfs"
)

const namespace = "ftpfs"

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// shutdownTimeout bounds the graceful stop of the metrics endpoint.
const shutdownTimeout = 5 * time.Second

// Collector implements ftpfs.Observer and the watch mirror's recorder on
// top of a private registry.
type Collector struct {
	registry *prometheus.Registry

	sessionOpens  prometheus.Counter
	operations    *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	bytes         *prometheus.CounterVec
	mirrorFiles   *prometheus.CounterVec
	mirrorRescans prometheus.Counter
}

var _ ftpfs.Observer = (*Collector)(nil)

// NewCollector creates a Collector. A nil registry gets a fresh one with
// the Go runtime and process collectors attached.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		sessionOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_opens_total",
			Help:      "FTP sessions established (connect + login).",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Storage operations by name and result.",
		}, []string{"op", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Bytes moved by successful operations.",
		}, []string{"op"}),
		mirrorFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_files_total",
			Help:      "Files handled by the watch mirror, by outcome.",
		}, []string{"outcome"}),
		mirrorRescans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_rescans_total",
			Help:      "Full rescans run by the watch mirror.",
		}),
	}

	registry.MustRegister(
		c.sessionOpens,
		c.operations,
		c.opDuration,
		c.bytes,
		c.mirrorFiles,
		c.mirrorRescans,
	)

	return c
}

// SessionOpened implements ftpfs.Observer.
func (c *Collector) SessionOpened() {
	c.sessionOpens.Inc()
}

// OperationDone implements ftpfs.Observer.
func (c *Collector) OperationDone(op string, elapsed time.Duration, bytes int64, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}

	c.operations.WithLabelValues(op, result).Inc()
	c.opDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err == nil && bytes > 0 {
		c.bytes.WithLabelValues(op).Add(float64(bytes))
	}
}

// MirrorFile counts one file handled by the mirror.
func (c *Collector) MirrorFile(outcome string) {
	c.mirrorFiles.WithLabelValues(outcome).Inc()
}

// MirrorRescan counts one full rescan.
func (c *Collector) MirrorRescan() {
	c.mirrorRescans.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled. The listener is
// bound before Serve returns control to the accept loop, so a bad address
// fails immediately.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("metrics endpoint listening", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}

	return nil
}
