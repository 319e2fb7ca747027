// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors recorded by the gRPC layer.
type Metrics struct {
	registry *prometheus.Registry

	RPCRequests     *prometheus.CounterVec
	RPCDuration     *prometheus.HistogramVec
	SessionsOpened  prometheus.Counter
	UploadsStarted  prometheus.Counter
	UploadBytes     prometheus.Counter
	UploadsFinished *prometheus.CounterVec
	ValuesSet       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophchat",
			Name:      "rpc_requests_total",
			Help:      "Handled gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gophchat",
			Name:      "rpc_duration_seconds",
			Help:      "gRPC handler latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gophchat",
			Name:      "sessions_opened_total",
			Help:      "Chat sessions opened.",
		}),
		UploadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gophchat",
			Name:      "uploads_requested_total",
			Help:      "Upload slots handed out.",
		}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gophchat",
			Name:      "upload_requested_bytes_total",
			Help:      "Declared size of the requested uploads.",
		}),
		UploadsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophchat",
			Name:      "uploads_finished_total",
			Help:      "Uploads leaving the pending state, by outcome.",
		}, []string{"outcome"}),
		ValuesSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophchat",
			Name:      "values_set_total",
			Help:      "Stored chat values by origin.",
		}, []string{"origin"}),
	}

	reg.MustRegister(
		m.RPCRequests,
		m.RPCDuration,
		m.SessionsOpened,
		m.UploadsStarted,
		m.UploadBytes,
		m.UploadsFinished,
		m.ValuesSet,
	)

	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve runs the metrics HTTP endpoint until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Stopping metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Starting metrics server", "address", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
