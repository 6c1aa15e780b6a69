// Package metrics exposes batch progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters updated while a corpus is processed
type Metrics struct {
	Registry *prometheus.Registry

	ReportsTotal   *prometheus.CounterVec // by selection source
	SectionsTotal  *prometheus.CounterVec // selected canonical section name
	FailuresTotal  prometheus.Counter
	ShardsWritten  prometheus.Counter
	RowsWritten    prometheus.Counter
	ReportDuration prometheus.Histogram
}

// New registers all metrics on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cxrsect",
			Name:      "reports_total",
			Help:      "Reports processed, by selection source.",
		}, []string{"source"}),
		SectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cxrsect",
			Name:      "selected_sections_total",
			Help:      "Selected sections, by canonical name.",
		}, []string{"section"}),
		FailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cxrsect",
			Name:      "report_failures_total",
			Help:      "Reports that failed to process.",
		}),
		ShardsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cxrsect",
			Name:      "shards_written_total",
			Help:      "Output shards flushed to the sink.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cxrsect",
			Name:      "rows_written_total",
			Help:      "Rows contained in flushed shards.",
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cxrsect",
			Name:      "report_duration_seconds",
			Help:      "Time to section and select one report.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
	}

	m.Registry.MustRegister(
		m.ReportsTotal,
		m.SectionsTotal,
		m.FailuresTotal,
		m.ShardsWritten,
		m.RowsWritten,
		m.ReportDuration,
	)

	return m
}

// Serve exposes the registry on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
