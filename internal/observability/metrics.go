package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "lorekeeper"

// Counter is a Prometheus counter that can also be read back, for the run
// summary and for tests.
type Counter struct {
	c prometheus.Counter
}

// Add increments the counter by n.
func (c *Counter) Add(n int64) {
	c.c.Add(float64(n))
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	var m dto.Metric
	if err := c.c.Write(&m); err != nil {
		return 0
	}
	return int64(m.GetCounter().GetValue())
}

// Metrics tracks operational counters for a harvest run.
type Metrics struct {
	// Request metrics
	RequestsTotal   Counter
	RequestsFailed  Counter
	RequestsRetried Counter

	// Response metrics, one series per status class
	Responses2xx Counter
	Responses3xx Counter
	Responses4xx Counter
	Responses5xx Counter

	// Document metrics
	DocumentsWritten Counter
	DocumentsSkipped Counter
	DocumentsFailed  Counter

	// Catalog metrics
	CatalogPages   Counter
	StructureMiss  Counter
	LocatorsWalked Counter

	// Ingestion metrics
	BatchesCommitted  Counter
	DocumentsIngested Counter

	BytesDownloaded Counter

	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)
	counter := func(name, help string) Counter {
		return Counter{c: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      name,
			Help:      help,
		})}
	}

	responses := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "responses_total",
		Help:      "Total responses by status class",
	}, []string{"class"})

	return &Metrics{
		RequestsTotal:   counter("requests_total", "Total page requests made"),
		RequestsFailed:  counter("requests_failed_total", "Total page requests given up on"),
		RequestsRetried: counter("requests_retried_total", "Total transient failures retried"),

		Responses2xx: Counter{c: responses.WithLabelValues("2xx")},
		Responses3xx: Counter{c: responses.WithLabelValues("3xx")},
		Responses4xx: Counter{c: responses.WithLabelValues("4xx")},
		Responses5xx: Counter{c: responses.WithLabelValues("5xx")},

		DocumentsWritten: counter("documents_written_total", "Total documents written to the stage"),
		DocumentsSkipped: counter("documents_skipped_total", "Total documents skipped as already visited"),
		DocumentsFailed:  counter("documents_failed_total", "Total documents that failed extraction or fetch"),

		CatalogPages:   counter("catalog_pages_total", "Total catalog pages walked"),
		StructureMiss:  counter("structure_misses_total", "Total headings, lists or regions not found"),
		LocatorsWalked: counter("locators_walked_total", "Total locators yielded by walkers"),

		BatchesCommitted:  counter("batches_committed_total", "Total batches handed to ingestion"),
		DocumentsIngested: counter("documents_ingested_total", "Total documents handed to ingestion"),

		BytesDownloaded: counter("bytes_downloaded_total", "Total bytes downloaded"),

		registry: reg,
		logger:   logger.With("component", "metrics"),
	}
}

// Registry returns the registry the counters are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStatus counts one HTTP response by status class.
func (m *Metrics) ObserveStatus(code int) {
	switch {
	case code >= 500:
		m.Responses5xx.Add(1)
	case code >= 400:
		m.Responses4xx.Add(1)
	case code >= 300:
		m.Responses3xx.Add(1)
	case code >= 200:
		m.Responses2xx.Add(1)
	}
}

// ServeHTTP serves the registry in the Prometheus exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// StartServer serves the metrics endpoint until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":     m.RequestsTotal.Load(),
		"requests_failed":    m.RequestsFailed.Load(),
		"requests_retried":   m.RequestsRetried.Load(),
		"documents_written":  m.DocumentsWritten.Load(),
		"documents_skipped":  m.DocumentsSkipped.Load(),
		"documents_failed":   m.DocumentsFailed.Load(),
		"catalog_pages":      m.CatalogPages.Load(),
		"structure_misses":   m.StructureMiss.Load(),
		"locators_walked":    m.LocatorsWalked.Load(),
		"batches_committed":  m.BatchesCommitted.Load(),
		"documents_ingested": m.DocumentsIngested.Load(),
		"bytes_downloaded":   m.BytesDownloaded.Load(),
	}
}
