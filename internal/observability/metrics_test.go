package observability

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestObserveStatus(t *testing.T) {
	m := NewMetrics(testLogger)
	for _, code := range []int{200, 204, 301, 404, 410, 503} {
		m.ObserveStatus(code)
	}
	assert.Equal(t, int64(2), m.Responses2xx.Load())
	assert.Equal(t, int64(1), m.Responses3xx.Load())
	assert.Equal(t, int64(2), m.Responses4xx.Load())
	assert.Equal(t, int64(1), m.Responses5xx.Load())
}

func TestServeHTTPExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.DocumentsWritten.Add(42)
	m.BatchesCommitted.Add(2)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, body, "lorekeeper_documents_written_total 42\n")
	assert.Contains(t, body, "lorekeeper_batches_committed_total 2\n")
	assert.Contains(t, body, "# TYPE lorekeeper_requests_total counter\n")
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.RequestsRetried.Add(3)
	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap["requests_retried"])
	assert.Equal(t, int64(0), snap["documents_written"])
}

func TestRegistryExposesResponseClasses(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ObserveStatus(404)
	m.ObserveStatus(503)
	m.ObserveStatus(503)

	n, err := testutil.GatherAndCount(m.Registry(), "lorekeeper_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "one series per status class")

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `lorekeeper_responses_total{class="5xx"} 2`)
	assert.Contains(t, body, `lorekeeper_responses_total{class="4xx"} 1`)
}

func TestCounterReadsBack(t *testing.T) {
	m := NewMetrics(testLogger)
	m.BytesDownloaded.Add(1024)
	m.BytesDownloaded.Add(int64(len("lore")))
	assert.Equal(t, int64(1028), m.BytesDownloaded.Load())
	assert.Equal(t, int64(1028), m.Snapshot()["bytes_downloaded"])
}
