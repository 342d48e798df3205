package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	bulkDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets     = []float64{100, 1024, 10240, 102400, 1048576}
	rowCountBuckets     = []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Table metrics
	TableDerivationsTotal *prometheus.CounterVec
	TableFilteredRows     *prometheus.HistogramVec
	ExportTotal           *prometheus.CounterVec
	ExportRows            prometheus.Histogram

	// Bulk action metrics
	BulkDispatchTotal    *prometheus.CounterVec
	BulkDispatchDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive       prometheus.Gauge
	SessionsExpiredTotal prometheus.Counter

	// System metrics
	CatalogTablesLoaded prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabula_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabula_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabula_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabula_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Tables
		TableDerivationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabula_table_derivations_total",
			Help: "Total number of table view derivations.",
		}, []string{"table_id"}),
		TableFilteredRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabula_table_filtered_rows",
			Help:    "Rows left after search and filters per derivation.",
			Buckets: rowCountBuckets,
		}, []string{"table_id"}),
		ExportTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabula_export_total",
			Help: "Total number of CSV exports.",
		}, []string{"table_id"}),
		ExportRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabula_export_rows",
			Help:    "Rows written per CSV export.",
			Buckets: rowCountBuckets,
		}),

		// Bulk
		BulkDispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabula_bulk_dispatch_total",
			Help: "Total number of bulk action dispatches.",
		}, []string{"table_id", "action_id", "status"}),
		BulkDispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tabula_bulk_dispatch_duration_seconds",
			Help:    "Bulk action handler duration in seconds.",
			Buckets: bulkDurationBuckets,
		}, []string{"action_id"}),

		// Sessions
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tabula_sessions_active",
			Help: "Number of live table sessions.",
		}),
		SessionsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabula_sessions_expired_total",
			Help: "Total number of sessions expired by the sweeper.",
		}),

		// System
		CatalogTablesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tabula_catalog_tables_loaded",
			Help: "Number of table definitions in the loaded catalog.",
		}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Tables
		m.TableDerivationsTotal,
		m.TableFilteredRows,
		m.ExportTotal,
		m.ExportRows,
		// Bulk
		m.BulkDispatchTotal,
		m.BulkDispatchDuration,
		// Sessions
		m.SessionsActive,
		m.SessionsExpiredTotal,
		// System
		m.CatalogTablesLoaded,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordDerivation records one derived view of a table.
func (m *Metrics) RecordDerivation(tableID string, filtered int) {
	m.TableDerivationsTotal.WithLabelValues(tableID).Inc()
	m.TableFilteredRows.WithLabelValues(tableID).Observe(float64(filtered))
}

// RecordExport records a CSV export.
func (m *Metrics) RecordExport(tableID string, rows int) {
	m.ExportTotal.WithLabelValues(tableID).Inc()
	m.ExportRows.Observe(float64(rows))
}

// RecordBulkDispatch records a bulk action that reached its handler.
func (m *Metrics) RecordBulkDispatch(tableID, actionID, status string, duration time.Duration) {
	m.BulkDispatchTotal.WithLabelValues(tableID, actionID, status).Inc()
	m.BulkDispatchDuration.WithLabelValues(actionID).Observe(duration.Seconds())
}

// SetSessionsActive sets the number of live sessions.
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// RecordSessionsExpired adds n expired sessions.
func (m *Metrics) RecordSessionsExpired(n int) {
	m.SessionsExpiredTotal.Add(float64(n))
}

// SetCatalogTablesLoaded sets the number of loaded table definitions.
func (m *Metrics) SetCatalogTablesLoaded(count int) {
	m.CatalogTablesLoaded.Set(float64(count))
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start), reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
