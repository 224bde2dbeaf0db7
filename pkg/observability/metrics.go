package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal  *prometheus.CounterVec
	ScopeResolutionsTotal *prometheus.CounterVec
	CycleWarningsTotal   *prometheus.CounterVec

	// Settings cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheRefreshesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	UsersTotal       prometheus.Gauge
	DepartmentsTotal prometheus.Gauge
	AuditEventsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_authz_decisions_total",
				Help: "Authorization decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		ScopeResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_scope_resolutions_total",
				Help: "Data scope resolutions by resulting scope kind",
			},
			[]string{"kind"},
		),
		CycleWarningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_hierarchy_cycle_warnings_total",
				Help: "Cycles detected during department or menu traversal",
			},
			[]string{"tree"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_settings_cache_hits_total",
				Help: "Settings cache hits by tier",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_settings_cache_misses_total",
				Help: "Settings cache misses by tier",
			},
			[]string{"tier"},
		),
		CacheRefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_settings_cache_refreshes_total",
				Help: "Explicit settings cache refreshes by trigger",
			},
			[]string{"trigger"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_users_total",
				Help: "Total number of registered users",
			},
		),
		DepartmentsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_departments_total",
				Help: "Total number of enabled departments",
			},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_audit_events_total",
				Help: "Audit events recorded by type and status",
			},
			[]string{"event_type", "status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.ScopeResolutionsTotal,
		m.CycleWarningsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheRefreshesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.UsersTotal,
		m.DepartmentsTotal,
		m.AuditEventsTotal,
	)

	return m
}

// Handler returns an http.Handler serving the metrics from the registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request metrics.
// The path label uses the route template, not the raw URL, to bound cardinality.
func (m *Metrics) InstrumentHandler(routePath string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, routePath, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, routePath).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}
