package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the session lifecycle and HTTP collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sessions      *prometheus.CounterVec
	reuse         prometheus.Counter
	blacklisted   prometheus.Counter
	authDecisions *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_session_operations_total",
			Help: "Session operations by kind and outcome code.",
		}, []string{"operation", "outcome"}),
		reuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_refresh_reuse_detected_total",
			Help: "Presentations of an already revoked refresh token.",
		}),
		blacklisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_access_tokens_blacklisted_total",
			Help: "Access tokens written to the revocation cache.",
		}),
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_request_decisions_total",
			Help: "Request authenticator decisions.",
		}, []string{"decision"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	reg.MustRegister(
		m.sessions, m.reuse, m.blacklisted, m.authDecisions,
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
	)
	return m
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Session counts one operation ("login", "refresh", "logout") with its
// outcome ("ok" or an error code name).
func (m *Metrics) Session(operation, outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RefreshReuse() {
	if m == nil {
		return
	}
	m.reuse.Inc()
}

func (m *Metrics) Blacklisted() {
	if m == nil {
		return
	}
	m.blacklisted.Inc()
}

// AuthDecision counts "authenticated", "anonymous", "revoked", "invalid" and
// "error" outcomes of the request authenticator.
func (m *Metrics) AuthDecision(decision string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(decision).Inc()
}

// Instrument records request count, latency and in-flight requests. The
// route template is used as path to keep label cardinality bounded.
func (m *Metrics) Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}
			m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}
