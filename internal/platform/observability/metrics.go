package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the auth and gateway counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors for the auth service and gateway.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	AuthOperations   *prometheus.CounterVec
	ChallengeResults *prometheus.CounterVec
	GatewayDecisions *prometheus.CounterVec
	NicknameRetries  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by server, method, route and status.",
		}, []string{"server", "method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"server", "method", "route"}),
		AuthOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Login, register and captcha operations by outcome and error code.",
		}, []string{"operation", "outcome", "code"}),
		ChallengeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "auth",
			Name:      "challenge_verifications_total",
			Help:      "Challenge verifications by result (ok, expired, mismatch, error).",
		}, []string{"result"}),
		GatewayDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "gateway",
			Name:      "decisions_total",
			Help:      "Gateway authorization decisions (whitelisted, authorized, rejected, preflight).",
		}, []string{"decision"}),
		NicknameRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "auth",
			Name:      "nickname_retries_total",
			Help:      "Nickname regenerations caused by a storage collision.",
		}),
	}
	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.AuthOperations,
		m.ChallengeResults,
		m.GatewayDecisions,
		m.NicknameRetries,
	)
	return m
}

// Registry exposes the registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(server, method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(server, method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(server, method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) AuthOperation(operation, outcome, code string) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, outcome, code).Inc()
}

func (m *Metrics) ChallengeResult(result string) {
	if m == nil {
		return
	}
	m.ChallengeResults.WithLabelValues(result).Inc()
}

func (m *Metrics) GatewayDecision(decision string) {
	if m == nil {
		return
	}
	m.GatewayDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) NicknameRetry() {
	if m == nil {
		return
	}
	m.NicknameRetries.Inc()
}
