package sntp

import (
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome strings passed to Metrics.Observe, matching the outcomes
// enumerated on the Metrics interface in network.go.
const (
	outcomeSuccess             = "success"
	outcomeHaltingFailure      = "halting_failure"
	outcomeNonHaltingFailure   = "non_halting_failure"
	outcomeTimeAllowedExceeded = "time_allowed_exceeded"
)

// PrometheusMetrics is an optional Metrics implementation a caller can
// register against their own prometheus.Registerer: a small struct wrapping
// vector collectors rather than reaching for global metrics. It is never
// required: every query path in this package is nil-checked before calling
// Observe (see cluster.go).
type PrometheusMetrics struct {
	attempts *prometheus.CounterVec
	rtt      *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them against reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sntp",
			Name:      "attempts_total",
			Help:      "Count of per-address SNTP query attempts by server and outcome.",
		}, []string{"server", "outcome"}),
		rtt: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sntp",
			Name:      "round_trip_seconds",
			Help:      "Observed round-trip duration for successful SNTP query attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"server"}),
	}
	reg.MustRegister(m.attempts, m.rtt)
	return m
}

// Observe implements Metrics.
func (m *PrometheusMetrics) Observe(serverName string, addr netip.Addr, outcome string, rtt Duration) {
	m.attempts.WithLabelValues(serverName, outcome).Inc()
	if outcome == outcomeSuccess {
		m.rtt.WithLabelValues(serverName).Observe(rtt.Seconds())
	}
}
