// Package telemetry turns failover events into Prometheus metrics and Sentry
// reports.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ideas-go/internal/ideas"
)

const namespace = "ideas"

// Metrics counts remote failures and fallback use.
type Metrics struct {
	remoteFailures *prometheus.CounterVec
	fallbackServed *prometheus.CounterVec
	activations    prometheus.Counter
	active         prometheus.Gauge
}

var _ ideas.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_failures_total",
			Help:      "Failed remote backend calls by operation and error class.",
		}, []string{"op", "class"}),
		fallbackServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_served_total",
			Help:      "Operations answered by the fallback dataset.",
		}, []string{"op"}),
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failover_activations_total",
			Help:      "Times failover switched on.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "failover_active",
			Help:      "1 while every operation is served by the fallback dataset.",
		}),
	}
	reg.MustRegister(m.remoteFailures, m.fallbackServed, m.activations, m.active)
	return m
}

func (m *Metrics) RemoteFailure(op string, class ideas.ErrorClass, _ error) {
	m.remoteFailures.WithLabelValues(op, class.String()).Inc()
}

func (m *Metrics) FallbackServed(op string) {
	m.fallbackServed.WithLabelValues(op).Inc()
}

func (m *Metrics) FailoverActivated(string) {
	m.activations.Inc()
	m.active.Set(1)
}

func (m *Metrics) FailoverDeactivated() {
	m.active.Set(0)
}

// SetActive seeds the gauge with the persisted mode at startup.
func (m *Metrics) SetActive(active bool) {
	if active {
		m.active.Set(1)
	} else {
		m.active.Set(0)
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
