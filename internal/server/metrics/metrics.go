// Package metrics exposes Prometheus collectors for request tracking.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the Prometheus metrics
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	ProcessingTime   *prometheus.HistogramVec
	PersistFailures  prometheus.Counter
	TrackingFailures prometheus.Counter
	GateDenials      prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uatrack_requests_total",
				Help: "Total number of tracked requests by user agent type and status code",
			},
			[]string{"user_agent_type", "status"},
		),
		ProcessingTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uatrack_request_processing_seconds",
				Help:    "Time spent in downstream handlers",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"user_agent_type"},
		),
		PersistFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "uatrack_persist_failures_total",
				Help: "Total number of request logs that could not be saved",
			},
		),
		TrackingFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "uatrack_tracking_failures_total",
				Help: "Total number of requests passed through untracked after an internal tracking fault",
			},
		),
		GateDenials: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "uatrack_gate_denials_total",
				Help: "Total number of requests denied by robots enforcement",
			},
		),
		gatherer: reg,
	}
}

// ObserveRequest records one tracked request. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(userAgentType string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(userAgentType, strconv.Itoa(status)).Inc()
	m.ProcessingTime.WithLabelValues(userAgentType).Observe(elapsed.Seconds())
}

// PersistFailed counts a failed save. Safe on a nil receiver.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

// TrackingFailed counts a request that bypassed tracking. Safe on a nil receiver.
func (m *Metrics) TrackingFailed() {
	if m == nil {
		return
	}
	m.TrackingFailures.Inc()
}

// Denied counts a gate denial. Safe on a nil receiver.
func (m *Metrics) Denied() {
	if m == nil {
		return
	}
	m.GateDenials.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
