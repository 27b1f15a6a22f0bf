// Package metrics exposes Prometheus collectors for HTTP traffic and
// listing, swap and points activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	itemTransitions *prometheus.CounterVec
	swapTransitions *prometheus.CounterVec
	pointsMoved     prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewear",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rewear",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		itemTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewear",
			Name:      "item_transitions_total",
			Help:      "Listing status changes, by target status.",
		}, []string{"to"}),
		swapTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewear",
			Name:      "swap_transitions_total",
			Help:      "Swap status changes, by target status.",
		}, []string{"to"}),
		pointsMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewear",
			Name:      "points_moved_total",
			Help:      "Absolute amount of points written to the ledger.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.itemTransitions,
		m.swapTransitions,
		m.pointsMoved,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ItemTransition counts a listing entering status to.
func (m *Metrics) ItemTransition(to string) {
	if m == nil {
		return
	}
	m.itemTransitions.WithLabelValues(to).Inc()
}

// SwapTransition counts a swap entering status to.
func (m *Metrics) SwapTransition(to string) {
	if m == nil {
		return
	}
	m.swapTransitions.WithLabelValues(to).Inc()
}

// PointsMoved adds the absolute value of delta to the points counter.
func (m *Metrics) PointsMoved(delta int) {
	if m == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.pointsMoved.Add(float64(delta))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
