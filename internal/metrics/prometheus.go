// Package metrics holds the facade's Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	UpstreamCalls    *prometheus.CounterVec
	CacheRecords     *prometheus.CounterVec
	PartitionReplace *prometheus.CounterVec
	AuthRejections   prometheus.Counter
}

// NewMetrics creates and registers the facade metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "facade_request_duration_seconds",
				Help:    "Duration of HTTP request processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		UpstreamCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_upstream_calls_total",
				Help: "Total number of SFG20 GraphQL calls",
			},
			[]string{"environment", "result"},
		),
		CacheRecords: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_cache_records_total",
				Help: "Total number of records written to the cache",
			},
			[]string{"type"},
		),
		PartitionReplace: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_partition_replacements_total",
				Help: "Total number of cache partition replacements",
			},
			[]string{"result"},
		),
		AuthRejections: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "facade_auth_rejections_total",
				Help: "Total number of rejected API key resolutions",
			},
		),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveUpstreamCall records one SFG20 GraphQL call. A nil receiver records
// nothing.
func (m *Metrics) ObserveUpstreamCall(environment string, err error) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(environment, resultLabel(err)).Inc()
}

// ObservePartitionReplace records one partition replacement and, on success,
// the records written per entity type. A nil receiver records nothing.
func (m *Metrics) ObservePartitionReplace(written map[string]int, err error) {
	if m == nil {
		return
	}
	m.PartitionReplace.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return
	}
	for typ, n := range written {
		m.CacheRecords.WithLabelValues(typ).Add(float64(n))
	}
}

// ObserveAuthRejection records one rejected key resolution. A nil receiver
// records nothing.
func (m *Metrics) ObserveAuthRejection() {
	if m == nil {
		return
	}
	m.AuthRejections.Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
