// Package metrics exposes Prometheus instrumentation for station polling.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshweather"

// Poll outcomes used as the "outcome" label of polls_total.
const (
	OutcomeOK          = "ok"
	OutcomeConnection  = "connection_error"
	OutcomeInvalidData = "invalid_data"
	OutcomeUnknown     = "unknown"
	OutcomeCancelled   = "cancelled"
)

// Metrics holds the collectors for one monitor. Each Metrics owns its
// registry so several monitors (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	pollsTotal      *prometheus.CounterVec   // labels: station, outcome
	pollDuration    *prometheus.HistogramVec // labels: station
	pollInterval    *prometheus.GaugeVec     // labels: station
	lastSuccess     *prometheus.GaugeVec     // labels: station
	intervalChanges *prometheus.CounterVec   // labels: station
}

// New creates Metrics registered with a fresh registry that also carries
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		pollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Station polls by outcome.",
		}, []string{"station", "outcome"}),
		pollDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a station fetch and parse.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"station"}),
		pollInterval: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_interval_seconds",
			Help:      "Current delay between polls of a station.",
		}, []string{"station"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll of a station.",
		}, []string{"station"}),
		intervalChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interval_changes_total",
			Help:      "Times a station's poll interval was adjusted.",
		}, []string{"station"}),
	}
}

// ObservePoll records one completed poll.
func (m *Metrics) ObservePoll(station, outcome string, latency time.Duration) {
	m.pollsTotal.WithLabelValues(station, outcome).Inc()
	m.pollDuration.WithLabelValues(station).Observe(latency.Seconds())
}

// SetInterval records the station's current poll interval.
func (m *Metrics) SetInterval(station string, interval time.Duration) {
	m.pollInterval.WithLabelValues(station).Set(interval.Seconds())
}

// IntervalChanged counts an interval adjustment and records the new value.
func (m *Metrics) IntervalChanged(station string, interval time.Duration) {
	m.intervalChanges.WithLabelValues(station).Inc()
	m.SetInterval(station, interval)
}

// MarkSuccess records the time of the station's latest successful poll.
func (m *Metrics) MarkSuccess(station string, at time.Time) {
	m.lastSuccess.WithLabelValues(station).Set(float64(at.UnixNano()) / 1e9)
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
