// Package monitor exports the panel lifecycle as Prometheus metrics.
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor implements panel.Metrics.
type Monitor struct {
	started    *prometheus.CounterVec
	completed  *prometheus.CounterVec
	superseded *prometheus.CounterVec
	cache      *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New registers the metrics with reg, a nil reg uses the default registry.
func New(reg prometheus.Registerer) *Monitor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Monitor{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soldash", Name: "cycles_started_total", Help: "Fetch cycles started.",
		}, []string{"source"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soldash", Name: "cycles_completed_total", Help: "Fetch cycles applied to a panel, by status.",
		}, []string{"source", "status"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soldash", Name: "cycles_superseded_total", Help: "Fetch cycles discarded on arrival.",
		}, []string{"source"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soldash", Name: "cache_lookups_total", Help: "Cache lookups at panel start.",
		}, []string{"source", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "soldash", Name: "cycle_duration_seconds", Help: "Duration of applied fetch cycles.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"source"}),
	}

	reg.MustRegister(m.started, m.completed, m.superseded, m.cache, m.latency)

	return m
}

func (m *Monitor) CycleStarted(source string) {
	m.started.WithLabelValues(source).Inc()
}

func (m *Monitor) CycleCompleted(source, status string, d time.Duration) {
	m.completed.WithLabelValues(source, status).Inc()
	m.latency.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Monitor) CycleSuperseded(source string) {
	m.superseded.WithLabelValues(source).Inc()
}

func (m *Monitor) CacheLookup(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.cache.WithLabelValues(source, result).Inc()
}

// Serve exposes the default registry on addr at /metrics. It blocks like http.ListenAndServe.
func Serve(addr string) error {
	h := http.NewServeMux()
	h.Handle("/metrics", promhttp.Handler())

	return http.ListenAndServe(addr, h) //nolint:gosec // metrics listener has no timeouts
}
