package actions

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relloyd/dbcop/orchestrator"
)

// SyncMetrics counts sessions for /metrics.
type SyncMetrics struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
	progress prometheus.Gauge
}

func NewSyncMetrics() *SyncMetrics {
	m := &SyncMetrics{
		registry: prometheus.NewRegistry(),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbcop",
			Name:      "syncs_total",
			Help:      "Sync sessions by mode and final state.",
		}, []string{"mode", "state", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbcop",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of finished sync sessions.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		}, []string{"mode", "state"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dbcop",
			Name:      "sync_active",
			Help:      "1 while a sync session is running.",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dbcop",
			Name:      "sync_progress_percent",
			Help:      "Progress of the current or last sync session.",
		}),
	}
	m.registry.MustRegister(m.total, m.duration, m.active, m.progress)
	return m
}

// Started marks a session as running.
func (m *SyncMetrics) Started() {
	if m == nil {
		return
	}
	m.active.Set(1)
	m.progress.Set(0)
}

// Progress records the latest progress value.
func (m *SyncMetrics) Progress(p orchestrator.Progress) {
	if m == nil {
		return
	}
	m.progress.Set(float64(p.Percent))
}

// Finished records a session outcome.
func (m *SyncMetrics) Finished(mode orchestrator.Mode, o *orchestrator.Outcome) {
	if m == nil || o == nil {
		return
	}
	m.active.Set(0)
	m.total.WithLabelValues(mode.String(), o.State.String(), string(o.Kind)).Inc()
	m.duration.WithLabelValues(mode.String(), o.State.String()).Observe(o.Finished.Sub(o.Started).Seconds())
}

func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
