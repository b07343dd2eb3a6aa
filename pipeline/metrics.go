package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/go-shop-catalog/models"
)

// RunMetrics bundles Prometheus collectors for ingestion runs.
type RunMetrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RejectedTotal    prometheus.Counter
	CategoriesSynced prometheus.Gauge
	ItemsLastRun     prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

// NewRunMetrics constructs the run metrics and registers them on reg.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_ingestion_runs_total",
			Help: "Ingestion runs by final state.",
		},
		[]string{"state"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_ingestion_run_duration_seconds",
			Help:    "Wall time of ingestion runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	rejected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_ingestion_rejected_total",
			Help: "Triggers rejected because a run was in progress.",
		},
	)
	synced := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_categories_synced",
			Help: "Category datasets refreshed by the last run.",
		},
	)
	items := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_items_last_run",
			Help: "Items crawled by the last run.",
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_last_success_timestamp_seconds",
			Help: "Unix time the last fully successful run finished.",
		},
	)

	if reg != nil {
		reg.MustRegister(runs, duration, rejected, synced, items, lastSuccess)
	}

	return &RunMetrics{
		RunsTotal:        runs,
		RunDuration:      duration,
		RejectedTotal:    rejected,
		CategoriesSynced: synced,
		ItemsLastRun:     items,
		LastSuccess:      lastSuccess,
	}
}

// ObserveRun records a finished run.
func (m *RunMetrics) ObserveRun(result *models.RunResult) {
	if m == nil || result == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(result.State)).Inc()
	m.RunDuration.Observe(result.EndTime.Sub(result.StartTime).Seconds())
	m.CategoriesSynced.Set(float64(result.CategoriesSynced))
	m.ItemsLastRun.Set(float64(result.ItemCount))
	if result.Succeeded() {
		m.LastSuccess.Set(float64(result.EndTime.Unix()))
	}
}

// IncRejected counts a trigger refused by the single-flight guard.
func (m *RunMetrics) IncRejected() {
	if m == nil {
		return
	}
	m.RejectedTotal.Inc()
}
