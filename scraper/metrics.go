package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	PagesTotal      prometheus.Counter
	ItemsTotal      prometheus.Counter
	CardsSkipped    prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_crawl_requests_total",
			Help: "Total page fetches issued by the crawler.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_crawl_request_duration_seconds",
			Help:    "HTTP latency of catalog page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_crawl_pages_total",
			Help: "Total catalog pages crawled.",
		},
	)
	items := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_crawl_items_total",
			Help: "Total items extracted from catalog cards.",
		},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_crawl_cards_skipped_total",
			Help: "Cards skipped because title or price was missing.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_crawl_retries_total",
			Help: "Total fetch retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_crawl_errors_total",
			Help: "Total crawl errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, pages, items, skipped, retries, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		PagesTotal:      pages,
		ItemsTotal:      items,
		CardsSkipped:    skipped,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPages increments the pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// AddItems adds n extracted items.
func (m *Metrics) AddItems(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsTotal.Add(float64(n))
}

// AddSkipped adds n skipped cards.
func (m *Metrics) AddSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CardsSkipped.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
