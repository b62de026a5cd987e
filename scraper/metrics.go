package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      *prometheus.CounterVec
	CardsExtracted  prometheus.Counter
	CardsDuplicated prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	WaitDuration    *prometheus.HistogramVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Catalog pages handled by the crawl, by outcome.",
		},
		[]string{"outcome"},
	)
	cards := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_cards_extracted_total",
			Help: "Card records extracted from detail pages.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_cards_duplicated_total",
			Help: "Card records dropped because their id was already seen.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_retries_total",
			Help: "Navigation retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Crawl errors by type.",
		},
		[]string{"error_type"},
	)
	waits := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_wait_duration_seconds",
			Help:    "Time spent waiting on the browser, by phase.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	registry.MustRegister(pages, cards, duplicates, retries, errorsTotal, waits)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		CardsExtracted:  cards,
		CardsDuplicated: duplicates,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		WaitDuration:    waits,
	}
}

// IncPage counts one page outcome: scraped, skipped, or failed.
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// IncCards increments the extracted card counter.
func (m *Metrics) IncCards() {
	if m == nil {
		return
	}
	m.CardsExtracted.Inc()
}

// IncDuplicate increments the duplicate card counter.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.CardsDuplicated.Inc()
}

// IncRetries increments the retry counter.
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

// ObserveWait records a wait duration for a phase.
func (m *Metrics) ObserveWait(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.WaitDuration.WithLabelValues(phase).Observe(d.Seconds())
}
