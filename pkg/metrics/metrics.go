// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service registers. A fresh registry is
// created per instance so tests can run side by side.
type Metrics struct {
	registry *prometheus.Registry

	CompletionsServed   prometheus.Counter
	CompletionsAccepted prometheus.Counter
	SnippetsFinalized   prometheus.Counter
	SnippetsAbandoned   prometheus.Counter
	RemainingFraction   prometheus.Histogram
	FileChanges         prometheus.Counter
}

// New builds and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CompletionsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostd_completions_served_total",
			Help: "Completions registered for telemetry tracking.",
		}),
		CompletionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostd_completions_accepted_total",
			Help: "Completions the client reported as accepted.",
		}),
		SnippetsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostd_snippets_finalized_total",
			Help: "Snippets finalized with a valid remaining fraction.",
		}),
		SnippetsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostd_snippets_abandoned_total",
			Help: "Accepted snippets abandoned before any valid score.",
		}),
		RemainingFraction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghostd_snippet_remaining_fraction",
			Help:    "Remaining fraction of finalized snippets.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		FileChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghostd_file_changes_total",
			Help: "File change notifications processed.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CompletionsServed,
		m.CompletionsAccepted,
		m.SnippetsFinalized,
		m.SnippetsAbandoned,
		m.RemainingFraction,
		m.FileChanges,
	)
	return m
}

// SnippetFinalized implements snippet.Observer.
func (m *Metrics) SnippetFinalized(remainingFraction float64) {
	m.SnippetsFinalized.Inc()
	m.RemainingFraction.Observe(remainingFraction)
}

// SnippetAbandoned implements snippet.Observer.
func (m *Metrics) SnippetAbandoned() {
	m.SnippetsAbandoned.Inc()
}

// Handler returns the /metrics endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
