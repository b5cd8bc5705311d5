// Package metrics exposes engine counters on a private Prometheus registry.
package metrics

import (
	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/ingestion"
	"github.com/poiesic/graphrag/search"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "graphrag"

// Collector holds the engine's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	// Ingestion metrics
	IngestRuns      *prometheus.CounterVec
	IngestDuration  *prometheus.HistogramVec
	ChunksIngested  prometheus.Counter
	FilesSkipped    prometheus.Counter
	ConceptFailures prometheus.Counter
	EdgesSkipped    prometheus.Counter

	// Query metrics
	Retrievals    *prometheus.CounterVec
	RetrievalSize prometheus.Histogram
	Reranks       *prometheus.CounterVec
	Asks          *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		IngestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_runs_total",
				Help:      "Total number of ingestion runs",
			},
			[]string{"mode", "status"},
		),
		IngestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Ingestion run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"mode"},
		),
		ChunksIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_ingested_total",
				Help:      "Total number of chunks stored in the graph",
			},
		),
		FilesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_skipped_total",
				Help:      "Total number of files that produced no text",
			},
		),
		ConceptFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "concept_failures_total",
				Help:      "Total number of degraded concept extractions and failed concept writes",
			},
		),
		EdgesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edges_skipped_total",
				Help:      "Total number of extracted edges dropped for a missing concept",
			},
		),
		Retrievals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retrievals_total",
				Help:      "Total number of hybrid retrievals",
			},
			[]string{"status"},
		),
		RetrievalSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_candidates",
				Help:      "Number of merged candidates per retrieval",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),
		Reranks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reranks_total",
				Help:      "Total number of rerank steps",
			},
			[]string{"status"},
		),
		Asks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asks_total",
				Help:      "Total number of questions answered",
			},
			[]string{"status", "reason"},
		),
	}

	registry.MustRegister(
		c.IngestRuns,
		c.IngestDuration,
		c.ChunksIngested,
		c.FilesSkipped,
		c.ConceptFailures,
		c.EdgesSkipped,
		c.Retrievals,
		c.RetrievalSize,
		c.Reranks,
		c.Asks,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveIngest records one ingestion run.
func (c *Collector) ObserveIngest(res *ingestion.Result) {
	if res == nil {
		return
	}
	c.IngestRuns.WithLabelValues(res.Mode.String(), res.Status.String()).Inc()
	c.IngestDuration.WithLabelValues(res.Mode.String()).Observe(res.Duration.Seconds())
	c.ChunksIngested.Add(float64(res.Chunks))
	c.FilesSkipped.Add(float64(res.FilesSkipped))
	c.ConceptFailures.Add(float64(res.ConceptFailures))
	c.EdgesSkipped.Add(float64(res.EdgesSkipped))
}

// ObserveRetrieval records one hybrid retrieval.
func (c *Collector) ObserveRetrieval(r *search.Retrieval) {
	if r == nil {
		return
	}
	c.Retrievals.WithLabelValues(r.Status.String()).Inc()
	c.RetrievalSize.Observe(float64(len(r.Candidates)))
}

// ObserveRerank records the outcome of one rerank step.
func (c *Collector) ObserveRerank(status core.Status) {
	c.Reranks.WithLabelValues(status.String()).Inc()
}

// ObserveAsk records one answered question. reason is empty for grounded answers.
func (c *Collector) ObserveAsk(status core.Status, reason string) {
	if reason == "" {
		reason = "answered"
	}
	c.Asks.WithLabelValues(status.String(), reason).Inc()
}

// WriteToTextfile writes the registry in the text exposition format, for the
// node exporter's textfile collector.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
