// Package metrics exposes prometheus counters/histograms for the ingest
// and dedup pipelines. Grounded on imlargo-go-api's
// internal/infrastructure/metrics.PrometheusMetrics (a struct of
// promauto-registered collectors with one method per event), generalized
// from HTTP-request counters to this domain's ingest/cache/cluster
// events. Serving /metrics is left to the process embedding this core,
// matching spec §1's "progress rendering is external" non-goal.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the core instruments itself with.
type Metrics struct {
	filesIngested   *prometheus.CounterVec
	ingestDuration  prometheus.Histogram
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	dedupRuns       prometheus.Counter
	dedupDuration   prometheus.Histogram
	exactClusters   prometheus.Counter
	similarClusters prometheus.Counter
	comparisonsRun  prometheus.Counter
	errorPaths      prometheus.Counter
}

// New registers and returns the core's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across package-level test runs.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		filesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sotidedup_files_ingested_total",
			Help: "Files processed by the per-file processor, by outcome.",
		}, []string{"outcome"}),
		ingestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sotidedup_ingest_duration_seconds",
			Help:    "Wall-clock time to ingest one file.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sotidedup_job_cache_hits_total",
			Help: "Job cache hits, by job name.",
		}, []string{"job"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sotidedup_job_cache_misses_total",
			Help: "Job cache misses, by job name.",
		}, []string{"job"}),
		dedupRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "sotidedup_dedup_runs_total",
			Help: "Completed duplicate-detector runs.",
		}),
		dedupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sotidedup_dedup_duration_seconds",
			Help:    "Wall-clock time for one duplicate-detector run.",
			Buckets: prometheus.DefBuckets,
		}),
		exactClusters: factory.NewCounter(prometheus.CounterOpts{
			Name: "sotidedup_exact_clusters_total",
			Help: "Exact pHash clusters found across all runs.",
		}),
		similarClusters: factory.NewCounter(prometheus.CounterOpts{
			Name: "sotidedup_similar_clusters_total",
			Help: "LSH-verified similarity clusters found across all runs.",
		}),
		comparisonsRun: factory.NewCounter(prometheus.CounterOpts{
			Name: "sotidedup_similarity_comparisons_total",
			Help: "Pairwise similarity comparisons performed during Stage B.",
		}),
		errorPaths: factory.NewCounter(prometheus.CounterOpts{
			Name: "sotidedup_error_paths_total",
			Help: "Paths that failed ingest or dedup processing.",
		}),
	}
}

// ObserveIngest records one per-file processor outcome.
func (m *Metrics) ObserveIngest(outcome string, d time.Duration) {
	m.filesIngested.WithLabelValues(outcome).Inc()
	m.ingestDuration.Observe(d.Seconds())
}

// ObserveCacheLookup records a job-cache hit or miss for jobName.
func (m *Metrics) ObserveCacheLookup(jobName string, hit bool) {
	if hit {
		m.cacheHits.WithLabelValues(jobName).Inc()
		return
	}
	m.cacheMisses.WithLabelValues(jobName).Inc()
}

// ObserveDedupRun records the summary counters from one DeduplicationResult.
func (m *Metrics) ObserveDedupRun(d time.Duration, exactClusters, similarClusters, comparisons, errorPaths int) {
	m.dedupRuns.Inc()
	m.dedupDuration.Observe(d.Seconds())
	m.exactClusters.Add(float64(exactClusters))
	m.similarClusters.Add(float64(similarClusters))
	m.comparisonsRun.Add(float64(comparisons))
	m.errorPaths.Add(float64(errorPaths))
}
