// Package metrics defines the Prometheus instrumentation for ChemPrep's
// dataset-preparation pipeline.  Metrics hang off a caller-supplied registry
// so tests can scrape a private one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chemprep"

// Conflict kinds recorded by the identifier map.
const (
	ConflictIdentifier = "identifier"
	ConflictStructure  = "structure"
)

// Metrics bundles the counters and histograms the pipeline reports.
type Metrics struct {
	MoleculesRead prometheus.Counter
	ShardsWritten prometheus.Counter
	ShardUploads  prometheus.Counter
	MapConflicts  *prometheus.CounterVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter

	FeaturizeDuration prometheus.Histogram
	ScoringDuration   prometheus.Histogram
}

// New registers the pipeline metrics on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MoleculesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "molecules_read_total",
			Help:      "Molecules read from input files.",
		}),
		ShardsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "shards_written_total",
			Help:      "Shard files written to disk.",
		}),
		ShardUploads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "shard_uploads_total",
			Help:      "Shard files uploaded to object storage.",
		}),
		MapConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "smilesmap",
			Name:      "conflicts_total",
			Help:      "Identifier or structure conflicts rejected by the SMILES map.",
		}, []string{"kind"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "featurize",
			Name:      "cache_hits_total",
			Help:      "Descriptor vectors served from the cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "featurize",
			Name:      "cache_misses_total",
			Help:      "Descriptor vectors computed on a cache miss.",
		}),
		FeaturizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "featurize",
			Name:      "duration_seconds",
			Help:      "Wall time to featurize one molecule batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		ScoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Wall time for one remote scoring call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// NewUnregistered returns metrics on a throwaway registry, for callers that
// do not expose a scrape endpoint.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes a scrape endpoint for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
