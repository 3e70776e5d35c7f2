// Package metrics holds the Prometheus collectors of the asset pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "photo_bridge"

var (
	// StorePuts counts blob writes by backend and result ("ok" or "error").
	StorePuts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_puts_total",
		Help:      "Blob writes by backend and result.",
	}, []string{"backend", "result"})

	// StoreRemovals counts blob deletions by backend and result.
	StoreRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_removals_total",
		Help:      "Blob deletions by backend and result.",
	}, []string{"backend", "result"})

	// Fallbacks counts uploads that were redirected to the filesystem backend.
	Fallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_fallbacks_total",
		Help:      "Uploads written to the filesystem after the object store failed.",
	})

	// Ingests counts pipeline runs by kind ("photo", "carousel", "import") and outcome.
	Ingests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingests_total",
		Help:      "Asset pipeline runs by kind and outcome.",
	}, []string{"kind", "outcome"})

	// DecodeFailures counts payloads that could not be decoded as images.
	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_failures_total",
		Help:      "Uploads whose bytes could not be decoded as an image.",
	})

	// QuotaRejections counts uploads rejected by window ("day" or "month").
	QuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Uploads rejected by the per-user byte quota.",
	}, []string{"window"})

	// TransformSeconds observes image transformation latency by kind.
	TransformSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transform_seconds",
		Help:      "Image transformation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

// Result maps a success flag to a label value.
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
