// Package metrics defines the Prometheus collectors emitted across the
// indexing pipeline: per-file and per-submission outcome counters, an
// indexOne duration histogram, and an in-flight-manifest gauge. Emission
// policy (dashboards, alerting) is out of scope; these are the ambient
// counters a health/metrics server exposes via promhttp.Handler once
// registered into a caller-supplied registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels used across the counter vectors below.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeDeduplicated = "deduplicated"
)

// Collectors groups every collector this module registers. New registers
// nothing; MustRegister registers into whichever prometheus.Registerer the
// caller passes, which may be the global prometheus.DefaultRegisterer.
type Collectors struct {
	FilesIndexed       *prometheus.CounterVec
	SubmissionsIndexed *prometheus.CounterVec
	IndexOneDuration   prometheus.Histogram
	ManifestsInFlight  prometheus.Gauge
}

// New constructs a fresh, unregistered set of collectors.
func New() *Collectors {
	return &Collectors{
		FilesIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subindex",
			Name:      "files_indexed_total",
			Help:      "Count of file documents written, by outcome.",
		}, []string{"outcome"}),
		SubmissionsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "subindex",
			Name:      "submissions_indexed_total",
			Help:      "Count of index_one invocations, by outcome.",
		}, []string{"outcome"}),
		IndexOneDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "subindex",
			Name:      "index_one_duration_seconds",
			Help:      "Wall-clock duration of a completed index_one call.",
			Buckets:   prometheus.DefBuckets,
		}),
		ManifestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "subindex",
			Name:      "manifests_in_flight",
			Help:      "Number of file-list manifests currently being fetched.",
		}),
	}
}

// MustRegister registers every collector into reg, panicking on a
// duplicate-registration error (mirrors prometheus's own MustRegister
// idiom, used at process startup only). reg accepts prometheus.Registerer
// rather than the concrete *prometheus.Registry so callers can pass
// prometheus.DefaultRegisterer, the registry internal/healthserver's
// promhttp.Handler() exposes, without this package depending on it.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.FilesIndexed, c.SubmissionsIndexed, c.IndexOneDuration, c.ManifestsInFlight)
}
