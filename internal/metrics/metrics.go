// Package metrics holds the Prometheus collectors of the planner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	storageWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Durable storage writes by key and result.",
		},
		[]string{"key", "result"},
	)

	storageLoadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "storage",
			Name:      "load_failures_total",
			Help:      "Keys that could not be read or parsed on startup.",
		},
		[]string{"key"},
	)

	collectionSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "planner",
			Subsystem: "store",
			Name:      "collection_entities",
			Help:      "Number of entities currently held per collection.",
		},
		[]string{"key"},
	)

	habitStrength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "planner",
			Subsystem: "habits",
			Name:      "overall_strength",
			Help:      "Mean momentum across all habits (0-100).",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		storageWrites,
		storageLoadFailures,
		collectionSize,
		habitStrength,
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordWrite counts a durable write. result is "ok", "quota" or "other".
func RecordWrite(key, result string) {
	storageWrites.WithLabelValues(key, result).Inc()
}

// RecordLoadFailure counts a key that was skipped during load.
func RecordLoadFailure(key string) {
	storageLoadFailures.WithLabelValues(key).Inc()
}

// SetCollectionSize reports the current size of a collection.
func SetCollectionSize(key string, n int) {
	collectionSize.WithLabelValues(key).Set(float64(n))
}

// SetHabitStrength reports the latest overall habit momentum.
func SetHabitStrength(v int) {
	habitStrength.Set(float64(v))
}
