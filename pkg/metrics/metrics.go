package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synthesis_system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synthesis_system_goroutines",
		Help: "Number of goroutines",
	})

	// Pipeline metrics
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthesis_phase_duration_seconds",
			Help:    "Time spent in each synthesis phase",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"phase"},
	)

	ChunksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_chunks_processed_total",
			Help: "Total number of chunks run through extraction",
		},
		[]string{"status"},
	)

	PhaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_phase_failures_total",
			Help: "Phase or item failures that were contained and degraded",
		},
		[]string{"phase"},
	)

	// Conflict metrics
	ConflictsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_conflicts_detected_total",
			Help: "Number of conflicts detected",
		},
		[]string{"conflict_type"},
	)

	ConflictsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_conflicts_resolved_total",
			Help: "Number of conflicts resolved",
		},
		[]string{"strategy"},
	)

	// Aggregation metrics
	StrategyRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthesis_strategy_runs_total",
			Help: "Aggregation strategy invocations",
		},
		[]string{"strategy", "outcome"},
	)

	OverallQuality = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "synthesis_overall_quality",
		Help:    "Distribution of overall quality scores",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}
