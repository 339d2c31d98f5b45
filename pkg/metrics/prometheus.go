package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BorrowsTotal tracks the total number of objects borrowed per kind.
	//
	// Example:
	//	metrics.BorrowsTotal.WithLabelValues("request").Inc()
	BorrowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_pool_borrows_total",
			Help: "Total number of objects borrowed",
		},
		[]string{"kind"},
	)

	// ReturnsTotal tracks the total number of objects returned per kind.
	ReturnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_pool_returns_total",
			Help: "Total number of objects returned",
		},
		[]string{"kind"},
	)

	// ExpansionsTotal tracks structural pool growth events per kind.
	ExpansionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_pool_expansions_total",
			Help: "Total number of pool expansions",
		},
		[]string{"kind"},
	)

	// ShrinksTotal tracks structural pool shrink events per kind.
	ShrinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_pool_shrinks_total",
			Help: "Total number of pool shrinks",
		},
		[]string{"kind"},
	)

	// EmergencyActivationsTotal tracks emergency mode activations.
	EmergencyActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helix_pool_emergency_activations_total",
			Help: "Total number of emergency mode activations",
		},
	)

	// PoolSize tracks the current structural size per kind.
	PoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_pool_size",
			Help: "Current pool size",
		},
		[]string{"kind"},
	)

	// FreeObjects tracks the free-list length per kind.
	FreeObjects = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_pool_free_objects",
			Help: "Objects currently available in the free list",
		},
		[]string{"kind"},
	)

	// UsageRatio tracks the fraction of capacity currently borrowed per kind.
	UsageRatio = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_pool_usage_ratio",
			Help: "Fraction of pool capacity currently borrowed",
		},
		[]string{"kind"},
	)

	// EmergencyActive reports whether emergency mode is currently active.
	EmergencyActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "helix_pool_emergency_active",
			Help: "Whether emergency mode is active (1) or not (0)",
		},
	)

	// OperationLatency tracks the distribution of pool operation latencies
	// in nanoseconds. The buckets are tuned for sub-millisecond operations.
	OperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "helix_pool_operation_latency_nanoseconds",
			Help: "Pool operation latency in nanoseconds",
			Buckets: []float64{
				100,    // 100ns - free-list hits
				1000,   // 1μs - reset/clean hooks
				10000,  // 10μs - overflow construction
				100000, // 100μs - bulk expansion
				1e6,    // 1ms - contended operations
				1e7,    // 10ms - pathological cases
			},
		},
		[]string{"kind"},
	)
)

// observeEvent mirrors a recorded event into the Prometheus collectors.
func observeEvent(e Event) {
	switch e.Kind {
	case EventBorrow:
		BorrowsTotal.WithLabelValues(e.Pool).Inc()
	case EventReturn:
		ReturnsTotal.WithLabelValues(e.Pool).Inc()
	case EventExpansion:
		ExpansionsTotal.WithLabelValues(e.Pool).Inc()
	case EventShrink:
		ShrinksTotal.WithLabelValues(e.Pool).Inc()
	case EventEmergency:
		EmergencyActivationsTotal.Inc()
	case EventPerformance:
		OperationLatency.WithLabelValues(e.Pool).Observe(float64(e.Duration.Nanoseconds()))
	}
}

// SetPoolGauges updates the size, free-list, and usage gauges for a kind.
func (c *Collector) SetPoolGauges(pool string, size, free int, usage float64) {
	PoolSize.WithLabelValues(pool).Set(float64(size))
	FreeObjects.WithLabelValues(pool).Set(float64(free))
	UsageRatio.WithLabelValues(pool).Set(usage)
}

// SetEmergencyGauge updates the emergency mode gauge.
func (c *Collector) SetEmergencyGauge(active bool) {
	if active {
		EmergencyActive.Set(1)
	} else {
		EmergencyActive.Set(0)
	}
}
