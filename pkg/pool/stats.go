package pool

import (
	"sync/atomic"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/helixweb/helix/pkg/metrics"
)

// Counters are the process-wide monotonic pool counters. They only reset
// through an explicit administrative Reset.
type Counters struct {
	Created              int64 `json:"created"`
	Borrowed             int64 `json:"borrowed"`
	Returned             int64 `json:"returned"`
	Expanded             int64 `json:"expanded"`
	Shrunk               int64 `json:"shrunk"`
	OverflowCreated      int64 `json:"overflow_created"`
	EmergencyActivations int64 `json:"emergency_activations"`
}

// KindStats is the scaling state of a single kind.
type KindStats struct {
	CurrentSize   int       `json:"current_size"`
	FreeObjects   int       `json:"free_objects"`
	Reserved      int       `json:"reserved"`
	Usage         float64   `json:"usage"`
	PeakUsage     float64   `json:"peak_usage"`
	LastScaleTime time.Time `json:"last_scale_time"`
}

// Snapshot is a point-in-time view of the whole pool: counters, per-kind
// scaling state, emergency status, and the metrics summary with health.
// Consumed by telemetry and monitoring collaborators; taking a snapshot
// has no side effects.
type Snapshot struct {
	Counters    Counters             `json:"counters"`
	InEmergency bool                 `json:"in_emergency"`
	Kinds       map[string]KindStats `json:"kinds"`
	Metrics     metrics.Summary      `json:"metrics"`
	Health      metrics.Health       `json:"health"`
}

// Stats returns a snapshot of counters, per-kind state, and the metrics
// summary. Read-only.
func (dp *DynamicPool) Stats() Snapshot {
	snap := Snapshot{
		Counters: Counters{
			Created:              atomic.LoadInt64(&dp.stats.created),
			Borrowed:             atomic.LoadInt64(&dp.stats.borrowed),
			Returned:             atomic.LoadInt64(&dp.stats.returned),
			Expanded:             atomic.LoadInt64(&dp.stats.expanded),
			Shrunk:               atomic.LoadInt64(&dp.stats.shrunk),
			OverflowCreated:      atomic.LoadInt64(&dp.stats.overflowCreated),
			EmergencyActivations: atomic.LoadInt64(&dp.stats.emergencyActivations),
		},
		InEmergency: dp.governor.Active(),
		Kinds:       make(map[string]KindStats, len(dp.pools)),
	}

	for kind, kp := range dp.pools {
		kp.mu.Lock()
		snap.Kinds[string(kind)] = KindStats{
			CurrentSize:   kp.currentSize,
			FreeObjects:   len(kp.free),
			Reserved:      len(kp.reserve),
			Usage:         kp.usageLocked(),
			PeakUsage:     kp.peakUsage,
			LastScaleTime: kp.lastScale,
		}
		kp.mu.Unlock()
	}

	snap.Metrics = dp.collector.Summary()
	snap.Health = dp.collector.Health()
	return snap
}

// JSON serializes the snapshot for telemetry consumers.
func (s *Snapshot) JSON() ([]byte, error) {
	return gojson.MarshalIndent(s, "", "  ")
}
