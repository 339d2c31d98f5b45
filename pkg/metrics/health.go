package metrics

import (
	"math"

	"github.com/shirou/gopsutil/v3/mem"
)

// HealthStatus is a coarse classification of pool health derived from
// borrow/return rate imbalance and recent emergency activations.
type HealthStatus string

const (
	// StatusHealthy means rates are balanced and no emergencies occurred
	StatusHealthy HealthStatus = "healthy"
	// StatusDegraded means a mild borrow/return imbalance was observed
	StatusDegraded HealthStatus = "degraded"
	// StatusWarning means a significant borrow/return imbalance was observed
	StatusWarning HealthStatus = "warning"
	// StatusCritical means emergency mode activated within the lookback window
	StatusCritical HealthStatus = "critical"
)

// Health is a point-in-time health assessment with operator recommendations.
type Health struct {
	Status            HealthStatus `json:"status"`
	BorrowRate        float64      `json:"borrow_rate"`
	ReturnRate        float64      `json:"return_rate"`
	Imbalance         float64      `json:"imbalance"`
	RecentEmergencies int64        `json:"recent_emergencies"`
	Recommendations   []string     `json:"recommendations,omitempty"`
}

// Health derives the current health status. The imbalance metric is
// |borrow_rate - return_rate| / max(borrow_rate, 1); emergencies within
// the last five minutes escalate straight to critical.
func (c *Collector) Health() Health {
	c.mu.Lock()
	seconds := c.windowSize.Seconds()
	borrowRecent := c.recentCountLocked(EventBorrow, c.windowSize)
	returnRecent := c.recentCountLocked(EventReturn, c.windowSize)
	// The lookback can exceed window retention, so emergencies are counted
	// from their own timestamp list rather than the windows.
	c.pruneEmergenciesLocked(c.now())
	recentEmergencies := int64(len(c.emergencies))
	totalEmergencies := c.totals[EventEmergency]
	c.mu.Unlock()

	borrowRate := float64(borrowRecent) / seconds
	returnRate := float64(returnRecent) / seconds
	imbalance := math.Abs(borrowRate-returnRate) / math.Max(borrowRate, 1)

	h := Health{
		Status:            StatusHealthy,
		BorrowRate:        borrowRate,
		ReturnRate:        returnRate,
		Imbalance:         imbalance,
		RecentEmergencies: recentEmergencies,
	}

	switch {
	case recentEmergencies > 0:
		h.Status = StatusCritical
	case imbalance > 0.5:
		h.Status = StatusWarning
	case imbalance > 0.2:
		h.Status = StatusDegraded
	}

	if imbalance > 0.5 {
		h.Recommendations = append(h.Recommendations,
			"borrow rate far exceeds return rate; increase pool size or audit callers for unreturned objects")
	}
	if borrowRate > 100 {
		h.Recommendations = append(h.Recommendations,
			"borrow rate above 100/s; enable auto-scaling to absorb the load")
	}
	if totalEmergencies > 5 {
		h.Recommendations = append(h.Recommendations,
			"repeated emergency activations; raise max_size to match sustained demand")
	}
	if used, err := c.memProbe(); err == nil && used > 90 {
		h.Recommendations = append(h.Recommendations,
			"system memory usage above 90%; lower max_size or min_size to reduce pool footprint")
	}

	return h
}

// systemMemoryUsedPercent reports the host's used memory percentage.
func systemMemoryUsedPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}
