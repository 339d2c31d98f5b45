package pool

import (
	"sync"
	"time"
)

// EmergencyGovernor is a process-wide two-state machine (Normal and
// Emergency) that raises the effective per-kind capacity ceiling from
// max_size to emergency_limit while sustained demand holds every pool at
// its configured maximum.
//
// Recovery is by decay: once every pool's usage has stayed below the
// shrink threshold for the configured decay period, the governor drops
// back to Normal. Administrative reset also clears it.
type EmergencyGovernor struct {
	mu        sync.Mutex
	active    bool
	decay     time.Duration
	calmSince time.Time
}

// NewEmergencyGovernor creates a governor in the Normal state.
func NewEmergencyGovernor(decay time.Duration) *EmergencyGovernor {
	return &EmergencyGovernor{decay: decay}
}

// Active reports whether emergency mode is currently engaged.
func (g *EmergencyGovernor) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Activate transitions Normal -> Emergency. It returns true only on the
// transition, so each distinct triggering episode is counted exactly once.
func (g *EmergencyGovernor) Activate(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return false
	}
	g.active = true
	g.calmSince = time.Time{}
	return true
}

// Deactivate forces the governor back to Normal. Used by reset.
func (g *EmergencyGovernor) Deactivate() {
	g.mu.Lock()
	g.active = false
	g.calmSince = time.Time{}
	g.mu.Unlock()
}

// ObserveUsage feeds one pool's current usage ratio into the decay timer.
// Any pool at or above the shrink threshold restarts the calm period;
// once the calm period reaches the decay duration the governor returns
// to Normal and reports the transition by returning true.
func (g *EmergencyGovernor) ObserveUsage(now time.Time, usage, shrinkThreshold float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active {
		return false
	}

	if usage >= shrinkThreshold {
		g.calmSince = time.Time{}
		return false
	}

	if g.calmSince.IsZero() {
		g.calmSince = now
		return false
	}

	if now.Sub(g.calmSince) >= g.decay {
		g.active = false
		g.calmSince = time.Time{}
		return true
	}
	return false
}

// EffectiveMax returns the capacity ceiling currently in force.
func (g *EmergencyGovernor) EffectiveMax(maxSize, emergencyLimit int) int {
	if g.Active() {
		return emergencyLimit
	}
	return maxSize
}
