package pool

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"
)

// scalingController decides when and how a per-kind pool grows or shrinks.
// Usage is 1 - free/current; expansion triggers at or above the scale
// threshold, shrinking at or below the shrink threshold. One shared
// cooldown timer per kind covers both directions, preventing thrash.
//
// Expansion rounds up and shrinking rounds down, so repeated operations
// converge monotonically on the configured bounds without overshoot.
//
// All methods must be called with the kind pool's mutex held, which also
// serializes concurrent scale decisions within one cooldown window.
type scalingController struct {
	dp *DynamicPool
}

// cooldownElapsed reports whether the kind may make a structural change.
func (sc *scalingController) cooldownElapsed(kp *kindPool) bool {
	if kp.lastScale.IsZero() {
		return true
	}
	return sc.dp.now().Sub(kp.lastScale) >= sc.dp.cfg.Scaling.CooldownPeriod
}

// checkAndScale expands the pool when usage has reached the scale
// threshold and the cooldown has elapsed.
func (sc *scalingController) checkAndScale(kp *kindPool) {
	if kp.usageLocked() >= sc.dp.cfg.Scaling.ScaleThreshold && sc.cooldownElapsed(kp) {
		sc.expand(kp)
	}
}

// expand grows the pool to min(ceil(current * scale_factor), ceiling).
// A pool already at its ceiling under sustained demand activates the
// emergency governor instead of growing, raising the ceiling for every
// kind; at the emergency limit expansion is a no-op.
func (sc *scalingController) expand(kp *kindPool) {
	dp := sc.dp
	max := dp.governor.EffectiveMax(dp.cfg.Sizing.MaxSize, dp.cfg.Sizing.EmergencyLimit)

	if kp.currentSize >= max {
		if !dp.governor.Active() && kp.currentSize < dp.cfg.Sizing.EmergencyLimit {
			if dp.governor.Activate(dp.now()) {
				atomic.AddInt64(&dp.stats.emergencyActivations, 1)
				dp.collector.RecordEmergency(string(kp.kind))
				dp.collector.SetEmergencyGauge(true)
				dp.log.Warn("emergency mode activated",
					zap.String("kind", string(kp.kind)),
					zap.Int("current_size", kp.currentSize),
					zap.Int("max_size", dp.cfg.Sizing.MaxSize),
					zap.Int("emergency_limit", dp.cfg.Sizing.EmergencyLimit))
			}
		}
		return
	}

	newSize := int(math.Ceil(float64(kp.currentSize) * dp.cfg.Scaling.ScaleFactor))
	if newSize > max {
		newSize = max
	}
	if newSize <= kp.currentSize {
		return
	}

	oldSize := kp.currentSize
	for i := oldSize; i < newSize; i++ {
		kp.free = append(kp.free, kp.factory.New())
		atomic.AddInt64(&dp.stats.created, 1)
	}
	kp.currentSize = newSize
	kp.lastScale = dp.now()

	atomic.AddInt64(&dp.stats.expanded, 1)
	dp.collector.RecordExpansion(string(kp.kind), oldSize, newSize)
	dp.log.Info("pool expanded",
		zap.String("kind", string(kp.kind)),
		zap.Int("old_size", oldSize),
		zap.Int("new_size", newSize))
}

// checkAndShrink releases capacity when usage has fallen to the shrink
// threshold and the cooldown has elapsed.
func (sc *scalingController) checkAndShrink(kp *kindPool) {
	if kp.usageLocked() <= sc.dp.cfg.Scaling.ShrinkThreshold && sc.cooldownElapsed(kp) {
		sc.shrink(kp)
	}
}

// shrink reduces the pool to max(floor(current * shrink_factor), min_size),
// destroying surplus objects from the free list. Objects out with callers
// are untouched; if the free list holds fewer objects than the surplus,
// only those are destroyed.
func (sc *scalingController) shrink(kp *kindPool) {
	dp := sc.dp
	if kp.currentSize <= dp.cfg.Sizing.MinSize {
		return
	}

	newSize := int(math.Floor(float64(kp.currentSize) * dp.cfg.Scaling.ShrinkFactor))
	if newSize < dp.cfg.Sizing.MinSize {
		newSize = dp.cfg.Sizing.MinSize
	}

	toDrop := kp.currentSize - newSize
	if toDrop > len(kp.free) {
		toDrop = len(kp.free)
	}
	if toDrop <= 0 {
		return
	}

	oldSize := kp.currentSize
	for i := 0; i < toDrop; i++ {
		n := len(kp.free)
		obj := kp.free[n-1]
		kp.free[n-1] = nil
		kp.free = kp.free[:n-1]
		destroy(obj)
	}
	kp.currentSize -= toDrop
	kp.lastScale = dp.now()

	atomic.AddInt64(&dp.stats.shrunk, 1)
	dp.collector.RecordShrink(string(kp.kind), oldSize, kp.currentSize)
	dp.log.Info("pool shrunk",
		zap.String("kind", string(kp.kind)),
		zap.Int("old_size", oldSize),
		zap.Int("new_size", kp.currentSize))
}
