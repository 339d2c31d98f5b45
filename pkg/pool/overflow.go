package pool

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// overflowHandler resolves borrows that find an empty free list. It tries
// its strategies in fixed order and the first applicable one wins; the
// final strategy always applies, so an exhausted pool still yields a
// usable object rather than blocking or failing.
type overflowHandler struct {
	dp         *DynamicPool
	strategies []overflowStrategy
}

// overflowStrategy is one step in the exhaustion chain. acquire is called
// with the kind pool's mutex held and only after applicable returned true.
type overflowStrategy interface {
	name() string
	applicable(dp *DynamicPool, kp *kindPool, params BorrowParams) bool
	acquire(dp *DynamicPool, kp *kindPool, params BorrowParams) Object
}

func newOverflowHandler(dp *DynamicPool) *overflowHandler {
	return &overflowHandler{
		dp: dp,
		strategies: []overflowStrategy{
			elasticExpansion{},
			priorityQueuing{},
			gracefulFallback{},
		},
	}
}

// acquire runs the strategy chain. Caller holds kp.mu.
func (h *overflowHandler) acquire(kp *kindPool, params BorrowParams) Object {
	for _, s := range h.strategies {
		if !s.applicable(h.dp, kp, params) {
			continue
		}
		obj := s.acquire(h.dp, kp, params)
		h.dp.log.Debug("overflow resolved",
			zap.String("kind", string(kp.kind)),
			zap.String("strategy", s.name()))
		return obj
	}
	// Unreachable: gracefulFallback is always applicable.
	return kp.factory.New()
}

// elasticExpansion grows the pool by a single unit when there is headroom
// under the effective ceiling, bypassing the scale-threshold check. The
// new object is counted in current_size and pools normally on return.
type elasticExpansion struct{}

func (elasticExpansion) name() string { return "elastic_expansion" }

func (elasticExpansion) applicable(dp *DynamicPool, kp *kindPool, _ BorrowParams) bool {
	return kp.currentSize < dp.governor.EffectiveMax(dp.cfg.Sizing.MaxSize, dp.cfg.Sizing.EmergencyLimit)
}

func (elasticExpansion) acquire(dp *DynamicPool, kp *kindPool, _ BorrowParams) Object {
	kp.currentSize++
	atomic.AddInt64(&dp.stats.created, 1)
	return kp.factory.New()
}

// priorityQueuing serves high-priority borrows from the pre-allocated
// reserve. Reserve objects enter normal circulation once handed out and
// the reserve refills only on administrative reset.
type priorityQueuing struct{}

func (priorityQueuing) name() string { return "priority_queuing" }

func (priorityQueuing) applicable(_ *DynamicPool, kp *kindPool, params BorrowParams) bool {
	return params.Priority && len(kp.reserve) > 0
}

func (priorityQueuing) acquire(_ *DynamicPool, kp *kindPool, _ BorrowParams) Object {
	n := len(kp.reserve)
	obj := kp.reserve[n-1]
	kp.reserve[n-1] = nil
	kp.reserve = kp.reserve[:n-1]
	kp.currentSize++
	return obj
}

// gracefulFallback constructs a brand-new object outside the pool's
// accounting. The object is marked transient and destroyed unconditionally
// on return instead of re-entering the free list.
type gracefulFallback struct{}

func (gracefulFallback) name() string { return "graceful_fallback" }

func (gracefulFallback) applicable(_ *DynamicPool, _ *kindPool, _ BorrowParams) bool {
	return true
}

func (gracefulFallback) acquire(dp *DynamicPool, kp *kindPool, _ BorrowParams) Object {
	obj := kp.factory.New()
	kp.transient[obj] = struct{}{}
	atomic.AddInt64(&dp.stats.created, 1)
	return obj
}
