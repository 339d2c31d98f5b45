// Package pool provides self-scaling object pooling for Helix. A
// DynamicPool amortizes allocation cost for reusable HTTP objects
// (requests, responses, URIs, streams, or any application-defined kind),
// adapts capacity to load, absorbs exhaustion through an ordered strategy
// chain, and exposes health metrics.
//
// The package provides:
//   - A per-kind LIFO free list with warm-up pre-allocation
//   - Threshold-driven expansion and shrinking with cooldown hysteresis
//   - An overflow strategy chain so Borrow never blocks or fails under load
//   - A process-wide emergency governor that raises the capacity ceiling
//     under sustained demand
//   - Counters, per-kind scaling state, and a metrics summary via Stats
//
// Example usage:
//
//	registry := pool.NewRegistry()
//	registry.Register(pool.KindRequest, pool.FactoryFunc(func() pool.Object {
//	    return httpobject.NewRequest()
//	}))
//
//	p, err := pool.New(registry, config.DefaultPoolConfig())
//	if err != nil {
//	    return err
//	}
//
//	obj, err := p.Borrow(pool.KindRequest)
//	if err != nil {
//	    return err
//	}
//	defer p.Return(pool.KindRequest, obj)
package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/helixweb/helix/pkg/config"
	"github.com/helixweb/helix/pkg/helixerrors"
	"github.com/helixweb/helix/pkg/metrics"
)

// DynamicPool is the pooling façade. It owns one free list per registered
// kind and coordinates the scaling controller, overflow handler, and
// emergency governor. A DynamicPool is a value owned by the application
// or server instance, not a global singleton; Borrow and Return are safe
// for concurrent use.
type DynamicPool struct {
	cfg       *config.PoolConfig
	pools     map[Kind]*kindPool
	governor  *EmergencyGovernor
	scaler    *scalingController
	overflow  *overflowHandler
	collector *metrics.Collector
	log       *zap.Logger
	now       func() time.Time

	stats struct {
		created              int64
		borrowed             int64
		returned             int64
		expanded             int64
		shrunk               int64
		overflowCreated      int64
		emergencyActivations int64
	}

	resetMu sync.Mutex // serializes Reset
}

// kindPool holds the mutable per-kind state. All fields after mu are
// guarded by it. The free list is LIFO so recently used objects, still
// warm in cache, are handed out first.
type kindPool struct {
	kind    Kind
	factory Factory

	mu          sync.Mutex
	free        []Object
	reserve     []Object
	transient   map[Object]struct{}
	currentSize int
	peakUsage   float64
	lastScale   time.Time
}

// usageLocked is the fraction of capacity currently borrowed.
// Caller holds kp.mu.
func (kp *kindPool) usageLocked() float64 {
	if kp.currentSize == 0 {
		return 0
	}
	return 1 - float64(len(kp.free))/float64(kp.currentSize)
}

// notePeakLocked records a new usage high-water mark. Caller holds kp.mu.
func (kp *kindPool) notePeakLocked() {
	if u := kp.usageLocked(); u > kp.peakUsage {
		kp.peakUsage = u
	}
}

// Option customizes a DynamicPool.
type Option func(*DynamicPool)

// WithLogger sets the pool's logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(dp *DynamicPool) { dp.log = log }
}

// WithClock overrides the pool's monotonic time source. Used in tests to
// drive cooldown and decay timers deterministically.
func WithClock(now func() time.Time) Option {
	return func(dp *DynamicPool) { dp.now = now }
}

// WithCollector sets the metrics collector. Defaults to a collector built
// from the configuration's metrics section.
func WithCollector(c *metrics.Collector) Option {
	return func(dp *DynamicPool) { dp.collector = c }
}

// New constructs a DynamicPool over the given registry and warms up every
// registered kind with initial_size objects (plus the configured priority
// reserve). The registry must contain at least one kind.
func New(registry *Registry, cfg *config.PoolConfig, opts ...Option) (*DynamicPool, error) {
	if registry == nil {
		return nil, helixerrors.New(helixerrors.ErrorTypeConfig, "nil registry")
	}
	if cfg == nil {
		cfg = config.DefaultPoolConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, helixerrors.Wrap(err, helixerrors.ErrorTypeValidation, "invalid pool configuration")
	}

	kinds := registry.Kinds()
	if len(kinds) == 0 {
		return nil, helixerrors.New(helixerrors.ErrorTypeConfig, "registry has no kinds")
	}

	dp := &DynamicPool{
		cfg:      cfg,
		pools:    make(map[Kind]*kindPool, len(kinds)),
		governor: NewEmergencyGovernor(cfg.Scaling.EmergencyDecay),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(dp)
	}
	if dp.collector == nil {
		dp.collector = metrics.NewCollector(cfg.Metrics)
	}
	dp.scaler = &scalingController{dp: dp}
	dp.overflow = newOverflowHandler(dp)

	for _, kind := range kinds {
		factory, _ := registry.Factory(kind)
		kp := &kindPool{
			kind:      kind,
			factory:   factory,
			transient: make(map[Object]struct{}),
		}
		dp.warmUp(kp)
		dp.pools[kind] = kp
	}

	return dp, nil
}

// warmUp pre-allocates the initial free list and priority reserve for one
// kind. Called during construction and Reset, before the pool is visible
// to other goroutines or with kp.mu held by the caller.
func (dp *DynamicPool) warmUp(kp *kindPool) {
	initial := dp.cfg.Sizing.InitialSize
	kp.free = make([]Object, 0, initial)
	for i := 0; i < initial; i++ {
		kp.free = append(kp.free, kp.factory.New())
		atomic.AddInt64(&dp.stats.created, 1)
	}
	kp.currentSize = initial

	reserve := dp.cfg.Overflow.PriorityReserve
	kp.reserve = kp.reserve[:0]
	for i := 0; i < reserve; i++ {
		kp.reserve = append(kp.reserve, kp.factory.New())
		atomic.AddInt64(&dp.stats.created, 1)
	}

	kp.peakUsage = 0
	kp.lastScale = time.Time{}
	dp.collector.SetPoolGauges(string(kp.kind), kp.currentSize, len(kp.free), 0)
}

// Borrow takes an object of the given kind. It never fails under load:
// an exhausted pool is served through the overflow strategy chain. The
// only error is an unregistered kind.
func (dp *DynamicPool) Borrow(kind Kind) (Object, error) {
	return dp.BorrowWith(kind, BorrowParams{})
}

// BorrowWith is Borrow with caller-supplied parameters. Values are passed
// to the object's Reset hook; Priority admits the borrow to reserved
// capacity when the pool is exhausted.
func (dp *DynamicPool) BorrowWith(kind Kind, params BorrowParams) (Object, error) {
	kp, ok := dp.pools[kind]
	if !ok {
		return nil, helixerrors.New(helixerrors.ErrorTypeConfig, "unknown pool kind").
			WithDetail("kind", string(kind))
	}
	start := dp.now()

	kp.mu.Lock()
	if dp.cfg.Scaling.AutoScale {
		dp.scaler.checkAndScale(kp)
	}

	var obj Object
	overflowed := false
	if n := len(kp.free); n > 0 {
		obj = kp.free[n-1]
		kp.free[n-1] = nil
		kp.free = kp.free[:n-1]
	} else {
		obj = dp.overflow.acquire(kp, params)
		overflowed = true
	}
	kp.notePeakLocked()
	size, free, usage := kp.currentSize, len(kp.free), kp.usageLocked()
	kp.mu.Unlock()

	if r, ok := obj.(Resettable); ok {
		r.Reset(params.Values)
	}

	atomic.AddInt64(&dp.stats.borrowed, 1)
	if overflowed {
		atomic.AddInt64(&dp.stats.overflowCreated, 1)
	}
	dp.collector.RecordBorrow(string(kind))
	dp.collector.RecordPerformance(string(kind), dp.now().Sub(start))
	dp.collector.SetPoolGauges(string(kind), size, free, usage)
	return obj, nil
}

// Return gives an object back to its pool. The object's Clean hook runs
// first; the object re-enters the free list if there is capacity under
// the effective ceiling, and is destroyed otherwise. Overflow fallback
// objects and objects borrowed before an administrative reset are always
// destroyed. Returns an error only for an unregistered kind or a nil
// object.
func (dp *DynamicPool) Return(kind Kind, obj Object) error {
	kp, ok := dp.pools[kind]
	if !ok {
		return helixerrors.New(helixerrors.ErrorTypeConfig, "unknown pool kind").
			WithDetail("kind", string(kind))
	}
	if obj == nil {
		return helixerrors.New(helixerrors.ErrorTypeValidation, "cannot return nil object").
			WithDetail("kind", string(kind))
	}

	if c, ok := obj.(Cleanable); ok {
		c.Clean()
	}

	effectiveMax := dp.governor.EffectiveMax(dp.cfg.Sizing.MaxSize, dp.cfg.Sizing.EmergencyLimit)

	kp.mu.Lock()
	// len(free) < currentSize guards the free-list invariant: every
	// legitimately outstanding object is counted in currentSize, so a
	// return that would make the free list outgrow the pool (a double
	// return, or an object borrowed before a reset) is destroyed.
	if _, isTransient := kp.transient[obj]; isTransient {
		delete(kp.transient, obj)
		destroy(obj)
	} else if len(kp.free) < effectiveMax && len(kp.free) < kp.currentSize {
		kp.free = append(kp.free, obj)
	} else {
		destroy(obj)
	}

	if dp.cfg.Scaling.AutoScale {
		dp.scaler.checkAndShrink(kp)
	}
	size, free, usage := kp.currentSize, len(kp.free), kp.usageLocked()
	kp.mu.Unlock()

	atomic.AddInt64(&dp.stats.returned, 1)
	dp.collector.RecordReturn(string(kind))
	dp.collector.SetPoolGauges(string(kind), size, free, usage)

	if dp.governor.ObserveUsage(dp.now(), usage, dp.cfg.Scaling.ShrinkThreshold) {
		dp.collector.SetEmergencyGauge(false)
		dp.log.Info("emergency mode cleared",
			zap.Duration("decay", dp.cfg.Scaling.EmergencyDecay))
	}
	return nil
}

// Reset destroys every pooled object, clears all counters and recorded
// metrics, drops emergency mode, and re-runs warm-up. Administrative and
// test use only; not intended for the request hot path.
func (dp *DynamicPool) Reset() {
	dp.resetMu.Lock()
	defer dp.resetMu.Unlock()

	atomic.StoreInt64(&dp.stats.created, 0)
	atomic.StoreInt64(&dp.stats.borrowed, 0)
	atomic.StoreInt64(&dp.stats.returned, 0)
	atomic.StoreInt64(&dp.stats.expanded, 0)
	atomic.StoreInt64(&dp.stats.shrunk, 0)
	atomic.StoreInt64(&dp.stats.overflowCreated, 0)
	atomic.StoreInt64(&dp.stats.emergencyActivations, 0)

	dp.governor.Deactivate()
	dp.collector.Reset()
	dp.collector.SetEmergencyGauge(false)

	// Teardown and warm-up happen under one critical section per kind so
	// a concurrent borrow never observes a torn-down pool. Borrowed
	// objects are with callers; forget overflow markers and let the
	// free-list invariant check in Return destroy late returns.
	for _, kp := range dp.pools {
		kp.mu.Lock()
		for _, obj := range kp.free {
			destroy(obj)
		}
		for _, obj := range kp.reserve {
			destroy(obj)
		}
		kp.transient = make(map[Object]struct{})
		kp.free = kp.free[:0]
		kp.currentSize = 0
		dp.warmUp(kp)
		kp.mu.Unlock()
	}

	dp.log.Info("pool reset complete", zap.Int("kinds", len(dp.pools)))
}

// Kinds returns the kinds this pool serves, in stable order.
func (dp *DynamicPool) Kinds() []Kind {
	kinds := make([]Kind, 0, len(dp.pools))
	for k := range dp.pools {
		kinds = append(kinds, k)
	}
	sortKinds(kinds)
	return kinds
}

// InEmergency reports whether the emergency governor is active.
func (dp *DynamicPool) InEmergency() bool {
	return dp.governor.Active()
}
