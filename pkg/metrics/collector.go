// Package metrics provides event collection and health scoring for Helix
// object pools. It records timestamped pool events into fixed time windows,
// computes rates and duration percentiles, and derives a coarse health
// status with operator recommendations.
//
// # Overview
//
// The metrics package provides:
//   - Bucketed event recording with bounded window retention
//   - Total and recent counts per event kind with per-second rates
//   - Operation duration percentiles (p50/p95/p99)
//   - Health classification from borrow/return imbalance and emergencies
//   - Prometheus-compatible export of all counters and gauges
//
// # Basic Usage
//
//	collector := metrics.NewCollector(cfg.Metrics)
//	collector.RecordBorrow("request")
//	collector.RecordPerformance("request", time.Since(start))
//
//	summary := collector.Summary()
//	health := collector.Health()
//
// # Failure Semantics
//
// The collector never returns errors; with no recorded data all summaries
// are zero-valued and health reports healthy.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/helixweb/helix/pkg/config"
)

// EventKind identifies the type of a recorded pool event.
type EventKind string

const (
	// EventBorrow is recorded when an object leaves a pool
	EventBorrow EventKind = "borrow"
	// EventReturn is recorded when an object comes back to a pool
	EventReturn EventKind = "return"
	// EventExpansion is recorded when a pool grows structurally
	EventExpansion EventKind = "expansion"
	// EventShrink is recorded when a pool releases capacity
	EventShrink EventKind = "shrink"
	// EventEmergency is recorded when emergency mode activates
	EventEmergency EventKind = "emergency"
	// EventPerformance carries an operation duration sample
	EventPerformance EventKind = "performance"
)

// emergencyLookback is how far back Health scans for emergency events.
const emergencyLookback = 5 * time.Minute

// Event is a single timestamped pool occurrence. Scale events carry the
// old and new sizes; performance events carry a duration.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Pool     string        `json:"pool"`
	Time     time.Time     `json:"time"`
	OldSize  int           `json:"old_size,omitempty"`
	NewSize  int           `json:"new_size,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// window is one fixed-width time bucket holding per-kind per-pool counters.
type window struct {
	counts map[EventKind]int64
	byPool map[string]map[EventKind]int64
}

func newWindow() *window {
	return &window{
		counts: make(map[EventKind]int64),
		byPool: make(map[string]map[EventKind]int64),
	}
}

func (w *window) add(e Event) {
	w.counts[e.Kind]++
	pool := w.byPool[e.Pool]
	if pool == nil {
		pool = make(map[EventKind]int64)
		w.byPool[e.Pool] = pool
	}
	pool[e.Kind]++
}

// Collector records pool events into fixed time windows and aggregates
// them into summaries and health reports. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	windowSize time.Duration
	maxWindows int
	maxSamples int
	windows    map[int64]*window
	totals     map[EventKind]int64
	durations  []time.Duration
	// emergencies keeps activation timestamps for the full health
	// lookback, which can outlive window retention.
	emergencies []time.Time
	now         func() time.Time
	memProbe    func() (float64, error)
}

// Option customizes a Collector.
type Option func(*Collector)

// WithClock overrides the collector's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithMemoryProbe overrides the system memory probe consulted by Health.
func WithMemoryProbe(probe func() (float64, error)) Option {
	return func(c *Collector) { c.memProbe = probe }
}

// NewCollector creates a collector with the given window configuration.
func NewCollector(cfg config.MetricsConfig, opts ...Option) *Collector {
	c := &Collector{
		windowSize: cfg.WindowSize,
		maxWindows: cfg.MaxWindows,
		maxSamples: cfg.MaxSamples,
		windows:    make(map[int64]*window),
		totals:     make(map[EventKind]int64),
		now:        time.Now,
		memProbe:   systemMemoryUsedPercent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record records a single event, bucketing it by timestamp and evicting
// windows older than the retention limit.
func (c *Collector) Record(e Event) {
	if e.Time.IsZero() {
		e.Time = c.now()
	}

	c.mu.Lock()
	key := c.windowKey(e.Time)
	w := c.windows[key]
	if w == nil {
		w = newWindow()
		c.windows[key] = w
		c.evictLocked(key)
	}
	w.add(e)
	c.totals[e.Kind]++

	if e.Kind == EventPerformance {
		if len(c.durations) >= c.maxSamples {
			c.durations = c.durations[1:]
		}
		c.durations = append(c.durations, e.Duration)
	}
	if e.Kind == EventEmergency {
		c.emergencies = append(c.emergencies, e.Time)
		c.pruneEmergenciesLocked(e.Time)
	}
	c.mu.Unlock()

	observeEvent(e)
}

// RecordBorrow records a borrow event for the given pool.
func (c *Collector) RecordBorrow(pool string) {
	c.Record(Event{Kind: EventBorrow, Pool: pool, Time: c.now()})
}

// RecordReturn records a return event for the given pool.
func (c *Collector) RecordReturn(pool string) {
	c.Record(Event{Kind: EventReturn, Pool: pool, Time: c.now()})
}

// RecordExpansion records a structural growth event with old and new sizes.
func (c *Collector) RecordExpansion(pool string, oldSize, newSize int) {
	c.Record(Event{Kind: EventExpansion, Pool: pool, Time: c.now(), OldSize: oldSize, NewSize: newSize})
}

// RecordShrink records a structural shrink event with old and new sizes.
func (c *Collector) RecordShrink(pool string, oldSize, newSize int) {
	c.Record(Event{Kind: EventShrink, Pool: pool, Time: c.now(), OldSize: oldSize, NewSize: newSize})
}

// RecordEmergency records an emergency activation event.
func (c *Collector) RecordEmergency(pool string) {
	c.Record(Event{Kind: EventEmergency, Pool: pool, Time: c.now()})
}

// RecordPerformance records an operation duration sample.
func (c *Collector) RecordPerformance(pool string, d time.Duration) {
	c.Record(Event{Kind: EventPerformance, Pool: pool, Time: c.now(), Duration: d})
}

// Reset discards all recorded events, totals, and duration samples.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.windows = make(map[int64]*window)
	c.totals = make(map[EventKind]int64)
	c.durations = nil
	c.emergencies = nil
	c.mu.Unlock()
}

// Summary holds aggregated event counts and operation timing statistics.
type Summary struct {
	// Totals are all-time counts per event kind since the last reset
	Totals map[EventKind]int64 `json:"totals"`
	// Recent are counts within the last window-size seconds
	Recent map[EventKind]int64 `json:"recent"`
	// Rates are recent counts divided by the window size in seconds
	Rates map[EventKind]float64 `json:"rates"`
	// ByPool are all-time counts per pool kind per event kind
	ByPool map[string]map[EventKind]int64 `json:"by_pool"`
	// Performance aggregates recorded operation durations
	Performance PerformanceStats `json:"performance"`
}

// PerformanceStats summarizes recorded operation durations.
type PerformanceStats struct {
	Count   int           `json:"count"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

// Summary aggregates all retained windows into totals, recent counts,
// per-second rates, and duration percentiles. Absent data yields
// zero-valued maps, never an error.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Totals: make(map[EventKind]int64, len(c.totals)),
		Recent: make(map[EventKind]int64),
		Rates:  make(map[EventKind]float64),
		ByPool: make(map[string]map[EventKind]int64),
	}
	for kind, n := range c.totals {
		s.Totals[kind] = n
	}

	now := c.now()
	for key, w := range c.windows {
		if c.windowEnd(key).After(now.Add(-c.windowSize)) {
			for kind, n := range w.counts {
				s.Recent[kind] += n
			}
		}
		for pool, counts := range w.byPool {
			dst := s.ByPool[pool]
			if dst == nil {
				dst = make(map[EventKind]int64)
				s.ByPool[pool] = dst
			}
			for kind, n := range counts {
				dst[kind] += n
			}
		}
	}

	seconds := c.windowSize.Seconds()
	for kind, n := range s.Recent {
		s.Rates[kind] = float64(n) / seconds
	}

	s.Performance = c.performanceLocked()
	return s
}

// performanceLocked computes duration statistics. Caller holds c.mu.
func (c *Collector) performanceLocked() PerformanceStats {
	n := len(c.durations)
	if n == 0 {
		return PerformanceStats{}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, c.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return PerformanceStats{
		Count:   n,
		Average: total / time.Duration(n),
		Min:     sorted[0],
		Max:     sorted[n-1],
		P50:     percentile(sorted, 0.50),
		P95:     percentile(sorted, 0.95),
		P99:     percentile(sorted, 0.99),
	}
}

// percentile indexes a sorted slice at ceil(n*p)-1.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// windowKey buckets a timestamp by floor(t / windowSize).
func (c *Collector) windowKey(t time.Time) int64 {
	return t.UnixNano() / c.windowSize.Nanoseconds()
}

// windowEnd is the exclusive end instant of the bucket with the given key.
func (c *Collector) windowEnd(key int64) time.Time {
	return time.Unix(0, (key+1)*c.windowSize.Nanoseconds())
}

// evictLocked drops the oldest windows until at most maxWindows remain.
// Caller holds c.mu.
func (c *Collector) evictLocked(_ int64) {
	for len(c.windows) > c.maxWindows {
		oldest := int64(0)
		first := true
		for key := range c.windows {
			if first || key < oldest {
				oldest = key
				first = false
			}
		}
		delete(c.windows, oldest)
	}
}

// recentCountLocked sums counts for a kind across windows whose bucket
// overlaps [now-lookback, now]. Only valid for lookbacks within the
// retention horizon (maxWindows * windowSize); emergencies use the
// dedicated timestamp list instead. Caller holds c.mu.
func (c *Collector) recentCountLocked(kind EventKind, lookback time.Duration) int64 {
	cutoff := c.now().Add(-lookback)
	var total int64
	for key, w := range c.windows {
		if c.windowEnd(key).After(cutoff) {
			total += w.counts[kind]
		}
	}
	return total
}

// pruneEmergenciesLocked drops activation timestamps older than the health
// lookback. Timestamps arrive in order, so a prefix cut suffices. Caller
// holds c.mu.
func (c *Collector) pruneEmergenciesLocked(now time.Time) {
	cutoff := now.Add(-emergencyLookback)
	i := 0
	for i < len(c.emergencies) && !c.emergencies[i].After(cutoff) {
		i++
	}
	c.emergencies = c.emergencies[i:]
}
