package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixweb/helix/pkg/config"
)

// testClock is a manually advanced time source.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testMetricsConfig() config.MetricsConfig {
	return config.MetricsConfig{
		WindowSize: time.Second,
		MaxWindows: 3,
		MaxSamples: 5,
	}
}

func newTestCollector(opts ...Option) (*Collector, *testClock) {
	clock := newTestClock()
	opts = append([]Option{
		WithClock(clock.Now),
		WithMemoryProbe(func() (float64, error) { return 50, nil }),
	}, opts...)
	return NewCollector(testMetricsConfig(), opts...), clock
}

func TestEmptyCollectorSummary(t *testing.T) {
	c, _ := newTestCollector()

	s := c.Summary()
	assert.Empty(t, s.Totals)
	assert.Empty(t, s.Recent)
	assert.Empty(t, s.Rates)
	assert.Empty(t, s.ByPool)
	assert.Equal(t, PerformanceStats{}, s.Performance)
}

func TestSummaryCountsAndRates(t *testing.T) {
	c, _ := newTestCollector()

	for i := 0; i < 4; i++ {
		c.RecordBorrow("request")
	}
	c.RecordReturn("request")
	c.RecordBorrow("response")

	s := c.Summary()
	assert.Equal(t, int64(5), s.Totals[EventBorrow])
	assert.Equal(t, int64(1), s.Totals[EventReturn])
	assert.Equal(t, int64(5), s.Recent[EventBorrow])
	assert.InDelta(t, 5.0, s.Rates[EventBorrow], 1e-9, "rate over a 1s window")
	assert.Equal(t, int64(4), s.ByPool["request"][EventBorrow])
	assert.Equal(t, int64(1), s.ByPool["response"][EventBorrow])
}

func TestRecentExcludesOldWindows(t *testing.T) {
	c, clock := newTestCollector()

	c.RecordBorrow("request")
	clock.Advance(2 * time.Second)
	c.RecordBorrow("request")

	s := c.Summary()
	assert.Equal(t, int64(2), s.Totals[EventBorrow], "totals never age out")
	assert.Equal(t, int64(1), s.Recent[EventBorrow], "only the current window is recent")
	assert.Equal(t, int64(2), s.ByPool["request"][EventBorrow], "per-pool counts span retained windows")
}

func TestWindowEviction(t *testing.T) {
	c, clock := newTestCollector()

	// Five distinct windows against a retention of three.
	for i := 0; i < 5; i++ {
		c.RecordBorrow("request")
		clock.Advance(time.Second)
	}

	c.mu.Lock()
	retained := len(c.windows)
	c.mu.Unlock()
	assert.Equal(t, 3, retained)

	// Totals survive eviction even though the events' windows are gone.
	assert.Equal(t, int64(5), c.Summary().Totals[EventBorrow])
}

func TestPerformancePercentiles(t *testing.T) {
	cfg := testMetricsConfig()
	cfg.MaxSamples = 200
	clock := newTestClock()
	c := NewCollector(cfg, WithClock(clock.Now))

	// 100 samples of 1ms..100ms; percentile index is ceil(n*p)-1.
	for i := 1; i <= 100; i++ {
		c.RecordPerformance("request", time.Duration(i)*time.Millisecond)
	}

	p := c.Summary().Performance
	assert.Equal(t, 100, p.Count)
	assert.Equal(t, time.Millisecond, p.Min)
	assert.Equal(t, 100*time.Millisecond, p.Max)
	assert.Equal(t, 50*time.Millisecond, p.P50)
	assert.Equal(t, 95*time.Millisecond, p.P95)
	assert.Equal(t, 99*time.Millisecond, p.P99)
	assert.Equal(t, 50500*time.Microsecond, p.Average)
}

func TestPerformanceSingleSample(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordPerformance("request", 7*time.Millisecond)

	p := c.Summary().Performance
	assert.Equal(t, 1, p.Count)
	assert.Equal(t, 7*time.Millisecond, p.P50)
	assert.Equal(t, 7*time.Millisecond, p.P99)
}

func TestDurationSamplesDropOldest(t *testing.T) {
	c, _ := newTestCollector() // MaxSamples: 5

	for i := 1; i <= 7; i++ {
		c.RecordPerformance("request", time.Duration(i)*time.Millisecond)
	}

	p := c.Summary().Performance
	assert.Equal(t, 5, p.Count)
	assert.Equal(t, 3*time.Millisecond, p.Min, "oldest samples dropped first")
	assert.Equal(t, 7*time.Millisecond, p.Max)
}

func TestScaleEventsCarrySizes(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordExpansion("request", 10, 15)
	c.RecordShrink("request", 15, 10)
	c.RecordEmergency("request")

	s := c.Summary()
	assert.Equal(t, int64(1), s.Totals[EventExpansion])
	assert.Equal(t, int64(1), s.Totals[EventShrink])
	assert.Equal(t, int64(1), s.Totals[EventEmergency])
}

func TestResetClearsEverything(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordBorrow("request")
	c.RecordPerformance("request", time.Millisecond)
	c.RecordEmergency("request")
	require.NotEmpty(t, c.Summary().Totals)

	c.Reset()

	s := c.Summary()
	assert.Empty(t, s.Totals)
	assert.Empty(t, s.ByPool)
	assert.Equal(t, PerformanceStats{}, s.Performance)
	assert.Equal(t, StatusHealthy, c.Health().Status)
}

func TestConcurrentRecording(t *testing.T) {
	c, _ := newTestCollector()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.RecordBorrow("request")
				c.RecordReturn("request")
			}
		}()
	}
	wg.Wait()

	s := c.Summary()
	assert.Equal(t, int64(800), s.Totals[EventBorrow])
	assert.Equal(t, int64(800), s.Totals[EventReturn])
}
