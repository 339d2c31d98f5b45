package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandAtScaleThreshold(t *testing.T) {
	cfg := testConfig()
	dp, _ := newTestPool(t, cfg)

	// The ninth borrow sees usage 8/10 = 0.8 and triggers expansion to
	// ceil(10 * 1.5) = 15 before taking its object.
	for i := 0; i < 9; i++ {
		_, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
	}

	snap := dp.Stats()
	ks := snap.Kinds[string(KindRequest)]
	assert.Equal(t, 15, ks.CurrentSize)
	assert.Equal(t, 6, ks.FreeObjects)
	assert.Equal(t, int64(1), snap.Counters.Expanded)
	assert.Equal(t, int64(0), snap.Counters.OverflowCreated)
	assert.False(t, ks.LastScaleTime.IsZero())
}

func TestExpansionCapsAtMaxSize(t *testing.T) {
	cfg := testConfig()
	clock := newFakeClock()
	cfg.Scaling.CooldownPeriod = time.Minute
	dp, _ := newTestPool(t, cfg, WithClock(clock.Now))

	for i := 0; i < 14; i++ {
		_, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
	}
	assert.Equal(t, 15, dp.Stats().Kinds[string(KindRequest)].CurrentSize)

	// ceil(15 * 1.5) = 23 exceeds max_size and is clamped to 20.
	clock.Advance(61 * time.Second)
	_, err := dp.Borrow(KindRequest)
	require.NoError(t, err)

	snap := dp.Stats()
	assert.Equal(t, 20, snap.Kinds[string(KindRequest)].CurrentSize)
	assert.Equal(t, int64(2), snap.Counters.Expanded)
}

func TestShrinkAtShrinkThreshold(t *testing.T) {
	cfg := testConfig()
	dp, factory := newTestPool(t, cfg)

	obj, err := dp.Borrow(KindRequest)
	require.NoError(t, err)
	require.NoError(t, dp.Return(KindRequest, obj))

	// The return sees usage 0 and shrinks to floor(10 * 0.7) = 7.
	snap := dp.Stats()
	ks := snap.Kinds[string(KindRequest)]
	assert.Equal(t, 7, ks.CurrentSize)
	assert.Equal(t, 7, ks.FreeObjects)
	assert.Equal(t, int64(1), snap.Counters.Shrunk)
	assert.Equal(t, int64(3), factory.destroyed)
}

func TestShrinkStopsAtMinSize(t *testing.T) {
	cfg := testConfig()
	dp, _ := newTestPool(t, cfg)

	// 10 -> 7 -> 5 (clamped to min_size); a third pass is a no-op.
	for i := 0; i < 3; i++ {
		obj, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
		require.NoError(t, dp.Return(KindRequest, obj))
	}

	snap := dp.Stats()
	assert.Equal(t, cfg.Sizing.MinSize, snap.Kinds[string(KindRequest)].CurrentSize)
	assert.Equal(t, int64(2), snap.Counters.Shrunk)
}

func TestCooldownBlocksRepeatedScaling(t *testing.T) {
	cfg := testConfig()
	cfg.Scaling.CooldownPeriod = time.Minute
	clock := newFakeClock()
	dp, _ := newTestPool(t, cfg, WithClock(clock.Now))

	for i := 0; i < 9; i++ {
		_, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), dp.Stats().Counters.Expanded)

	// Usage crosses the threshold again, but the cooldown holds.
	for i := 0; i < 5; i++ {
		_, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
	}
	snap := dp.Stats()
	assert.Equal(t, 15, snap.Kinds[string(KindRequest)].CurrentSize)
	assert.Equal(t, int64(1), snap.Counters.Expanded)

	clock.Advance(61 * time.Second)
	_, err := dp.Borrow(KindRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dp.Stats().Counters.Expanded)
}

func TestAutoScaleOffDisablesScaling(t *testing.T) {
	cfg := testConfig()
	cfg.Scaling.AutoScale = false
	dp, _ := newTestPool(t, cfg)

	// Drain the whole pool; no expansion fires, so the last borrow past
	// capacity goes through the overflow path instead.
	for i := 0; i < 10; i++ {
		_, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
	}
	obj, err := dp.Borrow(KindRequest)
	require.NoError(t, err)
	require.NotNil(t, obj)

	snap := dp.Stats()
	assert.Equal(t, int64(0), snap.Counters.Expanded)
	assert.Equal(t, int64(1), snap.Counters.OverflowCreated)

	// Returning everything leaves the size untouched with shrinking off.
	require.NoError(t, dp.Return(KindRequest, obj))
	assert.Equal(t, int64(0), dp.Stats().Counters.Shrunk)
}
