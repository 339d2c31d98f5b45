package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixweb/helix/pkg/config"
)

func TestGovernorActivatesOncePerEpisode(t *testing.T) {
	g := NewEmergencyGovernor(5 * time.Minute)
	now := time.Now()

	assert.False(t, g.Active())
	assert.True(t, g.Activate(now), "first activation reports the transition")
	assert.True(t, g.Active())
	assert.False(t, g.Activate(now), "repeated activation is not a transition")

	g.Deactivate()
	assert.False(t, g.Active())
	assert.True(t, g.Activate(now), "a new episode counts again")
}

func TestGovernorEffectiveMax(t *testing.T) {
	g := NewEmergencyGovernor(5 * time.Minute)

	assert.Equal(t, 500, g.EffectiveMax(500, 1000))
	g.Activate(time.Now())
	assert.Equal(t, 1000, g.EffectiveMax(500, 1000))
	g.Deactivate()
	assert.Equal(t, 500, g.EffectiveMax(500, 1000))
}

func TestGovernorDecayRequiresSustainedCalm(t *testing.T) {
	g := NewEmergencyGovernor(5 * time.Minute)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.Activate(t0)

	// Calm starts counting from the first observation below the threshold.
	assert.False(t, g.ObserveUsage(t0, 0.1, 0.2))
	assert.False(t, g.ObserveUsage(t0.Add(4*time.Minute), 0.1, 0.2))

	// A busy pool restarts the calm period.
	assert.False(t, g.ObserveUsage(t0.Add(4*time.Minute+time.Second), 0.9, 0.2))
	assert.False(t, g.ObserveUsage(t0.Add(5*time.Minute), 0.1, 0.2))
	assert.False(t, g.ObserveUsage(t0.Add(9*time.Minute), 0.1, 0.2))

	// Five calm minutes since the restart clear the emergency.
	assert.True(t, g.ObserveUsage(t0.Add(10*time.Minute+time.Second), 0.1, 0.2))
	assert.False(t, g.Active())

	// Further observations in the Normal state are no-ops.
	assert.False(t, g.ObserveUsage(t0.Add(11*time.Minute), 0.1, 0.2))
}

// emergencyConfig is small enough to drive a pool to its ceiling with a
// handful of borrows.
func emergencyConfig() *config.PoolConfig {
	cfg := config.DefaultPoolConfig()
	cfg.Sizing = config.SizingConfig{
		InitialSize:    2,
		MinSize:        1,
		MaxSize:        4,
		EmergencyLimit: 8,
	}
	cfg.Scaling.ScaleFactor = 2.0
	cfg.Scaling.CooldownPeriod = 0
	return cfg
}

func TestEmergencyActivatesAtCeiling(t *testing.T) {
	clock := newFakeClock()
	dp, _ := newTestPool(t, emergencyConfig(), WithClock(clock.Now))

	// Borrows 1-4 drain the pool and expand it to max_size; the fifth
	// finds the pool at its ceiling under threshold pressure.
	objs := make([]Object, 0, 5)
	for i := 0; i < 5; i++ {
		obj, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
		objs = append(objs, obj)
	}

	snap := dp.Stats()
	assert.True(t, snap.InEmergency)
	assert.Equal(t, int64(1), snap.Counters.EmergencyActivations)
	assert.Equal(t, int64(1), snap.Counters.OverflowCreated)
	assert.Equal(t, 5, snap.Kinds[string(KindRequest)].CurrentSize,
		"elastic expansion under the raised ceiling")

	// Sustained pressure while already in emergency never counts twice.
	obj, err := dp.Borrow(KindRequest)
	require.NoError(t, err)
	objs = append(objs, obj)
	assert.Equal(t, int64(1), dp.Stats().Counters.EmergencyActivations)

	for _, o := range objs {
		require.NoError(t, dp.Return(KindRequest, o))
	}
}

func TestEmergencyClearsAfterDecay(t *testing.T) {
	clock := newFakeClock()
	cfg := emergencyConfig()
	dp, _ := newTestPool(t, cfg, WithClock(clock.Now))

	objs := make([]Object, 0, 5)
	for i := 0; i < 5; i++ {
		obj, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
		objs = append(objs, obj)
	}
	require.True(t, dp.InEmergency())

	for _, o := range objs {
		require.NoError(t, dp.Return(KindRequest, o))
	}
	assert.True(t, dp.InEmergency(), "decay needs sustained calm, not just low usage")

	clock.Advance(cfg.Scaling.EmergencyDecay + time.Second)

	// The next quiet cycle observes the calm period as expired.
	obj, err := dp.Borrow(KindRequest)
	require.NoError(t, err)
	require.NoError(t, dp.Return(KindRequest, obj))

	assert.False(t, dp.InEmergency())
}

func TestEmergencyClearedByReset(t *testing.T) {
	dp, _ := newTestPool(t, emergencyConfig())

	for i := 0; i < 5; i++ {
		_, err := dp.Borrow(KindRequest)
		require.NoError(t, err)
	}
	require.True(t, dp.InEmergency())

	dp.Reset()
	assert.False(t, dp.InEmergency())
	assert.Equal(t, int64(0), dp.Stats().Counters.EmergencyActivations)
}
