// Package config provides the unified configuration system for Helix pools.
// It defines a single PoolConfig structure that every pool instance uses,
// ensuring consistent tuning knobs across deployments.
//
// The configuration is organized into logical sections:
//   - Sizing: initial, minimum, maximum, and emergency capacity per kind
//   - Scaling: auto-scale thresholds, factors, and cooldown hysteresis
//   - Overflow: reserved capacity for high-priority borrowers
//   - Metrics: event window sizing and sample retention
//   - Logging: verbosity and encoding for the owning process
//
// Example usage:
//
//	cfg := config.DefaultPoolConfig()
//	cfg.Sizing.MaxSize = 800
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PoolConfig is the configuration for a DynamicPool instance. All fields
// have working defaults from DefaultPoolConfig; zero values are rejected
// by Validate to catch partially constructed configs early.
type PoolConfig struct {
	// Sizing bounds capacity per registered kind
	Sizing SizingConfig `yaml:"sizing" json:"sizing"`

	// Scaling controls automatic expansion and shrinking
	Scaling ScalingConfig `yaml:"scaling" json:"scaling"`

	// Overflow tunes behavior when a pool is exhausted
	Overflow OverflowConfig `yaml:"overflow" json:"overflow"`

	// Metrics controls event bucketing and retention
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configures the owning process logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SizingConfig bounds the number of objects a pool may hold per kind.
type SizingConfig struct {
	// InitialSize is the number of objects pre-allocated per kind at warm-up
	InitialSize int `yaml:"initial_size" json:"initial_size"`
	// MinSize is the floor below which shrinking never goes
	MinSize int `yaml:"min_size" json:"min_size"`
	// MaxSize is the normal per-kind capacity ceiling
	MaxSize int `yaml:"max_size" json:"max_size"`
	// EmergencyLimit is the raised ceiling while emergency mode is active
	EmergencyLimit int `yaml:"emergency_limit" json:"emergency_limit"`
}

// ScalingConfig controls when and how pools grow and shrink.
type ScalingConfig struct {
	// AutoScale enables capacity checks on every borrow and return
	AutoScale bool `yaml:"auto_scale" json:"auto_scale"`
	// ScaleThreshold is the usage ratio at or above which a pool expands
	ScaleThreshold float64 `yaml:"scale_threshold" json:"scale_threshold"`
	// ScaleFactor multiplies current size on expansion (rounded up)
	ScaleFactor float64 `yaml:"scale_factor" json:"scale_factor"`
	// CooldownPeriod is the minimum time between structural changes per kind
	CooldownPeriod time.Duration `yaml:"cooldown_period" json:"cooldown_period"`
	// ShrinkThreshold is the usage ratio at or below which a pool shrinks
	ShrinkThreshold float64 `yaml:"shrink_threshold" json:"shrink_threshold"`
	// ShrinkFactor multiplies current size on shrink (rounded down)
	ShrinkFactor float64 `yaml:"shrink_factor" json:"shrink_factor"`
	// EmergencyDecay is how long every pool must stay below ShrinkThreshold
	// before emergency mode clears automatically
	EmergencyDecay time.Duration `yaml:"emergency_decay" json:"emergency_decay"`
}

// OverflowConfig tunes the exhaustion strategies.
type OverflowConfig struct {
	// PriorityReserve is the number of objects pre-allocated per kind and
	// held aside for high-priority borrowers (0 disables the reserve)
	PriorityReserve int `yaml:"priority_reserve" json:"priority_reserve"`
}

// MetricsConfig controls event collection in the metrics package.
type MetricsConfig struct {
	// WindowSize is the width of each event bucket
	WindowSize time.Duration `yaml:"window_size" json:"window_size"`
	// MaxWindows is how many recent buckets are retained
	MaxWindows int `yaml:"max_windows" json:"max_windows"`
	// MaxSamples caps retained operation duration samples
	MaxSamples int `yaml:"max_samples" json:"max_samples"`
}

// LoggingConfig configures structured logging for the owning process.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding selects the output format (json or console)
	Encoding string `yaml:"encoding" json:"encoding"`
}

// UnmarshalYAML decodes the scaling section, accepting duration fields as
// Go duration strings ("60s", "5m") or integer nanoseconds. Absent keys
// keep their current values so partial files layer over defaults.
func (sc *ScalingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		AutoScale       *bool    `yaml:"auto_scale"`
		ScaleThreshold  *float64 `yaml:"scale_threshold"`
		ScaleFactor     *float64 `yaml:"scale_factor"`
		CooldownPeriod  *string  `yaml:"cooldown_period"`
		ShrinkThreshold *float64 `yaml:"shrink_threshold"`
		ShrinkFactor    *float64 `yaml:"shrink_factor"`
		EmergencyDecay  *string  `yaml:"emergency_decay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.AutoScale != nil {
		sc.AutoScale = *raw.AutoScale
	}
	if raw.ScaleThreshold != nil {
		sc.ScaleThreshold = *raw.ScaleThreshold
	}
	if raw.ScaleFactor != nil {
		sc.ScaleFactor = *raw.ScaleFactor
	}
	if raw.ShrinkThreshold != nil {
		sc.ShrinkThreshold = *raw.ShrinkThreshold
	}
	if raw.ShrinkFactor != nil {
		sc.ShrinkFactor = *raw.ShrinkFactor
	}
	if raw.CooldownPeriod != nil {
		d, err := parseDuration(*raw.CooldownPeriod)
		if err != nil {
			return fmt.Errorf("cooldown_period: %w", err)
		}
		sc.CooldownPeriod = d
	}
	if raw.EmergencyDecay != nil {
		d, err := parseDuration(*raw.EmergencyDecay)
		if err != nil {
			return fmt.Errorf("emergency_decay: %w", err)
		}
		sc.EmergencyDecay = d
	}
	return nil
}

// UnmarshalYAML decodes the metrics section with the same duration
// handling as the scaling section.
func (mc *MetricsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		WindowSize *string `yaml:"window_size"`
		MaxWindows *int    `yaml:"max_windows"`
		MaxSamples *int    `yaml:"max_samples"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.WindowSize != nil {
		d, err := parseDuration(*raw.WindowSize)
		if err != nil {
			return fmt.Errorf("window_size: %w", err)
		}
		mc.WindowSize = d
	}
	if raw.MaxWindows != nil {
		mc.MaxWindows = *raw.MaxWindows
	}
	if raw.MaxSamples != nil {
		mc.MaxSamples = *raw.MaxSamples
	}
	return nil
}

// parseDuration accepts "60s"-style strings or integer nanoseconds.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(ns), nil
}

// DefaultPoolConfig returns a PoolConfig with production-ready defaults.
// Specific deployments override fields as needed before Validate.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Sizing: SizingConfig{
			InitialSize:    50,
			MinSize:        10,
			MaxSize:        500,
			EmergencyLimit: 1000,
		},
		Scaling: ScalingConfig{
			AutoScale:       true,
			ScaleThreshold:  0.8,
			ScaleFactor:     1.5,
			CooldownPeriod:  60 * time.Second,
			ShrinkThreshold: 0.2,
			ShrinkFactor:    0.7,
			EmergencyDecay:  5 * time.Minute,
		},
		Overflow: OverflowConfig{
			PriorityReserve: 0,
		},
		Metrics: MetricsConfig{
			WindowSize: 60 * time.Second,
			MaxWindows: 10,
			MaxSamples: 10000,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate validates the configuration for correctness. It checks required
// fields and ensures values are within acceptable ranges. Callers should
// validate after loading configuration to catch errors early.
func (pc *PoolConfig) Validate() error {
	s := pc.Sizing
	if s.MinSize < 0 {
		return fmt.Errorf("min_size cannot be negative")
	}
	if s.MaxSize < s.MinSize {
		return fmt.Errorf("max_size must be at least min_size")
	}
	if s.InitialSize < s.MinSize || s.InitialSize > s.MaxSize {
		return fmt.Errorf("initial_size must be between min_size and max_size")
	}
	if s.EmergencyLimit < s.MaxSize {
		return fmt.Errorf("emergency_limit must be at least max_size")
	}

	sc := pc.Scaling
	if sc.ScaleThreshold <= 0 || sc.ScaleThreshold > 1 {
		return fmt.Errorf("scale_threshold must be in (0, 1]")
	}
	if sc.ScaleFactor <= 1 {
		return fmt.Errorf("scale_factor must be greater than 1")
	}
	if sc.ShrinkThreshold < 0 || sc.ShrinkThreshold >= sc.ScaleThreshold {
		return fmt.Errorf("shrink_threshold must be non-negative and below scale_threshold")
	}
	if sc.ShrinkFactor <= 0 || sc.ShrinkFactor >= 1 {
		return fmt.Errorf("shrink_factor must be in (0, 1)")
	}
	if sc.CooldownPeriod < 0 {
		return fmt.Errorf("cooldown_period cannot be negative")
	}
	if sc.EmergencyDecay <= 0 {
		return fmt.Errorf("emergency_decay must be positive")
	}

	if pc.Overflow.PriorityReserve < 0 {
		return fmt.Errorf("priority_reserve cannot be negative")
	}

	m := pc.Metrics
	if m.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	if m.MaxWindows <= 0 {
		return fmt.Errorf("max_windows must be positive")
	}
	if m.MaxSamples <= 0 {
		return fmt.Errorf("max_samples must be positive")
	}

	return nil
}
