package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load loads a configuration from a YAML file into config. Values of the
// form ${VAR_NAME} are substituted from the environment before parsing.
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// Save saves a configuration to a YAML file.
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadPool builds a PoolConfig from defaults, an optional YAML file, and
// HELIX_* environment overrides, in that order of precedence. Pass an empty
// path to skip the file layer.
//
// Recognized environment overrides mirror the YAML keys, for example
// HELIX_SIZING_MAX_SIZE=800 or HELIX_SCALING_AUTO_SCALE=false.
func LoadPool(filePath string) (*PoolConfig, error) {
	cfg := DefaultPoolConfig()

	if filePath != "" {
		if err := Load(filePath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides layers HELIX_* environment variables over cfg.
func applyEnvOverrides(cfg *PoolConfig) {
	v := viper.New()
	v.SetEnvPrefix("HELIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setFloat := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	setInt("sizing.initial_size", &cfg.Sizing.InitialSize)
	setInt("sizing.min_size", &cfg.Sizing.MinSize)
	setInt("sizing.max_size", &cfg.Sizing.MaxSize)
	setInt("sizing.emergency_limit", &cfg.Sizing.EmergencyLimit)

	setBool("scaling.auto_scale", &cfg.Scaling.AutoScale)
	setFloat("scaling.scale_threshold", &cfg.Scaling.ScaleThreshold)
	setFloat("scaling.scale_factor", &cfg.Scaling.ScaleFactor)
	setDuration("scaling.cooldown_period", &cfg.Scaling.CooldownPeriod)
	setFloat("scaling.shrink_threshold", &cfg.Scaling.ShrinkThreshold)
	setFloat("scaling.shrink_factor", &cfg.Scaling.ShrinkFactor)
	setDuration("scaling.emergency_decay", &cfg.Scaling.EmergencyDecay)

	setInt("overflow.priority_reserve", &cfg.Overflow.PriorityReserve)

	setDuration("metrics.window_size", &cfg.Metrics.WindowSize)
	setInt("metrics.max_windows", &cfg.Metrics.MaxWindows)
	setInt("metrics.max_samples", &cfg.Metrics.MaxSamples)

	setString("logging.level", &cfg.Logging.Level)
	setString("logging.encoding", &cfg.Logging.Encoding)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
