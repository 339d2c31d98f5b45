package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/helixweb/helix/internal/workload"
	"github.com/helixweb/helix/pkg/config"
	"github.com/helixweb/helix/pkg/httpobject"
	"github.com/helixweb/helix/pkg/logger"
	"github.com/helixweb/helix/pkg/observability"
	"github.com/helixweb/helix/pkg/pool"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "helix",
		Short: "Helix - self-scaling object pool runtime",
		Long: `Helix manages pools of reusable HTTP objects that grow and shrink with load.
This CLI warms up a pool from a configuration file, drives it with synthetic
traffic, and reports scaling behavior, counters, and health.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Helix v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "kinds",
		Short: "List the built-in pool kinds",
		Run: func(cmd *cobra.Command, args []string) {
			registry := pool.NewRegistry()
			if err := httpobject.Register(registry); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println("Built-in pool kinds:")
			for _, kind := range registry.Kinds() {
				fmt.Printf("  - %s\n", kind)
			}
		},
	})

	var configFile string
	var workers, iterations int
	var duration, holdTime time.Duration
	var priorityRatio float64
	var logLevel, metricsListen string
	var enableTracing bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a pool with synthetic traffic and report its behavior",
		Long: `Run warms up a pool of the four built-in HTTP object kinds, drives it with
concurrent borrow/return traffic, and prints a JSON snapshot of counters,
per-kind scaling state, metrics, and health when the run finishes.

Example:
  helix run --workers 16 --duration 30s --priority-ratio 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(configFile, workload.Config{
				Workers:       workers,
				Iterations:    iterations,
				Duration:      duration,
				HoldTime:      holdTime,
				PriorityRatio: priorityRatio,
			}, logLevel, metricsListen, enableTracing)
		},
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to pool configuration YAML file (optional; defaults apply)")
	runCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of concurrent borrowers")
	runCmd.Flags().IntVar(&iterations, "iterations", 0, "Borrow/return cycles per worker (0 = run for --duration)")
	runCmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "How long to run when --iterations is 0")
	runCmd.Flags().DurationVar(&holdTime, "hold", time.Millisecond, "How long each worker holds a borrowed object")
	runCmd.Flags().Float64Var(&priorityRatio, "priority-ratio", 0, "Fraction of borrows flagged as priority (0.0-1.0)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address to serve Prometheus metrics on (e.g. :9090); empty disables")
	runCmd.Flags().BoolVar(&enableTracing, "trace", false, "Emit OpenTelemetry spans for the run")
	root.AddCommand(runCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Warm up a pool from configuration and print its snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStats(configFile)
		},
	}
	statsCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to pool configuration YAML file (optional; defaults apply)")
	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadPoolConfig reads the pool configuration, falling back to defaults
// when no file is given.
func loadPoolConfig(path string) (*config.PoolConfig, error) {
	if path == "" {
		return config.DefaultPoolConfig(), nil
	}
	cfg, err := config.LoadPool(path)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newPool builds a DynamicPool over the built-in HTTP object kinds.
func newPool(cfg *config.PoolConfig, log *zap.Logger) (*pool.DynamicPool, error) {
	registry := pool.NewRegistry()
	if err := httpobject.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register object kinds: %w", err)
	}
	dp, err := pool.New(registry, cfg, pool.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return dp, nil
}

// runWorkload warms up a pool, drives it with traffic, and prints the
// resulting snapshot.
func runWorkload(configFile string, wl workload.Config, logLevel, metricsListen string, enableTracing bool) error {
	if err := logger.Init(logger.Config{Level: logLevel}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get().With(zap.String("component", "helix-cli"))

	cfg, err := loadPoolConfig(configFile)
	if err != nil {
		return err
	}

	dp, err := newPool(cfg, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if enableTracing {
		if err := observability.Init(observability.DefaultConfig()); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := observability.Shutdown(shutdownCtx); err != nil {
				log.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()
	}

	if metricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("serving metrics", zap.String("addr", metricsListen))
			if err := http.ListenAndServe(metricsListen, mux); err != nil {
				log.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	log.Info("starting workload",
		zap.Int("workers", wl.Workers),
		zap.Int("iterations", wl.Iterations),
		zap.Duration("duration", wl.Duration),
		zap.Float64("priority_ratio", wl.PriorityRatio))

	ctx, span := observability.StartSpan(ctx, "helix.workload")
	result := workload.Run(ctx, dp, wl, log)
	span.End()

	if result.Errors > 0 {
		log.Warn("workload finished with errors", zap.Int64("errors", result.Errors))
	}

	snap := dp.Stats()
	out, err := snap.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	fmt.Println(string(out))

	_ = logger.Sync()
	return nil
}

// printStats warms up a pool from configuration and prints its snapshot
// without driving any traffic.
func printStats(configFile string) error {
	if err := logger.Init(logger.Config{Level: "warn"}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := loadPoolConfig(configFile)
	if err != nil {
		return err
	}

	dp, err := newPool(cfg, logger.Get())
	if err != nil {
		return err
	}

	snap := dp.Stats()
	out, err := snap.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
