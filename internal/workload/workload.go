// Package workload drives a DynamicPool with synthetic concurrent traffic.
// Used by the CLI's run command and by load-oriented tests to exercise
// scaling, overflow, and emergency behavior under realistic contention.
package workload

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/helixweb/helix/pkg/pool"
)

// Config shapes the generated traffic.
type Config struct {
	// Workers is the number of concurrent borrowers.
	Workers int
	// Iterations is the number of borrow/return cycles per worker. Zero
	// means run until Duration elapses or the context is canceled.
	Iterations int
	// Duration bounds the run when Iterations is zero.
	Duration time.Duration
	// HoldTime is how long each worker keeps a borrowed object, simulating
	// request handling. Zero returns objects immediately.
	HoldTime time.Duration
	// PriorityRatio is the fraction of borrows flagged as priority.
	PriorityRatio float64
	// Kinds to cycle through. Defaults to the pool's registered kinds.
	Kinds []pool.Kind
}

// Result aggregates what the run observed.
type Result struct {
	Borrows int64
	Returns int64
	Errors  int64
	Elapsed time.Duration
	Workers int
}

// Run executes the workload against the pool and blocks until every worker
// finishes. Cancellation via ctx stops workers at their next cycle.
func Run(ctx context.Context, dp *pool.DynamicPool, cfg Config, log *zap.Logger) Result {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Iterations <= 0 && cfg.Duration <= 0 {
		cfg.Duration = time.Second
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = dp.Kinds()
	}
	if log == nil {
		log = zap.NewNop()
	}

	var res Result
	res.Workers = cfg.Workers

	deadline := time.Time{}
	if cfg.Duration > 0 {
		deadline = time.Now().Add(cfg.Duration)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(id) + start.UnixNano()))
			for i := 0; cfg.Iterations == 0 || i < cfg.Iterations; i++ {
				if ctx.Err() != nil {
					return
				}
				if !deadline.IsZero() && time.Now().After(deadline) {
					return
				}

				kind := cfg.Kinds[i%len(cfg.Kinds)]
				params := pool.BorrowParams{
					Priority: rng.Float64() < cfg.PriorityRatio,
				}
				obj, err := dp.BorrowWith(kind, params)
				if err != nil {
					atomic.AddInt64(&res.Errors, 1)
					continue
				}
				atomic.AddInt64(&res.Borrows, 1)

				if cfg.HoldTime > 0 {
					time.Sleep(cfg.HoldTime)
				}

				if err := dp.Return(kind, obj); err != nil {
					atomic.AddInt64(&res.Errors, 1)
					continue
				}
				atomic.AddInt64(&res.Returns, 1)
			}
		}(w)
	}
	wg.Wait()
	res.Elapsed = time.Since(start)

	log.Info("workload complete",
		zap.Int("workers", res.Workers),
		zap.Int64("borrows", res.Borrows),
		zap.Int64("returns", res.Returns),
		zap.Int64("errors", res.Errors),
		zap.Duration("elapsed", res.Elapsed))
	return res
}
