// Package helix provides dynamic, self-scaling object pooling for web
// workloads. Pools of reusable HTTP objects (requests, responses, URIs,
// body streams, or any application-defined kind) grow and shrink with
// observed demand, absorb exhaustion without blocking, and report their
// own health.
//
// # Architecture
//
// Helix is organized around four cooperating components:
//
// 1. DynamicPool (pkg/pool): the façade. One LIFO free list per registered
// kind, warmed up at construction, with borrow/return as the hot path.
//
// 2. Scaling controller: threshold-driven expansion (ceil(size * factor),
// capped at max_size) and shrinking (floor(size * factor), floored at
// min_size), with a shared per-kind cooldown that prevents thrash.
//
// 3. Overflow chain: when a pool is empty, elastic expansion, priority
// reserve, and graceful fallback are tried in order, so a borrow never
// fails under load.
//
// 4. Emergency governor: a process-wide state machine that raises every
// kind's ceiling from max_size to emergency_limit under sustained demand
// and decays back to normal once traffic calms.
//
// Event collection, rates, percentiles, and health classification live in
// pkg/metrics, with Prometheus export built in.
//
// # Quick Start
//
//	import (
//	    "github.com/helixweb/helix/pkg/config"
//	    "github.com/helixweb/helix/pkg/httpobject"
//	    "github.com/helixweb/helix/pkg/pool"
//	)
//
//	registry := pool.NewRegistry()
//	if err := httpobject.Register(registry); err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := pool.New(registry, config.DefaultPoolConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	obj, err := p.Borrow(pool.KindRequest)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	req := obj.(*httpobject.Request)
//	// ... handle the request ...
//	p.Return(pool.KindRequest, obj)
//
// Configuration can also be loaded from YAML with HELIX_* environment
// overrides; see pkg/config.
package helix
