package plugin

import (
	"sync"

	"go.uber.org/atomic"
)

// Stats is the concurrency-safe statistics block every plugin carries:
// total calls, successes, per-category failure counts, and a moving-average
// compute-time estimate (spec.md §4.1 `statistics()`). The scalar counters
// are go.uber.org/atomic values because the cycle controller may read them
// (e.g. for a heartbeat) from a different goroutine than the one invoking
// the plugin (spec.md §5 "Statistics counters ... must be atomic").
type Stats struct {
	TotalCalls   atomic.Int64
	Successes    atomic.Int64
	Failures     atomic.Int64
	avgComputeMS atomic.Float64

	mu              sync.Mutex
	failuresByKind  map[string]int64
}

// RecordSuccess updates total/success counters and the moving-average
// compute time estimate using an exponential weight of alpha.
func (s *Stats) RecordSuccess(computeMS float64, alpha float64) {
	s.TotalCalls.Inc()
	s.Successes.Inc()
	s.recordCompute(computeMS, alpha)
}

// RecordFailure updates total/failure counters, tagging the failure under
// category, and still folds computeMS into the moving average (a failed
// call still consumed time).
func (s *Stats) RecordFailure(category string, computeMS float64, alpha float64) {
	s.TotalCalls.Inc()
	s.Failures.Inc()
	s.mu.Lock()
	if s.failuresByKind == nil {
		s.failuresByKind = make(map[string]int64)
	}
	s.failuresByKind[category]++
	s.mu.Unlock()
	s.recordCompute(computeMS, alpha)
}

func (s *Stats) recordCompute(computeMS, alpha float64) {
	for {
		old := s.avgComputeMS.Load()
		next := computeMS
		if old != 0 {
			next = old + alpha*(computeMS-old)
		}
		if s.avgComputeMS.CAS(old, next) {
			return
		}
	}
}

// Snapshot returns a key->scalar view suitable for the plugin's
// statistics() contract.
func (s *Stats) Snapshot() map[string]float64 {
	out := map[string]float64{
		"total_calls":    float64(s.TotalCalls.Load()),
		"successes":      float64(s.Successes.Load()),
		"failures":       float64(s.Failures.Load()),
		"avg_compute_ms": s.avgComputeMS.Load(),
	}
	s.mu.Lock()
	for k, v := range s.failuresByKind {
		out["failures_"+k] = float64(v)
	}
	s.mu.Unlock()
	return out
}

// Reset clears all counters, matching the plugin contract's reset() (never
// fails).
func (s *Stats) Reset() {
	s.TotalCalls.Store(0)
	s.Successes.Store(0)
	s.Failures.Store(0)
	s.avgComputeMS.Store(0)
	s.mu.Lock()
	s.failuresByKind = make(map[string]int64)
	s.mu.Unlock()
}
