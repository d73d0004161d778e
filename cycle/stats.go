package cycle

import (
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// latencyStats tracks exponentially-weighted moving averages for
// total/perception/planning per-tick time, plus a 100-entry sliding window
// for the heartbeat's median compute time (spec.md §4.2 steps 9-10).
type latencyStats struct {
	totalEWMA      atomic.Float64
	perceptionEWMA atomic.Float64
	planningEWMA   atomic.Float64
	deadlineMisses atomic.Int64

	mu     sync.Mutex
	window []float64 // ring buffer, fixed capacity windowCapacity
	cursor int
}

const windowCapacity = 100
const ewmaAlpha = 0.2

func (s *latencyStats) record(totalMS, perceptionMS, planningMS float64, deadlineExceeded bool) {
	ewmaUpdate(&s.totalEWMA, totalMS)
	ewmaUpdate(&s.perceptionEWMA, perceptionMS)
	ewmaUpdate(&s.planningEWMA, planningMS)
	if deadlineExceeded {
		s.deadlineMisses.Inc()
	}

	s.mu.Lock()
	if len(s.window) < windowCapacity {
		s.window = append(s.window, totalMS)
	} else {
		s.window[s.cursor] = totalMS
		s.cursor = (s.cursor + 1) % windowCapacity
	}
	s.mu.Unlock()
}

func ewmaUpdate(v *atomic.Float64, sample float64) {
	for {
		old := v.Load()
		next := sample
		if old != 0 {
			next = old + ewmaAlpha*(sample-old)
		}
		if v.CAS(old, next) {
			return
		}
	}
}

// medianComputeMS returns the median of the current sliding window,
// or 0 if empty.
func (s *latencyStats) medianComputeMS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.window) == 0 {
		return 0
	}
	sorted := append([]float64(nil), s.window...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Heartbeat is the periodic control/heartbeat message payload (spec.md §6).
type Heartbeat struct {
	LoopHz         float64
	ComputeMsP50   float64
	WSRx           int64
	WSTx           int64
	DroppedTicks   int64
}
