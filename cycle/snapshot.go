// Package cycle implements the planning cycle controller: the per-tick
// orchestrator that runs perception preprocessing, dispatches planner
// plugins under a deadline, and tracks latency/heartbeat statistics
// (spec.md §4.2), plus the minimal legacy pipeline (spec.md §9's
// "legacy vs plugin" resolution).
package cycle

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/ahrs365/navsim-go/planning"
)

// Snapshot is one decoded world tick, ready to seed a planning.Context
// (spec.md §4.2 step 1).
type Snapshot struct {
	TickID  string
	Stamp   time.Time
	Ego     planning.EgoVehicle
	Task    planning.PlanningTask
	Dynamic []planning.DynamicObstacle

	// RawExtensions carries anything the baseline perception chain needs
	// beyond the first-class fields above (e.g. the wire's static-map
	// geometry, consumed by the BEV extractor).
	RawExtensions map[string]interface{}
}

// SnapshotBuffer is the at-most-one-pending-snapshot admission buffer
// (spec.md §5 "Shared resource policy"): the transport task hands off
// ownership to the planning task through it. Submitting a new snapshot
// while one is still pending overwrites it and increments DroppedTicks.
type SnapshotBuffer struct {
	mu           sync.Mutex
	cond         *sync.Cond
	pending      *Snapshot
	closed       bool
	droppedTicks atomic.Int64
	received     atomic.Int64
}

// NewSnapshotBuffer constructs an empty buffer.
func NewSnapshotBuffer() *SnapshotBuffer {
	b := &SnapshotBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Submit hands a new snapshot to the buffer, overwriting (and counting as
// dropped) any snapshot not yet consumed.
func (b *SnapshotBuffer) Submit(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.received.Inc()
	if b.pending != nil {
		b.droppedTicks.Inc()
	}
	b.pending = &s
	b.cond.Signal()
}

// TryTake returns and clears the pending snapshot, or ok=false if none is
// waiting. Non-blocking: the planning task polls this from its tick loop.
func (b *SnapshotBuffer) TryTake() (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return Snapshot{}, false
	}
	s := *b.pending
	b.pending = nil
	return s, true
}

// Wait blocks until a snapshot is available and takes it, or until Wake
// has closed the buffer, in which case it returns ok=false with no
// snapshot, mirroring the buffer's mutex+condition-variable protocol.
func (b *SnapshotBuffer) Wait() (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending == nil {
		if b.closed {
			return Snapshot{}, false
		}
		b.cond.Wait()
	}
	s := *b.pending
	b.pending = nil
	return s, true
}

// Wake closes the buffer and unblocks any goroutine parked in Wait without
// providing a snapshot, used at shutdown.
func (b *SnapshotBuffer) Wake() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// DroppedTicks returns the count of snapshots overwritten before being
// consumed.
func (b *SnapshotBuffer) DroppedTicks() int64 { return b.droppedTicks.Load() }

// Received returns the total count of snapshots submitted.
func (b *SnapshotBuffer) Received() int64 { return b.received.Load() }
