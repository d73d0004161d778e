package main

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/cycle"
	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/transport"
)

// tickLoop and publishOutcome are the only pieces of this command with
// logic worth unit testing directly; the rest of main.go is argument
// parsing and wiring that is exercised indirectly through cycle/config/
// transport's own test suites. An unconnected Adapter is used here so
// publishOutcome's calls simply count as dropped rather than attempting
// any network I/O. The real clock is used (not a mock) since tickLoop runs
// as a background goroutine and a ticker-channel mock clock would race
// against the test goroutine driving it; pollInterval is 1ms, so real-time
// polling with a generous deadline is both accurate and fast.

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	test.That(t, cond(), test.ShouldBeTrue)
}

func TestTickLoopDrainsEachSubmittedSnapshot(t *testing.T) {
	buffer := cycle.NewSnapshotBuffer()
	adapter := transport.NewAdapter("ws://127.0.0.1:0/unused", "room", nil, clock.New())

	var calls int
	tick := func(cycle.Snapshot) cycle.TickOutcome {
		calls++
		return cycle.TickOutcome{Result: planning.NewFailedResult("none", "no planner")}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tickLoop(ctx, clock.New(), buffer, adapter, tick)
		close(done)
	}()

	buffer.Submit(cycle.Snapshot{TickID: "a"})
	waitForCondition(t, func() bool { return calls >= 1 })
	buffer.Submit(cycle.Snapshot{TickID: "b"})
	waitForCondition(t, func() bool { return calls >= 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tickLoop did not exit after ctx cancellation")
	}
}

func TestTickLoopExitsPromptlyOnCancel(t *testing.T) {
	buffer := cycle.NewSnapshotBuffer()
	adapter := transport.NewAdapter("ws://127.0.0.1:0/unused", "room", nil, clock.New())

	tick := func(cycle.Snapshot) cycle.TickOutcome { return cycle.TickOutcome{} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tickLoop(ctx, clock.New(), buffer, adapter, tick)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tickLoop did not exit after ctx cancellation")
	}
}

func TestPublishOutcomeWithHeartbeatWhileDisconnectedKeepsDroppedTicks(t *testing.T) {
	buffer := cycle.NewSnapshotBuffer()
	adapter := transport.NewAdapter("ws://127.0.0.1:0/unused", "room", nil, clock.New())

	buffer.Submit(cycle.Snapshot{})
	buffer.Submit(cycle.Snapshot{}) // overwrites the first, counted as dropped

	outcome := cycle.TickOutcome{
		Result:    planning.NewFailedResult("none", "no planner"),
		Heartbeat: &cycle.Heartbeat{LoopHz: 10},
	}
	// publishOutcome does not panic or block when disconnected; its only
	// externally observable effect here is reading buffer.DroppedTicks().
	publishOutcome(adapter, buffer, cycle.Snapshot{TickID: "z"}, outcome)
	test.That(t, buffer.DroppedTicks(), test.ShouldEqual, int64(1))
}
