// Command navsim runs the planning cycle against a single (ws_url, room_id)
// orchestrator connection (spec.md §9 "CLI surface").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"

	"github.com/ahrs365/navsim-go/bootstrap"
	"github.com/ahrs365/navsim-go/config"
	"github.com/ahrs365/navsim-go/cycle"
	"github.com/ahrs365/navsim-go/logging"
	"github.com/ahrs365/navsim-go/transport"
)

func main() {
	app := &cli.App{
		Name:      "navsim",
		Usage:     "run the planning cycle against an orchestrator room",
		ArgsUsage: "<ws_url> <room_id>",
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return cli.Exit("usage: navsim <ws_url> <room_id>", 1)
	}
	wsURL := c.Args().Get(0)
	roomID := c.Args().Get(1)

	level := logging.INFO
	if os.Getenv("VERBOSE") == "1" {
		level = logging.DEBUG
	}
	logger := logging.NewLogger("navsim", level)

	bootstrap.RegisterBuiltinPlugins()

	usePlugins := os.Getenv("USE_PLUGIN_SYSTEM") != "0"

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.New()
	adapter := transport.NewAdapter(wsURL, roomID, logger, clk)
	buffer := cycle.NewSnapshotBuffer()

	onTick := func(snapshot cycle.Snapshot, _ transport.WorldTickData) {
		buffer.Submit(snapshot)
	}
	onDebugControl := func(enabled bool) {
		logger.Infow("debug frames toggled", "enabled", enabled)
	}

	if usePlugins {
		return runPlugin(ctx, logger, clk, adapter, buffer, onTick, onDebugControl)
	}
	return runLegacy(ctx, logger, clk, adapter, buffer, onTick, onDebugControl)
}

func runPlugin(
	ctx context.Context,
	logger logging.Logger,
	clk clock.Clock,
	adapter *transport.Adapter,
	buffer *cycle.SnapshotBuffer,
	onTick func(cycle.Snapshot, transport.WorldTickData),
	onDebugControl func(bool),
) error {
	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), 1)
	}
	cfg.Clock = clk
	cfg.Logger = logger

	controller, err := cycle.NewController(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cycle: %v", err), 1)
	}

	go func() {
		if err := adapter.Run(ctx, onTick, onDebugControl); err != nil && ctx.Err() == nil {
			logger.Errorw("transport adapter exited", "err", err)
		}
	}()

	tickLoop(ctx, clk, buffer, adapter, func(snap cycle.Snapshot) cycle.TickOutcome {
		return controller.Tick(snap)
	})
	return nil
}

func runLegacy(
	ctx context.Context,
	logger logging.Logger,
	clk clock.Clock,
	adapter *transport.Adapter,
	buffer *cycle.SnapshotBuffer,
	onTick func(cycle.Snapshot, transport.WorldTickData),
	onDebugControl func(bool),
) error {
	cfg, err := config.LegacyConfig()
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), 1)
	}
	cfg.Clock = clk
	cfg.Logger = logger

	controller, err := cycle.NewLegacyController(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cycle: %v", err), 1)
	}

	go func() {
		if err := adapter.Run(ctx, onTick, onDebugControl); err != nil && ctx.Err() == nil {
			logger.Errorw("transport adapter exited", "err", err)
		}
	}()

	tickLoop(ctx, clk, buffer, adapter, func(snap cycle.Snapshot) cycle.TickOutcome {
		return controller.Tick(snap)
	})
	return nil
}

// pollInterval is the rate at which the tick loop checks the snapshot
// buffer for fresh work. The deadline itself is enforced inside the
// controller by polling a monotonic clock, not by this loop (spec.md §5
// "no operation suspends").
const pollInterval = time.Millisecond

// tickLoop drains the at-most-one-pending snapshot buffer, runs each fresh
// snapshot through tick, and publishes the resulting plan update and (when
// due) heartbeat over the transport adapter, until ctx is cancelled.
func tickLoop(
	ctx context.Context,
	clk clock.Clock,
	buffer *cycle.SnapshotBuffer,
	adapter *transport.Adapter,
	tick func(cycle.Snapshot) cycle.TickOutcome,
) {
	ticker := clk.Ticker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, ok := buffer.TryTake()
			if !ok {
				continue
			}
			outcome := tick(snap)
			publishOutcome(adapter, buffer, snap, outcome)
		}
	}
}

func publishOutcome(adapter *transport.Adapter, buffer *cycle.SnapshotBuffer, snap cycle.Snapshot, outcome cycle.TickOutcome) {
	stampS := float64(snap.Stamp.UnixNano()) / float64(time.Second)

	planUpdate := transport.EncodePlanUpdate(snap.TickID, stampS, 0, outcome.Result)
	_ = adapter.PublishPlanUpdate(planUpdate)

	if outcome.PerceptionCtx != nil {
		_ = adapter.PublishPerceptionDebug(transport.EncodePerceptionDebug(stampS, outcome.PerceptionCtx))
	}

	if outcome.Heartbeat != nil {
		hb := *outcome.Heartbeat
		hb.DroppedTicks = buffer.DroppedTicks()
		_ = adapter.PublishHeartbeat(transport.EncodeHeartbeat(stampS, hb))
	}
}
