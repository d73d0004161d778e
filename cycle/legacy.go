package cycle

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ahrs365/navsim-go/logging"
	"github.com/ahrs365/navsim-go/perception"
	"github.com/ahrs365/navsim-go/planner/astar"
	"github.com/ahrs365/navsim-go/planner/straightline"
	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
)

// LegacyConfig configures a LegacyController. It carries no plugin
// registry configuration: straight-line and A* are wired directly, each
// with its documented defaults.
type LegacyConfig struct {
	Deadline          time.Duration
	HeartbeatInterval time.Duration
	PlanningHorizonS  float64

	Clock  clock.Clock
	Logger logging.Logger
}

// LegacyController is the minimal, non-registry boot path (spec.md §9's
// "legacy vs plugin" resolution): straight-line primary, A* fallback, a
// fixed BEV/occupancy-grid/ESDF/dynamic-prediction baseline perception
// chain, no configurable perception plugin manager. It exists for unit
// tests and as the USE_PLUGIN_SYSTEM=0 branch of the CLI.
type LegacyController struct {
	cfg LegacyConfig

	bevExtractor     plugin.PerceptionPlugin
	occupancyBuilder plugin.PerceptionPlugin
	esdfBuilder      plugin.PerceptionPlugin
	dynamicPredictor plugin.PerceptionPlugin

	primary  plugin.PlannerPlugin
	fallback plugin.PlannerPlugin

	stats latencyStats

	clk             clock.Clock
	lastHeartbeatAt time.Time
	ticksSinceHB    int64
	publishedCount  int64
	receivedCount   int64
}

// NewLegacyController builds a LegacyController with straight-line as
// primary and A* as fallback, both initialized with their documented
// defaults (spec.md §4.3, §4.4).
func NewLegacyController(cfg LegacyConfig) (*LegacyController, error) {
	if cfg.Deadline <= 0 {
		return nil, fmt.Errorf("cycle: Deadline must be positive")
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	lc := &LegacyController{
		cfg:              cfg,
		bevExtractor:     perception.NewBEVExtractor(),
		occupancyBuilder: perception.NewOccupancyGridBuilder(),
		esdfBuilder:      perception.NewESDFBuilder(),
		dynamicPredictor: perception.NewDynamicPredictor(),
		primary:          straightline.New(),
		fallback:         astar.New(),
		clk:              cfg.Clock,
		lastHeartbeatAt:  cfg.Clock.Now(),
	}
	for name, p := range map[string]plugin.PerceptionPlugin{
		"bev_extractor":   lc.bevExtractor,
		"occupancy_grid":  lc.occupancyBuilder,
		"esdf":            lc.esdfBuilder,
		"dynamic_predict": lc.dynamicPredictor,
	} {
		if err := p.Initialize(nil); err != nil {
			return nil, fmt.Errorf("cycle: legacy perception plugin %q: %w", name, err)
		}
	}
	if err := lc.primary.Initialize(nil); err != nil {
		return nil, fmt.Errorf("cycle: legacy primary planner: %w", err)
	}
	if err := lc.fallback.Initialize(nil); err != nil {
		return nil, fmt.Errorf("cycle: legacy fallback planner: %w", err)
	}
	return lc, nil
}

// Tick runs the fixed legacy pipeline over snapshot: BEV, occupancy grid,
// ESDF and dynamic prediction unconditionally, then straight-line with A*
// fallback.
func (lc *LegacyController) Tick(snapshot Snapshot) TickOutcome {
	lc.receivedCount++
	t0 := lc.clk.Now()

	ctx := planning.NewContext(snapshot.Stamp, lc.cfg.PlanningHorizonS, snapshot.Ego, snapshot.Task, snapshot.Dynamic)

	perceptionStart := lc.clk.Now()
	input := plugin.PerceptionInput{RawExtensions: snapshot.RawExtensions}
	for _, p := range []plugin.PerceptionPlugin{lc.bevExtractor, lc.occupancyBuilder, lc.esdfBuilder, lc.dynamicPredictor} {
		if err := p.Process(input, ctx); err != nil {
			if lc.cfg.Logger != nil {
				lc.cfg.Logger.Warnw("legacy perception stage failed", "err", err)
			}
			break
		}
	}
	perceptionMS := float64(lc.clk.Now().Sub(perceptionStart).Microseconds()) / 1000.0

	elapsed := lc.clk.Now().Sub(t0)
	remaining := lc.cfg.Deadline - elapsed
	if remaining < MinRemainingDeadline {
		remaining = MinRemainingDeadline
	}

	planningStart := lc.clk.Now()
	result := lc.planWithFallback(ctx, remaining)
	planningMS := float64(lc.clk.Now().Sub(planningStart).Microseconds()) / 1000.0

	var command OneStepCommand
	published := result.Success
	if !result.Success {
		result = planning.StationaryFallback(snapshot.Ego.Pose)
	} else {
		command = commandFromTrajectory(result.Trajectory, snapshot.Ego.Chassis.WheelbaseM)
	}

	totalMS := float64(lc.clk.Now().Sub(t0).Microseconds()) / 1000.0
	deadlineExceeded := lc.clk.Now().Sub(t0) > lc.cfg.Deadline
	lc.stats.record(totalMS, perceptionMS, planningMS, deadlineExceeded)
	if published {
		lc.publishedCount++
	}

	lc.ticksSinceHB++
	var hb *Heartbeat
	if lc.clk.Now().Sub(lc.lastHeartbeatAt) >= lc.cfg.HeartbeatInterval {
		elapsedHB := lc.clk.Now().Sub(lc.lastHeartbeatAt)
		hz := 0.0
		if elapsedHB > 0 {
			hz = float64(lc.ticksSinceHB) / elapsedHB.Seconds()
		}
		hb = &Heartbeat{
			LoopHz:       hz,
			ComputeMsP50: lc.stats.medianComputeMS(),
			WSRx:         lc.receivedCount,
			WSTx:         lc.publishedCount,
		}
		lc.lastHeartbeatAt = lc.clk.Now()
		lc.ticksSinceHB = 0
	}

	return TickOutcome{Result: result, Command: command, Published: published, Heartbeat: hb, PerceptionCtx: ctx}
}

// planWithFallback mirrors plugin.PlannerPluginManager.Plan's dispatch
// policy without the registry: try primary, fall back to A* on decline or
// failure.
func (lc *LegacyController) planWithFallback(ctx *planning.Context, deadline time.Duration) planning.PlanningResult {
	var primaryReason string
	if available, reason := lc.primary.IsAvailable(ctx); available {
		result, err := lc.primary.Plan(ctx, deadline)
		if err == nil && result.Success {
			return result
		}
		if err != nil {
			primaryReason = err.Error()
		} else {
			primaryReason = result.FailureReason
		}
	} else {
		primaryReason = reason
	}

	if available, reason := lc.fallback.IsAvailable(ctx); available {
		result, err := lc.fallback.Plan(ctx, deadline)
		if err != nil {
			return planning.NewFailedResult(astar.Name, fmt.Sprintf("primary(%s): %s; fallback error: %s", straightline.Name, primaryReason, err))
		}
		if !result.Success {
			result.FailureReason = fmt.Sprintf("primary(%s): %s; fallback(%s): %s", straightline.Name, primaryReason, astar.Name, result.FailureReason)
		}
		return result
	} else {
		return planning.NewFailedResult(astar.Name, fmt.Sprintf("primary(%s): %s; fallback(%s): %s", straightline.Name, primaryReason, astar.Name, reason))
	}
}

// Reset clears every wired plugin's internal state.
func (lc *LegacyController) Reset() {
	lc.bevExtractor.Reset()
	lc.occupancyBuilder.Reset()
	lc.esdfBuilder.Reset()
	lc.dynamicPredictor.Reset()
	lc.primary.Reset()
	lc.fallback.Reset()
}
