package cycle

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/ahrs365/navsim-go/logging"
	"github.com/ahrs365/navsim-go/perception"
	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
)

// MinRemainingDeadline is the floor applied to the remaining per-tick
// deadline after perception runs (spec.md §4.2 step 5).
const MinRemainingDeadline = 5 * time.Millisecond

// DefaultHeartbeatInterval is the default time-based heartbeat period H
// (spec.md §4.2 step 10).
const DefaultHeartbeatInterval = 5 * time.Second

// Config configures a Controller.
type Config struct {
	Deadline          time.Duration
	HeartbeatInterval time.Duration
	PlanningHorizonS  float64

	Perception []plugin.PerceptionPluginConfig
	Planner    plugin.PlannerPluginManagerConfig

	PrimaryParams  map[string]interface{}
	FallbackParams map[string]interface{}

	Clock  clock.Clock
	Logger logging.Logger
}

// OneStepCommand is the single control command published alongside a
// successful plan (spec.md §4.2 step 7).
type OneStepCommand struct {
	AccelMS2    float64
	SteeringRad float64
}

// TickOutcome is the result of running one tick through the controller:
// the planning result, the derived one-step command, the perception
// context the plan was computed against (for perception/debug frames),
// and (if due) a heartbeat payload.
type TickOutcome struct {
	Result        planning.PlanningResult
	Command       OneStepCommand
	Published     bool
	Heartbeat     *Heartbeat
	PerceptionCtx *planning.Context
}

// Controller is the plugin-based planning cycle controller (spec.md §4.2).
type Controller struct {
	cfg Config

	bevExtractor     plugin.PerceptionPlugin
	dynamicPredictor plugin.PerceptionPlugin
	perceptionMgr    *plugin.PerceptionPluginManager
	plannerMgr       *plugin.PlannerPluginManager

	stats latencyStats

	clk               clock.Clock
	lastHeartbeatAt   time.Time
	ticksSinceHB      int64
	publishedCount    atomic.Int64
	receivedCount     atomic.Int64
}

// NewController builds and loads a Controller from cfg: the builtin
// baseline perception chain, the configured perception plugin manager, and
// the primary/fallback planner manager (spec.md §4.2).
func NewController(cfg Config) (*Controller, error) {
	if cfg.Deadline <= 0 {
		return nil, fmt.Errorf("cycle: Deadline must be positive")
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	perceptionMgr := plugin.NewPerceptionPluginManager()
	if err := perceptionMgr.Load(cfg.Perception); err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warnw("perception plugin load reported errors", "err", err)
		}
	}

	plannerMgr, err := plugin.NewPlannerPluginManager(cfg.Planner, cfg.PrimaryParams, cfg.FallbackParams)
	if err != nil {
		return nil, fmt.Errorf("cycle: planner plugin manager: %w", err)
	}

	c := &Controller{
		cfg:              cfg,
		bevExtractor:     perception.NewBEVExtractor(),
		dynamicPredictor: perception.NewDynamicPredictor(),
		perceptionMgr:    perceptionMgr,
		plannerMgr:       plannerMgr,
		clk:              cfg.Clock,
		lastHeartbeatAt:  cfg.Clock.Now(),
	}
	if err := c.bevExtractor.Initialize(nil); err != nil {
		return nil, fmt.Errorf("cycle: baseline BEV extractor: %w", err)
	}
	if err := c.dynamicPredictor.Initialize(nil); err != nil {
		return nil, fmt.Errorf("cycle: baseline dynamic predictor: %w", err)
	}
	return c, nil
}

// Tick runs one full pipeline pass over snapshot (spec.md §4.2 steps 1-10).
func (c *Controller) Tick(snapshot Snapshot) TickOutcome {
	c.receivedCount.Inc()
	t0 := c.clk.Now()

	ctx := planning.NewContext(snapshot.Stamp, c.cfg.PlanningHorizonS, snapshot.Ego, snapshot.Task, snapshot.Dynamic)

	perceptionStart := c.clk.Now()
	c.runBaselinePerception(snapshot, ctx)
	if err := c.perceptionMgr.Process(plugin.PerceptionInput{RawExtensions: snapshot.RawExtensions}, ctx); err != nil {
		if c.cfg.Logger != nil {
			c.cfg.Logger.Warnw("perception plugin chain failed", "err", err)
		}
	}
	perceptionMS := float64(c.clk.Now().Sub(perceptionStart).Microseconds()) / 1000.0

	elapsed := c.clk.Now().Sub(t0)
	remaining := c.cfg.Deadline - elapsed
	if remaining < MinRemainingDeadline {
		remaining = MinRemainingDeadline
	}

	planningStart := c.clk.Now()
	result, err := c.plannerMgr.Plan(ctx, remaining)
	planningMS := float64(c.clk.Now().Sub(planningStart).Microseconds()) / 1000.0
	if err != nil {
		if c.cfg.Logger != nil {
			c.cfg.Logger.Errorw("planner manager returned a programmer error", "err", err)
		}
		result = planning.StationaryFallback(snapshot.Ego.Pose)
	}

	var command OneStepCommand
	published := result.Success
	if !result.Success {
		result = planning.StationaryFallback(snapshot.Ego.Pose)
	} else {
		command = commandFromTrajectory(result.Trajectory, snapshot.Ego.Chassis.WheelbaseM)
	}

	totalMS := float64(c.clk.Now().Sub(t0).Microseconds()) / 1000.0
	deadlineExceeded := c.clk.Now().Sub(t0) > c.cfg.Deadline
	c.stats.record(totalMS, perceptionMS, planningMS, deadlineExceeded)
	if published {
		c.publishedCount.Inc()
	}

	c.ticksSinceHB++
	var hb *Heartbeat
	if c.clk.Now().Sub(c.lastHeartbeatAt) >= c.cfg.HeartbeatInterval {
		hb = c.buildHeartbeat()
		c.lastHeartbeatAt = c.clk.Now()
		c.ticksSinceHB = 0
	}

	return TickOutcome{Result: result, Command: command, Published: published, Heartbeat: hb, PerceptionCtx: ctx}
}

// runBaselinePerception runs the fixed, deterministic, non-failing
// minimal chain (spec.md §4.2 step 3): BEV extraction then dynamic motion
// prediction, ahead of the configurable PerceptionPluginManager.
func (c *Controller) runBaselinePerception(snapshot Snapshot, ctx *planning.Context) {
	input := plugin.PerceptionInput{RawExtensions: snapshot.RawExtensions}
	if err := c.bevExtractor.Process(input, ctx); err != nil && c.cfg.Logger != nil {
		c.cfg.Logger.Warnw("baseline BEV extraction failed", "err", err)
	}
	if err := c.dynamicPredictor.Process(input, ctx); err != nil && c.cfg.Logger != nil {
		c.cfg.Logger.Warnw("baseline dynamic prediction failed", "err", err)
	}
}

func commandFromTrajectory(traj []planning.TrajectoryPoint, wheelbaseM float64) OneStepCommand {
	if len(traj) == 0 {
		return OneStepCommand{}
	}
	idx := 0
	if len(traj) > 1 {
		idx = 1
	}
	point := traj[idx]
	steer := 0.0
	if wheelbaseM > 0 {
		steer = math.Atan(point.Curvature * wheelbaseM)
	}
	return OneStepCommand{AccelMS2: point.AccelMS2, SteeringRad: steer}
}

func (c *Controller) buildHeartbeat() *Heartbeat {
	elapsed := c.clk.Now().Sub(c.lastHeartbeatAt)
	hz := 0.0
	if elapsed > 0 {
		hz = float64(c.ticksSinceHB) / elapsed.Seconds()
	}
	return &Heartbeat{
		LoopHz:       hz,
		ComputeMsP50: c.stats.medianComputeMS(),
		WSRx:         c.receivedCount.Load(),
		WSTx:         c.publishedCount.Load(),
	}
}

// Reset clears both plugin managers' internal state.
func (c *Controller) Reset() {
	c.bevExtractor.Reset()
	c.dynamicPredictor.Reset()
	c.perceptionMgr.Reset()
	c.plannerMgr.Reset()
}

// PerceptionManager exposes the loaded perception manager for statistics
// aggregation and heartbeats.
func (c *Controller) PerceptionManager() *plugin.PerceptionPluginManager { return c.perceptionMgr }

// PlannerManager exposes the loaded planner manager for statistics
// aggregation and heartbeats.
func (c *Controller) PlannerManager() *plugin.PlannerPluginManager { return c.plannerMgr }
