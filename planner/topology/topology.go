package topology

import (
	"math"
	"time"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
	"github.com/ahrs365/navsim-go/spatial"
)

// Config is the topology-guided optimization planner's recognized
// configuration keys (spec.md §9).
type Config struct {
	Guidance  GuidanceConfig
	Weights   CostWeights
	Optimizer OptimizerConfig
}

// DefaultConfig returns the planner's documented defaults.
func DefaultConfig() Config {
	return Config{
		Guidance:  DefaultGuidanceConfig(),
		Weights:   DefaultCostWeights(),
		Optimizer: DefaultOptimizerConfig(),
	}
}

// Name is the registry name this planner advertises.
const Name = "topology_mpc"

// Planner is the topology-guided receding-horizon optimization planner
// (spec.md §4.5), grounded on
// original_source/plugins/planning/t_mpc/algorithm/main.cpp.
type Planner struct {
	cfg   Config
	stats plugin.Stats

	havePreviousClass bool
	previousClass     int
	previousOmega     float64
}

// New constructs an uninitialized Planner.
func New() plugin.PlannerPlugin { return &Planner{} }

// Metadata implements plugin.PlannerPlugin.
func (p *Planner) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:              Name,
		Version:           "1.0.0",
		Description:       "Topology-guided receding-horizon trajectory optimizer",
		Kind:              plugin.KindPlanner,
		RequiredArtifacts: []string{"signed_distance_field"},
		MayBeFallback:     false,
	}
}

// Initialize decodes config, applying documented defaults for any key left
// unset (spec.md §9).
func (p *Planner) Initialize(config map[string]interface{}) error {
	cfg := DefaultConfig()
	applyFloat(config, "time_step", &cfg.Optimizer.SampleTimeS)
	applyInt(config, "guidance_candidate_count", &cfg.Guidance.CandidateCount)
	applyFloat(config, "guidance_horizon", &cfg.Guidance.HorizonM)
	applyInt(config, "max_outer_iterations", &cfg.Optimizer.MaxOuterIterations)
	applyInt(config, "max_inner_iterations", &cfg.Optimizer.MaxInnerIterations)
	applyFloat(config, "learning_rate", &cfg.Optimizer.LearningRate)
	p.cfg = cfg
	p.Reset()
	return nil
}

func applyFloat(config map[string]interface{}, key string, dst *float64) {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case float64:
			*dst = n
		case int:
			*dst = float64(n)
		}
	}
}

func applyInt(config map[string]interface{}, key string, dst *int) {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			*dst = n
		case float64:
			*dst = int(n)
		}
	}
}

// Reset clears accumulated statistics and the cross-tick topology-class
// hysteresis state.
func (p *Planner) Reset() {
	p.stats.Reset()
	p.havePreviousClass = false
	p.previousOmega = 0
}

// Statistics returns the moving statistics snapshot.
func (p *Planner) Statistics() map[string]float64 { return p.stats.Snapshot() }

// IsAvailable requires a signed distance field (spec.md §4.5 Stage B/C both
// query the ESDF for clearance and collision cost).
func (p *Planner) IsAvailable(ctx *planning.Context) (bool, string) {
	if ctx.ESDF == nil {
		return false, "No signed distance field available"
	}
	return true, ""
}

// Plan runs Stage A (reference construction) -> Stage B (candidate
// generation and topology-class-hysteresis selection) -> Stage C
// (per-candidate trajectory optimization with collision-based
// reject-and-retry), per spec.md §4.5.
func (p *Planner) Plan(ctx *planning.Context, deadline time.Duration) (planning.PlanningResult, error) {
	start := time.Now()
	absoluteDeadline := start.Add(deadline)
	cfg := p.cfg
	if cfg.Optimizer.SampleTimeS <= 0 {
		cfg = DefaultConfig()
	}

	if available, reason := p.IsAvailable(ctx); !available {
		p.stats.RecordFailure("unavailable", 0, 0.2)
		return planning.NewFailedResult(Name, reason), nil
	}

	ego := ctx.Ego.Pose
	goal := ctx.Task.Goal

	// Stage A: build a smooth reference toward the goal. When a prior
	// planner has populated a path via the occupancy grid, that would be a
	// better reference; absent one, sample a straight run and let Stage B's
	// lateral offsets find a way around obstacles.
	refWaypoints := SampleUniform(ego, goal, 12)
	ref := BuildReferenceSpline(refWaypoints)

	// Stage B: generate candidates and select one via topology-class
	// hysteresis.
	candidates := GenerateCandidates(ref, ego, 0, ctx.ESDF, cfg.Guidance)
	if len(candidates) == 0 {
		p.stats.RecordFailure("no-candidates", 0, 0.2)
		return planning.NewFailedResult(Name, "No guidance candidates generated"), nil
	}

	dynamicObstacleAt := buildDynamicObstacleQuery(ctx.Dynamic)

	var debugPaths [][]spatial.Pose2d
	var best *OptimizeResult
	var bestCandidate Candidate

	// Stage B/C: SelectCandidate picks the topology-class-hysteresis match
	// when one exists, else the lowest-cost candidate (spec.md §4.5's
	// selection rule is an override, not a tie-breaker: a hysteresis match
	// is tried before any lower-cost non-matching candidate). Only once a
	// selected candidate is optimized and rejected on residual collision is
	// it removed from the pool and reselection falls through to plain
	// lowest-cost ranking for the remainder (the reject-and-retry loop).
	pool := append([]Candidate(nil), candidates...)
	havePrevious := p.havePreviousClass
	for len(pool) > 0 {
		if time.Now().After(absoluteDeadline) {
			break
		}
		chosen, _ := SelectCandidate(pool, p.previousClass, havePrevious)
		pool = removeCandidate(pool, chosen)

		result := Optimize(chosen, goal.Yaw, cfg.Weights, cfg.Optimizer, ctx.ESDF, dynamicObstacleAt, absoluteDeadline, p.previousOmega)
		debugPaths = append(debugPaths, samplesToPoses(result.Samples))
		if result.CollisionTerm > 0 {
			// Residual safety-distance violation: reject and try the next
			// candidate (spec.md §4.5). The hysteresis override only ever
			// applies to the first selection attempt.
			havePrevious = false
			continue
		}
		r := result
		best = &r
		bestCandidate = chosen
		break
	}

	if best == nil {
		p.stats.RecordFailure("all-candidates-rejected", float64(time.Since(start).Microseconds())/1000.0, 0.2)
		res := planning.NewFailedResult(Name, "All candidates rejected on residual collision")
		res.DebugPaths = debugPaths
		return res, nil
	}

	p.previousClass = bestCandidate.TopologyClass
	p.havePreviousClass = true
	if len(best.Samples) > 1 {
		p.previousOmega = best.Samples[1].omega
	}

	traj := samplesToTrajectory(best.Samples, cfg.Optimizer.SampleTimeS)
	res := planning.NewSucceededResult(Name, traj)
	res.DebugPaths = debugPaths
	res.Iterations = best.Iterations
	res.Metadata = map[string]float64{"cost": best.Cost, "collision_term": best.CollisionTerm}

	p.stats.RecordSuccess(float64(time.Since(start).Microseconds())/1000.0, 0.2)
	return res, nil
}

// removeCandidate returns pool with the first element matching target
// dropped (by path identity, since Candidate carries no separate id),
// used to take a rejected selection out of the reject-and-retry pool.
func removeCandidate(pool []Candidate, target Candidate) []Candidate {
	for i := range pool {
		if samePath(pool[i].Path, target.Path) {
			out := make([]Candidate, 0, len(pool)-1)
			out = append(out, pool[:i]...)
			return append(out, pool[i+1:]...)
		}
	}
	return pool
}

func samePath(a, b []spatial.Pose2d) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func buildDynamicObstacleQuery(obstacles []planning.DynamicObstacle) func(float64) (float64, float64, float64, bool) {
	if len(obstacles) == 0 {
		return nil
	}
	return func(tSec float64) (float64, float64, float64, bool) {
		found := false
		var bx, by, br float64
		for _, o := range obstacles {
			pose, ok := o.PoseAt(tSec)
			if !ok {
				continue
			}
			r := math.Max(o.LengthM, o.WidthM) / 2
			if !found || r > br {
				bx, by, br = pose.X, pose.Y, r
				found = true
			}
		}
		return bx, by, br, found
	}
}

func samplesToPoses(samples []trajectorySample) []spatial.Pose2d {
	out := make([]spatial.Pose2d, len(samples))
	for i, s := range samples {
		out[i] = spatial.NewPose2d(s.x, s.y, s.yaw)
	}
	return out
}

func samplesToTrajectory(samples []trajectorySample, dt float64) []planning.TrajectoryPoint {
	out := make([]planning.TrajectoryPoint, len(samples))
	var pathLen float64
	for i, s := range samples {
		if i > 0 {
			pathLen += math.Hypot(s.x-samples[i-1].x, s.y-samples[i-1].y)
		}
		curvature := 0.0
		if math.Abs(s.v) > 1e-3 {
			curvature = s.omega / s.v
		}
		out[i] = planning.TrajectoryPoint{
			Pose:           spatial.NewPose2d(s.x, s.y, s.yaw),
			Twist:          spatial.Twist2d{Vx: s.v, Omega: s.omega},
			AccelMS2:       s.a,
			Curvature:      curvature,
			TimeFromStartS: float64(i) * dt,
			PathLengthM:    pathLen,
		}
	}
	return out
}
