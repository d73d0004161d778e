// Package straightline implements the velocity-profiled straight-line
// fallback planner (spec.md §4.3), grounded on
// original_source/plugins/planning/straight_line_planner/algorithm/straight_line.cpp.
package straightline

import (
	"math"
	"time"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
	"github.com/ahrs365/navsim-go/spatial"
)

// Config is the straight-line planner's recognized configuration keys
// (spec.md §9).
type Config struct {
	DefaultVelocityMS    float64
	TimeStepS            float64
	PlanningHorizonS     float64
	UseTrapezoidalProfile bool
	MaxAccelerationMS2   float64
	ArrivalToleranceM    float64
}

// DefaultConfig returns the planner's documented defaults.
func DefaultConfig() Config {
	return Config{
		DefaultVelocityMS:     1.0,
		TimeStepS:             0.1,
		PlanningHorizonS:      6.0,
		UseTrapezoidalProfile: true,
		MaxAccelerationMS2:    1.0,
		ArrivalToleranceM:     0.05,
	}
}

// Name is the registry name this planner advertises.
const Name = "straight_line"

// Planner is the straight-line fallback planner plugin.
type Planner struct {
	cfg   Config
	stats plugin.Stats
}

// New constructs an uninitialized Planner.
func New() plugin.PlannerPlugin { return &Planner{} }

// Metadata implements plugin.PlannerPlugin.
func (p *Planner) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:          Name,
		Version:       "1.0.0",
		Description:   "Velocity-profiled straight-line fallback planner",
		Kind:          plugin.KindPlanner,
		MayBeFallback: true,
	}
}

// Initialize decodes config, applying documented defaults for any key left
// unset (spec.md §9).
func (p *Planner) Initialize(config map[string]interface{}) error {
	cfg := DefaultConfig()
	applyFloat(config, "default_velocity", &cfg.DefaultVelocityMS)
	applyFloat(config, "time_step", &cfg.TimeStepS)
	applyFloat(config, "planning_horizon", &cfg.PlanningHorizonS)
	applyFloat(config, "max_acceleration", &cfg.MaxAccelerationMS2)
	applyFloat(config, "arrival_tolerance", &cfg.ArrivalToleranceM)
	if v, ok := config["use_trapezoidal_profile"].(bool); ok {
		cfg.UseTrapezoidalProfile = v
	}
	p.cfg = cfg
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

// Reset clears accumulated statistics.
func (p *Planner) Reset() { p.stats.Reset() }

// Statistics returns the moving statistics snapshot.
func (p *Planner) Statistics() map[string]float64 { return p.stats.Snapshot() }

// IsAvailable: the straight-line planner never requires any derived
// artifact, so it is always available (it is "obstacle-blind by design",
// spec.md §8 scenario 2).
func (p *Planner) IsAvailable(ctx *planning.Context) (bool, string) {
	return true, ""
}

// Plan produces the minimum-viable trajectory from ego pose to goal pose
// (spec.md §4.3).
func (p *Planner) Plan(ctx *planning.Context, deadline time.Duration) (planning.PlanningResult, error) {
	start := time.Now()
	cfg := p.cfg
	if cfg.TimeStepS <= 0 {
		cfg = DefaultConfig()
	}

	ego := ctx.Ego.Pose
	goal := ctx.Task.Goal
	d := ego.Distance(goal)

	var traj []planning.TrajectoryPoint
	if d < cfg.ArrivalToleranceM {
		traj = []planning.TrajectoryPoint{{Pose: ego, TimeFromStartS: 0, PathLengthM: 0}}
		result := planning.NewSucceededResult(Name, traj)
		p.recordSuccess(start)
		return result, nil
	}

	n := int(math.Ceil(cfg.PlanningHorizonS / cfg.TimeStepS))
	if n < 1 {
		n = 1
	}

	heading := ego.HeadingTo(goal)
	vMax := ctx.Ego.Chassis.Limits.VMaxMS
	if vMax <= 0 {
		vMax = cfg.DefaultVelocityMS
	}
	aMax := ctx.Ego.Chassis.Limits.AMaxMS2
	if aMax <= 0 {
		aMax = cfg.MaxAccelerationMS2
	}

	profile := newVelocityProfile(cfg, d, vMax, aMax)

	traj = make([]planning.TrajectoryPoint, 0, n+1)
	for i := 0; i <= n; i++ {
		frac := float64(i) / float64(n)
		s := frac * d
		x := ego.X + frac*(goal.X-ego.X)
		y := ego.Y + frac*(goal.Y-ego.Y)
		yaw := heading
		if i == n {
			yaw = goal.Yaw
		}
		v, a := profile.at(s)
		if i == n {
			v, a = 0, 0
		}
		traj = append(traj, planning.TrajectoryPoint{
			Pose:           spatial.NewPose2d(x, y, yaw),
			Twist:          spatial.Twist2d{Vx: v},
			AccelMS2:       a,
			TimeFromStartS: float64(i) * cfg.TimeStepS,
			PathLengthM:    s,
		})
	}

	result := planning.NewSucceededResult(Name, traj)
	p.recordSuccess(start)
	return result, nil
}

func (p *Planner) recordSuccess(start time.Time) {
	p.stats.RecordSuccess(float64(time.Since(start).Microseconds())/1000.0, 0.2)
}

// velocityProfile evaluates (v, a) at a given cumulative arc length s along
// a segment of total length d.
type velocityProfile struct {
	flat        bool
	flatV       float64
	d           float64
	aMax        float64
	dAccel      float64
	cruiseEnd   float64
	peakV       float64
}

// newVelocityProfile builds either a flat profile at DefaultVelocityMS or a
// trapezoidal/triangular profile per spec.md §4.3.
func newVelocityProfile(cfg Config, d, vMax, aMax float64) velocityProfile {
	if !cfg.UseTrapezoidalProfile {
		return velocityProfile{flat: true, flatV: cfg.DefaultVelocityMS, d: d}
	}
	if aMax <= 0 {
		aMax = 1
	}
	tAccel := vMax / aMax
	dAccel := 0.5 * aMax * tAccel * tAccel

	if 2*dAccel >= d {
		// Triangular profile: peak v = sqrt(a_max * d).
		peakV := math.Sqrt(aMax * d)
		return velocityProfile{d: d, aMax: aMax, dAccel: d / 2, cruiseEnd: d / 2, peakV: peakV}
	}

	return velocityProfile{d: d, aMax: aMax, dAccel: dAccel, cruiseEnd: d - dAccel, peakV: vMax}
}

func (vp velocityProfile) at(s float64) (v, a float64) {
	if vp.flat {
		return vp.flatV, 0
	}
	switch {
	case s < vp.dAccel:
		v = math.Sqrt(2 * vp.aMax * s)
		a = vp.aMax
	case s < vp.cruiseEnd:
		v = vp.peakV
		a = 0
	default:
		remaining := vp.d - s
		if remaining < 0 {
			remaining = 0
		}
		v = math.Sqrt(2 * vp.aMax * remaining)
		a = -vp.aMax
	}
	return v, a
}
