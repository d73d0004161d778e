package planning

import (
	"fmt"
	"math"
	"time"

	"github.com/ahrs365/navsim-go/spatial"
)

// WheelGeometry describes a single wheel's rolling geometry.
type WheelGeometry struct {
	RadiusM float64
	WidthM  float64
}

// ChassisLimits bounds the vehicle's achievable motion. All fields must be
// strictly positive (spec.md §3 EgoVehicle invariant).
type ChassisLimits struct {
	VMaxMS       float64
	AMaxMS2      float64
	OmegaMaxRads float64
	SteerMaxRad  float64
}

// Validate enforces the strictly-positive invariant on every limit.
func (l ChassisLimits) Validate() error {
	for name, v := range map[string]float64{
		"v_max":     l.VMaxMS,
		"a_max":     l.AMaxMS2,
		"omega_max": l.OmegaMaxRads,
		"steer_max": l.SteerMaxRad,
	} {
		if v <= 0 {
			return fmt.Errorf("chassis limit %s must be strictly positive, got %v", name, v)
		}
	}
	return nil
}

// Chassis describes the ego vehicle's physical geometry and limits.
type Chassis struct {
	Model         string
	WheelbaseM    float64
	TrackWidthM   float64
	BodyLengthM   float64
	BodyWidthM    float64
	BodyHeightM   float64
	Wheel         WheelGeometry
	Limits        ChassisLimits
}

// Validate checks the chassis invariants from spec.md §3: all limits
// strictly positive, wheelbase at least a quarter of body length.
func (c Chassis) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if c.WheelbaseM < c.BodyLengthM/4 {
		return fmt.Errorf("wheelbase %v m is less than body_length/4 (%v m)", c.WheelbaseM, c.BodyLengthM/4)
	}
	return nil
}

// MaxCurvature derives the maximum achievable path curvature from the
// steering limit and wheelbase, per spec.md §3's TrajectoryPoint invariant.
func (c Chassis) MaxCurvature() float64 {
	if c.WheelbaseM <= 0 {
		return 0
	}
	return math.Tan(c.Limits.SteerMaxRad) / c.WheelbaseM
}

// EgoVehicle is the planning core's self-state: pose, twist, chassis
// descriptor, and the timestamp the state was sampled at.
type EgoVehicle struct {
	Pose      spatial.Pose2d
	Twist     spatial.Twist2d
	Chassis   Chassis
	Timestamp time.Time
}

// Validate delegates to the chassis invariant check.
func (e EgoVehicle) Validate() error {
	return e.Chassis.Validate()
}
