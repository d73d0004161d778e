package planning

import (
	"fmt"

	"github.com/ahrs365/navsim-go/spatial"
)

// ShapeKind tags a dynamic obstacle's footprint shape.
type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapeRectangle
)

// PredictedPose is one sample along a predicted trajectory: a future pose
// and its offset in seconds from "now".
type PredictedPose struct {
	Pose         spatial.Pose2d
	TFromNowS    float64
}

// PredictedTrajectory is one candidate future path for a dynamic obstacle,
// carrying the probability mass assigned to it.
type PredictedTrajectory struct {
	Samples     []PredictedPose
	Probability float64
}

// DynamicObstacle is a tracked moving obstacle: current pose/twist, shape,
// and an ordered set of predicted trajectories whose probabilities sum to
// at most 1.0 (the remainder is "no motion" mass, spec.md §3).
type DynamicObstacle struct {
	ID    int
	Type  string
	Pose  spatial.Pose2d
	Twist spatial.Twist2d
	Shape ShapeKind
	// LengthM is the along-heading extent, WidthM the lateral extent.
	// Per spec.md §6's geometry contract, a source protobuf's `w` maps to
	// LengthM and `h` maps to WidthM; a circle's diameter fills both.
	LengthM float64
	WidthM  float64

	Predictions []PredictedTrajectory
}

// Validate checks the probability-mass invariant: the sum of per-trajectory
// probabilities must not exceed 1.0.
func (d DynamicObstacle) Validate() error {
	var sum float64
	for _, p := range d.Predictions {
		sum += p.Probability
	}
	if sum > 1.0+1e-9 {
		return fmt.Errorf("dynamic obstacle %d: prediction probabilities sum to %v > 1.0", d.ID, sum)
	}
	return nil
}

// PoseAt returns the linearly-interpolated pose of the highest-probability
// predicted trajectory at tFromNowS, and whether a prediction was available
// at all. Used by the topology planner's collision-cost evaluation.
func (d DynamicObstacle) PoseAt(tFromNowS float64) (spatial.Pose2d, bool) {
	best := -1.0
	var bestTraj *PredictedTrajectory
	for i := range d.Predictions {
		if d.Predictions[i].Probability > best {
			best = d.Predictions[i].Probability
			bestTraj = &d.Predictions[i]
		}
	}
	if bestTraj == nil || len(bestTraj.Samples) == 0 {
		return d.Pose, false
	}
	samples := bestTraj.Samples
	if tFromNowS <= samples[0].TFromNowS {
		return samples[0].Pose, true
	}
	last := samples[len(samples)-1]
	if tFromNowS >= last.TFromNowS {
		return last.Pose, true
	}
	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i], samples[i+1]
		if tFromNowS >= a.TFromNowS && tFromNowS <= b.TFromNowS {
			span := b.TFromNowS - a.TFromNowS
			if span <= 0 {
				return a.Pose, true
			}
			frac := (tFromNowS - a.TFromNowS) / span
			x := a.Pose.X + frac*(b.Pose.X-a.Pose.X)
			y := a.Pose.Y + frac*(b.Pose.Y-a.Pose.Y)
			yaw := a.Pose.Yaw + frac*spatial.NormalizeAngle(b.Pose.Yaw-a.Pose.Yaw)
			return spatial.NewPose2d(x, y, yaw), true
		}
	}
	return d.Pose, false
}
