package planning

import (
	"fmt"

	"github.com/ahrs365/navsim-go/spatial"
)

// TrajectoryPoint is one sample along a planned path (spec.md §3).
type TrajectoryPoint struct {
	Pose             spatial.Pose2d
	Twist            spatial.Twist2d
	AccelMS2         float64
	SteeringAngleRad float64
	Curvature        float64
	TimeFromStartS   float64
	PathLengthM      float64
}

// ValidateMonotonic checks the soft invariants from spec.md §3 and §8:
// non-decreasing time and arc length across the whole trajectory.
func ValidateMonotonic(points []TrajectoryPoint) error {
	for i := 1; i < len(points); i++ {
		if points[i].TimeFromStartS < points[i-1].TimeFromStartS {
			return fmt.Errorf("trajectory time_from_start is not monotonic non-decreasing at index %d", i)
		}
		if points[i].PathLengthM < points[i-1].PathLengthM {
			return fmt.Errorf("trajectory path_length is not monotonic non-decreasing at index %d", i)
		}
	}
	return nil
}

// ArcLengthConsistent checks that consecutive path-length deltas match the
// Euclidean distance between consecutive poses within tol (spec.md §8).
func ArcLengthConsistent(points []TrajectoryPoint, tol float64) bool {
	for i := 1; i < len(points); i++ {
		ds := points[i].PathLengthM - points[i-1].PathLengthM
		dist := points[i-1].Pose.Distance(points[i].Pose)
		diff := ds - dist
		if diff < 0 {
			diff = -diff
		}
		if diff > tol {
			return false
		}
	}
	return true
}
