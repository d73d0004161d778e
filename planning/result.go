package planning

import "github.com/ahrs365/navsim-go/spatial"

// PlanningResult is the outcome of invoking a planner plugin (spec.md §3).
type PlanningResult struct {
	Success          bool
	FailureReason    string
	Trajectory       []TrajectoryPoint
	PlannerName      string
	ComputationTimeMS float64
	Iterations       int
	Metadata         map[string]float64
	ConstraintViolations map[string]float64

	// DebugPaths carries auxiliary visualization paths (e.g. the
	// topology-guided planner's rejected and selected guidance candidates)
	// as a first-class field. Resolves spec.md §9's debug-path-sharing open
	// question: no process-global, no raw pointer smuggled through metadata.
	DebugPaths [][]spatial.Pose2d
}

// NewFailedResult builds a PlanningResult reporting failure with reason,
// attributed to plannerName.
func NewFailedResult(plannerName, reason string) PlanningResult {
	return PlanningResult{
		Success:       false,
		FailureReason: reason,
		PlannerName:   plannerName,
		Metadata:      map[string]float64{},
		ConstraintViolations: map[string]float64{},
	}
}

// NewSucceededResult builds a successful PlanningResult over trajectory.
func NewSucceededResult(plannerName string, trajectory []TrajectoryPoint) PlanningResult {
	return PlanningResult{
		Success:     true,
		Trajectory:  trajectory,
		PlannerName: plannerName,
		Metadata:    map[string]float64{},
		ConstraintViolations: map[string]float64{},
	}
}

// StationaryFallback returns the safe single-point trajectory emitted by the
// cycle controller when both primary and fallback planners decline
// (spec.md §4.2 step 8).
func StationaryFallback(pose spatial.Pose2d) PlanningResult {
	point := TrajectoryPoint{Pose: pose}
	res := NewFailedResult("safe-stationary-fallback", "no planner succeeded")
	res.Trajectory = []TrajectoryPoint{point}
	return res
}
