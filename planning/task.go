package planning

import "github.com/ahrs365/navsim-go/spatial"

// TaskKind tags the kind of maneuver requested. The core only implements
// GOTO_GOAL; the others are reserved tags carried through for future
// planners (spec.md §3).
type TaskKind int

const (
	GotoGoal TaskKind = iota
	LaneFollow
	LaneChange
	Park
	EmergencyStop
)

func (k TaskKind) String() string {
	switch k {
	case GotoGoal:
		return "GOTO_GOAL"
	case LaneFollow:
		return "LANE_FOLLOW"
	case LaneChange:
		return "LANE_CHANGE"
	case Park:
		return "PARK"
	case EmergencyStop:
		return "EMERGENCY_STOP"
	default:
		return "UNKNOWN"
	}
}

// Tolerance is the acceptance radius/heading band for arrival at a goal.
type Tolerance struct {
	PositionM float64
	YawRad    float64
}

// PlanningTask describes the goal the planner is asked to reach.
type PlanningTask struct {
	Goal      spatial.Pose2d
	Tolerance Tolerance
	Kind      TaskKind
}

// Reached reports whether pose satisfies the task's position and yaw
// tolerance against Goal.
func (t PlanningTask) Reached(pose spatial.Pose2d) bool {
	if pose.Distance(t.Goal) > t.Tolerance.PositionM {
		return false
	}
	yawDiff := pose.YawDiff(t.Goal)
	if yawDiff < 0 {
		yawDiff = -yawDiff
	}
	return yawDiff <= t.Tolerance.YawRad
}
