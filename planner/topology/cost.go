package topology

import (
	"math"

	"github.com/ahrs365/navsim-go/planning"
)

// CostWeights are the scalar weights in spec.md §4.5's cost function
//
//	J = w_t*T + w_a*int(a^2) + w_w*int(wdot^2) + w_c*P_collision
//	    + w_m*P_moment + w_e*P_end-state + w_s*P_centripetal + w_o*P_continuity
type CostWeights struct {
	Time         float64
	Accel        float64
	AngularJerk  float64
	Collision    float64
	Moment       float64
	EndState     float64
	Centripetal  float64
	Continuity   float64
}

// DefaultCostWeights returns a reasonable, documented default weighting.
func DefaultCostWeights() CostWeights {
	return CostWeights{
		Time:        1.0,
		Accel:       0.5,
		AngularJerk: 0.3,
		Collision:   50.0,
		Moment:      0.2,
		EndState:    20.0,
		Centripetal: 0.4,
		Continuity:  0.2,
	}
}

// SafeDistanceM is the minimum safe distance to obstacles realized via the
// ESDF (spec.md §4.5); the collision penalty grows sharply below it.
const SafeDistanceM = 0.6

// trajectorySample is one internal optimizer sample: pose2d unrolled plus
// derivatives, kept as plain floats (x, y, yaw, v, omega, a) for cheap
// finite-difference cost/gradient evaluation.
type trajectorySample struct {
	x, y, yaw float64
	v, omega  float64
	a         float64
}

// evaluateCost computes J for a candidate trajectory (a sequence of
// samples at uniform dt) against an ESDF, a dynamic-obstacle collision
// corridor, a target end pose, and the previous tick's commanded input
// (for the continuity tie-break), per spec.md §4.5.
func evaluateCost(
	samples []trajectorySample,
	dt float64,
	weights CostWeights,
	esdf *planning.SignedDistanceField,
	endX, endY, endYaw float64,
	dynamicObstacleAt func(tSec float64) (x, y, radius float64, ok bool),
	previousOmega float64,
) (total float64, collisionTerm float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	n := len(samples)
	T := float64(n-1) * dt

	var accelInt, angJerkInt, momentInt, centripetalInt, collisionInt float64
	for i, s := range samples {
		accelInt += s.a * s.a * dt

		if i > 0 {
			domega := (samples[i].omega - samples[i-1].omega) / dt
			angJerkInt += domega * domega * dt
		}

		if esdf != nil {
			d := esdf.AtWorld(s.x, s.y)
			if d < SafeDistanceM {
				gap := SafeDistanceM - d
				collisionInt += gap * gap * dt
			}
		}

		if dynamicObstacleAt != nil {
			tSec := float64(i) * dt
			if ox, oy, r, ok := dynamicObstacleAt(tSec); ok {
				dist := math.Hypot(s.x-ox, s.y-oy)
				gap := (r + SafeDistanceM) - dist
				if gap > 0 {
					collisionInt += gap * gap * dt
				}
			}
		}

		// Moment penalty: discourages large combined lateral force
		// (v*omega), a proxy for body roll/slip moment.
		momentInt += (s.v * s.omega) * (s.v * s.omega) * dt

		// Centripetal penalty: v^2 * curvature, approximated from
		// omega/v when v is non-negligible.
		if math.Abs(s.v) > 1e-3 {
			kappa := s.omega / s.v
			centripetalInt += (s.v * s.v * kappa) * (s.v * s.v * kappa) * dt
		}
	}

	last := samples[n-1]
	endDx := last.x - endX
	endDy := last.y - endY
	endDyaw := last.yaw - endYaw
	endPenalty := endDx*endDx + endDy*endDy + endDyaw*endDyaw

	// Continuity tie-break (spec.md §4.5 "Stateless tie-breakers"): prefer
	// the trajectory whose first control input is closest to the previous
	// tick's commanded input, penalizing the squared gap in commanded
	// angular velocity.
	domega0 := samples[0].omega - previousOmega
	continuityPenalty := domega0 * domega0

	total = weights.Time*T +
		weights.Accel*accelInt +
		weights.AngularJerk*angJerkInt +
		weights.Collision*collisionInt +
		weights.Moment*momentInt +
		weights.EndState*endPenalty +
		weights.Centripetal*centripetalInt +
		weights.Continuity*continuityPenalty

	return total, collisionInt
}
