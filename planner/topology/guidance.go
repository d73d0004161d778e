package topology

import (
	"math"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/spatial"
)

// Candidate is one proposed geometric path from ego to a forward horizon on
// the reference, tagged with its topology class (spec.md §4.5).
type Candidate struct {
	Path          []spatial.Pose2d
	TopologyClass int
	LengthM       float64
	YawChangeRad  float64
	MinClearanceM float64
}

// DefaultGuidanceCandidateCount is the default K in spec.md §4.5.
const DefaultGuidanceCandidateCount = 4

// GuidanceConfig configures Stage B candidate generation.
type GuidanceConfig struct {
	CandidateCount   int
	HorizonM         float64
	LateralOffsetsM  []float64 // one offset per candidate lane, signed
	EgoRadiusM       float64
	SafetyMarginM    float64
	SamplesPerPath   int
}

// DefaultGuidanceConfig returns documented defaults: 4 candidates spanning
// pass-left / pass-right / center offsets.
func DefaultGuidanceConfig() GuidanceConfig {
	return GuidanceConfig{
		CandidateCount:  DefaultGuidanceCandidateCount,
		HorizonM:        8.0,
		LateralOffsetsM: []float64{0, 1.5, -1.5, 3.0},
		EgoRadiusM:      0.5,
		SafetyMarginM:   0.3,
		SamplesPerPath:  24,
	}
}

// GenerateCandidates builds up to cfg.CandidateCount candidate paths from
// ego pose to a point on ref near s = currentProgress + guidanceHorizon,
// each laterally offset from the reference and tagged with a topology
// class, per spec.md §4.5 Stage B.
func GenerateCandidates(ref *ReferenceSpline, ego spatial.Pose2d, currentProgressM float64, esdf *planning.SignedDistanceField, cfg GuidanceConfig) []Candidate {
	targetS := currentProgressM + cfg.HorizonM
	if targetS > ref.L {
		targetS = ref.L
	}

	var candidates []Candidate
	n := cfg.CandidateCount
	if n > len(cfg.LateralOffsetsM) {
		n = len(cfg.LateralOffsetsM)
	}
	for i := 0; i < n; i++ {
		offset := cfg.LateralOffsetsM[i]
		path := buildOffsetPath(ref, ego, currentProgressM, targetS, offset, cfg.SamplesPerPath)
		clearance := math.Inf(1)
		if esdf != nil {
			clearance = minClearance(path, esdf)
		}
		candidates = append(candidates, Candidate{
			Path:          path,
			TopologyClass: topologyClassFor(path, esdf),
			LengthM:       ArcLength(path),
			YawChangeRad:  totalYawChange(path),
			MinClearanceM: clearance,
		})
	}
	return candidates
}

// buildOffsetPath samples the reference from currentProgressM to targetS,
// shifted laterally by offsetM (signed, perpendicular to the local
// tangent), starting from the ego pose itself so the candidate begins
// exactly at ego (spec.md §4.5: "Starts at ego pose").
func buildOffsetPath(ref *ReferenceSpline, ego spatial.Pose2d, startS, targetS, offsetM float64, samples int) []spatial.Pose2d {
	if samples < 2 {
		samples = 2
	}
	path := make([]spatial.Pose2d, 0, samples+1)
	path = append(path, ego)

	span := targetS - startS
	if span <= 0 {
		return path
	}
	for i := 1; i <= samples; i++ {
		frac := float64(i) / float64(samples)
		s := startS + frac*span
		x, y := ref.Eval(s)
		// Estimate local tangent via a small forward difference to offset
		// perpendicular to the path.
		dx, dy := tangentAt(ref, s)
		norm := math.Hypot(dx, dy)
		var nx, ny float64
		if norm > 1e-9 {
			nx, ny = -dy/norm, dx/norm
		}
		px := x + nx*offsetM*fadeIn(frac)
		py := y + ny*offsetM*fadeIn(frac)
		yaw := math.Atan2(dy, dx)
		path = append(path, spatial.NewPose2d(px, py, yaw))
	}
	return path
}

// fadeIn ramps the lateral offset in from 0 at frac=0 to 1 at frac>=0.25,
// so the candidate departs smoothly from the ego pose instead of jumping
// laterally at the first sample.
func fadeIn(frac float64) float64 {
	if frac >= 0.25 {
		return 1
	}
	return frac / 0.25
}

func tangentAt(ref *ReferenceSpline, s float64) (float64, float64) {
	const eps = 0.05
	x0, y0 := ref.Eval(s - eps)
	x1, y1 := ref.Eval(s + eps)
	return x1 - x0, y1 - y0
}

func totalYawChange(path []spatial.Pose2d) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		d := path[i-1].YawDiff(path[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total
}

func minClearance(path []spatial.Pose2d, esdf *planning.SignedDistanceField) float64 {
	min := math.Inf(1)
	for _, p := range path {
		d := esdf.AtWorld(p.X, p.Y)
		if d < min {
			min = d
		}
	}
	return min
}

// topologyClassFor computes an integer label invariant under continuous
// deformations of the candidate that don't cross an obstacle: a 2-bit value
// built from the signs of the ESDF gradient at the path's midpoint (bit 0
// set when the x-gradient is positive, bit 1 when the y-gradient is
// positive) (DESIGN.md "topology class representation").
func topologyClassFor(path []spatial.Pose2d, esdf *planning.SignedDistanceField) int {
	if esdf == nil || len(path) == 0 {
		return 0
	}
	mid := path[len(path)/2]
	// Sample the sign of the ESDF gradient direction at the midpoint: which
	// side of the nearest obstacle boundary the path passes on. This value
	// is unchanged by any deformation that doesn't cross the obstacle
	// (the gradient direction flips only at the boundary crossing).
	const eps = 0.1
	dx := esdf.AtWorld(mid.X+eps, mid.Y) - esdf.AtWorld(mid.X-eps, mid.Y)
	dy := esdf.AtWorld(mid.X, mid.Y+eps) - esdf.AtWorld(mid.X, mid.Y-eps)
	class := 0
	if dx > 0 {
		class |= 1
	}
	if dy > 0 {
		class |= 2
	}
	return class
}

// SelectCandidate implements spec.md §4.5's selection rule: prefer the
// candidate whose topology class matches previousClass (hysteresis);
// otherwise pick the lowest-cost candidate by
// (length + yaw-change + obstacle proximity penalty).
func SelectCandidate(candidates []Candidate, previousClass int, haveprevious bool) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	if haveprevious {
		for _, c := range candidates {
			if c.TopologyClass == previousClass {
				return c, true
			}
		}
	}
	best := candidates[0]
	bestCost := candidateCost(best)
	for _, c := range candidates[1:] {
		cost := candidateCost(c)
		if cost < bestCost {
			best = c
			bestCost = cost
		}
	}
	return best, true
}

func candidateCost(c Candidate) float64 {
	proximityPenalty := 0.0
	if c.MinClearanceM < 1.0 {
		proximityPenalty = (1.0 - c.MinClearanceM) * 10
	}
	return c.LengthM + c.YawChangeRad*2 + proximityPenalty
}
