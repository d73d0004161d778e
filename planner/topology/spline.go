// Package topology implements the topology-guided receding-horizon
// optimization planner (spec.md §4.5), grounded on
// original_source/plugins/planning/t_mpc/algorithm/main.cpp.
package topology

import (
	"math"

	"github.com/ahrs365/navsim-go/spatial"
)

// ReferenceSpline is a cubic spline in (x, y) parameterized by arc length s,
// built in Stage A (spec.md §4.5).
type ReferenceSpline struct {
	s  []float64 // breakpoints, s[0] == 0
	x  []float64
	y  []float64
	// Precomputed per-segment cubic coefficients for x and y (natural
	// spline, second derivative zero at both ends).
	cx [][4]float64
	cy [][4]float64
	L  float64
}

// BuildReferenceSpline fits a natural cubic spline through waypoints
// parameterized by cumulative Euclidean arc length.
func BuildReferenceSpline(waypoints []spatial.Pose2d) *ReferenceSpline {
	n := len(waypoints)
	if n < 2 {
		if n == 1 {
			return &ReferenceSpline{s: []float64{0}, x: []float64{waypoints[0].X}, y: []float64{waypoints[0].Y}}
		}
		return &ReferenceSpline{}
	}

	s := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, wp := range waypoints {
		xs[i] = wp.X
		ys[i] = wp.Y
		if i > 0 {
			s[i] = s[i-1] + waypoints[i-1].Distance(wp)
		}
	}

	rs := &ReferenceSpline{s: s, x: xs, y: ys, L: s[n-1]}
	rs.cx = naturalCubicCoefficients(s, xs)
	rs.cy = naturalCubicCoefficients(s, ys)
	return rs
}

// naturalCubicCoefficients returns, per segment i in [0, n-2], the
// coefficients (a,b,c,d) of a cubic a + b*t + c*t^2 + d*t^3 where
// t = s - s[i], solving the natural-boundary tridiagonal system for second
// derivatives with the Thomas algorithm.
func naturalCubicCoefficients(s, y []float64) [][4]float64 {
	n := len(s)
	if n < 2 {
		return nil
	}
	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = s[i+1] - s[i]
		if h[i] <= 0 {
			h[i] = 1e-6
		}
	}

	// Tridiagonal system for second derivatives m[0..n-1], natural
	// boundary m[0] = m[n-1] = 0.
	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3*(y[i+1]-y[i])/h[i] - 3*(y[i]-y[i-1])/h[i-1]
	}

	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1
	for i := 1; i < n-1; i++ {
		l[i] = 2*(s[i+1]-s[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1

	m := make([]float64, n) // second derivatives / 2 (c-coefficient)
	for j := n - 2; j >= 0; j-- {
		m[j] = z[j] - mu[j]*m[j+1]
	}

	coeffs := make([][4]float64, n-1)
	for i := 0; i < n-1; i++ {
		b := (y[i+1]-y[i])/h[i] - h[i]*(m[i+1]+2*m[i])/3
		d := (m[i+1] - m[i]) / (3 * h[i])
		coeffs[i] = [4]float64{y[i], b, m[i], d}
	}
	return coeffs
}

// Eval returns the (x, y) point at arc length s, clamped to [0, L].
func (r *ReferenceSpline) Eval(s float64) (float64, float64) {
	if len(r.s) == 0 {
		return 0, 0
	}
	if len(r.s) == 1 {
		return r.x[0], r.y[0]
	}
	if s < 0 {
		s = 0
	}
	if s > r.L {
		s = r.L
	}
	seg := segmentFor(r.s, s)
	t := s - r.s[seg]
	return evalCubic(r.cx[seg], t), evalCubic(r.cy[seg], t)
}

func evalCubic(c [4]float64, t float64) float64 {
	return c[0] + c[1]*t + c[2]*t*t + c[3]*t*t*t
}

func segmentFor(breakpoints []float64, s float64) int {
	for i := 0; i < len(breakpoints)-2; i++ {
		if s < breakpoints[i+1] {
			return i
		}
	}
	return len(breakpoints) - 2
}

// SampleUniform returns n evenly arc-length-spaced points along the
// reference, used by Stage A when no external reference is supplied
// (spec.md §4.5).
func SampleUniform(start, goal spatial.Pose2d, n int) []spatial.Pose2d {
	if n < 2 {
		n = 2
	}
	out := make([]spatial.Pose2d, n)
	heading := start.HeadingTo(goal)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		yaw := heading
		if i == n-1 {
			yaw = goal.Yaw
		}
		out[i] = spatial.NewPose2d(
			start.X+frac*(goal.X-start.X),
			start.Y+frac*(goal.Y-start.Y),
			yaw,
		)
	}
	return out
}

// ArcLength returns the Euclidean length of a polyline.
func ArcLength(points []spatial.Pose2d) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i-1].Distance(points[i])
	}
	return total
}

// clampAll clamps every element of vals into [lo, hi] in place.
func clampAll(vals []float64, lo, hi float64) {
	for i := range vals {
		vals[i] = math.Max(lo, math.Min(hi, vals[i]))
	}
}
