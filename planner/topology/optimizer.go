package topology

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/spatial"
)

// OptimizerConfig bounds Stage C's per-candidate local optimization
// (spec.md §4.5).
type OptimizerConfig struct {
	SampleTimeS       float64 // 0.05-0.2s
	MaxOuterIterations int    // augmented-Lagrangian penalty escalations
	MaxInnerIterations int    // quasi-Newton descent steps per outer iteration
	LearningRate      float64
	PenaltyGrowth     float64
}

// DefaultOptimizerConfig returns documented defaults.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		SampleTimeS:        0.1,
		MaxOuterIterations: 6,
		MaxInnerIterations: 25,
		LearningRate:       0.05,
		PenaltyGrowth:      1.6,
	}
}

// OptimizeResult is the output of optimizing one candidate.
type OptimizeResult struct {
	Samples       []trajectorySample
	Cost          float64
	CollisionTerm float64
	Iterations    int
}

// Optimize minimizes the candidate's trajectory cost J (spec.md §4.5)
// starting from an initial guess interpolated along candidate.Path. The
// outer loop escalates the end-state penalty weight (a quadratic-penalty
// simplification of the augmented-Lagrangian update on the end-state and
// mean-time equality constraints); the inner loop is an L-BFGS-style
// quasi-Newton descent over per-waypoint lateral offsets, with an early
// exit when deadline is exceeded.
func Optimize(candidate Candidate, endYaw float64, weights CostWeights, cfg OptimizerConfig, esdf *planning.SignedDistanceField, dynamicObstacleAt func(float64) (float64, float64, float64, bool), deadline time.Time, previousOmega float64) OptimizeResult {
	samples := initialSamples(candidate.Path, cfg.SampleTimeS)
	if len(samples) == 0 {
		return OptimizeResult{}
	}

	endX, endY := samples[len(samples)-1].x, samples[len(samples)-1].y

	// Optimization variables: one lateral offset per interior sample
	// (endpoints fixed), representing the "inner control points" of the
	// piecewise trajectory.
	n := len(samples)
	x := make([]float64, n-2)
	iterations := 0
	curWeights := weights

	for outer := 0; outer < cfg.MaxOuterIterations; outer++ {
		if time.Now().After(deadline) {
			break
		}
		var iterationsUsed int
		x, iterationsUsed = lbfgsDescent(x, cfg.MaxInnerIterations, cfg.LearningRate, deadline, func(v []float64) float64 {
			trial := applyOffsets(samples, v)
			cost, _ := evaluateCost(trial, cfg.SampleTimeS, curWeights, esdf, endX, endY, endYaw, dynamicObstacleAt, previousOmega)
			return cost
		})
		iterations += iterationsUsed
		curWeights.EndState *= cfg.PenaltyGrowth
	}

	final := applyOffsets(samples, x)
	cost, collisionTerm := evaluateCost(final, cfg.SampleTimeS, weights, esdf, endX, endY, endYaw, dynamicObstacleAt, previousOmega)
	return OptimizeResult{Samples: final, Cost: cost, CollisionTerm: collisionTerm, Iterations: iterations}
}

// initialSamples builds the initial trajectorySample sequence from a
// candidate path, one sample per path point spaced dt apart in time, using
// constant speed equal to path length / (n-1)*dt, with omega derived from
// consecutive finite differences.
func initialSamples(path []spatial.Pose2d, dt float64) []trajectorySample {
	if len(path) < 2 {
		return nil
	}
	length := ArcLength(path)
	n := len(path)
	if n < 3 {
		n = 3
	}
	out := make([]trajectorySample, 0, n)
	for _, p := range path {
		out = append(out, trajectorySample{x: p.X, y: p.Y, yaw: p.Yaw})
	}
	avgV := 0.0
	if float64(len(out)-1)*dt > 0 {
		avgV = length / (float64(len(out)-1) * dt)
	}
	for i := range out {
		out[i].v = avgV
		if i > 0 {
			out[i].a = 0
			out[i].omega = (out[i].yaw - out[i-1].yaw) / dt
		}
	}
	return out
}

// applyOffsets returns a copy of base with interior samples displaced
// perpendicular to their local tangent by offsets.
func applyOffsets(base []trajectorySample, offsets []float64) []trajectorySample {
	out := make([]trajectorySample, len(base))
	copy(out, base)
	for i, off := range offsets {
		idx := i + 1
		if idx <= 0 || idx >= len(out)-1 {
			continue
		}
		dx := out[idx+1].x - out[idx-1].x
		dy := out[idx+1].y - out[idx-1].y
		norm := math.Hypot(dx, dy)
		if norm < 1e-9 {
			continue
		}
		nx, ny := -dy/norm, dx/norm
		out[idx].x = base[idx].x + nx*off
		out[idx].y = base[idx].y + ny*off
	}
	return out
}

// lbfgsDescent performs a small number of quasi-Newton-flavored descent
// steps using a two-loop L-BFGS history recursion over a short memory
// window, with finite-difference gradients (no analytic gradient is
// available for the obstacle-penalty terms). Returns the updated point and
// the number of steps actually taken (early exit on deadline).
func lbfgsDescent(x0 []float64, maxIter int, lr float64, deadline time.Time, f func([]float64) float64) ([]float64, int) {
	n := len(x0)
	if n == 0 {
		return x0, 0
	}
	x := append([]float64(nil), x0...)

	const memory = 5
	var sHist, yHist [][]float64

	grad := func(v []float64) []float64 {
		const eps = 1e-3
		g := make([]float64, len(v))
		base := f(v)
		for i := range v {
			trial := append([]float64(nil), v...)
			trial[i] += eps
			g[i] = (f(trial) - base) / eps
		}
		return g
	}

	g := grad(x)
	steps := 0
	for steps = 0; steps < maxIter; steps++ {
		if time.Now().After(deadline) {
			break
		}
		if floats.Norm(g, 2) < 1e-6 {
			break
		}

		direction := twoLoopRecursion(g, sHist, yHist)
		next := make([]float64, n)
		for i := range next {
			next[i] = x[i] - lr*direction[i]
		}

		nextGrad := grad(next)
		s := make([]float64, n)
		y := make([]float64, n)
		for i := range s {
			s[i] = next[i] - x[i]
			y[i] = nextGrad[i] - g[i]
		}
		sHist = append(sHist, s)
		yHist = append(yHist, y)
		if len(sHist) > memory {
			sHist = sHist[1:]
			yHist = yHist[1:]
		}

		x = next
		g = nextGrad
	}
	return x, steps
}

// twoLoopRecursion is the standard L-BFGS two-loop recursion approximating
// H*g given a short (s,y) history.
func twoLoopRecursion(g []float64, sHist, yHist [][]float64) []float64 {
	n := len(g)
	q := mat.NewVecDense(n, append([]float64(nil), g...))
	m := len(sHist)
	alpha := make([]float64, m)
	rho := make([]float64, m)

	for i := m - 1; i >= 0; i-- {
		s := mat.NewVecDense(n, sHist[i])
		y := mat.NewVecDense(n, yHist[i])
		denom := mat.Dot(y, s)
		if math.Abs(denom) < 1e-12 {
			rho[i] = 0
			continue
		}
		rho[i] = 1.0 / denom
		alpha[i] = rho[i] * mat.Dot(s, q)
		qv := make([]float64, n)
		for j := 0; j < n; j++ {
			qv[j] = q.AtVec(j) - alpha[i]*y.AtVec(j)
		}
		q = mat.NewVecDense(n, qv)
	}

	gamma := 1.0
	if m > 0 {
		s := mat.NewVecDense(n, sHist[m-1])
		y := mat.NewVecDense(n, yHist[m-1])
		yy := mat.Dot(y, y)
		if yy > 1e-12 {
			gamma = mat.Dot(s, y) / yy
		}
	}
	r := make([]float64, n)
	for j := 0; j < n; j++ {
		r[j] = gamma * q.AtVec(j)
	}

	for i := 0; i < m; i++ {
		if rho[i] == 0 {
			continue
		}
		y := mat.NewVecDense(n, yHist[i])
		s := mat.NewVecDense(n, sHist[i])
		beta := rho[i] * mat.Dot(y, mat.NewVecDense(n, r))
		for j := 0; j < n; j++ {
			r[j] += s.AtVec(j) * (alpha[i] - beta)
		}
	}
	return r
}
