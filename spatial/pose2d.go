// Package spatial provides the planar pose and velocity primitives shared by
// every planning component: Pose2d and Twist2d.
package spatial

import "math"

// Pose2d is a rigid-body pose in the world frame: position (X, Y) in meters
// and heading Yaw in radians, normalized to (-pi, pi].
type Pose2d struct {
	X, Y float64
	Yaw  float64
}

// NewPose2d constructs a Pose2d with yaw normalized into (-pi, pi].
func NewPose2d(x, y, yaw float64) Pose2d {
	return Pose2d{X: x, Y: y, Yaw: NormalizeAngle(yaw)}
}

// NormalizeAngle wraps an angle in radians into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a <= -math.Pi:
		a += 2 * math.Pi
	case a > math.Pi:
		a -= 2 * math.Pi
	}
	return a
}

// Distance returns the Euclidean distance in the XY plane to other.
func (p Pose2d) Distance(other Pose2d) float64 {
	dx := other.X - p.X
	dy := other.Y - p.Y
	return math.Hypot(dx, dy)
}

// YawDiff returns the signed shortest angular difference other.Yaw - p.Yaw,
// normalized into (-pi, pi].
func (p Pose2d) YawDiff(other Pose2d) float64 {
	return NormalizeAngle(other.Yaw - p.Yaw)
}

// Rotated returns a copy of p with Yaw advanced by dYaw, re-normalized.
func (p Pose2d) Rotated(dYaw float64) Pose2d {
	return NewPose2d(p.X, p.Y, p.Yaw+dYaw)
}

// HeadingTo returns the world-frame bearing from p to other.
func (p Pose2d) HeadingTo(other Pose2d) float64 {
	return math.Atan2(other.Y-p.Y, other.X-p.X)
}

// Advance returns the pose obtained by holding twist constant in the body
// frame for dt seconds: a first-order forward-Euler integration used by the
// transport adapter's delay compensation (spec.md §4.6) and by the
// dynamic obstacle predictor.
func (p Pose2d) Advance(t Twist2d, dt float64) Pose2d {
	// Body-frame velocity rotated into world frame.
	cos, sin := math.Cos(p.Yaw), math.Sin(p.Yaw)
	vx := t.Vx*cos - t.Vy*sin
	vy := t.Vx*sin + t.Vy*cos
	return NewPose2d(p.X+vx*dt, p.Y+vy*dt, p.Yaw+t.Omega*dt)
}
