package spatial

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi, math.Pi},
		{2*math.Pi + 0.1, 0.1},
	}
	for _, c := range cases {
		got := NormalizeAngle(c.in)
		test.That(t, got, test.ShouldAlmostEqual, c.want, 1e-9)
		test.That(t, got, test.ShouldBeLessThanOrEqualTo, math.Pi+1e-12)
		test.That(t, got, test.ShouldBeGreaterThan, -math.Pi-1e-12)
	}
}

func TestNewPose2dNormalizesYaw(t *testing.T) {
	p := NewPose2d(1, 2, 3*math.Pi)
	test.That(t, p.Yaw, test.ShouldAlmostEqual, math.Pi, 1e-9)
}

func TestPoseDistance(t *testing.T) {
	a := NewPose2d(0, 0, 0)
	b := NewPose2d(3, 4, 0)
	test.That(t, a.Distance(b), test.ShouldAlmostEqual, 5.0, 1e-9)
}

func TestYawDiffWrapsAroundPi(t *testing.T) {
	a := NewPose2d(0, 0, 3.0)
	b := NewPose2d(0, 0, -3.0)
	diff := a.YawDiff(b)
	test.That(t, math.Abs(diff), test.ShouldBeLessThan, 0.3)
}

func TestHeadingTo(t *testing.T) {
	a := NewPose2d(0, 0, 0)
	b := NewPose2d(1, 1, 0)
	test.That(t, a.HeadingTo(b), test.ShouldAlmostEqual, math.Pi/4, 1e-9)
}

func TestAdvanceStraightLine(t *testing.T) {
	p := NewPose2d(0, 0, 0)
	next := p.Advance(Twist2d{Vx: 2, Omega: 0}, 0.5)
	test.That(t, next.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, next.Y, test.ShouldAlmostEqual, 0.0, 1e-9)
}

func TestAdvanceRotates(t *testing.T) {
	p := NewPose2d(0, 0, 0)
	next := p.Advance(Twist2d{Omega: math.Pi / 2}, 1.0)
	test.That(t, next.Yaw, test.ShouldAlmostEqual, math.Pi/2, 1e-9)
}

func TestTwistSpeed(t *testing.T) {
	tw := Twist2d{Vx: 3, Vy: 4}
	test.That(t, tw.Speed(), test.ShouldAlmostEqual, 5.0, 1e-9)
}
