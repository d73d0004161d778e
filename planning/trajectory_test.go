package planning

import (
	"testing"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/spatial"
)

func TestValidateMonotonicDetectsTimeRegression(t *testing.T) {
	pts := []TrajectoryPoint{
		{TimeFromStartS: 0, PathLengthM: 0},
		{TimeFromStartS: 1, PathLengthM: 1},
		{TimeFromStartS: 0.5, PathLengthM: 2},
	}
	test.That(t, ValidateMonotonic(pts), test.ShouldNotBeNil)
}

func TestValidateMonotonicAcceptsFlat(t *testing.T) {
	pts := []TrajectoryPoint{
		{TimeFromStartS: 0, PathLengthM: 0},
		{TimeFromStartS: 1, PathLengthM: 1},
		{TimeFromStartS: 1, PathLengthM: 1},
	}
	test.That(t, ValidateMonotonic(pts), test.ShouldBeNil)
}

func TestArcLengthConsistent(t *testing.T) {
	pts := []TrajectoryPoint{
		{Pose: spatial.NewPose2d(0, 0, 0), PathLengthM: 0},
		{Pose: spatial.NewPose2d(1, 0, 0), PathLengthM: 1},
		{Pose: spatial.NewPose2d(2, 0, 0), PathLengthM: 2},
	}
	test.That(t, ArcLengthConsistent(pts, 1e-6), test.ShouldBeTrue)

	pts[2].PathLengthM = 5
	test.That(t, ArcLengthConsistent(pts, 1e-6), test.ShouldBeFalse)
}
