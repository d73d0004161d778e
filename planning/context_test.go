package planning

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/spatial"
)

func TestContextArtifactRoundTrip(t *testing.T) {
	ctx := NewContext(time.Now(), 6.0, EgoVehicle{Pose: spatial.NewPose2d(0, 0, 0)}, PlanningTask{}, nil)

	_, ok := ctx.Artifact("missing")
	test.That(t, ok, test.ShouldBeFalse)

	ctx.SetArtifact("foo", 42)
	v, ok := ctx.Artifact("foo")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 42)
}

func TestContextResetArtifactsClearsEverything(t *testing.T) {
	ctx := NewContext(time.Now(), 6.0, EgoVehicle{}, PlanningTask{}, nil)
	ctx.SetArtifact("foo", 1)
	ctx.OccupancyGrid = NewOccupancyGrid(testGridConfig())
	ctx.BEV = &BEVObstacles{}
	ctx.ESDF = NewSignedDistanceField(testGridConfig(), 5)

	ctx.ResetArtifacts()

	_, ok := ctx.Artifact("foo")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, ctx.OccupancyGrid, test.ShouldBeNil)
	test.That(t, ctx.BEV, test.ShouldBeNil)
	test.That(t, ctx.ESDF, test.ShouldBeNil)
}

func TestContextDynamicIsCopied(t *testing.T) {
	src := []DynamicObstacle{{ID: 1}}
	ctx := NewContext(time.Now(), 6.0, EgoVehicle{}, PlanningTask{}, src)
	src[0].ID = 99
	test.That(t, ctx.Dynamic[0].ID, test.ShouldEqual, 1)
}
