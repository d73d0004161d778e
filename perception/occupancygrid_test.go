package perception

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
	"github.com/ahrs365/navsim-go/spatial"
)

func TestOccupancyGridBuilderStampsCircle(t *testing.T) {
	p := NewOccupancyGridBuilder()
	test.That(t, p.Initialize(map[string]interface{}{"resolution": 0.2, "map_width": 20.0, "map_height": 20.0}), test.ShouldBeNil)

	ctx := planning.NewContext(time.Now(), 6, planning.EgoVehicle{Pose: spatial.NewPose2d(0, 0, 0)}, planning.PlanningTask{}, nil)
	ctx.BEV = &planning.BEVObstacles{Circles: []planning.Circle{{Center: spatial.NewPose2d(3, 0, 0), RadiusM: 0.5, Confidence: 1}}}

	test.That(t, p.Process(plugin.PerceptionInput{}, ctx), test.ShouldBeNil)
	test.That(t, ctx.OccupancyGrid, test.ShouldNotBeNil)
	test.That(t, ctx.OccupancyGrid.IsOccupiedWorld(3, 0), test.ShouldBeTrue)
	test.That(t, ctx.OccupancyGrid.IsOccupiedWorld(-8, 8), test.ShouldBeFalse)
}

func TestOccupancyGridBuilderStampsRectangle(t *testing.T) {
	p := NewOccupancyGridBuilder()
	test.That(t, p.Initialize(map[string]interface{}{"resolution": 0.2, "map_width": 20.0, "map_height": 20.0, "inflation_radius": 0.0}), test.ShouldBeNil)

	ctx := planning.NewContext(time.Now(), 6, planning.EgoVehicle{Pose: spatial.NewPose2d(0, 0, 0)}, planning.PlanningTask{}, nil)
	ctx.BEV = &planning.BEVObstacles{Rectangles: []planning.Rectangle{{Pose: spatial.NewPose2d(4, 0, 0), WidthM: 2, HeightM: 2, Confidence: 1}}}

	test.That(t, p.Process(plugin.PerceptionInput{}, ctx), test.ShouldBeNil)
	test.That(t, ctx.OccupancyGrid.IsOccupiedWorld(4, 0), test.ShouldBeTrue)
	test.That(t, ctx.OccupancyGrid.IsOccupiedWorld(4, 5), test.ShouldBeFalse)
}

func TestOccupancyGridBuilderCenteredOnEgo(t *testing.T) {
	p := NewOccupancyGridBuilder()
	test.That(t, p.Initialize(map[string]interface{}{"resolution": 0.5, "map_width": 10.0, "map_height": 10.0}), test.ShouldBeNil)

	ctx := planning.NewContext(time.Now(), 6, planning.EgoVehicle{Pose: spatial.NewPose2d(100, 100, 0)}, planning.PlanningTask{}, nil)
	ctx.BEV = &planning.BEVObstacles{}

	test.That(t, p.Process(plugin.PerceptionInput{}, ctx), test.ShouldBeNil)
	cell := ctx.OccupancyGrid.Config.WorldToCell(100, 100)
	test.That(t, ctx.OccupancyGrid.Config.InBounds(cell), test.ShouldBeTrue)
}
