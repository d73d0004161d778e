package perception

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
	"github.com/ahrs365/navsim-go/spatial"
)

func TestDynamicPredictorConstantVelocity(t *testing.T) {
	p := NewDynamicPredictor()
	test.That(t, p.Initialize(map[string]interface{}{
		"prediction_horizon": 2.0,
		"time_step":           1.0,
		"prediction_model":    "constant_velocity",
	}), test.ShouldBeNil)

	ctx := planning.NewContext(time.Now(), 6, planning.EgoVehicle{}, planning.PlanningTask{}, []planning.DynamicObstacle{
		{ID: 1, Pose: spatial.NewPose2d(0, 0, 0), Twist: spatial.Twist2d{Vx: 2}},
	})

	test.That(t, p.Process(plugin.PerceptionInput{}, ctx), test.ShouldBeNil)
	test.That(t, len(ctx.Dynamic[0].Predictions), test.ShouldEqual, 1)
	samples := ctx.Dynamic[0].Predictions[0].Samples
	test.That(t, len(samples), test.ShouldEqual, 3)
	test.That(t, samples[1].Pose.X, test.ShouldAlmostEqual, 2.0, 1e-9)
	test.That(t, samples[2].Pose.X, test.ShouldAlmostEqual, 4.0, 1e-9)
}

func TestDynamicPredictorConstantAccelerationDecelerates(t *testing.T) {
	p := NewDynamicPredictor()
	test.That(t, p.Initialize(map[string]interface{}{
		"prediction_horizon": 4.0,
		"time_step":           1.0,
		"prediction_model":    "constant_acceleration",
	}), test.ShouldBeNil)

	ctx := planning.NewContext(time.Now(), 6, planning.EgoVehicle{}, planning.PlanningTask{}, []planning.DynamicObstacle{
		{ID: 1, Pose: spatial.NewPose2d(0, 0, 0), Twist: spatial.Twist2d{Vx: 2}},
	})

	test.That(t, p.Process(plugin.PerceptionInput{}, ctx), test.ShouldBeNil)
	samples := ctx.Dynamic[0].Predictions[0].Samples
	lateGap := samples[4].Pose.X - samples[3].Pose.X
	earlyGap := samples[1].Pose.X - samples[0].Pose.X
	test.That(t, lateGap, test.ShouldBeLessThan, earlyGap)
}

func TestDynamicPredictorValidateWithinOneAfterPredicting(t *testing.T) {
	p := NewDynamicPredictor()
	test.That(t, p.Initialize(nil), test.ShouldBeNil)

	ctx := planning.NewContext(time.Now(), 6, planning.EgoVehicle{}, planning.PlanningTask{}, []planning.DynamicObstacle{
		{ID: 1, Pose: spatial.NewPose2d(0, 0, 0), Twist: spatial.Twist2d{Vx: 1}},
	})
	test.That(t, p.Process(plugin.PerceptionInput{}, ctx), test.ShouldBeNil)
	test.That(t, ctx.Dynamic[0].Validate(), test.ShouldBeNil)
}
