package plugin

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/planning"
)

type scriptedPlanner struct {
	name      string
	available bool
	reason    string
	result    planning.PlanningResult
	err       error
	gotDeadline time.Duration
}

func (p *scriptedPlanner) Metadata() Metadata                      { return Metadata{Name: p.name} }
func (p *scriptedPlanner) Initialize(map[string]interface{}) error { return nil }
func (p *scriptedPlanner) Reset()                                  {}
func (p *scriptedPlanner) Statistics() map[string]float64          { return nil }
func (p *scriptedPlanner) IsAvailable(*planning.Context) (bool, string) {
	return p.available, p.reason
}
func (p *scriptedPlanner) Plan(ctx *planning.Context, deadline time.Duration) (planning.PlanningResult, error) {
	p.gotDeadline = deadline
	return p.result, p.err
}

func newTestContext() *planning.Context {
	return planning.NewContext(time.Now(), 6, planning.EgoVehicle{}, planning.PlanningTask{}, nil)
}

func TestPlannerManagerPrimarySucceeds(t *testing.T) {
	defer resetRegistriesForTest()
	primary := &scriptedPlanner{name: "primary", available: true, result: planning.NewSucceededResult("primary", nil)}
	RegisterPlanner("primary", func() PlannerPlugin { return primary })

	mgr, err := NewPlannerPluginManager(PlannerPluginManagerConfig{PrimaryName: "primary", FallbackTimeRatio: 1}, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	result, err := mgr.Plan(newTestContext(), 100*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Success, test.ShouldBeTrue)
}

func TestPlannerManagerFallsBackWithReducedDeadline(t *testing.T) {
	defer resetRegistriesForTest()
	primary := &scriptedPlanner{name: "primary", available: true, result: planning.NewFailedResult("primary", "deadline")}
	fallback := &scriptedPlanner{name: "fallback", available: true, result: planning.NewSucceededResult("fallback", nil)}
	RegisterPlanner("primary", func() PlannerPlugin { return primary })
	RegisterPlanner("fallback", func() PlannerPlugin { return fallback })

	mgr, err := NewPlannerPluginManager(PlannerPluginManagerConfig{
		PrimaryName: "primary", FallbackName: "fallback", EnableFallback: true, FallbackTimeRatio: 0.7,
	}, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	result, err := mgr.Plan(newTestContext(), 1000*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Success, test.ShouldBeTrue)
	test.That(t, fallback.gotDeadline, test.ShouldEqual, 700*time.Millisecond)
}

func TestPlannerManagerSkipsPrimaryWhenUnavailable(t *testing.T) {
	defer resetRegistriesForTest()
	primary := &scriptedPlanner{name: "primary", available: false, reason: "no occupancy grid"}
	fallback := &scriptedPlanner{name: "fallback", available: true, result: planning.NewSucceededResult("fallback", nil)}
	RegisterPlanner("primary", func() PlannerPlugin { return primary })
	RegisterPlanner("fallback", func() PlannerPlugin { return fallback })

	mgr, err := NewPlannerPluginManager(PlannerPluginManagerConfig{
		PrimaryName: "primary", FallbackName: "fallback", EnableFallback: true, FallbackTimeRatio: 1,
	}, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	result, err := mgr.Plan(newTestContext(), 100*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Success, test.ShouldBeTrue)
}

func TestPlannerManagerBothDeclineComposesReasons(t *testing.T) {
	defer resetRegistriesForTest()
	primary := &scriptedPlanner{name: "primary", available: true, result: planning.NewFailedResult("primary", "goal occupied")}
	fallback := &scriptedPlanner{name: "fallback", available: false, reason: "no straight path"}
	RegisterPlanner("primary", func() PlannerPlugin { return primary })
	RegisterPlanner("fallback", func() PlannerPlugin { return fallback })

	mgr, err := NewPlannerPluginManager(PlannerPluginManagerConfig{
		PrimaryName: "primary", FallbackName: "fallback", EnableFallback: true, FallbackTimeRatio: 1,
	}, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	result, err := mgr.Plan(newTestContext(), 100*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Success, test.ShouldBeFalse)
	test.That(t, result.FailureReason, test.ShouldContainSubstring, "goal occupied")
	test.That(t, result.FailureReason, test.ShouldContainSubstring, "no straight path")
}

func TestPlannerManagerNoFallbackConfiguredPropagatesPrimaryFailure(t *testing.T) {
	defer resetRegistriesForTest()
	primary := &scriptedPlanner{name: "primary", available: true, result: planning.NewFailedResult("primary", "no path found")}
	RegisterPlanner("primary", func() PlannerPlugin { return primary })

	mgr, err := NewPlannerPluginManager(PlannerPluginManagerConfig{PrimaryName: "primary", FallbackTimeRatio: 1}, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	result, err := mgr.Plan(newTestContext(), 100*time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Success, test.ShouldBeFalse)
	test.That(t, result.FailureReason, test.ShouldEqual, "no path found")
}

func TestPlannerManagerRejectsBadRatio(t *testing.T) {
	defer resetRegistriesForTest()
	RegisterPlanner("primary", func() PlannerPlugin { return &scriptedPlanner{name: "primary", available: true} })
	_, err := NewPlannerPluginManager(PlannerPluginManagerConfig{PrimaryName: "primary", FallbackTimeRatio: 0}, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
