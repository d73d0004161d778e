package plugin

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/planning"
)

type fakePerception struct{ meta Metadata }

func (f *fakePerception) Metadata() Metadata                  { return f.meta }
func (f *fakePerception) Initialize(map[string]interface{}) error { return nil }
func (f *fakePerception) Reset()                               {}
func (f *fakePerception) Statistics() map[string]float64       { return nil }
func (f *fakePerception) Process(PerceptionInput, *planning.Context) error { return nil }

type fakePlanner struct{ meta Metadata }

func (f *fakePlanner) Metadata() Metadata                      { return f.meta }
func (f *fakePlanner) Initialize(map[string]interface{}) error { return nil }
func (f *fakePlanner) Reset()                                  {}
func (f *fakePlanner) Statistics() map[string]float64          { return nil }
func (f *fakePlanner) IsAvailable(*planning.Context) (bool, string) { return true, "" }
func (f *fakePlanner) Plan(*planning.Context, time.Duration) (planning.PlanningResult, error) {
	return planning.NewSucceededResult("fake", nil), nil
}

func TestPerceptionRegistryPanicsOnNilFactory(t *testing.T) {
	defer resetRegistriesForTest()
	test.That(t, func() { RegisterPerception("x", nil) }, test.ShouldPanic)
}

func TestPerceptionRegistryPanicsOnDuplicate(t *testing.T) {
	defer resetRegistriesForTest()
	factory := func() PerceptionPlugin { return &fakePerception{} }
	RegisterPerception("x", factory)
	test.That(t, func() { RegisterPerception("x", factory) }, test.ShouldPanic)
}

func TestPerceptionLookupMissingReturnsNil(t *testing.T) {
	defer resetRegistriesForTest()
	test.That(t, PerceptionLookup("nope"), test.ShouldBeNil)
}

func TestPlannerRegistryRoundTrip(t *testing.T) {
	defer resetRegistriesForTest()
	factory := func() PlannerPlugin { return &fakePlanner{} }
	RegisterPlanner("astar", factory)
	got := PlannerLookup("astar")
	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, got().Metadata(), test.ShouldResemble, Metadata{})
}

func TestRegisteredNamesSorted(t *testing.T) {
	defer resetRegistriesForTest()
	RegisterPlanner("zzz", func() PlannerPlugin { return &fakePlanner{} })
	RegisterPlanner("aaa", func() PlannerPlugin { return &fakePlanner{} })
	test.That(t, RegisteredPlannerNames(), test.ShouldResemble, []string{"aaa", "zzz"})
}
