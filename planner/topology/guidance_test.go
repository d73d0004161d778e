package topology

import (
	"testing"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/spatial"
)

func buildFreeGrid() planning.GridConfig {
	return planning.GridConfig{
		Origin:      spatial.NewPose2d(-10, -10, 0),
		ResolutionM: 0.2,
		WidthCells:  100,
		HeightCells: 100,
	}
}

func TestGenerateCandidatesStartsAtEgo(t *testing.T) {
	ref := BuildReferenceSpline(SampleUniform(spatial.NewPose2d(0, 0, 0), spatial.NewPose2d(10, 0, 0), 12))
	ego := spatial.NewPose2d(0, 0, 0)

	candidates := GenerateCandidates(ref, ego, 0, nil, DefaultGuidanceConfig())
	test.That(t, len(candidates), test.ShouldBeGreaterThan, 0)
	for _, c := range candidates {
		test.That(t, c.Path[0].X, test.ShouldAlmostEqual, ego.X, 1e-9)
		test.That(t, c.Path[0].Y, test.ShouldAlmostEqual, ego.Y, 1e-9)
	}
}

func TestGenerateCandidatesProduceDistinctOffsets(t *testing.T) {
	ref := BuildReferenceSpline(SampleUniform(spatial.NewPose2d(0, 0, 0), spatial.NewPose2d(10, 0, 0), 12))
	ego := spatial.NewPose2d(0, 0, 0)

	candidates := GenerateCandidates(ref, ego, 0, nil, DefaultGuidanceConfig())
	test.That(t, len(candidates), test.ShouldEqual, DefaultGuidanceCandidateCount)

	last0 := candidates[0].Path[len(candidates[0].Path)-1]
	last1 := candidates[1].Path[len(candidates[1].Path)-1]
	test.That(t, last0.Y, test.ShouldNotEqual, last1.Y)
}

func TestSelectCandidatePrefersHysteresisMatch(t *testing.T) {
	candidates := []Candidate{
		{TopologyClass: 1, LengthM: 20, YawChangeRad: 0, MinClearanceM: 5},
		{TopologyClass: 2, LengthM: 5, YawChangeRad: 0, MinClearanceM: 5},
	}
	selected, ok := SelectCandidate(candidates, 1, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, selected.TopologyClass, test.ShouldEqual, 1)
}

func TestSelectCandidateFallsBackToLowestCostWithoutPrevious(t *testing.T) {
	candidates := []Candidate{
		{TopologyClass: 1, LengthM: 20, YawChangeRad: 0, MinClearanceM: 5},
		{TopologyClass: 2, LengthM: 5, YawChangeRad: 0, MinClearanceM: 5},
	}
	selected, ok := SelectCandidate(candidates, 0, false)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, selected.TopologyClass, test.ShouldEqual, 2)
}

func TestSelectCandidateEmptyReturnsFalse(t *testing.T) {
	_, ok := SelectCandidate(nil, 0, false)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTopologyClassForDiffersAcrossObstacleSides(t *testing.T) {
	grid := planning.NewOccupancyGrid(buildFreeGrid())
	for y := 0; y < grid.Config.HeightCells; y++ {
		for x := 0; x < grid.Config.WidthCells; x++ {
			wx, wy := grid.Config.CellToWorld(planning.Cell{X: x, Y: y})
			if wx > 4 && wx < 6 && wy > -1 && wy < 1 {
				grid.SetCost(planning.Cell{X: x, Y: y}, planning.ObstacleInsertionStamp)
			}
		}
	}
	esdf := planning.BuildSignedDistanceField(grid, planning.ObstacleInsertionStamp, 5.0)

	pathAbove := []spatial.Pose2d{spatial.NewPose2d(5, 2, 0)}
	pathBelow := []spatial.Pose2d{spatial.NewPose2d(5, -2, 0)}

	classAbove := topologyClassFor(pathAbove, esdf)
	classBelow := topologyClassFor(pathBelow, esdf)
	test.That(t, classAbove, test.ShouldNotEqual, classBelow)
}
