package planning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrs365/navsim-go/spatial"
)

// ESDF is tested with testify/require rather than go.viam.com/test, matching
// katalvlaran-lvlath's style for pure-math/grid-algorithm unit tests (see
// SPEC_FULL.md).

func TestESDFFreeCellsNonNegative(t *testing.T) {
	cfg := GridConfig{Origin: spatial.NewPose2d(0, 0, 0), ResolutionM: 1.0, WidthCells: 20, HeightCells: 20}
	grid := NewOccupancyGrid(cfg)
	grid.SetCost(Cell{10, 10}, ObstacleInsertionStamp)

	field := BuildSignedDistanceField(grid, DefaultOccupiedThreshold, 50)

	for y := 0; y < cfg.HeightCells; y++ {
		for x := 0; x < cfg.WidthCells; x++ {
			cell := Cell{x, y}
			d, ok := field.At(cell)
			require.True(t, ok)
			if x == 10 && y == 10 {
				require.LessOrEqual(t, d, 0.0)
				continue
			}
			require.GreaterOrEqual(t, d, 0.0)
		}
	}
}

func TestESDFMatchesBruteForceNearestObstacle(t *testing.T) {
	cfg := GridConfig{Origin: spatial.NewPose2d(0, 0, 0), ResolutionM: 1.0, WidthCells: 12, HeightCells: 12}
	grid := NewOccupancyGrid(cfg)
	grid.SetCost(Cell{3, 3}, ObstacleInsertionStamp)
	grid.SetCost(Cell{8, 8}, ObstacleInsertionStamp)

	field := BuildSignedDistanceField(grid, DefaultOccupiedThreshold, 50)

	bruteForce := func(cx, cy int) float64 {
		best := math.Inf(1)
		for y := 0; y < cfg.HeightCells; y++ {
			for x := 0; x < cfg.WidthCells; x++ {
				if !grid.IsOccupied(Cell{x, y}, DefaultOccupiedThreshold) {
					continue
				}
				d := math.Hypot(float64(x-cx), float64(y-cy))
				if d < best {
					best = d
				}
			}
		}
		return best
	}

	for _, cell := range []Cell{{0, 0}, {5, 5}, {11, 11}, {4, 4}} {
		got, _ := field.At(cell)
		want := bruteForce(cell.X, cell.Y) * cfg.ResolutionM
		require.InDelta(t, want, got, 1e-6)
	}
}

func TestESDFOccupiedCellsNonPositive(t *testing.T) {
	cfg := GridConfig{Origin: spatial.NewPose2d(0, 0, 0), ResolutionM: 1.0, WidthCells: 10, HeightCells: 10}
	grid := NewOccupancyGrid(cfg)
	for x := 2; x <= 6; x++ {
		for y := 2; y <= 6; y++ {
			grid.SetCost(Cell{x, y}, ObstacleInsertionStamp)
		}
	}
	field := BuildSignedDistanceField(grid, DefaultOccupiedThreshold, 50)
	d, _ := field.At(Cell{4, 4})
	require.Less(t, d, 0.0)
}
