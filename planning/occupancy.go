package planning

import (
	"fmt"
	"math"

	"github.com/ahrs365/navsim-go/spatial"
)

// DefaultOccupiedThreshold is the default cost at or above which a cell is
// considered occupied for query purposes (spec.md §3).
const DefaultOccupiedThreshold = 50

// ObstacleInsertionStamp is the cost written into a cell when a perception
// plugin stamps an obstacle into the grid (spec.md §3).
const ObstacleInsertionStamp = 100

// GridConfig describes an occupancy grid's footprint: the world pose of
// cell (0,0), its resolution, and its cell dimensions.
type GridConfig struct {
	Origin        spatial.Pose2d
	ResolutionM   float64
	WidthCells    int
	HeightCells   int
}

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// WorldToCell maps a world-frame point into grid cell coordinates via
// floor((world-origin)/resolution), per spec.md §3.
func (c GridConfig) WorldToCell(x, y float64) Cell {
	dx := x - c.Origin.X
	dy := y - c.Origin.Y
	return Cell{
		X: int(math.Floor(dx / c.ResolutionM)),
		Y: int(math.Floor(dy / c.ResolutionM)),
	}
}

// CellToWorld returns the world-frame center of a grid cell.
func (c GridConfig) CellToWorld(cell Cell) (x, y float64) {
	x = c.Origin.X + (float64(cell.X)+0.5)*c.ResolutionM
	y = c.Origin.Y + (float64(cell.Y)+0.5)*c.ResolutionM
	return
}

// InBounds reports whether cell lies within the grid footprint.
func (c GridConfig) InBounds(cell Cell) bool {
	return cell.X >= 0 && cell.X < c.WidthCells && cell.Y >= 0 && cell.Y < c.HeightCells
}

// Index returns the row-major linear index of cell, and whether it is
// in-bounds.
func (c GridConfig) Index(cell Cell) (int, bool) {
	if !c.InBounds(cell) {
		return 0, false
	}
	return cell.Y*c.WidthCells + cell.X, true
}

// OccupancyGrid is a row-major uniform lattice of cell costs in [0,255].
// Invariant: len(Data) == WidthCells*HeightCells (spec.md §3).
type OccupancyGrid struct {
	Config GridConfig
	Data   []uint8
}

// NewOccupancyGrid allocates a zero-cost grid for the given config.
func NewOccupancyGrid(cfg GridConfig) *OccupancyGrid {
	return &OccupancyGrid{
		Config: cfg,
		Data:   make([]uint8, cfg.WidthCells*cfg.HeightCells),
	}
}

// Validate checks the grid-size invariant.
func (g *OccupancyGrid) Validate() error {
	want := g.Config.WidthCells * g.Config.HeightCells
	if len(g.Data) != want {
		return fmt.Errorf("occupancy grid data length %d does not match width*height %d", len(g.Data), want)
	}
	return nil
}

// Cost returns the cost at cell and whether the query was in-bounds.
// Out-of-range queries are treated as occupied per spec.md §3, so callers
// that only care about occupancy can ignore the ok value and rely on
// IsOccupied below.
func (g *OccupancyGrid) Cost(cell Cell) (cost uint8, ok bool) {
	idx, ok := g.Config.Index(cell)
	if !ok {
		return 0, false
	}
	return g.Data[idx], true
}

// SetCost writes a cost into cell if in-bounds; no-op otherwise.
func (g *OccupancyGrid) SetCost(cell Cell, cost uint8) {
	if idx, ok := g.Config.Index(cell); ok {
		g.Data[idx] = cost
	}
}

// IsOccupied reports whether cell is occupied at the given threshold.
// Out-of-range cells are always occupied (spec.md §3).
func (g *OccupancyGrid) IsOccupied(cell Cell, threshold uint8) bool {
	cost, ok := g.Cost(cell)
	if !ok {
		return true
	}
	return cost >= threshold
}

// IsOccupiedWorld is IsOccupied with a world->cell lookup folded in, using
// the default occupancy threshold.
func (g *OccupancyGrid) IsOccupiedWorld(x, y float64) bool {
	return g.IsOccupied(g.Config.WorldToCell(x, y), DefaultOccupiedThreshold)
}

// Inflate returns a copy of g where every cell within radiusM of an
// obstacle-cost cell (>= ObstacleInsertionStamp) is raised to at least
// stampCost. Used by the occupancy-grid perception plugin to apply the
// configured inflation_radius (spec.md §9).
func (g *OccupancyGrid) Inflate(radiusM float64, stampCost uint8) *OccupancyGrid {
	out := &OccupancyGrid{Config: g.Config, Data: append([]uint8(nil), g.Data...)}
	if radiusM <= 0 {
		return out
	}
	radiusCells := int(math.Ceil(radiusM / g.Config.ResolutionM))
	w, h := g.Config.WidthCells, g.Config.HeightCells
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if g.Data[idx] < ObstacleInsertionStamp {
				continue
			}
			for dy := -radiusCells; dy <= radiusCells; dy++ {
				for dx := -radiusCells; dx <= radiusCells; dx++ {
					dist := math.Hypot(float64(dx), float64(dy)) * g.Config.ResolutionM
					if dist > radiusM {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					nIdx := ny*w + nx
					if out.Data[nIdx] < stampCost {
						out.Data[nIdx] = stampCost
					}
				}
			}
		}
	}
	return out
}
