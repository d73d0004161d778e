package perception

import (
	"math"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
	"github.com/ahrs365/navsim-go/spatial"
)

// OccupancyGridBuilderName is the registry name for the occupancy-grid
// construction plugin.
const OccupancyGridBuilderName = "occupancy_grid_builder"

// OccupancyGridConfig is the plugin's recognized configuration keys
// (spec.md §9).
type OccupancyGridConfig struct {
	ResolutionM     float64
	MapWidthM       float64
	MapHeightM      float64
	ObstacleCost    uint8
	InflationRadiusM float64
}

// DefaultOccupancyGridConfig returns documented defaults: a 40x40m map at
// 0.2m resolution centered on the ego pose at build time.
func DefaultOccupancyGridConfig() OccupancyGridConfig {
	return OccupancyGridConfig{
		ResolutionM:      0.2,
		MapWidthM:        40,
		MapHeightM:       40,
		ObstacleCost:     planning.ObstacleInsertionStamp,
		InflationRadiusM: 0.3,
	}
}

// OccupancyGridBuilder stamps the BEV obstacle decomposition into a fresh
// occupancy grid each tick, centered on the ego pose, then inflates
// obstacle cells by InflationRadiusM (spec.md §4.1, §9), grounded on
// original_source/plugins/perception/grid_map_builder/src/grid_map_builder_plugin.cpp.
type OccupancyGridBuilder struct {
	cfg   OccupancyGridConfig
	stats plugin.Stats
}

// NewOccupancyGridBuilder constructs an uninitialized builder.
func NewOccupancyGridBuilder() plugin.PerceptionPlugin { return &OccupancyGridBuilder{} }

// Metadata implements plugin.PerceptionPlugin.
func (o *OccupancyGridBuilder) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:              OccupancyGridBuilderName,
		Version:           "1.0.0",
		Description:       "Occupancy grid construction from BEV obstacles",
		Kind:              plugin.KindPerception,
		RequiredArtifacts: []string{"bev_obstacles"},
	}
}

// Initialize decodes config, applying documented defaults (spec.md §9).
func (o *OccupancyGridBuilder) Initialize(config map[string]interface{}) error {
	cfg := DefaultOccupancyGridConfig()
	applyFloat(config, "resolution", &cfg.ResolutionM)
	applyFloat(config, "map_width", &cfg.MapWidthM)
	applyFloat(config, "map_height", &cfg.MapHeightM)
	if v, ok := config["obstacle_cost"]; ok {
		switch n := v.(type) {
		case int:
			cfg.ObstacleCost = uint8(n)
		case float64:
			cfg.ObstacleCost = uint8(n)
		}
	}
	applyFloat(config, "inflation_radius", &cfg.InflationRadiusM)
	o.cfg = cfg
	return nil
}

func applyFloat(config map[string]interface{}, key string, dst *float64) {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case float64:
			*dst = n
		case int:
			*dst = float64(n)
		}
	}
}

// Reset clears accumulated statistics.
func (o *OccupancyGridBuilder) Reset() { o.stats.Reset() }

// Statistics returns the moving statistics snapshot.
func (o *OccupancyGridBuilder) Statistics() map[string]float64 { return o.stats.Snapshot() }

// Process builds a grid sized MapWidthM x MapHeightM centered on ego, stamps
// every BEV obstacle's footprint, and inflates by InflationRadiusM.
func (o *OccupancyGridBuilder) Process(input plugin.PerceptionInput, ctx *planning.Context) error {
	cfg := o.cfg
	if cfg.ResolutionM <= 0 {
		cfg = DefaultOccupancyGridConfig()
	}

	widthCells := int(cfg.MapWidthM / cfg.ResolutionM)
	heightCells := int(cfg.MapHeightM / cfg.ResolutionM)
	origin := spatial.NewPose2d(ctx.Ego.Pose.X-cfg.MapWidthM/2, ctx.Ego.Pose.Y-cfg.MapHeightM/2, 0)
	grid := planning.NewOccupancyGrid(planning.GridConfig{
		Origin:      origin,
		ResolutionM: cfg.ResolutionM,
		WidthCells:  widthCells,
		HeightCells: heightCells,
	})

	if ctx.BEV != nil {
		stampCircles(grid, ctx.BEV.Circles, cfg.ObstacleCost)
		stampRectangles(grid, ctx.BEV.Rectangles, cfg.ObstacleCost)
		stampPolygons(grid, ctx.BEV.Polygons, cfg.ObstacleCost)
	}

	ctx.OccupancyGrid = grid.Inflate(cfg.InflationRadiusM, cfg.ObstacleCost)
	o.stats.RecordSuccess(0, 0.2)
	return nil
}

func stampCircles(grid *planning.OccupancyGrid, circles []planning.Circle, cost uint8) {
	for _, c := range circles {
		stampDisk(grid, c.Center.X, c.Center.Y, c.RadiusM, cost)
	}
}

func stampRectangles(grid *planning.OccupancyGrid, rects []planning.Rectangle, cost uint8) {
	for _, r := range rects {
		cellsForRectangle(grid, r, cost)
	}
}

func stampPolygons(grid *planning.OccupancyGrid, polys []planning.Polygon, cost uint8) {
	for _, p := range polys {
		stampPolygonBoundingBox(grid, p, cost)
	}
}

func stampDisk(grid *planning.OccupancyGrid, cx, cy, radiusM float64, cost uint8) {
	cfg := grid.Config
	radiusCells := int(radiusM/cfg.ResolutionM) + 1
	center := cfg.WorldToCell(cx, cy)
	for dy := -radiusCells; dy <= radiusCells; dy++ {
		for dx := -radiusCells; dx <= radiusCells; dx++ {
			cell := planning.Cell{X: center.X + dx, Y: center.Y + dy}
			wx, wy := cfg.CellToWorld(cell)
			if distance2(wx, wy, cx, cy) <= radiusM*radiusM {
				grid.SetCost(cell, cost)
			}
		}
	}
}

func cellsForRectangle(grid *planning.OccupancyGrid, r planning.Rectangle, cost uint8) {
	cfg := grid.Config
	halfDiag := (r.WidthM + r.HeightM)
	radiusCells := int(halfDiag/cfg.ResolutionM) + 1
	center := cfg.WorldToCell(r.Pose.X, r.Pose.Y)
	cos, sin := math.Cos(r.Pose.Yaw), math.Sin(r.Pose.Yaw)
	for dy := -radiusCells; dy <= radiusCells; dy++ {
		for dx := -radiusCells; dx <= radiusCells; dx++ {
			cell := planning.Cell{X: center.X + dx, Y: center.Y + dy}
			wx, wy := cfg.CellToWorld(cell)
			lx := (wx-r.Pose.X)*cos + (wy-r.Pose.Y)*sin
			ly := -(wx-r.Pose.X)*sin + (wy-r.Pose.Y)*cos
			if lx >= -r.WidthM/2 && lx <= r.WidthM/2 && ly >= -r.HeightM/2 && ly <= r.HeightM/2 {
				grid.SetCost(cell, cost)
			}
		}
	}
}

func stampPolygonBoundingBox(grid *planning.OccupancyGrid, p planning.Polygon, cost uint8) {
	if len(p.Vertices) == 0 {
		return
	}
	cfg := grid.Config
	minX, maxX := p.Vertices[0].X, p.Vertices[0].X
	minY, maxY := p.Vertices[0].Y, p.Vertices[0].Y
	for _, v := range p.Vertices {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	minCell := cfg.WorldToCell(minX, minY)
	maxCell := cfg.WorldToCell(maxX, maxY)
	for y := minCell.Y; y <= maxCell.Y; y++ {
		for x := minCell.X; x <= maxCell.X; x++ {
			cell := planning.Cell{X: x, Y: y}
			wx, wy := cfg.CellToWorld(cell)
			if pointInPolygon(wx, wy, p.Vertices) {
				grid.SetCost(cell, cost)
			}
		}
	}
}

// pointInPolygon is the standard ray-casting point-in-polygon test.
func pointInPolygon(x, y float64, vertices []spatial.Pose2d) bool {
	inside := false
	n := len(vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := vertices[i], vertices[j]
		if (vi.Y > y) != (vj.Y > y) {
			xIntersect := (vj.X-vi.X)*(y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

func distance2(x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	return dx*dx + dy*dy
}
