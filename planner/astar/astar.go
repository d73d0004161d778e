// Package astar implements the grid A* planner over an inflated occupancy
// map (spec.md §4.4), grounded on
// original_source/include/plugin/plugins/planning/astar_planner_plugin.hpp.
//
// Per spec.md §9's design note, nodes live in a flat arena addressed by
// integer index rather than a pointer-linked heap graph: the open set
// stores (f_cost, index) pairs and parents are stored as index-or-none.
package astar

import (
	"container/heap"
	"math"
	"time"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
	"github.com/ahrs365/navsim-go/spatial"
)

// Name is the registry name this planner advertises.
const Name = "grid_astar"

// Config is the A* planner's recognized configuration keys (spec.md §9).
type Config struct {
	TimeStepS        float64
	HeuristicWeight  float64 // w >= 1; w == 1 is admissible, documented knob otherwise.
	StepSize         float64
	MaxIterations    int
	GoalToleranceM   float64
	DefaultVelocityMS float64
	DeadlineCheckEvery int // M <= 256
	OccupiedThreshold  uint8
}

// DefaultConfig returns the planner's documented defaults. HeuristicWeight
// defaults to 1.2: a documented inadmissible-but-faster knob (DESIGN.md
// "heuristic admissibility weight").
func DefaultConfig() Config {
	return Config{
		TimeStepS:          0.2,
		HeuristicWeight:    1.2,
		StepSize:           1.0,
		MaxIterations:      20000,
		GoalToleranceM:     0.3,
		DefaultVelocityMS:  1.0,
		DeadlineCheckEvery: 128,
		OccupiedThreshold:  planning.DefaultOccupiedThreshold,
	}
}

// Planner is the grid A* planner plugin.
type Planner struct {
	cfg   Config
	stats plugin.Stats
}

// New constructs an uninitialized Planner.
func New() plugin.PlannerPlugin { return &Planner{cfg: DefaultConfig()} }

// Metadata implements plugin.PlannerPlugin.
func (p *Planner) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:              Name,
		Version:           "1.0.0",
		Description:       "Weighted grid A* over an inflated occupancy map",
		Kind:              plugin.KindPlanner,
		RequiredArtifacts: []string{"occupancy_grid"},
	}
}

// Initialize decodes config, applying documented defaults.
func (p *Planner) Initialize(config map[string]interface{}) error {
	cfg := DefaultConfig()
	applyFloat(config, "time_step", &cfg.TimeStepS)
	applyFloat(config, "heuristic_weight", &cfg.HeuristicWeight)
	applyFloat(config, "step_size", &cfg.StepSize)
	applyFloat(config, "goal_tolerance", &cfg.GoalToleranceM)
	applyFloat(config, "default_velocity", &cfg.DefaultVelocityMS)
	if v, ok := config["max_iterations"]; ok {
		cfg.MaxIterations = toInt(v, cfg.MaxIterations)
	}
	if v, ok := config["deadline_check_every"]; ok {
		cfg.DeadlineCheckEvery = toInt(v, cfg.DeadlineCheckEvery)
	}
	if cfg.DeadlineCheckEvery > 256 {
		cfg.DeadlineCheckEvery = 256
	}
	if cfg.HeuristicWeight < 1 {
		cfg.HeuristicWeight = 1
	}
	p.cfg = cfg
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

func toInt(v interface{}, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// Reset clears accumulated statistics.
func (p *Planner) Reset() { p.stats.Reset() }

// Statistics returns the moving statistics snapshot.
func (p *Planner) Statistics() map[string]float64 { return p.stats.Snapshot() }

// IsAvailable requires an occupancy grid, per spec.md §4.4.
func (p *Planner) IsAvailable(ctx *planning.Context) (bool, string) {
	if ctx.OccupancyGrid == nil {
		return false, "No occupancy grid available"
	}
	return true, ""
}

// Plan runs weighted A* from ego to goal over the occupancy grid
// (spec.md §4.4).
func (p *Planner) Plan(ctx *planning.Context, deadline time.Duration) (planning.PlanningResult, error) {
	startTime := time.Now()
	grid := ctx.OccupancyGrid
	if grid == nil {
		return p.fail(startTime, "No occupancy grid available"), nil
	}

	startCell := grid.Config.WorldToCell(ctx.Ego.Pose.X, ctx.Ego.Pose.Y)
	goalCell := grid.Config.WorldToCell(ctx.Task.Goal.X, ctx.Task.Goal.Y)

	if grid.IsOccupied(startCell, p.cfg.OccupiedThreshold) {
		return p.fail(startTime, "start occupied"), nil
	}
	if grid.IsOccupied(goalCell, p.cfg.OccupiedThreshold) {
		return p.fail(startTime, "goal occupied"), nil
	}

	path, iterations, reason := p.search(grid, startCell, goalCell, deadline, startTime)
	if path == nil {
		return p.failWithIterations(startTime, reason, iterations), nil
	}

	traj := p.shapeTrajectory(ctx, grid, path)
	result := planning.NewSucceededResult(Name, traj)
	result.Iterations = iterations
	result.ComputationTimeMS = msSince(startTime)
	p.stats.RecordSuccess(result.ComputationTimeMS, 0.2)
	return result, nil
}

func (p *Planner) fail(start time.Time, reason string) planning.PlanningResult {
	return p.failWithIterations(start, reason, 0)
}

func (p *Planner) failWithIterations(start time.Time, reason string, iterations int) planning.PlanningResult {
	result := planning.NewFailedResult(Name, reason)
	result.Iterations = iterations
	result.ComputationTimeMS = msSince(start)
	p.stats.RecordFailure(reason, result.ComputationTimeMS, 0.2)
	return result
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// node is an arena-indexed search node: parent is an index into the arena,
// or -1 for none.
type node struct {
	cell   planning.Cell
	g      float64
	f      float64
	parent int
}

// openItem is a (f_cost, arena index) pair plus an insertion sequence
// number so ties break by insertion order, as required by spec.md §4.4.
type openItem struct {
	f     float64
	seq   int
	index int
}

type openHeap []openItem

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h openHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x interface{}) { *h = append(*h, x.(openItem)) }
func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var neighborOffsets = []struct {
	dx, dy int
	cost   float64 // multiplier of resolution
}{
	{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {-1, 1, math.Sqrt2}, {-1, -1, math.Sqrt2},
}

// search performs weighted A* and returns the reconstructed path of cells
// (start to goal, inclusive) or nil with a failure reason.
func (p *Planner) search(grid *planning.OccupancyGrid, start, goal planning.Cell, deadline time.Duration, startTime time.Time) (path []planning.Cell, iterations int, reason string) {
	goalX, goalY := grid.Config.CellToWorld(goal)
	res := grid.Config.ResolutionM

	heuristic := func(c planning.Cell) float64 {
		cx, cy := grid.Config.CellToWorld(c)
		return math.Hypot(cx-goalX, cy-goalY)
	}

	arena := make([]node, 0, 1024)
	closed := make(map[int]bool)
	cellIndex := func(c planning.Cell) (int, bool) { return grid.Config.Index(c) }

	startIdx := len(arena)
	arena = append(arena, node{cell: start, g: 0, f: p.cfg.HeuristicWeight * heuristic(start), parent: -1})

	open := &openHeap{}
	heap.Init(open)
	seq := 0
	heap.Push(open, openItem{f: arena[startIdx].f, seq: seq, index: startIdx})
	seq++

	// bestG tracks, for each linear grid index, the best known g cost so we
	// can skip stale open-set entries cheaply.
	bestG := make(map[int]float64)
	if li, ok := cellIndex(start); ok {
		bestG[li] = 0
	}

	for iterations = 0; open.Len() > 0; iterations++ {
		if iterations >= p.cfg.MaxIterations {
			return nil, iterations, "No path found"
		}
		if iterations%p.cfg.DeadlineCheckEvery == 0 && iterations > 0 {
			if time.Since(startTime) >= deadline {
				return nil, iterations, "deadline"
			}
		}

		item := heap.Pop(open).(openItem)
		current := arena[item.index]
		li, _ := cellIndex(current.cell)
		if closed[li] {
			continue
		}
		closed[li] = true

		if heuristic(current.cell) < p.cfg.GoalToleranceM {
			return reconstruct(arena, item.index), iterations, ""
		}

		for _, off := range neighborOffsets {
			next := planning.Cell{X: current.cell.X + off.dx, Y: current.cell.Y + off.dy}
			if grid.IsOccupied(next, p.cfg.OccupiedThreshold) {
				continue
			}
			nLi, ok := cellIndex(next)
			if !ok {
				continue
			}
			if closed[nLi] {
				continue
			}
			tentativeG := current.g + off.cost*res
			if existing, seen := bestG[nLi]; seen && existing <= tentativeG {
				continue
			}
			bestG[nLi] = tentativeG
			idx := len(arena)
			f := tentativeG + p.cfg.HeuristicWeight*heuristic(next)
			arena = append(arena, node{cell: next, g: tentativeG, f: f, parent: item.index})
			heap.Push(open, openItem{f: f, seq: seq, index: idx})
			seq++
		}
	}
	return nil, iterations, "No path found"
}

func reconstruct(arena []node, goalIdx int) []planning.Cell {
	var reversed []planning.Cell
	for idx := goalIdx; idx != -1; idx = arena[idx].parent {
		reversed = append(reversed, arena[idx].cell)
	}
	path := make([]planning.Cell, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path
}

// shapeTrajectory converts a cell path into TrajectoryPoints per
// spec.md §4.4's shaping rules.
func (p *Planner) shapeTrajectory(ctx *planning.Context, grid *planning.OccupancyGrid, path []planning.Cell) []planning.TrajectoryPoint {
	points := make([]spatial.Pose2d, len(path))
	for i, c := range path {
		x, y := grid.Config.CellToWorld(c)
		points[i] = spatial.NewPose2d(x, y, 0)
	}

	traj := make([]planning.TrajectoryPoint, len(points))
	var cumS float64
	for i := range points {
		yaw := ctx.Task.Goal.Yaw
		if i < len(points)-1 {
			yaw = points[i].HeadingTo(points[i+1])
		}
		v := p.cfg.DefaultVelocityMS
		if i == len(points)-1 {
			v = 0
		}
		if i > 0 {
			cumS += points[i-1].Distance(points[i])
		}
		traj[i] = planning.TrajectoryPoint{
			Pose:           spatial.NewPose2d(points[i].X, points[i].Y, yaw),
			Twist:          spatial.Twist2d{Vx: v},
			TimeFromStartS: float64(i) * p.cfg.TimeStepS,
			PathLengthM:    cumS,
		}
	}
	return traj
}
