package planning

import (
	"sync"
	"time"
)

// ArtifactKey names a derived artifact a perception plugin may attach to a
// PlanningContext's extension map (spec.md §3's "typed key->value extension
// map for plugin-produced artifacts not yet promoted to first-class
// fields").
type ArtifactKey string

// Context is the typed snapshot a tick's perception and planner plugins
// consume and (for perception plugins) mutate. It is exclusively owned by
// the cycle controller for the duration of one tick: perception plugins
// borrow it mutably in sequence, planner plugins borrow it immutably
// (spec.md §3 Ownership).
type Context struct {
	Timestamp         time.Time
	PlanningHorizonS  float64

	Ego  EgoVehicle
	Task PlanningTask

	OccupancyGrid *OccupancyGrid
	BEV           *BEVObstacles
	ESDF          *SignedDistanceField
	Dynamic       []DynamicObstacle

	mu         sync.Mutex
	extensions map[ArtifactKey]interface{}
}

// NewContext builds a Context from the given ego/task/dynamic obstacle
// inputs, with all derived-artifact slots reset, per spec.md §4.2 step 1.
func NewContext(ts time.Time, horizonS float64, ego EgoVehicle, task PlanningTask, dynamic []DynamicObstacle) *Context {
	return &Context{
		Timestamp:        ts,
		PlanningHorizonS: horizonS,
		Ego:              ego,
		Task:             task,
		Dynamic:          append([]DynamicObstacle(nil), dynamic...),
		extensions:       make(map[ArtifactKey]interface{}),
	}
}

// SetArtifact attaches a derived artifact under key. Safe for concurrent
// perception-plugin writers even though the cycle controller itself runs
// plugins sequentially, matching spec.md §5's "reset() never fails,
// statistics counters must be atomic" discipline for any incidentally
// concurrent access.
func (c *Context) SetArtifact(key ArtifactKey, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extensions[key] = value
}

// Artifact retrieves a previously attached derived artifact.
func (c *Context) Artifact(key ArtifactKey) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.extensions[key]
	return v, ok
}

// ResetArtifacts clears all derived-artifact slots including the
// first-class OccupancyGrid/BEV/ESDF fields, as required at the start of
// every tick (spec.md §4.2 step 1).
func (c *Context) ResetArtifacts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OccupancyGrid = nil
	c.BEV = nil
	c.ESDF = nil
	c.extensions = make(map[ArtifactKey]interface{})
}
