package plugin

import "github.com/ahrs365/navsim-go/planning"

// PerceptionPlugin produces one derived artifact attached to a
// planning.Context (spec.md §4.1).
type PerceptionPlugin interface {
	Metadata() Metadata
	Initialize(config map[string]interface{}) error
	Reset()
	Statistics() map[string]float64
	// Process may attach exactly the artifact(s) this plugin produces.
	// Metadata().RequiredArtifacts lists what it consumes from earlier
	// plugins in the chain, not what it writes.
	Process(input PerceptionInput, ctx *planning.Context) error
}

// PerceptionInput is the raw, undecoded-from-wire snapshot data perception
// plugins may need beyond what is already attached to the Context (e.g. raw
// sensor frames not yet promoted to first-class PlanningContext fields).
// The baseline preprocessing chain (spec.md §4.2 step 3) populates Context
// directly; PerceptionInput exists for plugins that need something more.
type PerceptionInput struct {
	RawExtensions map[string]interface{}
}

// PerceptionFactory constructs a new, uninitialized PerceptionPlugin
// instance.
type PerceptionFactory func() PerceptionPlugin
