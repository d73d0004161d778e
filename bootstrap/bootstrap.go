// Package bootstrap registers every builtin perception and planner plugin
// against the process-wide registries (spec.md §9's "Global registries"),
// replacing the original C++ implementation's static-initializer
// registration with an explicit call the CLI entrypoint makes once at
// startup. Lives outside package plugin to avoid an import cycle: plugin
// must not import the perception/planner packages that in turn import it.
package bootstrap

import (
	"github.com/ahrs365/navsim-go/perception"
	"github.com/ahrs365/navsim-go/planner/astar"
	"github.com/ahrs365/navsim-go/planner/straightline"
	"github.com/ahrs365/navsim-go/planner/topology"
	"github.com/ahrs365/navsim-go/plugin"
)

// RegisterBuiltinPlugins registers every builtin perception and planner
// plugin. It must be called exactly once per process, before any
// PerceptionPluginManager or PlannerPluginManager is built, and it panics
// on a duplicate registration (surfacing a programmer error immediately,
// matching the registry's own panic-on-duplicate contract).
func RegisterBuiltinPlugins() {
	plugin.RegisterPerception(perception.BEVExtractorName, perception.NewBEVExtractor)
	plugin.RegisterPerception(perception.OccupancyGridBuilderName, perception.NewOccupancyGridBuilder)
	plugin.RegisterPerception(perception.ESDFBuilderName, perception.NewESDFBuilder)
	plugin.RegisterPerception(perception.DynamicPredictorName, perception.NewDynamicPredictor)

	plugin.RegisterPlanner(straightline.Name, straightline.New)
	plugin.RegisterPlanner(astar.Name, astar.New)
	plugin.RegisterPlanner(topology.Name, topology.New)
}
