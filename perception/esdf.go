package perception

import (
	"fmt"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
)

// ESDFBuilderName is the registry name for the signed-distance-field
// construction plugin.
const ESDFBuilderName = "esdf_builder"

// ESDFBuilderConfig is the plugin's recognized configuration keys.
type ESDFBuilderConfig struct {
	OccupiedThreshold uint8
	MaxDistanceM      float64
}

// DefaultESDFBuilderConfig returns documented defaults.
func DefaultESDFBuilderConfig() ESDFBuilderConfig {
	return ESDFBuilderConfig{
		OccupiedThreshold: planning.DefaultOccupiedThreshold,
		MaxDistanceM:      5.0,
	}
}

// ESDFBuilder wraps planning.BuildSignedDistanceField as a perception
// plugin, consuming the occupancy grid artifact the grid builder attached
// earlier in the chain (spec.md §9's two-pass squared-distance-transform
// note), grounded on original_source/tests/test_esdf_map.cpp.
type ESDFBuilder struct {
	cfg   ESDFBuilderConfig
	stats plugin.Stats
}

// NewESDFBuilder constructs an uninitialized builder.
func NewESDFBuilder() plugin.PerceptionPlugin { return &ESDFBuilder{} }

// Metadata implements plugin.PerceptionPlugin.
func (e *ESDFBuilder) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:              ESDFBuilderName,
		Version:           "1.0.0",
		Description:       "Signed distance field construction from the occupancy grid",
		Kind:              plugin.KindPerception,
		RequiredArtifacts: []string{"occupancy_grid"},
	}
}

// Initialize decodes config, applying documented defaults.
func (e *ESDFBuilder) Initialize(config map[string]interface{}) error {
	cfg := DefaultESDFBuilderConfig()
	if v, ok := config["occupied_threshold"]; ok {
		switch n := v.(type) {
		case int:
			cfg.OccupiedThreshold = uint8(n)
		case float64:
			cfg.OccupiedThreshold = uint8(n)
		}
	}
	applyFloat(config, "max_distance", &cfg.MaxDistanceM)
	e.cfg = cfg
	return nil
}

// Reset clears accumulated statistics.
func (e *ESDFBuilder) Reset() { e.stats.Reset() }

// Statistics returns the moving statistics snapshot.
func (e *ESDFBuilder) Statistics() map[string]float64 { return e.stats.Snapshot() }

// Process builds the ESDF from ctx.OccupancyGrid, failing loudly if absent
// (a programmer-error-class condition: the manager's dispatch order must
// place this plugin after the grid builder).
func (e *ESDFBuilder) Process(input plugin.PerceptionInput, ctx *planning.Context) error {
	if ctx.OccupancyGrid == nil {
		return fmt.Errorf("esdf_builder: occupancy grid artifact not present")
	}
	cfg := e.cfg
	if cfg.MaxDistanceM <= 0 {
		cfg = DefaultESDFBuilderConfig()
	}
	ctx.ESDF = planning.BuildSignedDistanceField(ctx.OccupancyGrid, cfg.OccupiedThreshold, cfg.MaxDistanceM)
	e.stats.RecordSuccess(0, 0.2)
	return nil
}
