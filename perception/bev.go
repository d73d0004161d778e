// Package perception implements the builtin perception plugins: bird's-eye
// obstacle extraction, occupancy-grid construction, signed-distance-field
// construction, and dynamic-obstacle motion prediction (spec.md §4.1/§9),
// grounded on original_source/plugins/perception/*.
package perception

import (
	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
)

// BEVExtractorName is the registry name for the bird's-eye obstacle
// extraction plugin.
const BEVExtractorName = "bev_extractor"

// BEVExtractor decodes the world tick's static-map geometry (already parsed
// by the transport layer into plain circles/rectangles/polygons and handed
// through PerceptionInput.RawExtensions) into a planning.BEVObstacles
// artifact. It performs no detection of its own: this is a simulation
// stand-in for a real perception stack's BEV head, grounded on
// original_source/src/perception/bev_extractor.cpp.
type BEVExtractor struct {
	stats plugin.Stats
}

// NewBEVExtractor constructs an uninitialized BEVExtractor.
func NewBEVExtractor() plugin.PerceptionPlugin { return &BEVExtractor{} }

// Metadata implements plugin.PerceptionPlugin.
func (b *BEVExtractor) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        BEVExtractorName,
		Version:     "1.0.0",
		Description: "Bird's-eye-view static obstacle extraction",
		Kind:        plugin.KindPerception,
	}
}

// Initialize takes no configuration.
func (b *BEVExtractor) Initialize(config map[string]interface{}) error { return nil }

// Reset clears accumulated statistics.
func (b *BEVExtractor) Reset() { b.stats.Reset() }

// Statistics returns the moving statistics snapshot.
func (b *BEVExtractor) Statistics() map[string]float64 { return b.stats.Snapshot() }

// Process reads circles/rectangles/polygons out of the raw extension map
// and attaches them to ctx as a planning.BEVObstacles.
func (b *BEVExtractor) Process(input plugin.PerceptionInput, ctx *planning.Context) error {
	bev := planning.BEVObstacles{}
	if v, ok := input.RawExtensions["static_circles"]; ok {
		if circles, ok := v.([]planning.Circle); ok {
			bev.Circles = circles
		}
	}
	if v, ok := input.RawExtensions["static_rectangles"]; ok {
		if rects, ok := v.([]planning.Rectangle); ok {
			bev.Rectangles = rects
		}
	}
	if v, ok := input.RawExtensions["static_polygons"]; ok {
		if polys, ok := v.([]planning.Polygon); ok {
			bev.Polygons = polys
		}
	}
	ctx.BEV = &bev
	b.stats.RecordSuccess(0, 0.2)
	return nil
}
