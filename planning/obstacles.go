package planning

import (
	"fmt"

	"github.com/ahrs365/navsim-go/spatial"
)

// Circle is a BEV obstacle represented as a center point and radius.
type Circle struct {
	Center     spatial.Pose2d
	RadiusM    float64
	Confidence float64
}

// Rectangle is a BEV obstacle represented as an oriented bounding box.
type Rectangle struct {
	Pose       spatial.Pose2d
	WidthM     float64
	HeightM    float64
	Confidence float64
}

// Polygon is a BEV obstacle represented as an ordered, counter-clockwise
// vertex loop with no repeated first/last vertex (spec.md §3).
type Polygon struct {
	Vertices   []spatial.Pose2d
	Confidence float64
}

// Validate rejects a polygon whose first and last vertex coincide, per
// spec.md §3's "duplicate first/last vertex is disallowed" invariant.
func (p Polygon) Validate() error {
	if len(p.Vertices) < 3 {
		return fmt.Errorf("polygon needs at least 3 vertices, got %d", len(p.Vertices))
	}
	first, last := p.Vertices[0], p.Vertices[len(p.Vertices)-1]
	if first.X == last.X && first.Y == last.Y {
		return fmt.Errorf("polygon must not repeat its first vertex as its last")
	}
	return validateConfidence(p.Confidence)
}

func validateConfidence(c float64) error {
	if c < 0 || c > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", c)
	}
	return nil
}

// BEVObstacles is the bird's-eye-view obstacle set: three ordered sequences
// of circles, rectangles and polygons (spec.md §3).
type BEVObstacles struct {
	Circles    []Circle
	Rectangles []Rectangle
	Polygons   []Polygon
}

// Empty reports whether the obstacle set carries no geometry at all.
func (b BEVObstacles) Empty() bool {
	return len(b.Circles) == 0 && len(b.Rectangles) == 0 && len(b.Polygons) == 0
}
