// Package plugin implements the perception/planner plugin framework:
// process-wide name-indexed registries, lifecycle-managed instances, and the
// ordered managers that dispatch them each tick (spec.md §4.1).
package plugin

// Kind tags whether a plugin is a perception producer or a planner
// strategy.
type Kind int

const (
	KindPerception Kind = iota
	KindPlanner
)

// Metadata is the static description every plugin advertises once, before
// any invocation.
type Metadata struct {
	Name              string
	Version           string
	Description       string
	Kind              Kind
	RequiredArtifacts []string
	MayBeFallback     bool
}
