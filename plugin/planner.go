package plugin

import (
	"time"

	"github.com/ahrs365/navsim-go/planning"
)

// PlannerPlugin is a planner strategy implementation (spec.md §4.1).
type PlannerPlugin interface {
	Metadata() Metadata
	Initialize(config map[string]interface{}) error
	Reset()
	Statistics() map[string]float64

	// IsAvailable reports whether this planner can run against ctx at all
	// (e.g. its required artifacts are present). When false, reason
	// explains why.
	IsAvailable(ctx *planning.Context) (available bool, reason string)

	// Plan must itself check deadline; exceeding it is a non-fatal failure
	// reported through the returned PlanningResult's FailureReason, not
	// through the error return. The error return is reserved for
	// programmer-error-class failures (spec.md §4.1, §7).
	Plan(ctx *planning.Context, deadline time.Duration) (planning.PlanningResult, error)
}

// PlannerFactory constructs a new, uninitialized PlannerPlugin instance.
type PlannerFactory func() PlannerPlugin
