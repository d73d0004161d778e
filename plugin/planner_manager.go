package plugin

import (
	"fmt"
	"math"
	"time"

	"github.com/ahrs365/navsim-go/planning"
)

// PlannerPluginManagerConfig configures primary/fallback dispatch
// (spec.md §4.1).
type PlannerPluginManagerConfig struct {
	PrimaryName        string
	FallbackName       string
	EnableFallback     bool
	FallbackTimeRatio  float64 // (0, 1]
}

// PlannerPluginManager resolves a primary and (optional) fallback planner
// and dispatches them per spec.md §4.1's fallback policy.
type PlannerPluginManager struct {
	cfg      PlannerPluginManagerConfig
	primary  PlannerPlugin
	fallback PlannerPlugin
}

// NewPlannerPluginManager resolves and initializes the configured primary
// and fallback planners. Returns an error if the primary cannot be resolved
// or initialized; a missing/uninitializable fallback only disables
// fallback, it does not fail construction, since spec.md only requires the primary
// for the manager to be usable at all.
func NewPlannerPluginManager(cfg PlannerPluginManagerConfig, primaryParams, fallbackParams map[string]interface{}) (*PlannerPluginManager, error) {
	if cfg.FallbackTimeRatio <= 0 || cfg.FallbackTimeRatio > 1 {
		return nil, fmt.Errorf("fallback_time_ratio must be in (0,1], got %v", cfg.FallbackTimeRatio)
	}

	primaryFactory := PlannerLookup(cfg.PrimaryName)
	if primaryFactory == nil {
		return nil, fmt.Errorf("planner %q not registered", cfg.PrimaryName)
	}
	primary := primaryFactory()
	if err := primary.Initialize(primaryParams); err != nil {
		return nil, fmt.Errorf("primary planner %q failed to initialize: %w", cfg.PrimaryName, err)
	}

	m := &PlannerPluginManager{cfg: cfg, primary: primary}

	if cfg.EnableFallback && cfg.FallbackName != "" {
		fallbackFactory := PlannerLookup(cfg.FallbackName)
		if fallbackFactory != nil {
			fb := fallbackFactory()
			if err := fb.Initialize(fallbackParams); err == nil {
				m.fallback = fb
			}
		}
	}
	return m, nil
}

// Plan implements spec.md §4.1's dispatch policy:
//  1. If primary.IsAvailable(ctx) is false, skip straight to fallback.
//  2. Otherwise call primary with the full deadline.
//  3. On success, return.
//  4. On failure, if fallback is enabled, call it with
//     floor(deadline*ratio) if IsAvailable; otherwise fail.
//
// Failure when both primary and fallback decline composes both reasons.
func (m *PlannerPluginManager) Plan(ctx *planning.Context, deadline time.Duration) (planning.PlanningResult, error) {
	var primaryReason string

	if available, reason := m.primary.IsAvailable(ctx); available {
		result, err := m.primary.Plan(ctx, deadline)
		if err != nil {
			return planning.PlanningResult{}, err
		}
		if result.Success {
			return result, nil
		}
		primaryReason = result.FailureReason
	} else {
		primaryReason = reason
	}

	if m.fallback == nil {
		return planning.NewFailedResult(m.cfg.PrimaryName, primaryReason), nil
	}

	fallbackDeadline := time.Duration(math.Floor(float64(deadline) * m.cfg.FallbackTimeRatio))
	available, reason := m.fallback.IsAvailable(ctx)
	if !available {
		combined := fmt.Sprintf("primary(%s): %s; fallback(%s): %s", m.cfg.PrimaryName, primaryReason, m.cfg.FallbackName, reason)
		return planning.NewFailedResult(m.cfg.FallbackName, combined), nil
	}

	result, err := m.fallback.Plan(ctx, fallbackDeadline)
	if err != nil {
		return planning.PlanningResult{}, err
	}
	if !result.Success {
		result.FailureReason = fmt.Sprintf("primary(%s): %s; fallback(%s): %s", m.cfg.PrimaryName, primaryReason, m.cfg.FallbackName, result.FailureReason)
	}
	return result, nil
}

// Reset clears both planners' internal state.
func (m *PlannerPluginManager) Reset() {
	m.primary.Reset()
	if m.fallback != nil {
		m.fallback.Reset()
	}
}

// Primary returns the loaded primary planner, for statistics aggregation.
func (m *PlannerPluginManager) Primary() PlannerPlugin { return m.primary }

// Fallback returns the loaded fallback planner, or nil if none is
// configured/available.
func (m *PlannerPluginManager) Fallback() PlannerPlugin { return m.fallback }
