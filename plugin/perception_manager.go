package plugin

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/ahrs365/navsim-go/planning"
)

// PerceptionPluginConfig is one entry in a PerceptionPluginManager's
// configured chain (spec.md §4.1).
type PerceptionPluginConfig struct {
	Name     string
	Enabled  bool
	Priority int
	Params   map[string]interface{}
}

type loadedPerception struct {
	name     string
	priority int
	loadIdx  int
	plugin   PerceptionPlugin
}

// PerceptionPluginManager resolves, initializes and dispatches an ordered
// chain of perception plugins (spec.md §4.1).
type PerceptionPluginManager struct {
	loaded []loadedPerception
}

// NewPerceptionPluginManager builds an empty, unloaded manager.
func NewPerceptionPluginManager() *PerceptionPluginManager {
	return &PerceptionPluginManager{}
}

// Load resolves each configured, enabled plugin via the registry,
// instantiates it, and calls Initialize. A plugin whose Initialize fails is
// dropped from the chain and logged by the caller via the returned error
// (spec.md §7 "Plugin initialization failure"); Load itself only fails
// outright when no plugin remains loadable.
func (m *PerceptionPluginManager) Load(configs []PerceptionPluginConfig) error {
	var initErrs error
	var loaded []loadedPerception
	for idx, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		factory := PerceptionLookup(cfg.Name)
		if factory == nil {
			initErrs = multierr.Append(initErrs, fmt.Errorf("perception plugin %q not registered", cfg.Name))
			continue
		}
		p := factory()
		if err := p.Initialize(cfg.Params); err != nil {
			initErrs = multierr.Append(initErrs, fmt.Errorf("perception plugin %q failed to initialize: %w", cfg.Name, err))
			continue
		}
		loaded = append(loaded, loadedPerception{name: cfg.Name, priority: cfg.Priority, loadIdx: idx, plugin: p})
	}

	if len(loaded) == 0 && initErrs != nil {
		return initErrs
	}

	sortByPriorityStable(loaded)
	m.loaded = loaded
	return initErrs
}

// sortByPriorityStable orders by priority ascending, breaking ties by load
// (registration) order, per spec.md §4.1.
func sortByPriorityStable(loaded []loadedPerception) {
	// Insertion sort: chain lengths are small (single-digit plugin counts)
	// and this keeps the tie-break on loadIdx trivially stable.
	for i := 1; i < len(loaded); i++ {
		j := i
		for j > 0 && less(loaded[j], loaded[j-1]) {
			loaded[j], loaded[j-1] = loaded[j-1], loaded[j]
			j--
		}
	}
}

func less(a, b loadedPerception) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.loadIdx < b.loadIdx
}

// Process invokes every loaded plugin in priority order against ctx,
// stopping on the first hard failure (spec.md §4.1).
func (m *PerceptionPluginManager) Process(input PerceptionInput, ctx *planning.Context) error {
	for _, lp := range m.loaded {
		if err := lp.plugin.Process(input, ctx); err != nil {
			return fmt.Errorf("perception plugin %q failed: %w", lp.name, err)
		}
	}
	return nil
}

// Plugins returns the loaded plugins in dispatch order, for statistics
// aggregation and heartbeats.
func (m *PerceptionPluginManager) Plugins() []PerceptionPlugin {
	out := make([]PerceptionPlugin, len(m.loaded))
	for i, lp := range m.loaded {
		out[i] = lp.plugin
	}
	return out
}

// Reset clears every loaded plugin's internal state.
func (m *PerceptionPluginManager) Reset() {
	for _, lp := range m.loaded {
		lp.plugin.Reset()
	}
}
