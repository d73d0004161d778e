// Package config loads the planning cycle's startup configuration: tick
// deadline, heartbeat interval, planner/perception wiring, and per-plugin
// parameter blocks (spec.md §9's "Configuration" redesign note).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ahrs365/navsim-go/cycle"
	"github.com/ahrs365/navsim-go/perception"
	"github.com/ahrs365/navsim-go/planner/astar"
	"github.com/ahrs365/navsim-go/planner/topology"
	"github.com/ahrs365/navsim-go/plugin"
)

// searchPaths is the ordered list of locations checked for a config file
// before falling back to defaults (spec.md §9).
var searchPaths = []string{"./navsim.yaml", "./config/navsim.yaml"}

const envConfigPath = "NAVSIM_CONFIG"

// DefaultDeadline is the per-tick planning deadline applied when no
// "deadline" key is present in the loaded config. Nothing in spec.md names
// a fixed default; 100ms is chosen to sit comfortably above the scenario
// deadlines used throughout spec.md §8 (1ms-200ms) while remaining a
// realistic real-time planning budget.
const DefaultDeadline = 100 * time.Millisecond

// DefaultPlanningHorizonS is the horizon applied when unconfigured.
const DefaultPlanningHorizonS = 6.0

// file mirrors the on-disk schema. Every field is optional; zero values are
// replaced by the builtin defaults in Load.
type file struct {
	DeadlineMS          float64                           `mapstructure:"deadline_ms"`
	HeartbeatIntervalMS float64                           `mapstructure:"heartbeat_interval_ms"`
	PlanningHorizonS    float64                           `mapstructure:"planning_horizon_s"`
	Planner             plannerFile                       `mapstructure:"planner"`
	Perception          []perceptionEntryFile             `mapstructure:"perception"`
	Plugins             map[string]map[string]interface{} `mapstructure:"plugins"`
}

type plannerFile struct {
	Primary           string  `mapstructure:"primary"`
	Fallback          string  `mapstructure:"fallback"`
	EnableFallback    bool    `mapstructure:"enable_fallback"`
	FallbackTimeRatio float64 `mapstructure:"fallback_time_ratio"`
}

type perceptionEntryFile struct {
	Name     string `mapstructure:"name"`
	Enabled  bool   `mapstructure:"enabled"`
	Priority int    `mapstructure:"priority"`
}

// defaultFile returns the shipped defaults: the plugin pipeline, topology
// planner primary with A* fallback, and the occupancy-grid and ESDF
// perception plugins in dependency order.
func defaultFile() file {
	return file{
		DeadlineMS:          float64(DefaultDeadline.Milliseconds()),
		HeartbeatIntervalMS: float64(cycle.DefaultHeartbeatInterval.Milliseconds()),
		PlanningHorizonS:    DefaultPlanningHorizonS,
		Planner: plannerFile{
			Primary:           topology.Name,
			Fallback:          astar.Name,
			EnableFallback:    true,
			FallbackTimeRatio: 0.5,
		},
		Perception: []perceptionEntryFile{
			{Name: perception.OccupancyGridBuilderName, Enabled: true, Priority: 0},
			{Name: perception.ESDFBuilderName, Enabled: true, Priority: 1},
		},
	}
}

// Load resolves a config file from the search list (./navsim.yaml,
// ./config/navsim.yaml, then $NAVSIM_CONFIG), applying defaults for every
// key the file omits or for no file found at all, and returns a ready-to-use
// cycle.Config. It does not set Clock or Logger; the caller wires those.
func Load() (cycle.Config, error) {
	f := defaultFile()

	path := resolvePath()
	if path != "" {
		vp := viper.New()
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return cycle.Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		loaded := defaultFile()
		if err := vp.Unmarshal(&loaded); err != nil {
			return cycle.Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
		}
		if err := normalizePluginParams(loaded.Plugins); err != nil {
			return cycle.Config{}, err
		}
		f = loaded
	}

	return toCycleConfig(f)
}

// resolvePath walks the search list, returning the first path that exists.
// $NAVSIM_CONFIG is checked last and, unlike the two fixed paths, is
// required to exist if set at all (a misconfigured override should fail
// loudly rather than silently fall through to defaults).
func resolvePath() string {
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return ""
}

// normalizePluginParams re-encodes each plugin's parameter block through
// yaml.v3 so numeric values decode with consistent Go types regardless of
// which format viper read the config file as: its JSON and TOML decoders
// produce float64 for whole numbers, while yaml.v3 preserves int for
// values with no fractional part, which is what the astar/topology
// plugins' toInt helpers expect (spec.md §9 "Configuration").
func normalizePluginParams(plugins map[string]map[string]interface{}) error {
	for name, params := range plugins {
		raw, err := yaml.Marshal(params)
		if err != nil {
			return fmt.Errorf("config: marshaling plugin %q params: %w", name, err)
		}
		var normalized map[string]interface{}
		if err := yaml.Unmarshal(raw, &normalized); err != nil {
			return fmt.Errorf("config: normalizing plugin %q params: %w", name, err)
		}
		plugins[name] = normalized
	}
	return nil
}

func toCycleConfig(f file) (cycle.Config, error) {
	if f.Planner.Primary == "" {
		return cycle.Config{}, fmt.Errorf("config: planner.primary must be set")
	}

	perceptionCfgs := make([]plugin.PerceptionPluginConfig, 0, len(f.Perception))
	for _, p := range f.Perception {
		perceptionCfgs = append(perceptionCfgs, plugin.PerceptionPluginConfig{
			Name:     p.Name,
			Enabled:  p.Enabled,
			Priority: p.Priority,
			Params:   f.Plugins[p.Name],
		})
	}

	return cycle.Config{
		Deadline:          time.Duration(f.DeadlineMS) * time.Millisecond,
		HeartbeatInterval: time.Duration(f.HeartbeatIntervalMS) * time.Millisecond,
		PlanningHorizonS:  f.PlanningHorizonS,
		Perception:        perceptionCfgs,
		Planner: plugin.PlannerPluginManagerConfig{
			PrimaryName:       f.Planner.Primary,
			FallbackName:      f.Planner.Fallback,
			EnableFallback:    f.Planner.EnableFallback,
			FallbackTimeRatio: f.Planner.FallbackTimeRatio,
		},
		PrimaryParams:  f.Plugins[f.Planner.Primary],
		FallbackParams: f.Plugins[f.Planner.Fallback],
	}, nil
}

// LegacyConfig builds a cycle.LegacyConfig from the same loaded file,
// applying the same deadline/heartbeat/horizon. The legacy controller
// always wires straight-line + A* directly with their documented defaults
// (spec.md §9's legacy-pipeline resolution), so the planner and plugins
// sections of the file are not consulted here.
func LegacyConfig() (cycle.LegacyConfig, error) {
	f := defaultFile()
	path := resolvePath()
	if path != "" {
		vp := viper.New()
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return cycle.LegacyConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		loaded := defaultFile()
		if err := vp.Unmarshal(&loaded); err != nil {
			return cycle.LegacyConfig{}, fmt.Errorf("config: decoding %s: %w", path, err)
		}
		f = loaded
	}

	return cycle.LegacyConfig{
		Deadline:          time.Duration(f.DeadlineMS) * time.Millisecond,
		HeartbeatInterval: time.Duration(f.HeartbeatIntervalMS) * time.Millisecond,
		PlanningHorizonS:  f.PlanningHorizonS,
	}, nil
}
