package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/planner/astar"
	"github.com/ahrs365/navsim-go/planner/topology"
)

func TestLoadDefaultsWhenNoConfigFound(t *testing.T) {
	t.Setenv(envConfigPath, "")

	cfg, err := Load()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Deadline, test.ShouldEqual, DefaultDeadline)
	test.That(t, cfg.PlanningHorizonS, test.ShouldEqual, DefaultPlanningHorizonS)
	test.That(t, cfg.Planner.PrimaryName, test.ShouldEqual, topology.Name)
	test.That(t, cfg.Planner.FallbackName, test.ShouldEqual, astar.Name)
	test.That(t, cfg.Planner.EnableFallback, test.ShouldBeTrue)
	test.That(t, len(cfg.Perception) > 0, test.ShouldBeTrue)
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	contents := `
deadline_ms: 50
planning_horizon_s: 4.0
planner:
  primary: straight_line
  fallback: grid_astar
  enable_fallback: true
  fallback_time_ratio: 0.4
perception:
  - name: occupancy_grid_builder
    enabled: true
    priority: 0
plugins:
  straight_line:
    default_velocity: 2.5
  grid_astar:
    heuristic_weight: 1.0
`
	test.That(t, os.WriteFile(path, []byte(contents), 0o644), test.ShouldBeNil)
	t.Setenv(envConfigPath, path)

	cfg, err := Load()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Deadline, test.ShouldEqual, 50*time.Millisecond)
	test.That(t, cfg.PlanningHorizonS, test.ShouldEqual, 4.0)
	test.That(t, cfg.Planner.PrimaryName, test.ShouldEqual, "straight_line")
	test.That(t, cfg.Planner.FallbackName, test.ShouldEqual, "grid_astar")
	test.That(t, cfg.Planner.FallbackTimeRatio, test.ShouldEqual, 0.4)
	test.That(t, cfg.PrimaryParams["default_velocity"], test.ShouldEqual, 2.5)
	test.That(t, cfg.FallbackParams["heuristic_weight"], test.ShouldEqual, 1.0)
	test.That(t, len(cfg.Perception), test.ShouldEqual, 1)
	test.That(t, cfg.Perception[0].Name, test.ShouldEqual, "occupancy_grid_builder")
}

func TestLoadRejectsMissingPrimaryPlanner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	contents := "planner:\n  primary: \"\"\n"
	test.That(t, os.WriteFile(path, []byte(contents), 0o644), test.ShouldBeNil)
	t.Setenv(envConfigPath, path)

	_, err := Load()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLegacyConfigIgnoresPlannerSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.yaml")
	contents := `
deadline_ms: 75
heartbeat_interval_ms: 1000
planning_horizon_s: 5.0
planner:
  primary: topology_mpc
`
	test.That(t, os.WriteFile(path, []byte(contents), 0o644), test.ShouldBeNil)
	t.Setenv(envConfigPath, path)

	cfg, err := LegacyConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Deadline, test.ShouldEqual, 75*time.Millisecond)
	test.That(t, cfg.HeartbeatInterval, test.ShouldEqual, time.Second)
	test.That(t, cfg.PlanningHorizonS, test.ShouldEqual, 5.0)
}

func TestResolvePathReturnsEmptyWhenNothingConfigured(t *testing.T) {
	t.Setenv(envConfigPath, "")
	test.That(t, resolvePath(), test.ShouldEqual, "")
}
