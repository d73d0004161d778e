package perception

import (
	"math"

	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/plugin"
)

// DynamicPredictorName is the registry name for the dynamic-obstacle
// motion prediction plugin.
const DynamicPredictorName = "dynamic_obstacle_predictor"

// PredictionModel selects the constant-rate model used to roll an
// obstacle's current pose/twist forward (spec.md §9).
type PredictionModel int

const (
	ConstantVelocity PredictionModel = iota
	ConstantAcceleration
)

// DynamicPredictorConfig is the plugin's recognized configuration keys.
type DynamicPredictorConfig struct {
	PredictionHorizonS float64
	TimeStepS          float64
	Model              PredictionModel
}

// DefaultDynamicPredictorConfig returns documented defaults.
func DefaultDynamicPredictorConfig() DynamicPredictorConfig {
	return DynamicPredictorConfig{
		PredictionHorizonS: 4.0,
		TimeStepS:          0.2,
		Model:              ConstantVelocity,
	}
}

// DynamicPredictor rolls each tracked dynamic obstacle's pose forward under
// a constant-velocity or constant-acceleration model, attaching a single
// predicted trajectory (probability 1.0) to each obstacle in ctx.Dynamic
// (spec.md §3/§9), grounded on
// original_source/src/perception/dynamic_predictor.cpp and
// original_source/platform/src/plugin/preprocessing/dynamic_predictor.cpp.
type DynamicPredictor struct {
	cfg   DynamicPredictorConfig
	stats plugin.Stats
}

// NewDynamicPredictor constructs an uninitialized predictor.
func NewDynamicPredictor() plugin.PerceptionPlugin { return &DynamicPredictor{} }

// Metadata implements plugin.PerceptionPlugin.
func (d *DynamicPredictor) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        DynamicPredictorName,
		Version:     "1.0.0",
		Description: "Dynamic obstacle motion prediction",
		Kind:        plugin.KindPerception,
	}
}

// Initialize decodes config, applying documented defaults (spec.md §9).
func (d *DynamicPredictor) Initialize(config map[string]interface{}) error {
	cfg := DefaultDynamicPredictorConfig()
	applyFloat(config, "prediction_horizon", &cfg.PredictionHorizonS)
	applyFloat(config, "time_step", &cfg.TimeStepS)
	if v, ok := config["prediction_model"].(string); ok {
		switch v {
		case "constant_velocity":
			cfg.Model = ConstantVelocity
		case "constant_acceleration":
			cfg.Model = ConstantAcceleration
		}
	}
	d.cfg = cfg
	return nil
}

// Reset clears accumulated statistics.
func (d *DynamicPredictor) Reset() { d.stats.Reset() }

// Statistics returns the moving statistics snapshot.
func (d *DynamicPredictor) Statistics() map[string]float64 { return d.stats.Snapshot() }

// Process replaces each obstacle's Predictions with a single trajectory
// sampled at TimeStepS out to PredictionHorizonS.
func (d *DynamicPredictor) Process(input plugin.PerceptionInput, ctx *planning.Context) error {
	cfg := d.cfg
	if cfg.TimeStepS <= 0 {
		cfg = DefaultDynamicPredictorConfig()
	}
	for i := range ctx.Dynamic {
		ctx.Dynamic[i].Predictions = []planning.PredictedTrajectory{{
			Samples:     predictSamples(ctx.Dynamic[i], cfg),
			Probability: 1.0,
		}}
	}
	d.stats.RecordSuccess(0, 0.2)
	return nil
}

// predictSamples rolls pose/twist forward under the configured model.
// Constant-velocity holds Twist fixed; constant-acceleration additionally
// decays the linear speed (Vx and Vy scaled together) toward zero at a
// fixed comfortable deceleration once beyond
// half the horizon, approximating an obstacle slowing to a stop.
func predictSamples(obstacle planning.DynamicObstacle, cfg DynamicPredictorConfig) []planning.PredictedPose {
	n := int(math.Ceil(cfg.PredictionHorizonS/cfg.TimeStepS)) + 1
	out := make([]planning.PredictedPose, 0, n)
	pose := obstacle.Pose
	twist := obstacle.Twist
	const comfortableDecelMS2 = 1.5

	for i := 0; i < n; i++ {
		t := float64(i) * cfg.TimeStepS
		out = append(out, planning.PredictedPose{Pose: pose, TFromNowS: t})
		if i == n-1 {
			break
		}
		if cfg.Model == ConstantAcceleration && t >= cfg.PredictionHorizonS/2 {
			speed := twist.Speed()
			if speed > 0 {
				scale := math.Max(0, speed-comfortableDecelMS2*cfg.TimeStepS) / speed
				twist.Vx *= scale
				twist.Vy *= scale
			}
		}
		pose = pose.Advance(twist, cfg.TimeStepS)
	}
	return out
}
