// Package transport implements the bidirectional websocket adapter to the
// orchestrator: topic/envelope codec, reconnect-with-backoff, delay
// compensation, and debug-frame gating (spec.md §4.6, §6).
package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahrs365/navsim-go/cycle"
	"github.com/ahrs365/navsim-go/planning"
	"github.com/ahrs365/navsim-go/spatial"
)

// SchemaVersion is the wire schema tag every envelope's data carries
// (spec.md §6). A mismatch on inbound frames logs a warning but does not
// reject the frame.
const SchemaVersion = "navsim.v1"

// Kind tags a message's semantic type, independent of its room. The wire
// topic is `/room/<room_id>/<kind>`.
type Kind string

const (
	KindWorldTick           Kind = "world_tick"
	KindPlanUpdate          Kind = "plan_update"
	KindHeartbeat           Kind = "control/heartbeat"
	KindPerceptionDebug     Kind = "perception/debug"
	KindPerceptionDebugCtrl Kind = "perception/debug/control"
)

// Envelope is the wire-level JSON frame: `{topic, data}` (spec.md §6).
type Envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Topic builds the `/room/<room_id>/<kind>` topic string.
func Topic(roomID string, kind Kind) string {
	return fmt.Sprintf("/room/%s/%s", roomID, kind)
}

// ParseTopic splits a topic string into its room id and kind. Returns
// ok=false if the topic does not match `/room/<room_id>/<kind>`.
func ParseTopic(topic string) (roomID string, kind Kind, ok bool) {
	const prefix = "/room/"
	if !strings.HasPrefix(topic, prefix) {
		return "", "", false
	}
	rest := topic[len(prefix):]
	idx := strings.Index(rest, "/")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], Kind(rest[idx+1:]), true
}

// WorldTickData is the decoded inbound `world_tick` payload (spec.md §6).
type WorldTickData struct {
	Schema string  `json:"schema"`
	TickID string  `json:"tick_id"`
	StampS float64 `json:"stamp"`
	Ego    struct {
		Pose struct {
			X, Y, Yaw float64
		} `json:"pose"`
		Twist struct {
			Vx, Vy, Omega float64
		} `json:"twist"`
	} `json:"ego"`
	Goal struct {
		Pose struct {
			X, Y, Yaw float64
		} `json:"pose"`
		Tol struct {
			Pos float64 `json:"pos"`
			Yaw float64 `json:"yaw"`
		} `json:"tol"`
	} `json:"goal"`
	Chassis struct {
		Model     string  `json:"model"`
		Wheelbase float64 `json:"wheelbase"`
		Limits    struct {
			VMax     float64 `json:"v_max"`
			AMax     float64 `json:"a_max"`
			OmegaMax float64 `json:"omega_max"`
			SteerMax float64 `json:"steer_max"`
		} `json:"limits"`
		Geometry struct {
			TrackWidth  float64 `json:"track_width"`
			BodyLength  float64 `json:"body_length"`
			BodyWidth   float64 `json:"body_width"`
			BodyHeight  float64 `json:"body_height"`
			WheelRadius float64 `json:"wheel_radius"`
			WheelWidth  float64 `json:"wheel_width"`
		} `json:"geometry"`
	} `json:"chassis"`
	Map struct {
		Static struct {
			Circles  []wireCircle  `json:"circles"`
			Polygons []wirePolygon `json:"polygons"`
		} `json:"static"`
	} `json:"map"`
	Dynamic []wireDynamicObstacle `json:"dynamic"`
}

type wireCircle struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	RadiusM    float64 `json:"radius_m"`
	Confidence float64 `json:"confidence"`
}

type wirePolygon struct {
	Vertices   [][2]float64 `json:"vertices"`
	Confidence float64      `json:"confidence"`
}

// wireDynamicObstacle mirrors the orchestrator's protobuf-style dynamic
// obstacle encoding: w/h rather than length/width (spec.md §6's "Snapshot
// geometry contract").
type wireDynamicObstacle struct {
	ID    int     `json:"id"`
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Yaw   float64 `json:"yaw"`
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
	Omega float64 `json:"omega"`
	Shape string  `json:"shape"` // "circle" or "rectangle"
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	R     float64 `json:"r"` // present only for shape == "circle"
}

// toDynamicObstacle applies spec.md §6's shape mapping: w -> length
// (along-heading extent), h -> width (lateral extent); a circle's diameter
// fills both.
func (w wireDynamicObstacle) toDynamicObstacle() planning.DynamicObstacle {
	d := planning.DynamicObstacle{
		ID:   w.ID,
		Type: w.Type,
		Pose: spatial.NewPose2d(w.X, w.Y, w.Yaw),
		Twist: spatial.Twist2d{
			Vx: w.Vx, Vy: w.Vy, Omega: w.Omega,
		},
	}
	if w.Shape == "circle" {
		d.Shape = planning.ShapeCircle
		d.LengthM = 2 * w.R
		d.WidthM = 2 * w.R
		return d
	}
	d.Shape = planning.ShapeRectangle
	d.LengthM = w.W
	d.WidthM = w.H
	return d
}

// DecodeWorldTick parses raw into a Snapshot, applying the shape mapping
// above and carrying the static map geometry through RawExtensions for the
// baseline BEV extractor (spec.md §4.2 step 3).
func DecodeWorldTick(raw json.RawMessage) (cycle.Snapshot, WorldTickData, error) {
	var data WorldTickData
	if err := json.Unmarshal(raw, &data); err != nil {
		return cycle.Snapshot{}, WorldTickData{}, fmt.Errorf("transport: decode world_tick: %w", err)
	}

	ego := planning.EgoVehicle{
		Pose:  spatial.NewPose2d(data.Ego.Pose.X, data.Ego.Pose.Y, data.Ego.Pose.Yaw),
		Twist: spatial.Twist2d{Vx: data.Ego.Twist.Vx, Vy: data.Ego.Twist.Vy, Omega: data.Ego.Twist.Omega},
		Chassis: planning.Chassis{
			Model:       data.Chassis.Model,
			WheelbaseM:  data.Chassis.Wheelbase,
			TrackWidthM: data.Chassis.Geometry.TrackWidth,
			BodyLengthM: data.Chassis.Geometry.BodyLength,
			BodyWidthM:  data.Chassis.Geometry.BodyWidth,
			BodyHeightM: data.Chassis.Geometry.BodyHeight,
			Wheel: planning.WheelGeometry{
				RadiusM: data.Chassis.Geometry.WheelRadius,
				WidthM:  data.Chassis.Geometry.WheelWidth,
			},
			Limits: planning.ChassisLimits{
				VMaxMS:       data.Chassis.Limits.VMax,
				AMaxMS2:      data.Chassis.Limits.AMax,
				OmegaMaxRads: data.Chassis.Limits.OmegaMax,
				SteerMaxRad:  data.Chassis.Limits.SteerMax,
			},
		},
	}

	task := planning.PlanningTask{
		Goal:      spatial.NewPose2d(data.Goal.Pose.X, data.Goal.Pose.Y, data.Goal.Pose.Yaw),
		Tolerance: planning.Tolerance{PositionM: data.Goal.Tol.Pos, YawRad: data.Goal.Tol.Yaw},
		Kind:      planning.GotoGoal,
	}

	dynamic := make([]planning.DynamicObstacle, 0, len(data.Dynamic))
	for _, wd := range data.Dynamic {
		dynamic = append(dynamic, wd.toDynamicObstacle())
	}

	circles := make([]planning.Circle, 0, len(data.Map.Static.Circles))
	for _, c := range data.Map.Static.Circles {
		circles = append(circles, planning.Circle{
			Center:     spatial.NewPose2d(c.X, c.Y, 0),
			RadiusM:    c.RadiusM,
			Confidence: c.Confidence,
		})
	}
	polygons := make([]planning.Polygon, 0, len(data.Map.Static.Polygons))
	for _, p := range data.Map.Static.Polygons {
		vertices := make([]spatial.Pose2d, 0, len(p.Vertices))
		for _, v := range p.Vertices {
			vertices = append(vertices, spatial.NewPose2d(v[0], v[1], 0))
		}
		polygons = append(polygons, planning.Polygon{Vertices: vertices, Confidence: p.Confidence})
	}

	snapshot := cycle.Snapshot{
		TickID:  data.TickID,
		Ego:     ego,
		Task:    task,
		Dynamic: dynamic,
		RawExtensions: map[string]interface{}{
			"static_circles":  circles,
			"static_polygons": polygons,
		},
	}
	return snapshot, data, nil
}

// PlanUpdateData is the outbound `plan_update` payload (spec.md §6).
type PlanUpdateData struct {
	SchemaVer  string                `json:"schema_ver"`
	TickID     string                `json:"tick_id"`
	StampS     float64               `json:"stamp"`
	NPoints    int                   `json:"n_points"`
	ComputeMS  float64               `json:"compute_ms"`
	Trajectory []trajectoryPointWire `json:"trajectory"`
	Summary    planUpdateSummary     `json:"summary"`
}

type trajectoryPointWire struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Yaw   float64 `json:"yaw"`
	T     float64 `json:"t"`
	S     float64 `json:"s"`
	Kappa float64 `json:"kappa"`
	V     float64 `json:"v"`
}

type planUpdateSummary struct {
	Success       bool   `json:"success"`
	PlannerName   string `json:"planner_name"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// EncodePlanUpdate builds a PlanUpdateData from a planning result, for
// round-trip JSON encoding (spec.md §8 "Round-trip").
func EncodePlanUpdate(tickID string, stampS float64, computeMS float64, result planning.PlanningResult) PlanUpdateData {
	points := make([]trajectoryPointWire, 0, len(result.Trajectory))
	for _, p := range result.Trajectory {
		points = append(points, trajectoryPointWire{
			X: p.Pose.X, Y: p.Pose.Y, Yaw: p.Pose.Yaw,
			T: p.TimeFromStartS, S: p.PathLengthM,
			Kappa: p.Curvature, V: p.Twist.Speed(),
		})
	}
	return PlanUpdateData{
		SchemaVer:  SchemaVersion,
		TickID:     tickID,
		StampS:     stampS,
		NPoints:    len(points),
		ComputeMS:  computeMS,
		Trajectory: points,
		Summary: planUpdateSummary{
			Success:       result.Success,
			PlannerName:   result.PlannerName,
			FailureReason: result.FailureReason,
		},
	}
}

// DecodePlanUpdate parses raw back into a PlanUpdateData, for round-trip
// tests.
func DecodePlanUpdate(raw json.RawMessage) (PlanUpdateData, error) {
	var data PlanUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return PlanUpdateData{}, fmt.Errorf("transport: decode plan_update: %w", err)
	}
	return data, nil
}

// HeartbeatData is the outbound `control/heartbeat` payload (spec.md §6).
type HeartbeatData struct {
	SchemaVer    string  `json:"schema_ver"`
	StampS       float64 `json:"stamp"`
	WSRx         int64   `json:"ws_rx"`
	WSTx         int64   `json:"ws_tx"`
	DroppedTicks int64   `json:"dropped_ticks"`
	LoopHz       float64 `json:"loop_hz"`
	ComputeMsP50 float64 `json:"compute_ms_p50"`
}

// EncodeHeartbeat builds a HeartbeatData from a cycle.Heartbeat.
func EncodeHeartbeat(stampS float64, hb cycle.Heartbeat) HeartbeatData {
	return HeartbeatData{
		SchemaVer:    SchemaVersion,
		StampS:       stampS,
		WSRx:         hb.WSRx,
		WSTx:         hb.WSTx,
		DroppedTicks: hb.DroppedTicks,
		LoopHz:       hb.LoopHz,
		ComputeMsP50: hb.ComputeMsP50,
	}
}

// PerceptionDebugData is the outbound `perception/debug` payload
// (spec.md §6), gated by the debug-enabled flag.
type PerceptionDebugData struct {
	SchemaVer      string            `json:"schema_ver"`
	StampS         float64           `json:"stamp"`
	OccupancyGrid  *occupancyGridWire `json:"occupancy_grid,omitempty"`
	BEVObstacles   *bevWire           `json:"bev_obstacles,omitempty"`
	DynamicObstacles []dynamicObstacleWire `json:"dynamic_obstacles"`
}

type occupancyGridWire struct {
	Config struct {
		OriginX     float64 `json:"origin_x"`
		OriginY     float64 `json:"origin_y"`
		ResolutionM float64 `json:"resolution_m"`
		WidthCells  int     `json:"width_cells"`
		HeightCells int     `json:"height_cells"`
	} `json:"config"`
	GridData [][]uint8 `json:"grid_data"`
}

type bevWire struct {
	Circles    []wireCircle  `json:"circles"`
	Rectangles []wireRectangle `json:"rectangles"`
	Polygons   []wirePolygon `json:"polygons"`
}

type wireRectangle struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Yaw        float64 `json:"yaw"`
	WidthM     float64 `json:"width_m"`
	HeightM    float64 `json:"height_m"`
	Confidence float64 `json:"confidence"`
}

type dynamicObstacleWire struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Yaw     float64 `json:"yaw"`
	LengthM float64 `json:"length_m"`
	WidthM  float64 `json:"width_m"`
}

// EncodePerceptionDebug builds a PerceptionDebugData from a planning
// context, row-majoring the occupancy grid into nested arrays for the
// visualization client.
func EncodePerceptionDebug(stampS float64, ctx *planning.Context) PerceptionDebugData {
	out := PerceptionDebugData{SchemaVer: SchemaVersion, StampS: stampS}

	if ctx.OccupancyGrid != nil {
		g := ctx.OccupancyGrid
		wire := &occupancyGridWire{}
		wire.Config.OriginX = g.Config.Origin.X
		wire.Config.OriginY = g.Config.Origin.Y
		wire.Config.ResolutionM = g.Config.ResolutionM
		wire.Config.WidthCells = g.Config.WidthCells
		wire.Config.HeightCells = g.Config.HeightCells
		wire.GridData = make([][]uint8, g.Config.HeightCells)
		for y := 0; y < g.Config.HeightCells; y++ {
			row := make([]uint8, g.Config.WidthCells)
			copy(row, g.Data[y*g.Config.WidthCells:(y+1)*g.Config.WidthCells])
			wire.GridData[y] = row
		}
		out.OccupancyGrid = wire
	}

	if ctx.BEV != nil {
		bev := &bevWire{}
		for _, c := range ctx.BEV.Circles {
			bev.Circles = append(bev.Circles, wireCircle{X: c.Center.X, Y: c.Center.Y, RadiusM: c.RadiusM, Confidence: c.Confidence})
		}
		for _, r := range ctx.BEV.Rectangles {
			bev.Rectangles = append(bev.Rectangles, wireRectangle{X: r.Pose.X, Y: r.Pose.Y, Yaw: r.Pose.Yaw, WidthM: r.WidthM, HeightM: r.HeightM, Confidence: r.Confidence})
		}
		for _, p := range ctx.BEV.Polygons {
			var verts [][2]float64
			for _, v := range p.Vertices {
				verts = append(verts, [2]float64{v.X, v.Y})
			}
			bev.Polygons = append(bev.Polygons, wirePolygon{Vertices: verts, Confidence: p.Confidence})
		}
		out.BEVObstacles = bev
	}

	for _, d := range ctx.Dynamic {
		out.DynamicObstacles = append(out.DynamicObstacles, dynamicObstacleWire{
			ID: d.ID, X: d.Pose.X, Y: d.Pose.Y, Yaw: d.Pose.Yaw,
			LengthM: d.LengthM, WidthM: d.WidthM,
		})
	}
	return out
}

// PerceptionDebugControlData is the inbound `perception/debug/control`
// payload: a single enable flag (spec.md §6).
type PerceptionDebugControlData struct {
	Enable bool `json:"enable"`
}

// DecodePerceptionDebugControl parses raw into a PerceptionDebugControlData.
func DecodePerceptionDebugControl(raw json.RawMessage) (PerceptionDebugControlData, error) {
	var data PerceptionDebugControlData
	if err := json.Unmarshal(raw, &data); err != nil {
		return PerceptionDebugControlData{}, fmt.Errorf("transport: decode perception/debug/control: %w", err)
	}
	return data, nil
}
