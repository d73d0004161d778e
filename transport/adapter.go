package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/ahrs365/navsim-go/cycle"
	"github.com/ahrs365/navsim-go/logging"
)

const (
	// backoffInitial and backoffMax bound the reconnect exponential backoff
	// (spec.md §4.6): 0.5s -> 5s, capped.
	backoffInitial = 500 * time.Millisecond
	backoffMax     = 5 * time.Second

	// delayCompensationWarnThreshold is the Δ=now-stamp above which the
	// adapter warns, per spec.md §4.6.
	delayCompensationWarnThreshold = 100 * time.Millisecond
	// delayCompensationApplyThreshold is the Δ above which first-order
	// pose hold is applied at all.
	delayCompensationApplyThreshold = time.Millisecond

	writeWait  = 5 * time.Second
	pingPeriod = 10 * time.Second
)

// Adapter maintains one persistent (url, room_id)-identified websocket
// connection to the orchestrator, reconnecting with exponential backoff and
// dropping outbound publications while disconnected rather than blocking
// (spec.md §4.6).
type Adapter struct {
	wsURL  string
	roomID string
	logger logging.Logger
	clk    clock.Clock

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	debugEnabled atomic.Bool

	droppedPublications atomic.Int64
	sessionID            string
}

// NewAdapter constructs an Adapter bound to wsURL/roomID. No connection is
// established until Run is called.
func NewAdapter(wsURL, roomID string, logger logging.Logger, clk clock.Clock) *Adapter {
	if clk == nil {
		clk = clock.New()
	}
	return &Adapter{
		wsURL:     wsURL,
		roomID:    roomID,
		logger:    logger,
		clk:       clk,
		sessionID: uuid.NewString(),
	}
}

// Run dials and redials the connection until ctx is cancelled, invoking
// onTick for every decoded world_tick frame and onDebugControl for every
// perception/debug/control frame. It blocks until ctx is done.
func (a *Adapter) Run(ctx context.Context, onTick func(cycle.Snapshot, WorldTickData), onDebugControl func(bool)) error {
	backoff := backoffInitial
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := a.dial(ctx)
		if err != nil {
			if a.logger != nil {
				a.logger.Warnw("dial failed, backing off", "err", err, "backoff", backoff.String())
			}
			if !a.sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = backoffInitial
		a.mu.Lock()
		a.conn = conn
		a.mu.Unlock()
		a.connected.Store(true)

		connCtx, stopPing := context.WithCancel(ctx)
		go a.pingLoop(connCtx, conn)

		err = a.readLoop(ctx, conn, onTick, onDebugControl)
		stopPing()

		a.connected.Store(false)
		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if a.logger != nil {
			a.logger.Warnw("connection lost, reconnecting", "err", err)
		}
		if !a.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
}

// pingLoop sends a websocket ping at pingPeriod for as long as ctx stays
// alive, so the orchestrator's own liveness check (and any intermediate
// proxy idle-timeout) sees traffic even during a quiet tick cadence,
// mirroring the teacher's client ping/pong discipline.
func (a *Adapter) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := a.clk.Ticker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			a.mu.Unlock()
		}
	}
}

func (a *Adapter) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(a.wsURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid ws_url %q: %w", a.wsURL, err)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", a.wsURL, err)
	}
	return conn, nil
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > backoffMax {
		return backoffMax
	}
	return next
}

func (a *Adapter) sleep(ctx context.Context, d time.Duration) bool {
	timer := a.clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (a *Adapter) readLoop(ctx context.Context, conn *websocket.Conn, onTick func(cycle.Snapshot, WorldTickData), onDebugControl func(bool)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if a.logger != nil {
				a.logger.Warnw("malformed frame, discarding", "err", err)
			}
			continue
		}

		_, kind, ok := ParseTopic(env.Topic)
		if !ok {
			if a.logger != nil {
				a.logger.Warnw("unrecognized topic, discarding", "topic", env.Topic)
			}
			continue
		}

		switch kind {
		case KindWorldTick:
			snapshot, data, err := DecodeWorldTick(env.Data)
			if err != nil {
				if a.logger != nil {
					a.logger.Warnw("malformed world_tick, discarding", "err", err)
				}
				continue
			}
			if data.Schema != "" && data.Schema != SchemaVersion {
				if a.logger != nil {
					a.logger.Warnw("schema mismatch", "got", data.Schema, "want", SchemaVersion)
				}
			}
			stamp := time.Unix(0, int64(data.StampS*float64(time.Second)))
			snapshot.Stamp = stamp
			a.compensateDelay(&snapshot, stamp)
			if onTick != nil {
				onTick(snapshot, data)
			}
		case KindPerceptionDebugCtrl:
			ctrl, err := DecodePerceptionDebugControl(env.Data)
			if err != nil {
				if a.logger != nil {
					a.logger.Warnw("malformed perception/debug/control, discarding", "err", err)
				}
				continue
			}
			a.debugEnabled.Store(ctrl.Enable)
			if onDebugControl != nil {
				onDebugControl(ctrl.Enable)
			}
		default:
			if a.logger != nil {
				a.logger.Warnw("unrecognized kind, discarding", "kind", string(kind))
			}
		}
	}
}

// compensateDelay applies spec.md §4.6's first-order pose hold: if
// Δ=now-stamp exceeds 1ms, the ego pose is advanced by the snapshot's own
// twist for Δ seconds before the tick reaches the planner. The original
// stamp is preserved on the snapshot for correlation.
func (a *Adapter) compensateDelay(snapshot *cycle.Snapshot, stamp time.Time) {
	delta := a.clk.Now().Sub(stamp)
	if delta <= delayCompensationApplyThreshold {
		return
	}
	if delta > delayCompensationWarnThreshold && a.logger != nil {
		a.logger.Warnw("world tick delay exceeds compensation comfort threshold", "delta_ms", delta.Milliseconds())
	}
	snapshot.Ego.Pose = snapshot.Ego.Pose.Advance(snapshot.Ego.Twist, delta.Seconds())
}

// DebugEnabled reports whether perception/debug frames are currently
// gated open, per the last perception/debug/control frame received.
func (a *Adapter) DebugEnabled() bool { return a.debugEnabled.Load() }

// Connected reports whether the adapter currently holds a live connection.
func (a *Adapter) Connected() bool { return a.connected.Load() }

// DroppedPublications returns the count of outbound sends dropped while
// disconnected.
func (a *Adapter) DroppedPublications() int64 { return a.droppedPublications.Load() }

var errNotConnected = errors.New("transport: not connected")

// publish sends an envelope if connected, or drops it and increments the
// dropped counter otherwise (spec.md §4.6's "publishing while disconnected
// drops the message and increments a dropped counter rather than
// blocking").
func (a *Adapter) publish(kind Kind, data interface{}) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		a.droppedPublications.Inc()
		return errNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", kind, err)
	}
	env := Envelope{Topic: Topic(a.roomID, kind), Data: payload}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		a.droppedPublications.Inc()
		return errNotConnected
	}
	if err := a.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("transport: set write deadline: %w", err)
	}
	if err := a.conn.WriteJSON(env); err != nil {
		a.droppedPublications.Inc()
		return fmt.Errorf("transport: write %s: %w", kind, err)
	}
	return nil
}

// PublishPlanUpdate encodes and sends a plan_update frame.
func (a *Adapter) PublishPlanUpdate(data PlanUpdateData) error {
	return a.publish(KindPlanUpdate, data)
}

// PublishHeartbeat encodes and sends a control/heartbeat frame.
func (a *Adapter) PublishHeartbeat(data HeartbeatData) error {
	return a.publish(KindHeartbeat, data)
}

// PublishPerceptionDebug encodes and sends a perception/debug frame, but
// only if debug frames are currently enabled via the last
// perception/debug/control toggle.
func (a *Adapter) PublishPerceptionDebug(data PerceptionDebugData) error {
	if !a.DebugEnabled() {
		return nil
	}
	return a.publish(KindPerceptionDebug, data)
}
