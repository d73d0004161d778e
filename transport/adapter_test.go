package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.viam.com/test"

	"github.com/ahrs365/navsim-go/cycle"
)

var testUpgrader = websocket.Upgrader{}

// echoServer accepts one connection, forwards received frames to received
// (if non-nil), and hands the accepted *websocket.Conn back over connCh so a
// test can push frames to the adapter under test.
func echoServer(t *testing.T, received chan<- []byte) (*httptest.Server, chan *websocket.Conn) {
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connCh <- conn
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if received != nil {
				received <- msg
			}
		}
	}))
	return srv, connCh
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func waitConnected(t *testing.T, a *Adapter) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !a.Connected() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	test.That(t, a.Connected(), test.ShouldBeTrue)
}

func TestAdapterPublishesWhenConnected(t *testing.T) {
	received := make(chan []byte, 1)
	srv, connCh := echoServer(t, received)
	defer srv.Close()

	a := NewAdapter(wsURL(srv.URL), "room1", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, nil, nil)

	select {
	case <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a connection")
	}
	waitConnected(t, a)

	err := a.PublishHeartbeat(HeartbeatData{SchemaVer: SchemaVersion, WSRx: 1})
	test.That(t, err, test.ShouldBeNil)

	select {
	case raw := <-received:
		var env Envelope
		test.That(t, json.Unmarshal(raw, &env), test.ShouldBeNil)
		test.That(t, env.Topic, test.ShouldEqual, "/room/room1/control/heartbeat")
	case <-time.After(time.Second):
		t.Fatal("server never received the heartbeat frame")
	}
}

func TestAdapterDropsPublicationsWhileDisconnected(t *testing.T) {
	a := NewAdapter("ws://127.0.0.1:0/unreachable", "room1", nil, nil)
	err := a.PublishHeartbeat(HeartbeatData{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, a.DroppedPublications(), test.ShouldEqual, int64(1))
}

func TestAdapterDecodesWorldTickAndInvokesCallback(t *testing.T) {
	srv, connCh := echoServer(t, nil)
	defer srv.Close()

	// The mock clock matches the fixture's stamp, so no delay compensation
	// moves the decoded pose.
	mock := clock.NewMock()
	mock.Set(time.Unix(100, 0))
	a := NewAdapter(wsURL(srv.URL), "room2", nil, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan cycle.Snapshot, 1)
	go a.Run(ctx, func(s cycle.Snapshot, _ WorldTickData) { ticks <- s }, nil)

	var serverConn *websocket.Conn
	select {
	case serverConn = <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a connection")
	}
	waitConnected(t, a)

	env := Envelope{Topic: Topic("room2", KindWorldTick), Data: json.RawMessage(worldTickFixture)}
	test.That(t, serverConn.WriteJSON(env), test.ShouldBeNil)

	select {
	case snap := <-ticks:
		test.That(t, snap.TickID, test.ShouldEqual, "t1")
		test.That(t, snap.Ego.Pose.X, test.ShouldEqual, 1.0)
	case <-time.After(2 * time.Second):
		t.Fatal("onTick was never invoked")
	}
}

// TestAdapterCompensatesStaleWorldTick is spec.md §4.6's delay-compensation
// property: a world_tick whose stamp is in the past by more than 1ms arrives
// with its ego pose advanced by its own twist over the elapsed delta.
func TestAdapterCompensatesStaleWorldTick(t *testing.T) {
	srv, connCh := echoServer(t, nil)
	defer srv.Close()

	mock := clock.NewMock()
	mock.Set(time.Unix(1000, 0))
	a := NewAdapter(wsURL(srv.URL), "room3", nil, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan cycle.Snapshot, 1)
	go a.Run(ctx, func(s cycle.Snapshot, _ WorldTickData) { ticks <- s }, nil)

	var serverConn *websocket.Conn
	select {
	case serverConn = <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a connection")
	}
	waitConnected(t, a)

	// stamp is 200ms before the adapter's mock "now", so the pose should
	// advance by vx * 0.2s = 1 * 0.2 = 0.2m along x (yaw 0.1 heading held
	// constant by the first-order model; only the x/y/yaw machinery in
	// Pose2d.Advance is exercised here, not re-derived).
	stale := map[string]interface{}{}
	test.That(t, json.Unmarshal([]byte(worldTickFixture), &stale), test.ShouldBeNil)
	stale["stamp"] = 999.8
	staleRaw, err := json.Marshal(stale)
	test.That(t, err, test.ShouldBeNil)

	env := Envelope{Topic: Topic("room3", KindWorldTick), Data: json.RawMessage(staleRaw)}
	test.That(t, serverConn.WriteJSON(env), test.ShouldBeNil)

	select {
	case snap := <-ticks:
		test.That(t, snap.Ego.Pose.X, test.ShouldBeGreaterThan, 1.0)
	case <-time.After(2 * time.Second):
		t.Fatal("onTick was never invoked")
	}
}

func TestAdapterTogglesDebugControl(t *testing.T) {
	srv, connCh := echoServer(t, nil)
	defer srv.Close()

	a := NewAdapter(wsURL(srv.URL), "room4", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	toggled := make(chan bool, 1)
	go a.Run(ctx, nil, func(enabled bool) { toggled <- enabled })

	var serverConn *websocket.Conn
	select {
	case serverConn = <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a connection")
	}
	waitConnected(t, a)
	test.That(t, a.DebugEnabled(), test.ShouldBeFalse)

	env := Envelope{Topic: Topic("room4", KindPerceptionDebugCtrl), Data: json.RawMessage(`{"enable": true}`)}
	test.That(t, serverConn.WriteJSON(env), test.ShouldBeNil)

	select {
	case enabled := <-toggled:
		test.That(t, enabled, test.ShouldBeTrue)
	case <-time.After(2 * time.Second):
		t.Fatal("onDebugControl was never invoked")
	}
	test.That(t, a.DebugEnabled(), test.ShouldBeTrue)
}
