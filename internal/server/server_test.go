package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Scrimzay/livebattle/internal/live"
	"github.com/Scrimzay/livebattle/internal/world"
)

type testEnv struct {
	world       *world.World
	broadcaster *world.Broadcaster
	router      *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(zaptest.NewLogger(t))
}

func newTestEnvWithLogger(log *zap.Logger) *testEnv {
	gin.SetMode(gin.TestMode)

	w := world.New(world.DefaultRules(), log, rand.New(rand.NewSource(1)))
	b := world.NewBroadcaster(w, log, world.BroadcasterOptions{TickRate: 60, BroadcastRate: 20})
	d := live.NewDispatcher(w, log, live.Options{Rng: rand.New(rand.NewSource(2))})
	relay := NewRelay(b, d, log)

	return &testEnv{
		world:       w,
		broadcaster: b,
		router:      SetupRouter(b, w, relay, Options{Log: log, ClientOrigin: "*", Mode: "test"}),
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		OK       bool   `json:"ok"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK || body.Username != "none" {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestStatusCarriesSnapshot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Server   string         `json:"server"`
		Snapshot world.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Server != "online" || body.Snapshot.Phase != "stopped" || body.Snapshot.ArenaWidth != 1280 {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestPostEvents(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/round/start", "")

	tests := []struct {
		name     string
		body     string
		code     int
		accepted bool
	}{
		{"follow", `{"type":"social","displayType":"follow","uniqueId":"x"}`, http.StatusAccepted, true},
		{"gift", `{"type":"gift","giftName":"Rose","diamondCount":1}`, http.StatusAccepted, true},
		{"unmapped", `{"type":"envelope"}`, http.StatusAccepted, false},
		{"broken", `{"type":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/events", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.code != http.StatusAccepted {
				return
			}
			var body struct {
				Accepted bool `json:"accepted"`
			}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Accepted != tt.accepted {
				t.Fatalf("accepted = %v, want %v", body.Accepted, tt.accepted)
			}
		})
	}

	// follow queues two, the Rose gift five more
	if n := env.world.QueuedSpawns(); n != 7 {
		t.Fatalf("queued spawns = %d, want 7", n)
	}
}

func TestStartRound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/round/start", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"countdown"`) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if env.world.Phase() != world.PhaseCountdown {
		t.Fatalf("phase = %s", env.world.Phase())
	}
}

func TestWebsocketSnapshotAndEvents(t *testing.T) {
	// connection teardown logs after the test returns
	env := newTestEnvWithLogger(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.broadcaster.Run(ctx)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("first frame type = %d, want binary snapshot", msgType)
	}
	var snap world.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Phase != "stopped" || snap.TeamNames != [2]string{"pumpkin", "bat"} {
		t.Fatalf("snapshot = %+v", snap)
	}

	send := func(v any) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	send(map[string]any{"action": "start"})
	send(map[string]any{"action": "event", "event": map[string]any{"type": "share", "user": "ws"}})

	var sawRelay, sawReply bool
	for !(sawRelay && sawReply) {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (relay %v reply %v)", err, sawRelay, sawReply)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var head struct {
			Type   string `json:"type"`
			Action string `json:"action"`
			OK     bool   `json:"ok"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			t.Fatalf("bad text frame %s", data)
		}
		switch {
		case head.Type == "event":
			sawRelay = true

		case head.Action == "event":
			if !head.OK {
				t.Fatalf("event rejected: %s", data)
			}
			sawReply = true
		}
	}

	if env.world.Phase() != world.PhaseCountdown && env.world.Phase() != world.PhasePlaying {
		t.Fatalf("phase = %s after start", env.world.Phase())
	}
}
