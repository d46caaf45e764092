package web

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	h := NewHub(cfg)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Stop(ctx)
	})
	return h
}

func waitEvent(t *testing.T, h *Hub, want EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.Events():
			if ev.Kind == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", want)
		}
	}
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+h.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHub_ConnectDisconnectEvents(t *testing.T) {
	h := startHub(t, Config{})

	conn := dial(t, h)
	waitEvent(t, h, EventConnect)

	_ = conn.Close()
	waitEvent(t, h, EventDisconnect)
}

func TestHub_InboundCommands(t *testing.T) {
	h := startHub(t, Config{})
	conn := dial(t, h)
	defer conn.Close()
	waitEvent(t, h, EventConnect)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("reset")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := waitEvent(t, h, EventCommand)
	if ev.Command != "reset" {
		t.Fatalf("command=%q want reset", ev.Command)
	}

	// Whitespace is trimmed, empty frames are dropped.
	_ = conn.WriteMessage(websocket.TextMessage, []byte("  clear_shots\n"))
	ev = waitEvent(t, h, EventCommand)
	if ev.Command != "clear_shots" {
		t.Fatalf("command=%q want clear_shots", ev.Command)
	}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := startHub(t, Config{})
	conn := dial(t, h)
	defer conn.Close()
	waitEvent(t, h, EventConnect)

	if err := h.SendSample([]byte(`{"t":1}`)); err != nil {
		t.Fatalf("SendSample: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"t":1}` {
		t.Fatalf("got %q", msg)
	}
}

func TestHub_StopTearsDownClientsAndRestarts(t *testing.T) {
	h := NewHub(Config{Addr: "127.0.0.1:0"})
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := dial(t, h)
	waitEvent(t, h, EventConnect)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// The client connection must be gone, not half-open.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection after Stop")
	}

	// Restartable after a sleep cycle.
	if err := h.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	conn2 := dial(t, h)
	defer conn2.Close()
	waitEvent(t, h, EventConnect)
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	_ = h.Stop(ctx2)
}

func TestHub_StatusEndpoint(t *testing.T) {
	h := startHub(t, Config{
		Status: func() any { return map[string]any{"power": "active", "clients": 1} },
		Shots:  func() any { return []int{} },
	})

	resp, err := http.Get("http://" + h.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["power"] != "active" {
		t.Fatalf("payload=%v", m)
	}
}

func TestHub_StatusRejectsPost(t *testing.T) {
	h := startHub(t, Config{Status: func() any { return nil }})
	resp, err := http.Post("http://"+h.Addr()+"/api/status", "text/plain", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", resp.StatusCode)
	}
}
