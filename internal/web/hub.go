// Package web is the network collaborator of the tracker core: a WebSocket
// hub carrying the telemetry stream out and one-token control commands in,
// plus a small JSON status API. It owns no core state; connect/disconnect
// and command notifications are queued as events for the control loop to
// drain at tick boundaries.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventCommand
)

// Event is a serialized notification for the control loop.
type Event struct {
	Kind    EventKind
	Command string // set for EventCommand
}

type Config struct {
	Addr string

	// Status and Shots produce JSON-marshalable snapshots for the API
	// endpoints. Both must be safe to call from HTTP handler goroutines.
	Status func() any
	Shots  func() any
}

const (
	writeWait         = 2 * time.Second
	clientSendBuffer  = 16
	eventQueueBuffer  = 256
	socketBufferBytes = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  socketBufferBytes,
	WriteBufferSize: socketBufferBytes,
	// The tracker serves its own access-point network; origin checks add
	// nothing there.
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub accepts WebSocket consumers and fans telemetry payloads out to them.
// It is restartable: Stop tears every connection down (the power machine's
// radio teardown), Start brings a fresh listener up.
type Hub struct {
	cfg    Config
	events chan Event

	mu      sync.Mutex
	clients map[*client]struct{}
	ln      net.Listener
	srv     *http.Server
}

func NewHub(cfg Config) *Hub {
	return &Hub{
		cfg:     cfg,
		events:  make(chan Event, eventQueueBuffer),
		clients: make(map[*client]struct{}),
	}
}

// Events is drained by the control loop; the hub never blocks on it.
func (h *Hub) Events() <-chan Event { return h.events }

// Addr reports the bound listen address (useful with ":0").
func (h *Hub) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln != nil {
		return fmt.Errorf("web: hub already started")
	}
	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", h.cfg.Addr, err)
	}
	srv := &http.Server{Handler: h.handler()}
	h.ln = ln
	h.srv = srv
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("web: serve: %v", err)
		}
	}()
	return nil
}

// Stop closes the listener and every client connection so nothing half-open
// survives a power transition. The hub can be started again afterwards.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		close(c.send)
	}
	h.clients = make(map[*client]struct{})
	h.ln = nil
	h.srv = nil
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (h *Hub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		h.serveJSON(w, r, h.cfg.Status)
	})
	mux.HandleFunc("/api/shots", func(w http.ResponseWriter, r *http.Request) {
		h.serveJSON(w, r, h.cfg.Shots)
	})
	return mux
}

func (h *Hub) serveJSON(w http.ResponseWriter, r *http.Request, snap func() any) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if snap == nil {
		http.Error(w, "unavailable", http.StatusNotFound)
		return
	}
	b, err := json.MarshalIndent(snap(), "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.post(Event{Kind: EventConnect})

	go c.writePump()
	h.readPump(c)
}

// readPump turns inbound text frames into command events until the
// connection dies, then deregisters the client.
func (h *Hub) readPump(c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		cmd := strings.TrimSpace(string(msg))
		if cmd == "" {
			continue
		}
		h.post(Event{Kind: EventCommand, Command: cmd})
	}

	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	if present {
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
	if present {
		h.post(Event{Kind: EventDisconnect})
	}
}

func (c *client) writePump() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// post never blocks; if the loop is suspended and the queue fills, the
// oldest semantics win by dropping the new event. Consumer counting is
// self-correcting on wake (the count is reset to zero).
func (h *Hub) post(ev Event) {
	select {
	case h.events <- ev:
	default:
	}
}

// SendSample implements telemetry.Sink. Delivery is per-client non-blocking:
// a consumer that cannot keep up loses frames, never stalls the loop.
func (h *Hub) SendSample(payload []byte) error {
	h.broadcast(payload)
	return nil
}

// SendShot implements telemetry.Sink.
func (h *Hub) SendShot(payload []byte) error {
	h.broadcast(payload)
	return nil
}

func (h *Hub) broadcast(payload []byte) {
	// Sends happen under the lock so they cannot race a close of the send
	// channel in readPump or Stop; each send is non-blocking, so the
	// critical section stays short.
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}
