// spin-observer tails a tracker's WebSocket telemetry from a courtside
// machine and persists it to SQLite, grouped into training sessions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KleanOcean/TennisBall-IMU/internal/store"
	"github.com/KleanOcean/TennisBall-IMU/internal/telemetry"
	"github.com/KleanOcean/TennisBall-IMU/internal/tracker"
)

const (
	reconnectDelay = 2 * time.Second
	// A disconnect this long means the player stopped; the next connect
	// starts a fresh session.
	sessionGap = 30 * time.Second

	flushRows     = 100
	flushInterval = 2 * time.Second
	statsInterval = 5 * time.Second
)

type receiver struct {
	db        *store.DB
	sessionID int64

	buffer    []telemetry.SampleMessage
	lastFlush time.Time
	lastStats time.Time

	totalSamples int
	totalShots   int
	rpmSum       float64
	maxRPM       float64
}

func main() {
	var (
		wsURL  string
		dbPath string
	)
	flag.StringVar(&wsURL, "ws", "ws://192.168.4.1:8080/ws", "Tracker WebSocket URL")
	flag.StringVar(&dbPath, "db", "tennis_data.db", "SQLite database path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	r := &receiver{db: db}
	if err := r.newSession(); err != nil {
		log.Fatalf("session create failed: %v", err)
	}
	log.Printf("spin-observer: session #%d, ws=%s db=%s", r.sessionID, wsURL, dbPath)

	var lastDisconnect time.Time
	for ctx.Err() == nil {
		err := r.runConn(ctx, wsURL, lastDisconnect)
		r.flush()
		if ctx.Err() != nil {
			break
		}
		log.Printf("connection lost: %v (retrying in %s)", err, reconnectDelay)
		lastDisconnect = time.Now()
		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
		}
	}

	if err := r.endSession(); err != nil {
		log.Printf("session finalize failed: %v", err)
	}
	log.Printf("spin-observer stopping: session #%d samples=%d shots=%d",
		r.sessionID, r.totalSamples, r.totalShots)
}

func (r *receiver) newSession() error {
	id, err := r.db.CreateSession(time.Now())
	if err != nil {
		return err
	}
	r.sessionID = id
	r.totalSamples = 0
	r.totalShots = 0
	r.rpmSum = 0
	r.maxRPM = 0
	now := time.Now()
	r.lastFlush = now
	r.lastStats = now
	return nil
}

func (r *receiver) stats() store.SessionStats {
	avg := 0.0
	if r.totalSamples > 0 {
		avg = r.rpmSum / float64(r.totalSamples)
	}
	return store.SessionStats{
		TotalSamples: r.totalSamples,
		TotalShots:   r.totalShots,
		AvgRPM:       avg,
		MaxRPM:       r.maxRPM,
	}
}

func (r *receiver) endSession() error {
	return r.db.EndSession(r.sessionID, time.Now(), r.stats())
}

// runConn handles one WebSocket connection until it drops or ctx ends.
func (r *receiver) runConn(ctx context.Context, wsURL string, lastDisconnect time.Time) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if !lastDisconnect.IsZero() && time.Since(lastDisconnect) >= sessionGap {
		if err := r.endSession(); err != nil {
			log.Printf("session finalize failed: %v", err)
		}
		if err := r.newSession(); err != nil {
			return err
		}
		log.Printf("gap >= %s: new session #%d", sessionGap, r.sessionID)
	}
	log.Printf("connected to %s", wsURL)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		r.handle(payload)
	}
}

func (r *receiver) handle(payload []byte) {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		log.Printf("bad frame: %v", err)
		return
	}

	if probe.Event == "shot" {
		var m telemetry.ShotMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("bad shot frame: %v", err)
			return
		}
		theta, phi, ok := tracker.SpinAxisAngles(m.Gx, m.Gy, m.Gz)
		if err := r.db.InsertShot(r.sessionID, time.Now(), m, theta, phi, ok); err != nil {
			log.Printf("shot insert failed: %v", err)
			return
		}
		r.totalShots++
		log.Printf("shot #%d: %s %.0f rpm %.1fg", m.ID, m.Type, m.RPM, m.PeakG)
		return
	}

	var m telemetry.SampleMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("bad sample frame: %v", err)
		return
	}
	r.totalSamples++
	r.rpmSum += m.RPM
	if m.RPM > r.maxRPM {
		r.maxRPM = m.RPM
	}
	r.buffer = append(r.buffer, m)

	now := time.Now()
	if len(r.buffer) >= flushRows || now.Sub(r.lastFlush) >= flushInterval {
		r.flush()
	}
	if now.Sub(r.lastStats) >= statsInterval {
		if err := r.db.EndSession(r.sessionID, now, r.stats()); err != nil {
			log.Printf("stats update failed: %v", err)
		}
		r.lastStats = now
	}
}

func (r *receiver) flush() {
	if len(r.buffer) == 0 {
		return
	}
	if err := r.db.InsertSampleBatch(r.sessionID, time.Now(), r.buffer); err != nil {
		log.Printf("batch insert failed: %v", err)
	}
	r.buffer = r.buffer[:0]
	r.lastFlush = time.Now()
}
