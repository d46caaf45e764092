package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/KleanOcean/TennisBall-IMU/internal/telemetry"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tennis.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)

	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	id, err := db.CreateSession(start)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	end := start.Add(90 * time.Second)
	stats := SessionStats{TotalSamples: 4500, TotalShots: 12, AvgRPM: 1800, MaxRPM: 3200}
	if err := db.EndSession(id, end, stats); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sessions, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions=%d want 1", len(sessions))
	}
	s := sessions[0]
	if s.ID != id || s.TotalSamples != 4500 || s.TotalShots != 12 {
		t.Fatalf("session=%+v", s)
	}
	if s.DurationSec != 90 {
		t.Fatalf("duration=%v want 90", s.DurationSec)
	}
	if s.MaxRPM != 3200 {
		t.Fatalf("max_rpm=%v", s.MaxRPM)
	}
}

func TestInsertSampleBatch(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSession(time.Now())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	batch := []telemetry.SampleMessage{
		{T: 20, Gx: 1800, RPM: 300, Spin: "TOPSPIN", Az: 1},
		{T: 40, Gx: 1790, RPM: 298, Spin: "TOPSPIN", Az: 1, Imp: 1},
	}
	if err := db.InsertSampleBatch(id, time.Now(), batch); err != nil {
		t.Fatalf("InsertSampleBatch: %v", err)
	}
	if err := db.InsertSampleBatch(id, time.Now(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	n, err := db.SampleCount(id)
	if err != nil {
		t.Fatalf("SampleCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("samples=%d want 2", n)
	}
}

func TestInsertShot_AxisNullWhenIndeterminate(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSession(time.Now())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	m := telemetry.ShotMessage{Event: "shot", ID: 0, T: 2000, RPM: 300, PeakG: 6.2, Gx: 1800, Type: "TOPSPIN"}
	if err := db.InsertShot(id, time.Now(), m, 90, 0, true); err != nil {
		t.Fatalf("InsertShot: %v", err)
	}
	m2 := telemetry.ShotMessage{Event: "shot", ID: 1, T: 4000, RPM: 20, PeakG: 5.4, Type: "FLAT"}
	if err := db.InsertShot(id, time.Now(), m2, 0, 0, false); err != nil {
		t.Fatalf("InsertShot: %v", err)
	}

	shots, err := db.Shots(id)
	if err != nil {
		t.Fatalf("Shots: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("shots=%d want 2", len(shots))
	}
	if !shots[0].AxisTheta.Valid || shots[0].AxisTheta.Float64 != 90 {
		t.Fatalf("shot0 theta=%+v want 90", shots[0].AxisTheta)
	}
	if shots[1].AxisTheta.Valid || shots[1].AxisPhi.Valid {
		t.Fatalf("shot1 axis should be NULL: %+v", shots[1])
	}
	if shots[0].SpinType != "TOPSPIN" || shots[1].SpinType != "FLAT" {
		t.Fatalf("types=%q %q", shots[0].SpinType, shots[1].SpinType)
	}
}

func TestDeleteSession_RemovesChildren(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSession(time.Now())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := db.InsertSampleBatch(id, time.Now(), []telemetry.SampleMessage{{T: 20}}); err != nil {
		t.Fatalf("InsertSampleBatch: %v", err)
	}
	if err := db.InsertShot(id, time.Now(), telemetry.ShotMessage{ID: 0, T: 20}, 0, 0, false); err != nil {
		t.Fatalf("InsertShot: %v", err)
	}

	if err := db.DeleteSession(id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	sessions, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("sessions=%d want 0", len(sessions))
	}
	n, err := db.SampleCount(id)
	if err != nil {
		t.Fatalf("SampleCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("samples=%d want 0", n)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tennis.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := db.CreateSession(time.Now())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	sessions, err := db2.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Fatalf("sessions=%+v", sessions)
	}
}
