// Package store persists observer sessions to SQLite: one row per telemetry
// sample, one per shot, grouped into training sessions.
package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KleanOcean/TennisBall-IMU/internal/telemetry"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time TEXT,
			end_time TEXT,
			duration_sec REAL,
			total_samples INTEGER DEFAULT 0,
			total_shots INTEGER DEFAULT 0,
			avg_rpm REAL DEFAULT 0,
			max_rpm REAL DEFAULT 0,
			notes TEXT
		);
		CREATE TABLE IF NOT EXISTS imu_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER,
			device_ts INTEGER,
			local_ts TEXT,
			ax REAL, ay REAL, az REAL,
			gx REAL, gy REAL, gz REAL,
			qw REAL, qx REAL, qy REAL, qz REAL,
			rpm REAL,
			spin TEXT,
			impact INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_imu_session_ts
			ON imu_data (session_id, device_ts);
		CREATE TABLE IF NOT EXISTS shots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER,
			shot_id INTEGER,
			device_ts INTEGER,
			local_ts TEXT,
			rpm REAL,
			peak_g REAL,
			gx REAL, gy REAL, gz REAL,
			spin_type TEXT,
			spin_axis_theta REAL,
			spin_axis_phi REAL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

func localTS(now time.Time) string {
	return now.Format("2006-01-02T15:04:05.000")
}

// CreateSession opens a new training session and returns its id.
func (db *DB) CreateSession(now time.Time) (int64, error) {
	res, err := db.Exec("INSERT INTO sessions (start_time) VALUES (?)", localTS(now))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SessionStats summarizes a finished session.
type SessionStats struct {
	TotalSamples int
	TotalShots   int
	AvgRPM       float64
	MaxRPM       float64
}

// EndSession stamps the end time and final statistics.
func (db *DB) EndSession(id int64, now time.Time, stats SessionStats) error {
	var start string
	err := db.QueryRow("SELECT start_time FROM sessions WHERE id = ?", id).Scan(&start)
	if err != nil {
		return err
	}
	duration := 0.0
	if t, perr := time.ParseInLocation("2006-01-02T15:04:05.000", start, now.Location()); perr == nil {
		duration = now.Sub(t).Seconds()
	}
	_, err = db.Exec(
		`UPDATE sessions
		    SET end_time = ?, duration_sec = ?,
		        total_samples = ?, total_shots = ?,
		        avg_rpm = ?, max_rpm = ?
		  WHERE id = ?`,
		localTS(now), duration, stats.TotalSamples, stats.TotalShots,
		stats.AvgRPM, stats.MaxRPM, id)
	return err
}

// InsertSampleBatch writes a batch of telemetry samples in one transaction.
func (db *DB) InsertSampleBatch(sessionID int64, now time.Time, batch []telemetry.SampleMessage) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO imu_data
		   (session_id, device_ts, local_ts,
		    ax, ay, az, gx, gy, gz,
		    qw, qx, qy, qz, rpm, spin, impact)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	ts := localTS(now)
	for _, m := range batch {
		if _, err := stmt.Exec(
			sessionID, m.T, ts,
			m.Ax, m.Ay, m.Az, m.Gx, m.Gy, m.Gz,
			m.Qw, m.Qx, m.Qy, m.Qz, m.RPM, m.Spin, m.Imp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertShot writes one shot event immediately. theta/phi are the spin-axis
// angles in degrees; pass ok=false when the axis was indeterminate.
func (db *DB) InsertShot(sessionID int64, now time.Time, m telemetry.ShotMessage, theta, phi float64, ok bool) error {
	var thetaV, phiV any
	if ok {
		thetaV, phiV = theta, phi
	}
	_, err := db.Exec(
		`INSERT INTO shots
		   (session_id, shot_id, device_ts, local_ts,
		    rpm, peak_g, gx, gy, gz,
		    spin_type, spin_axis_theta, spin_axis_phi)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, m.ID, m.T, localTS(now),
		m.RPM, m.PeakG, m.Gx, m.Gy, m.Gz,
		m.Type, thetaV, phiV)
	return err
}

// Session is one row of the sessions table.
type Session struct {
	ID           int64
	StartTime    string
	EndTime      string
	DurationSec  float64
	TotalSamples int
	TotalShots   int
	AvgRPM       float64
	MaxRPM       float64
}

func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(
		`SELECT id, start_time, COALESCE(end_time, ''), COALESCE(duration_sec, 0),
		        total_samples, total_shots, avg_rpm, max_rpm
		   FROM sessions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.DurationSec,
			&s.TotalSamples, &s.TotalShots, &s.AvgRPM, &s.MaxRPM); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ShotRow is one row of the shots table.
type ShotRow struct {
	SessionID int64
	ShotID    uint64
	DeviceTS  uint64
	RPM       float64
	PeakG     float64
	SpinType  string
	AxisTheta sql.NullFloat64
	AxisPhi   sql.NullFloat64
}

func (db *DB) Shots(sessionID int64) ([]ShotRow, error) {
	rows, err := db.Query(
		`SELECT session_id, shot_id, device_ts, rpm, peak_g, spin_type,
		        spin_axis_theta, spin_axis_phi
		   FROM shots WHERE session_id = ? ORDER BY device_ts`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShotRow
	for rows.Next() {
		var s ShotRow
		if err := rows.Scan(&s.SessionID, &s.ShotID, &s.DeviceTS, &s.RPM,
			&s.PeakG, &s.SpinType, &s.AxisTheta, &s.AxisPhi); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SampleCount reports how many samples a session holds.
func (db *DB) SampleCount(sessionID int64) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM imu_data WHERE session_id = ?", sessionID).Scan(&n)
	return n, err
}

// DeleteSession removes a session and everything recorded under it.
func (db *DB) DeleteSession(sessionID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, q := range []string{
		"DELETE FROM imu_data WHERE session_id = ?",
		"DELETE FROM shots WHERE session_id = ?",
		"DELETE FROM sessions WHERE id = ?",
	} {
		if _, err := tx.Exec(q, sessionID); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
