// Package tracker implements the spin-tracking core: drift-resistant
// quaternion orientation from gyro rates, adaptive zero-rate bias
// cancellation, debounced impact detection with post-impact peak windowing,
// heuristic spin classification, a bounded shot log and the power state
// machine.
//
// All state is owned by a single control loop; Tick must only ever be called
// from one goroutine, in strict per-sample order. Asynchronous inputs
// (commands, consumer-count changes) must be handed to that goroutine and
// applied at tick boundaries.
package tracker

import (
	"math"
	"time"

	"github.com/KleanOcean/TennisBall-IMU/internal/quat"
	"github.com/KleanOcean/TennisBall-IMU/internal/telemetry"
)

const degToRad = math.Pi / 180.0

// Sample is one IMU read: acceleration in g, angular rate in deg/s.
// Consumed within a single tick, never retained.
type Sample struct {
	Ax, Ay, Az float64
	Gx, Gy, Gz float64
}

// Command is one inbound control token. Anything unrecognized maps to
// CommandUnknown and is ignored without feedback.
type Command int

const (
	CommandUnknown Command = iota
	CommandReset
	CommandClearShots
)

func ParseCommand(s string) Command {
	switch s {
	case "reset":
		return CommandReset
	case "clear_shots":
		return CommandClearShots
	}
	return CommandUnknown
}

// Tracker holds all volatile core state. It survives a sleep/wake cycle
// untouched except for the tick-timing reference; orientation and shot
// history carry across sleep.
type Tracker struct {
	params Params
	enc    *telemetry.Encoder

	orient   quat.Quat
	filter   gyroFilter
	bias     biasEstimator
	detector impactDetector
	log      shotLog

	// Core monotonic clock: accumulated clamped tick dt, in ms. Never
	// advances while the loop is suspended.
	clockMs  float64
	lastTick time.Time
	haveTick bool

	impactPending bool
}

func New(p Params, enc *telemetry.Encoder) *Tracker {
	return &Tracker{
		params:   p,
		enc:      enc,
		orient:   quat.Identity(),
		filter:   newGyroFilter(p),
		bias:     newBiasEstimator(p),
		detector: newImpactDetector(p),
		log:      newShotLog(p.ShotLogCapacity),
	}
}

// Tick processes one sensor sample. now is only used to measure elapsed time
// between consecutive ticks; outliers (first tick, timer wrap, first tick
// after wake) are clamped to the default dt rather than propagated into the
// integrator.
func (t *Tracker) Tick(now time.Time, s Sample) {
	dt := t.params.DefaultTickDT
	if t.haveTick {
		if d := now.Sub(t.lastTick).Seconds(); d > 0 && d <= t.params.MaxTickDT {
			dt = d
		}
	}
	t.lastTick = now
	t.haveTick = true
	t.clockMs += dt * 1000

	gxRad := s.Gx * degToRad
	gyRad := s.Gy * degToRad
	gzRad := s.Gz * degToRad

	// Bias learns from the raw rate; the display filter smooths it; only the
	// bias-corrected rate is integrated.
	t.bias.update(gxRad, gyRad, gzRad)
	t.filter.update(s.Gx, s.Gy, s.Gz)
	t.orient = quat.Integrate(t.orient, quat.Vec3{
		X: gxRad - t.bias.x,
		Y: gyRad - t.bias.y,
		Z: gzRad - t.bias.z,
	}, dt)

	accelG := math.Sqrt(s.Ax*s.Ax + s.Ay*s.Ay + s.Az*s.Az)
	done, impacted := t.detector.update(t.clockMs, accelG, t.filter)
	if impacted {
		t.impactPending = true
	}
	if done != nil {
		t.commitShot(done)
	}

	spin := Classify(t.filter.gx, t.filter.gy, t.filter.gz, t.filter.rpm, t.params)

	imp := 0
	if t.impactPending {
		imp = 1
	}
	sent := t.enc.EmitSample(t.clockMs, telemetry.SampleMessage{
		T:  uint64(t.clockMs),
		Ax: s.Ax, Ay: s.Ay, Az: s.Az,
		Gx: t.filter.gx, Gy: t.filter.gy, Gz: t.filter.gz,
		Qw: t.orient.W, Qx: t.orient.X, Qy: t.orient.Y, Qz: t.orient.Z,
		RPM:  t.filter.rpm,
		Spin: string(spin),
		Imp:  imp,
	})
	if sent {
		t.impactPending = false
	}
}

// commitShot classifies the windowed peaks and appends the record. The
// classification always runs; when the log is full the shot is dropped
// without a shot message, but the impact flag still reaches the stream.
func (t *Tracker) commitShot(pk *peaks) {
	shot := Shot{
		TimestampMs: uint64(pk.startMs),
		RPM:         pk.rpm,
		PeakG:       pk.accelG,
		Gx:          pk.gx,
		Gy:          pk.gy,
		Gz:          pk.gz,
		Type:        Classify(pk.gx, pk.gy, pk.gz, pk.rpm, t.params),
	}
	rec, ok := t.log.append(shot)
	if !ok {
		return
	}
	t.enc.EmitShot(telemetry.ShotMessage{
		ID:    rec.Index,
		T:     rec.TimestampMs,
		RPM:   rec.RPM,
		PeakG: rec.PeakG,
		Gx:    rec.Gx,
		Gy:    rec.Gy,
		Gz:    rec.Gz,
		Type:  string(rec.Type),
	})
}

// Apply executes an inbound control command at a tick boundary.
func (t *Tracker) Apply(cmd Command) {
	switch cmd {
	case CommandReset:
		t.orient = quat.Identity()
	case CommandClearShots:
		t.log.clear()
	}
}

// ResetTiming drops the tick-timing reference so the first post-wake tick
// uses the clamped default dt instead of the wall-clock time spent asleep.
func (t *Tracker) ResetTiming() {
	t.haveTick = false
}

// Orientation returns a read-only copy of the current attitude.
func (t *Tracker) Orientation() quat.Quat { return t.orient }

// Filtered returns the smoothed gyro vector (deg/s) and RPM.
func (t *Tracker) Filtered() (gx, gy, gz, rpm float64) {
	return t.filter.gx, t.filter.gy, t.filter.gz, t.filter.rpm
}

// Bias returns the current zero-rate offset estimate (rad/s).
func (t *Tracker) Bias() (x, y, z float64) {
	return t.bias.x, t.bias.y, t.bias.z
}

// NowMillis is the core tick clock in milliseconds.
func (t *Tracker) NowMillis() uint64 { return uint64(t.clockMs) }

// Shots returns a copy of the shot log.
func (t *Tracker) Shots() []Shot { return t.log.all() }

// ShotCount reports how many shots are currently recorded.
func (t *Tracker) ShotCount() int { return t.log.len() }
