package sim

import (
	"math"
	"time"

	"github.com/KleanOcean/TennisBall-IMU/internal/tracker"
)

// SpinSim produces a deterministic synthetic IMU stream for desk testing:
// a ball spinning about a fixed axis with a smooth envelope, hit at a
// regular interval. Everything is a pure function of elapsed time, so a
// given schedule always replays identically.
type SpinSim struct {
	// Spin axis in sensor frame; does not need to be normalized.
	AxisX, AxisY, AxisZ float64

	PeakDps    float64
	SpinPeriod time.Duration

	ImpactEvery time.Duration
	ImpactG     float64
	ImpactWidth time.Duration
}

// Sample returns the synthetic reading at the given elapsed time.
//
// Gravity sits on +Z at rest; impacts add a half-cosine pulse on top.
func (s SpinSim) Sample(elapsed time.Duration) tracker.Sample {
	peak := s.PeakDps
	if peak <= 0 {
		peak = 1800
	}
	period := s.SpinPeriod
	if period <= 0 {
		period = 8 * time.Second
	}
	ax, ay, az := s.AxisX, s.AxisY, s.AxisZ
	norm := math.Sqrt(ax*ax + ay*ay + az*az)
	if norm == 0 {
		ax, ay, az, norm = 1, 0, 0, 1
	}
	ax, ay, az = ax/norm, ay/norm, az/norm

	// Raised-cosine envelope: spins up from rest, back to rest each period.
	phase := math.Mod(elapsed.Seconds(), period.Seconds()) / period.Seconds()
	env := 0.5 * (1 - math.Cos(2*math.Pi*phase))
	dps := peak * env

	out := tracker.Sample{
		Az: 1.0,
		Gx: ax * dps,
		Gy: ay * dps,
		Gz: az * dps,
	}
	out.Az += s.impactPulse(elapsed)
	return out
}

func (s SpinSim) impactPulse(elapsed time.Duration) float64 {
	every := s.ImpactEvery
	if every <= 0 {
		return 0
	}
	g := s.ImpactG
	if g <= 0 {
		g = 8.0
	}
	width := s.ImpactWidth
	if width <= 0 {
		width = 30 * time.Millisecond
	}

	since := math.Mod(elapsed.Seconds(), every.Seconds())
	if since >= width.Seconds() {
		return 0
	}
	// Half-cosine pulse peaking mid-width.
	return g * math.Sin(math.Pi*since/width.Seconds())
}
