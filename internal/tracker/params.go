package tracker

import "time"

// Params collects every heuristic threshold used by the core in one place so
// they stay tunable and testable without touching the algorithms. Defaults
// come from the tuned firmware values; change them only on a product
// requirement, not because a different number looks more principled.
type Params struct {
	// ImpactThresholdG is the instantaneous acceleration magnitude (in g)
	// that opens a shot-tracking window.
	ImpactThresholdG float64

	// Debounce is the minimum time between two impact triggers, suppressing
	// ringing after a single physical hit.
	Debounce time.Duration

	// PeakWindow is how long running maxima accumulate after an impact
	// before the shot record is committed.
	PeakWindow time.Duration

	// GyroAlpha and RPMAlpha are the EMA coefficients for the fast
	// display/telemetry filter.
	GyroAlpha float64
	RPMAlpha  float64

	// BiasAlpha is the EMA coefficient of the slow zero-rate gyro offset.
	// StationaryRadPerSec gates bias learning: above this rate the device is
	// assumed to be genuinely rotating and the bias is held.
	BiasAlpha           float64
	StationaryRadPerSec float64

	// Classifier thresholds.
	MinSpinRPM        float64 // below this everything is FLAT
	GyroTotalFloorDps float64 // L1 floor guarding the ratio math
	DominanceRatio    float64 // axis share required for a single-axis label

	// ShotLogCapacity bounds the shot log; shots beyond it are dropped.
	ShotLogCapacity int

	// MaxTickDT and DefaultTickDT clamp per-tick elapsed time: any dt
	// outside (0, MaxTickDT] (startup, timer wrap, resume from sleep) is
	// replaced by DefaultTickDT for that tick only.
	MaxTickDT     float64
	DefaultTickDT float64

	// SampleInterval is the telemetry sample-message cadence.
	SampleInterval time.Duration

	// HoldPendingAfter and SleepAfter are the button hold thresholds of the
	// power state machine.
	HoldPendingAfter time.Duration
	SleepAfter       time.Duration
}

func DefaultParams() Params {
	return Params{
		ImpactThresholdG:    5.0,
		Debounce:            200 * time.Millisecond,
		PeakWindow:          100 * time.Millisecond,
		GyroAlpha:           0.15,
		RPMAlpha:            0.08,
		BiasAlpha:           0.002,
		StationaryRadPerSec: 0.20,
		MinSpinRPM:          50,
		GyroTotalFloorDps:   1.0,
		DominanceRatio:      0.5,
		ShotLogCapacity:     32,
		MaxTickDT:           0.1,
		DefaultTickDT:       0.033,
		SampleInterval:      20 * time.Millisecond,
		HoldPendingAfter:    1 * time.Second,
		SleepAfter:          3 * time.Second,
	}
}
