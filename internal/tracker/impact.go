package tracker

import "math"

// The impact detector is a two-state machine. A debounced high-g trigger
// opens a fixed tracking window; during the window running maxima
// accumulate; when the window elapses the peaks are handed back as one
// coherent record. An instantaneous threshold alone would catch the leading
// edge of the hit but miss the true peak, which lags contact by tens of
// milliseconds.

type detectorState int

const (
	detectorIdle detectorState = iota
	detectorTracking
)

// peaks is the transient accumulator alive only during a tracking window.
type peaks struct {
	startMs float64

	rpm    float64
	accelG float64
	// Filtered gyro vector (deg/s) captured at the largest L1 norm seen in
	// the window. Selected as a whole vector, not per-axis maxima, so the
	// classifier sees a physically coherent direction.
	gx, gy, gz float64
}

func (pk *peaks) gyroL1() float64 {
	return math.Abs(pk.gx) + math.Abs(pk.gy) + math.Abs(pk.gz)
}

type impactDetector struct {
	thresholdG float64
	debounceMs float64
	windowMs   float64

	state         detectorState
	lastTriggerMs float64
	haveTrigger   bool
	peak          peaks
}

func newImpactDetector(p Params) impactDetector {
	return impactDetector{
		thresholdG: p.ImpactThresholdG,
		debounceMs: float64(p.Debounce.Milliseconds()),
		windowMs:   float64(p.PeakWindow.Milliseconds()),
	}
}

// update advances the detector by one tick. impacted is true on the tick a
// new window opens (the telemetry one-shot flag); done is non-nil on the
// tick a window closes and carries the accumulated peaks.
func (d *impactDetector) update(nowMs float64, accelG float64, f gyroFilter) (done *peaks, impacted bool) {
	switch d.state {
	case detectorIdle:
		if accelG <= d.thresholdG {
			return nil, false
		}
		if d.haveTrigger && nowMs-d.lastTriggerMs <= d.debounceMs {
			return nil, false
		}
		d.state = detectorTracking
		d.lastTriggerMs = nowMs
		d.haveTrigger = true
		d.peak = peaks{
			startMs: nowMs,
			rpm:     f.rpm,
			accelG:  accelG,
			gx:      f.gx, gy: f.gy, gz: f.gz,
		}
		return nil, true

	case detectorTracking:
		if f.rpm > d.peak.rpm {
			d.peak.rpm = f.rpm
		}
		if accelG > d.peak.accelG {
			d.peak.accelG = accelG
		}
		if math.Abs(f.gx)+math.Abs(f.gy)+math.Abs(f.gz) > d.peak.gyroL1() {
			d.peak.gx, d.peak.gy, d.peak.gz = f.gx, f.gy, f.gz
		}
		if nowMs-d.peak.startMs >= d.windowMs {
			d.state = detectorIdle
			finished := d.peak
			return &finished, false
		}
	}
	return nil, false
}
