package tracker

import "time"

// PowerState is the coarse operating mode. Sleeping is a true suspend: the
// owner of the control loop stops calling Tick entirely and no core clock
// advances until Wake.
type PowerState int

const (
	PowerActive PowerState = iota
	PowerHoldPending
	PowerSleeping
)

func (s PowerState) String() string {
	switch s {
	case PowerActive:
		return "active"
	case PowerHoldPending:
		return "hold_pending"
	case PowerSleeping:
		return "sleeping"
	}
	return "unknown"
}

// PowerEvent is the edge reported by a PowerMonitor update.
type PowerEvent int

const (
	PowerEventNone PowerEvent = iota
	// PowerEventHoldStarted: hold reached the first threshold; sleep-progress
	// indication may begin but nothing is committed.
	PowerEventHoldStarted
	// PowerEventSleep: hold reached the commit threshold; the caller must run
	// its suspend sequence and stop ticking.
	PowerEventSleep
	// PowerEventHoldCanceled: released after the first threshold but before
	// commit; any pending-sleep indication is withdrawn.
	PowerEventHoldCanceled
	// PowerEventShortPress: released before the first threshold; the
	// ordinary control action (reset orientation to identity).
	PowerEventShortPress
)

// PowerMonitor turns a polled "is the control input held" level into the
// Active / HoldPending / Sleeping state machine. Time is always supplied by
// the caller so tests can drive it with a synthetic clock.
type PowerMonitor struct {
	holdPendingAfter time.Duration
	sleepAfter       time.Duration

	state     PowerState
	holding   bool
	holdStart time.Time
}

func NewPowerMonitor(p Params) *PowerMonitor {
	return &PowerMonitor{
		holdPendingAfter: p.HoldPendingAfter,
		sleepAfter:       p.SleepAfter,
	}
}

func (m *PowerMonitor) State() PowerState { return m.state }

// Update advances the machine by one poll. It must not be called while
// Sleeping; the caller resumes with Wake instead.
func (m *PowerMonitor) Update(now time.Time, held bool) PowerEvent {
	if m.state == PowerSleeping {
		return PowerEventNone
	}

	if held {
		if !m.holding {
			m.holding = true
			m.holdStart = now
			return PowerEventNone
		}
		d := now.Sub(m.holdStart)
		if d >= m.sleepAfter {
			m.state = PowerSleeping
			m.holding = false
			return PowerEventSleep
		}
		if d >= m.holdPendingAfter && m.state == PowerActive {
			m.state = PowerHoldPending
			return PowerEventHoldStarted
		}
		return PowerEventNone
	}

	if !m.holding {
		return PowerEventNone
	}
	d := now.Sub(m.holdStart)
	m.holding = false
	if m.state == PowerHoldPending {
		m.state = PowerActive
		return PowerEventHoldCanceled
	}
	if d < m.holdPendingAfter {
		return PowerEventShortPress
	}
	return PowerEventNone
}

// Wake returns to Active after the external wake source fires. The caller is
// responsible for the resume sequence (restart transports, reset the tick
// timing reference, zero the consumer count) before ticking again.
func (m *PowerMonitor) Wake() {
	m.state = PowerActive
	m.holding = false
}
