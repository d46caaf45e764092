package tracker

import (
	"testing"
	"time"
)

func TestPowerMonitor_ShortPressBeforeFirstThreshold(t *testing.T) {
	m := NewPowerMonitor(DefaultParams())
	t0 := time.Unix(0, 0)

	if ev := m.Update(t0, true); ev != PowerEventNone {
		t.Fatalf("press edge: %v", ev)
	}
	if ev := m.Update(t0.Add(500*time.Millisecond), false); ev != PowerEventShortPress {
		t.Fatalf("release at 0.5s: %v want ShortPress", ev)
	}
	if m.State() != PowerActive {
		t.Fatalf("state=%v want Active", m.State())
	}
}

func TestPowerMonitor_HoldPendingThenCancel(t *testing.T) {
	m := NewPowerMonitor(DefaultParams())
	t0 := time.Unix(0, 0)

	m.Update(t0, true)
	if ev := m.Update(t0.Add(1200*time.Millisecond), true); ev != PowerEventHoldStarted {
		t.Fatalf("hold at 1.2s: %v want HoldStarted", ev)
	}
	if m.State() != PowerHoldPending {
		t.Fatalf("state=%v want HoldPending", m.State())
	}
	// HoldStarted fires once, not every tick.
	if ev := m.Update(t0.Add(1400*time.Millisecond), true); ev != PowerEventNone {
		t.Fatalf("second hold tick: %v want None", ev)
	}
	if ev := m.Update(t0.Add(2*time.Second), false); ev != PowerEventHoldCanceled {
		t.Fatalf("release at 2s: %v want HoldCanceled", ev)
	}
	if m.State() != PowerActive {
		t.Fatalf("state=%v want Active after cancel", m.State())
	}
}

func TestPowerMonitor_SleepCommitAndWake(t *testing.T) {
	m := NewPowerMonitor(DefaultParams())
	t0 := time.Unix(0, 0)

	m.Update(t0, true)
	m.Update(t0.Add(1100*time.Millisecond), true)
	if ev := m.Update(t0.Add(3100*time.Millisecond), true); ev != PowerEventSleep {
		t.Fatalf("hold at 3.1s: %v want Sleep", ev)
	}
	if m.State() != PowerSleeping {
		t.Fatalf("state=%v want Sleeping", m.State())
	}
	// Updates while sleeping are inert.
	if ev := m.Update(t0.Add(4*time.Second), true); ev != PowerEventNone {
		t.Fatalf("update while sleeping: %v", ev)
	}

	m.Wake()
	if m.State() != PowerActive {
		t.Fatalf("state=%v after wake, want Active", m.State())
	}
	// A fresh press after wake is tracked from scratch.
	m.Update(t0.Add(10*time.Second), true)
	if ev := m.Update(t0.Add(10*time.Second+500*time.Millisecond), false); ev != PowerEventShortPress {
		t.Fatalf("post-wake short press: %v", ev)
	}
}
