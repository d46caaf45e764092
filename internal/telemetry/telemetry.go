// Package telemetry serializes tracker state into the fixed wire schema and
// fans it out to attached sinks.
//
// Protocol ordering: a shot message is written to the transport in the same
// tick the shot window closes, before any later sample message. Within one
// tick a consumer therefore never sees a sample reflecting post-shot state
// ahead of the shot itself. Delivery is fire-and-forget: a sink that cannot
// take a message this tick loses it; the next sample supersedes it within
// one cadence interval.
package telemetry

import "encoding/json"

// SampleMessage is the continuous ~50 Hz stream entry.
type SampleMessage struct {
	T   uint64  `json:"t"`
	Ax  float64 `json:"ax"`
	Ay  float64 `json:"ay"`
	Az  float64 `json:"az"`
	Gx  float64 `json:"gx"`
	Gy  float64 `json:"gy"`
	Gz  float64 `json:"gz"`
	Qw  float64 `json:"qw"`
	Qx  float64 `json:"qx"`
	Qy  float64 `json:"qy"`
	Qz  float64 `json:"qz"`
	RPM float64 `json:"rpm"`
	// Spin is the current heuristic label (TOPSPIN, BACKSPIN, SIDE_L,
	// SIDE_R, SLICE, FLAT, MIXED).
	Spin string `json:"spin"`
	// Imp is edge-triggered: 1 exactly once after each detected impact,
	// cleared as soon as a sample carrying it is sent. A consumer that
	// misses that message misses the flag; accepted limitation.
	Imp int `json:"imp"`
}

// ShotMessage is emitted once per committed shot, outside the sample cadence.
type ShotMessage struct {
	Event string  `json:"event"` // always "shot"
	ID    uint64  `json:"id"`
	T     uint64  `json:"t"`
	RPM   float64 `json:"rpm"`
	PeakG float64 `json:"peakG"`
	Gx    float64 `json:"gx"`
	Gy    float64 `json:"gy"`
	Gz    float64 `json:"gz"`
	Type  string  `json:"type"`
}

// Sink is a transport able to take one encoded message. Implementations must
// not block the control loop; dropping on backpressure is correct.
type Sink interface {
	SendSample(payload []byte) error
	SendShot(payload []byte) error
}

// Encoder gates and serializes outgoing telemetry. Time is the core's
// monotonic tick clock in milliseconds, so the cadence freezes with the loop
// across a sleep cycle. Not safe for concurrent use; it is owned by the
// control loop like the rest of the core state.
type Encoder struct {
	intervalMs   float64
	sinks        []Sink
	consumers    int
	lastSampleMs float64
	haveSent     bool
}

func NewEncoder(intervalMs float64, sinks ...Sink) *Encoder {
	return &Encoder{intervalMs: intervalMs, sinks: sinks}
}

// ConsumerDelta applies a connect (+1) or disconnect (-1) notification.
func (e *Encoder) ConsumerDelta(d int) {
	e.consumers += d
	if e.consumers < 0 {
		e.consumers = 0
	}
}

// ResetConsumers zeroes the count; used on wake, when the radio teardown has
// dropped every prior consumer.
func (e *Encoder) ResetConsumers() { e.consumers = 0 }

func (e *Encoder) Consumers() int { return e.consumers }

// EmitSample sends m if at least one consumer is attached and the cadence
// interval has elapsed. No serialization work happens otherwise. Returns
// whether the message went out (the caller clears its impact latch on true).
func (e *Encoder) EmitSample(nowMs float64, m SampleMessage) bool {
	if e.consumers == 0 {
		return false
	}
	if e.haveSent && nowMs-e.lastSampleMs < e.intervalMs {
		return false
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return false
	}
	e.lastSampleMs = nowMs
	e.haveSent = true
	for _, s := range e.sinks {
		_ = s.SendSample(payload)
	}
	return true
}

// EmitShot sends m immediately, independent of the sample cadence.
func (e *Encoder) EmitShot(m ShotMessage) bool {
	if e.consumers == 0 {
		return false
	}
	m.Event = "shot"
	payload, err := json.Marshal(m)
	if err != nil {
		return false
	}
	for _, s := range e.sinks {
		_ = s.SendShot(payload)
	}
	return true
}
