package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
)

type captureSink struct {
	samples [][]byte
	shots   [][]byte
	err     error
}

func (c *captureSink) SendSample(p []byte) error {
	c.samples = append(c.samples, append([]byte(nil), p...))
	return c.err
}

func (c *captureSink) SendShot(p []byte) error {
	c.shots = append(c.shots, append([]byte(nil), p...))
	return c.err
}

func TestEncoder_NoConsumersNoWork(t *testing.T) {
	sink := &captureSink{}
	e := NewEncoder(20, sink)

	if e.EmitSample(0, SampleMessage{}) {
		t.Fatalf("sample emitted with zero consumers")
	}
	if e.EmitShot(ShotMessage{}) {
		t.Fatalf("shot emitted with zero consumers")
	}
	if len(sink.samples)+len(sink.shots) != 0 {
		t.Fatalf("sink received messages")
	}
}

func TestEncoder_SampleCadence(t *testing.T) {
	sink := &captureSink{}
	e := NewEncoder(20, sink)
	e.ConsumerDelta(+1)

	sent := 0
	for ms := 0.0; ms < 100; ms += 5 {
		if e.EmitSample(ms, SampleMessage{T: uint64(ms)}) {
			sent++
		}
	}
	// First send is immediate, then every 20ms: 0,20,40,60,80.
	if sent != 5 {
		t.Fatalf("sent=%d want 5", sent)
	}
}

func TestEncoder_ShotBypassesCadence(t *testing.T) {
	sink := &captureSink{}
	e := NewEncoder(20, sink)
	e.ConsumerDelta(+1)

	e.EmitSample(0, SampleMessage{})
	if !e.EmitShot(ShotMessage{ID: 3}) {
		t.Fatalf("shot suppressed")
	}
	if !e.EmitShot(ShotMessage{ID: 4}) {
		t.Fatalf("second immediate shot suppressed")
	}
	if len(sink.shots) != 2 {
		t.Fatalf("shots delivered=%d want 2", len(sink.shots))
	}
}

func TestEncoder_WireFieldNames(t *testing.T) {
	sink := &captureSink{}
	e := NewEncoder(20, sink)
	e.ConsumerDelta(+1)

	e.EmitSample(0, SampleMessage{T: 12, Ax: 0.5, RPM: 200, Spin: "TOPSPIN", Imp: 1})
	var m map[string]any
	if err := json.Unmarshal(sink.samples[0], &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"t", "ax", "ay", "az", "gx", "gy", "gz", "qw", "qx", "qy", "qz", "rpm", "spin", "imp"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("sample message missing %q: %s", k, sink.samples[0])
		}
	}
	if m["imp"] != float64(1) || m["spin"] != "TOPSPIN" {
		t.Fatalf("sample payload wrong: %s", sink.samples[0])
	}

	e.EmitShot(ShotMessage{ID: 7, T: 99, RPM: 2400, PeakG: 6.2, Type: "BACKSPIN"})
	var sh map[string]any
	if err := json.Unmarshal(sink.shots[0], &sh); err != nil {
		t.Fatalf("unmarshal shot: %v", err)
	}
	if sh["event"] != "shot" || sh["id"] != float64(7) || sh["peakG"] != 6.2 {
		t.Fatalf("shot payload wrong: %s", sink.shots[0])
	}
}

func TestEncoder_ConsumerCountFloorsAtZero(t *testing.T) {
	e := NewEncoder(20)
	e.ConsumerDelta(-1)
	e.ConsumerDelta(-1)
	if e.Consumers() != 0 {
		t.Fatalf("consumers=%d want 0", e.Consumers())
	}
	e.ConsumerDelta(+1)
	if e.Consumers() != 1 {
		t.Fatalf("consumers=%d want 1", e.Consumers())
	}
	e.ResetConsumers()
	if e.Consumers() != 0 {
		t.Fatalf("consumers=%d after reset", e.Consumers())
	}
}

func TestEncoder_SinkErrorIsDropped(t *testing.T) {
	sink := &captureSink{err: errFake}
	e := NewEncoder(20, sink)
	e.ConsumerDelta(+1)

	// Fire-and-forget: a failing sink must not prevent the emission from
	// counting as sent (the impact latch clears; the next message supersedes).
	if !e.EmitSample(0, SampleMessage{}) {
		t.Fatalf("sample send not reported despite fire-and-forget semantics")
	}
}

var errFake = errors.New("sink down")
