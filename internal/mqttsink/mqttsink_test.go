package mqttsink

import (
	"testing"

	"github.com/KleanOcean/TennisBall-IMU/internal/telemetry"
)

func TestConnect_RequiresBroker(t *testing.T) {
	_, err := Connect(Config{})
	if err == nil {
		t.Fatalf("expected error for empty broker")
	}
	if got, want := err.Error(), "mqttsink: broker is required"; got != want {
		t.Fatalf("error=%q want %q", got, want)
	}
}

func TestSink_IsTelemetrySink(t *testing.T) {
	var _ telemetry.Sink = (*Sink)(nil)
}

func TestClose_NilSafe(t *testing.T) {
	var s *Sink
	s.Close()
	s.Suspend()
}
