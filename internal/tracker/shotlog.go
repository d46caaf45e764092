package tracker

// Shot is one committed impact record. Immutable once appended.
type Shot struct {
	Index       uint64
	TimestampMs uint64
	RPM         float64
	PeakG       float64
	// Filtered gyro vector (deg/s) at the in-window L1 peak.
	Gx, Gy, Gz float64
	Type       SpinType
}

// shotLog is a bounded append-only log. Once full, further shots are
// silently dropped; existing entries stay chronological and stable. Not a
// ring buffer: recorded shots must never be overwritten. Cleared only in
// bulk by an external command.
type shotLog struct {
	capacity int
	shots    []Shot
}

func newShotLog(capacity int) shotLog {
	return shotLog{capacity: capacity, shots: make([]Shot, 0, capacity)}
}

// append stores the shot if capacity allows. The returned Shot carries the
// assigned index (its position in the log); ok is false when the log is full
// and nothing was stored.
func (l *shotLog) append(s Shot) (Shot, bool) {
	if len(l.shots) >= l.capacity {
		return Shot{}, false
	}
	s.Index = uint64(len(l.shots))
	l.shots = append(l.shots, s)
	return s, true
}

func (l *shotLog) clear() {
	l.shots = l.shots[:0]
}

func (l *shotLog) all() []Shot {
	out := make([]Shot, len(l.shots))
	copy(out, l.shots)
	return out
}

func (l *shotLog) len() int { return len(l.shots) }
