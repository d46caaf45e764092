package sim

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KleanOcean/TennisBall-IMU/internal/tracker"
)

// ScenarioScript is a deterministic, script-driven rally description.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe or impact time.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 30s
//	keyframes:
//	  - t: 0s
//	    gx_dps: 0
//	    gy_dps: 0
//	    gz_dps: 0
//	    az_g: 1.0
//	  - t: 2s
//	    gx_dps: 1800
//	impacts:
//	  - t: 2s
//	    peak_g: 8.0
//	    width: 30ms
//
// Keyframes must be sorted by time with non-decreasing t values. Gyro values
// are interpolated linearly between keyframes; impacts add a half-cosine
// acceleration pulse on top of the keyframed accel.
//
// Keep this struct stable: scripts are test fixtures.
type ScenarioScript struct {
	Version   int            `yaml:"version"`
	Duration  time.Duration  `yaml:"duration"`
	Keyframes []SpinKeyframe `yaml:"keyframes"`
	Impacts   []ImpactEvent  `yaml:"impacts"`
}

// SpinKeyframe is a time-stamped motion state. AzG defaults to 1.0 (gravity)
// when the whole accel triple is left zero.
type SpinKeyframe struct {
	T     time.Duration `yaml:"t"`
	GxDps float64       `yaml:"gx_dps"`
	GyDps float64       `yaml:"gy_dps"`
	GzDps float64       `yaml:"gz_dps"`
	AxG   float64       `yaml:"ax_g"`
	AyG   float64       `yaml:"ay_g"`
	AzG   float64       `yaml:"az_g"`
}

// ImpactEvent adds a hit at time T.
type ImpactEvent struct {
	T     time.Duration `yaml:"t"`
	PeakG float64       `yaml:"peak_g"`
	Width time.Duration `yaml:"width"`
}

func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var script ScenarioScript
	if err := yaml.Unmarshal(b, &script); err != nil {
		return ScenarioScript{}, err
	}
	return script, nil
}

func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

// Scenario is a validated, playable script.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
}

func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version != 1 {
		return nil, fmt.Errorf("scenario: unsupported version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("scenario: at least one keyframe is required")
	}
	if !sort.SliceIsSorted(script.Keyframes, func(i, j int) bool {
		return script.Keyframes[i].T < script.Keyframes[j].T
	}) {
		return nil, fmt.Errorf("scenario: keyframes must be sorted by t")
	}
	for i := range script.Keyframes {
		if script.Keyframes[i].T < 0 {
			return nil, fmt.Errorf("scenario: keyframe t must be >= 0")
		}
	}
	for _, imp := range script.Impacts {
		if imp.T < 0 {
			return nil, fmt.Errorf("scenario: impact t must be >= 0")
		}
		if imp.PeakG <= 0 {
			return nil, fmt.Errorf("scenario: impact peak_g must be > 0")
		}
	}

	d := script.Duration
	if d <= 0 {
		d = script.Keyframes[len(script.Keyframes)-1].T
		for _, imp := range script.Impacts {
			w := imp.Width
			if w <= 0 {
				w = 30 * time.Millisecond
			}
			if end := imp.T + w; end > d {
				d = end
			}
		}
	}
	if d <= 0 {
		return nil, fmt.Errorf("scenario: duration must be > 0")
	}

	return &Scenario{script: script, duration: d}, nil
}

func (s *Scenario) Duration() time.Duration { return s.duration }

// SampleAt returns the scripted reading at the given elapsed time. With loop
// set, elapsed wraps modulo the duration; otherwise it clamps at the end.
func (s *Scenario) SampleAt(elapsed time.Duration, loop bool) tracker.Sample {
	if elapsed < 0 {
		elapsed = 0
	}
	if loop {
		elapsed = elapsed % s.duration
	} else if elapsed > s.duration {
		elapsed = s.duration
	}

	kf := interpolate(s.script.Keyframes, elapsed)
	out := tracker.Sample{
		Ax: kf.AxG, Ay: kf.AyG, Az: kf.AzG,
		Gx: kf.GxDps, Gy: kf.GyDps, Gz: kf.GzDps,
	}
	if kf.AxG == 0 && kf.AyG == 0 && kf.AzG == 0 {
		out.Az = 1.0
	}

	for _, imp := range s.script.Impacts {
		width := imp.Width
		if width <= 0 {
			width = 30 * time.Millisecond
		}
		since := elapsed - imp.T
		if since < 0 || since >= width {
			continue
		}
		out.Az += imp.PeakG * math.Sin(math.Pi*since.Seconds()/width.Seconds())
	}
	return out
}

func interpolate(frames []SpinKeyframe, elapsed time.Duration) SpinKeyframe {
	if elapsed <= frames[0].T {
		return frames[0]
	}
	last := frames[len(frames)-1]
	if elapsed >= last.T {
		return last
	}

	i := sort.Search(len(frames), func(i int) bool { return frames[i].T > elapsed })
	a, b := frames[i-1], frames[i]
	span := (b.T - a.T).Seconds()
	if span <= 0 {
		return b
	}
	f := (elapsed - a.T).Seconds() / span

	lerp := func(x, y float64) float64 { return x + (y-x)*f }
	return SpinKeyframe{
		T:     elapsed,
		GxDps: lerp(a.GxDps, b.GxDps),
		GyDps: lerp(a.GyDps, b.GyDps),
		GzDps: lerp(a.GzDps, b.GzDps),
		AxG:   lerp(a.AxG, b.AxG),
		AyG:   lerp(a.AyG, b.AyG),
		AzG:   lerp(a.AzG, b.AzG),
	}
}
