package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KleanOcean/TennisBall-IMU/internal/tracker"
)

type Config struct {
	Web     WebConfig     `yaml:"web"`
	WiFi    WiFiConfig    `yaml:"wifi"`
	IMU     IMUConfig     `yaml:"imu"`
	Button  ButtonConfig  `yaml:"button"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Tracker TrackerConfig `yaml:"tracker"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

// WiFiConfig describes the standalone access point the tracker serves.
type WiFiConfig struct {
	Enable   bool   `yaml:"enable"`
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	IP       string `yaml:"ip"`
}

type IMUConfig struct {
	// Sim selects the synthetic sample source instead of hardware.
	Sim  bool   `yaml:"sim"`
	Bus  string `yaml:"bus"`
	Addr uint16 `yaml:"addr"`

	// TickInterval is the sampler loop period (hardware poll rate).
	TickInterval time.Duration `yaml:"tick_interval"`
}

type ButtonConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   string `yaml:"line"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	SampleTopic string `yaml:"sample_topic"`
	ShotTopic   string `yaml:"shot_topic"`
}

// TrackerConfig exposes the tunable thresholds of the core. Zero values mean
// "use the default"; negative values are rejected.
type TrackerConfig struct {
	ImpactThresholdG float64       `yaml:"impact_threshold_g"`
	Debounce         time.Duration `yaml:"debounce"`
	PeakWindow       time.Duration `yaml:"peak_window"`
	MinSpinRPM       float64       `yaml:"min_spin_rpm"`
	ShotLogCapacity  int           `yaml:"shot_log_capacity"`
	SampleInterval   time.Duration `yaml:"sample_interval"`
	HoldPendingAfter time.Duration `yaml:"hold_pending_after"`
	SleepAfter       time.Duration `yaml:"sleep_after"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.WiFi.Enable {
		if cfg.WiFi.SSID == "" {
			cfg.WiFi.SSID = "TennisBall-IMU"
		}
		if pw := cfg.WiFi.Password; pw != "" && len(pw) < 8 {
			return Config{}, fmt.Errorf("wifi.password must be at least 8 characters")
		}
	}

	if cfg.IMU.Bus == "" {
		cfg.IMU.Bus = "/dev/i2c-1"
	}
	if cfg.IMU.Addr == 0 {
		cfg.IMU.Addr = 0x68
	}
	if cfg.IMU.Addr > 0x7F {
		return Config{}, fmt.Errorf("imu.addr must be a 7-bit i2c address")
	}
	if cfg.IMU.TickInterval < 0 {
		return Config{}, fmt.Errorf("imu.tick_interval must be >= 0")
	}
	if cfg.IMU.TickInterval == 0 {
		cfg.IMU.TickInterval = 5 * time.Millisecond
	}

	if cfg.Button.Enable {
		if cfg.Button.Line == "" {
			return Config{}, fmt.Errorf("button.line is required when button.enable is true")
		}
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "spintrackd"
		}
		if cfg.MQTT.SampleTopic == "" {
			cfg.MQTT.SampleTopic = "spintrack/sample"
		}
		if cfg.MQTT.ShotTopic == "" {
			cfg.MQTT.ShotTopic = "spintrack/shot"
		}
	}

	if cfg.Tracker.ImpactThresholdG < 0 {
		return Config{}, fmt.Errorf("tracker.impact_threshold_g must be >= 0")
	}
	if cfg.Tracker.Debounce < 0 || cfg.Tracker.PeakWindow < 0 || cfg.Tracker.SampleInterval < 0 {
		return Config{}, fmt.Errorf("tracker durations must be >= 0")
	}
	if cfg.Tracker.ShotLogCapacity < 0 {
		return Config{}, fmt.Errorf("tracker.shot_log_capacity must be >= 0")
	}
	if cfg.Tracker.HoldPendingAfter < 0 || cfg.Tracker.SleepAfter < 0 {
		return Config{}, fmt.Errorf("tracker hold thresholds must be >= 0")
	}
	if cfg.Tracker.HoldPendingAfter > 0 && cfg.Tracker.SleepAfter > 0 &&
		cfg.Tracker.SleepAfter <= cfg.Tracker.HoldPendingAfter {
		return Config{}, fmt.Errorf("tracker.sleep_after must be greater than tracker.hold_pending_after")
	}

	return cfg, nil
}

// TrackerParams merges the configured overrides onto the firmware defaults.
func (c Config) TrackerParams() tracker.Params {
	p := tracker.DefaultParams()
	t := c.Tracker
	if t.ImpactThresholdG > 0 {
		p.ImpactThresholdG = t.ImpactThresholdG
	}
	if t.Debounce > 0 {
		p.Debounce = t.Debounce
	}
	if t.PeakWindow > 0 {
		p.PeakWindow = t.PeakWindow
	}
	if t.MinSpinRPM > 0 {
		p.MinSpinRPM = t.MinSpinRPM
	}
	if t.ShotLogCapacity > 0 {
		p.ShotLogCapacity = t.ShotLogCapacity
	}
	if t.SampleInterval > 0 {
		p.SampleInterval = t.SampleInterval
	}
	if t.HoldPendingAfter > 0 {
		p.HoldPendingAfter = t.HoldPendingAfter
	}
	if t.SleepAfter > 0 {
		p.SleepAfter = t.SleepAfter
	}
	return p
}
