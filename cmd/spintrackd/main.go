package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KleanOcean/TennisBall-IMU/internal/button"
	"github.com/KleanOcean/TennisBall-IMU/internal/config"
	"github.com/KleanOcean/TennisBall-IMU/internal/i2c"
	"github.com/KleanOcean/TennisBall-IMU/internal/mqttsink"
	"github.com/KleanOcean/TennisBall-IMU/internal/sensors/mpu6886"
	"github.com/KleanOcean/TennisBall-IMU/internal/sim"
	"github.com/KleanOcean/TennisBall-IMU/internal/telemetry"
	"github.com/KleanOcean/TennisBall-IMU/internal/tracker"
	"github.com/KleanOcean/TennisBall-IMU/internal/web"
	"github.com/KleanOcean/TennisBall-IMU/internal/wifi"
)

// sampleSource abstracts the hardware sensor and the simulators. Sleep/Wake
// mirror the MPU6886 power bits; the simulators treat them as no-ops.
type sampleSource interface {
	Read() (tracker.Sample, error)
	Sleep() error
	Wake() error
}

type hwSource struct {
	dev *mpu6886.Device
}

func (h *hwSource) Read() (tracker.Sample, error) {
	s, err := h.dev.Read()
	if err != nil {
		return tracker.Sample{}, err
	}
	return tracker.Sample{
		Ax: s.Ax, Ay: s.Ay, Az: s.Az,
		Gx: s.Gx, Gy: s.Gy, Gz: s.Gz,
	}, nil
}

func (h *hwSource) Sleep() error { return h.dev.Sleep() }
func (h *hwSource) Wake() error  { return h.dev.Wake() }

type simSource struct {
	spin     sim.SpinSim
	scenario *sim.Scenario
	start    time.Time
}

func (s *simSource) Read() (tracker.Sample, error) {
	elapsed := time.Since(s.start)
	if s.scenario != nil {
		return s.scenario.SampleAt(elapsed, true), nil
	}
	return s.spin.Sample(elapsed), nil
}

func (s *simSource) Sleep() error { return nil }
func (s *simSource) Wake() error  { return nil }

func main() {
	var (
		configPath   string
		forceSim     bool
		scenarioPath string
	)
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.BoolVar(&forceSim, "sim", false, "Force the synthetic sample source")
	flag.StringVar(&scenarioPath, "scenario", "", "Scripted scenario YAML (implies -sim)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	params := cfg.TrackerParams()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.WiFi.Enable {
		if err := wifi.SetupAP(cfg.WiFi.SSID, cfg.WiFi.Password, cfg.WiFi.IP); err != nil {
			log.Fatalf("wifi AP setup failed: %v", err)
		}
		st := wifi.GetStatus()
		log.Printf("wifi: ap ssid=%s ip=%s", st.SSID, st.IP)
	}

	source, cleanup := openSource(cfg, forceSim, scenarioPath)
	defer cleanup()

	var (
		mu      sync.Mutex
		trk     *tracker.Tracker
		monitor = tracker.NewPowerMonitor(params)
	)

	hub := web.NewHub(web.Config{
		Addr: cfg.Web.Listen,
		Status: func() any {
			mu.Lock()
			defer mu.Unlock()
			q := trk.Orientation()
			gx, gy, gz, rpm := trk.Filtered()
			bx, by, bz := trk.Bias()
			return map[string]any{
				"t":     trk.NowMillis(),
				"state": monitor.State().String(),
				"rpm":   rpm,
				"gyro":  [3]float64{gx, gy, gz},
				"bias":  [3]float64{bx, by, bz},
				"quat":  [4]float64{q.W, q.X, q.Y, q.Z},
				"shots": trk.ShotCount(),
			}
		},
		Shots: func() any {
			mu.Lock()
			defer mu.Unlock()
			return trk.Shots()
		},
	})

	sinks := []telemetry.Sink{hub}

	var mqtt *mqttsink.Sink
	if cfg.MQTT.Enable {
		mqtt, err = mqttsink.Connect(mqttsink.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			SampleTopic: cfg.MQTT.SampleTopic,
			ShotTopic:   cfg.MQTT.ShotTopic,
		})
		if err != nil {
			log.Fatalf("mqtt connect failed: %v", err)
		}
		defer mqtt.Close()
		sinks = append(sinks, mqtt)
	}

	enc := telemetry.NewEncoder(float64(params.SampleInterval.Milliseconds()), sinks...)
	trk = tracker.New(params, enc)
	if mqtt != nil {
		// The broker is a standing consumer; WebSocket clients come and go.
		enc.ConsumerDelta(1)
	}

	var btn button.Input
	if cfg.Button.Enable {
		btn, err = button.OpenGPIO(cfg.Button.Chip, cfg.Button.Line)
		if err != nil {
			log.Fatalf("button init failed: %v", err)
		}
		defer btn.Close()
	}

	if err := hub.Start(); err != nil {
		log.Fatalf("web start failed: %v", err)
	}
	log.Printf("spintrackd starting: listen=%s tick=%s sample=%s",
		hub.Addr(), cfg.IMU.TickInterval, params.SampleInterval)

	ticker := time.NewTicker(cfg.IMU.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("spintrackd stopping")
			shutdownHub(hub)
			return
		case now := <-ticker.C:
			drainEvents(hub, enc, trk, &mu)

			held := btn != nil && btn.Held()
			mu.Lock()
			ev := monitor.Update(now, held)
			mu.Unlock()
			switch ev {
			case tracker.PowerEventHoldStarted:
				log.Printf("power: hold detected, release to cancel")
			case tracker.PowerEventHoldCanceled:
				log.Printf("power: hold canceled")
			case tracker.PowerEventShortPress:
				log.Printf("power: short press, orientation reset")
				mu.Lock()
				trk.Apply(tracker.CommandReset)
				mu.Unlock()
			case tracker.PowerEventSleep:
				if err := enterSleep(ctx, hub, source, btn, trk, enc, monitor, mqtt, &mu); err != nil {
					log.Printf("power: %v", err)
					return
				}
				continue
			}

			s, err := source.Read()
			if err != nil {
				log.Printf("sensor read failed: %v", err)
				continue
			}
			mu.Lock()
			trk.Tick(now, s)
			mu.Unlock()
		}
	}
}

func openSource(cfg config.Config, forceSim bool, scenarioPath string) (sampleSource, func()) {
	if scenarioPath != "" {
		script, err := sim.LoadScenarioScript(scenarioPath)
		if err != nil {
			log.Fatalf("scenario load failed: %v", err)
		}
		scn, err := sim.NewScenario(script)
		if err != nil {
			log.Fatalf("scenario invalid: %v", err)
		}
		log.Printf("source: scenario %s (duration %s, looped)", scenarioPath, scn.Duration())
		return &simSource{scenario: scn, start: time.Now()}, func() {}
	}

	if forceSim || cfg.IMU.Sim {
		log.Printf("source: synthetic rally")
		return &simSource{
			spin: sim.SpinSim{
				AxisX:       1,
				PeakDps:     1800,
				SpinPeriod:  8 * time.Second,
				ImpactEvery: 4 * time.Second,
				ImpactG:     8.0,
			},
			start: time.Now(),
		}, func() {}
	}

	bus, err := i2c.Open(cfg.IMU.Bus)
	if err != nil {
		log.Fatalf("i2c open %s failed: %v", cfg.IMU.Bus, err)
	}
	dev, err := mpu6886.New(bus.Dev(cfg.IMU.Addr))
	if err != nil {
		bus.Close()
		log.Fatalf("mpu6886 init failed: %v", err)
	}
	log.Printf("source: mpu6886 on %s addr=0x%02X", bus.Path(), cfg.IMU.Addr)
	return &hwSource{dev: dev}, func() { bus.Close() }
}

func drainEvents(hub *web.Hub, enc *telemetry.Encoder, trk *tracker.Tracker, mu *sync.Mutex) {
	for {
		select {
		case ev := <-hub.Events():
			mu.Lock()
			switch ev.Kind {
			case web.EventConnect:
				enc.ConsumerDelta(1)
			case web.EventDisconnect:
				enc.ConsumerDelta(-1)
			case web.EventCommand:
				trk.Apply(tracker.ParseCommand(ev.Command))
			}
			mu.Unlock()
		default:
			return
		}
	}
}

// enterSleep is the long-hold suspend: radios down, sensor into low-power,
// then block until the button fires again (or shutdown).
func enterSleep(ctx context.Context, hub *web.Hub, source sampleSource, btn button.Input,
	trk *tracker.Tracker, enc *telemetry.Encoder, monitor *tracker.PowerMonitor, mqtt *mqttsink.Sink,
	mu *sync.Mutex) error {

	log.Printf("power: entering sleep")
	shutdownHub(hub)
	if mqtt != nil {
		mqtt.Suspend()
	}
	if err := source.Sleep(); err != nil {
		log.Printf("sensor sleep failed: %v", err)
	}

	if err := btn.WaitForPress(ctx); err != nil {
		return err
	}

	log.Printf("power: waking")
	if err := source.Wake(); err != nil {
		log.Printf("sensor wake failed: %v", err)
	}

	// Discard events queued before the teardown, or a leftover disconnect
	// would eat into the standing MQTT consumer re-added below. The hub is
	// still down, so nothing new can arrive in between.
	drainEvents(hub, enc, trk, mu)

	mu.Lock()
	// The loop was frozen; the first post-wake tick must not see the whole
	// sleep as elapsed time, and every consumer reattaches from scratch.
	trk.ResetTiming()
	enc.ResetConsumers()
	monitor.Wake()
	mu.Unlock()

	if mqtt != nil {
		if err := mqtt.Resume(); err != nil {
			log.Printf("mqtt resume failed: %v", err)
		} else {
			mu.Lock()
			enc.ConsumerDelta(1)
			mu.Unlock()
		}
	}
	return hub.Start()
}

func shutdownHub(hub *web.Hub) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hub.Stop(ctx); err != nil {
		log.Printf("web stop: %v", err)
	}
}
