// Package mqttsink bridges telemetry onto an MQTT broker, for setups where a
// courtside machine aggregates several trackers. It is an always-attached
// consumer: when enabled, sample serialization runs even with no WebSocket
// clients connected.
package mqttsink

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	SampleTopic string
	ShotTopic   string
}

// Sink publishes encoded telemetry payloads to the configured topics.
// Publishes are QoS 0 fire-and-forget, matching the broadcast semantics of
// the rest of the telemetry path.
type Sink struct {
	cfg    Config
	client mqtt.Client
}

func Connect(cfg Config) (*Sink, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqttsink: broker is required")
	}
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Sink{cfg: cfg, client: client}, nil
}

func dial(cfg Config) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttsink: connect %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// SendSample implements telemetry.Sink.
func (s *Sink) SendSample(payload []byte) error {
	s.client.Publish(s.cfg.SampleTopic, 0, false, payload)
	return nil
}

// SendShot implements telemetry.Sink. Shot messages are retained so a late
// subscriber sees the most recent shot.
func (s *Sink) SendShot(payload []byte) error {
	s.client.Publish(s.cfg.ShotTopic, 0, true, payload)
	return nil
}

// Suspend drops the broker connection for a sleep cycle.
func (s *Sink) Suspend() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(250)
}

// Resume re-dials the broker after a sleep cycle.
func (s *Sink) Resume() error {
	client, err := dial(s.cfg)
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

// Close disconnects from the broker, flushing for up to 250ms like the
// upstream examples do.
func (s *Sink) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(250)
}
