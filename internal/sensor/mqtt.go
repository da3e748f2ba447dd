package sensor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/nodwatch/internal/broadcast"
)

// MQTTConfig configures the broker connection shared by MQTT sources.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Topic          string        `yaml:"topic"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ClientFactory builds an MQTT client. Tests replace it with a fake.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

func connectMQTT(cfg MQTTConfig, suffix string, newClient ClientFactory) (mqtt.Client, error) {
	if newClient == nil {
		newClient = mqtt.NewClient
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("nodwatch-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID + "-" + suffix)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "broker", cfg.Broker, "err", err)
	}

	client := newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("%w: mqtt connect to %s timed out", ErrUnavailable, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: mqtt connect to %s: %v", ErrUnavailable, cfg.Broker, err)
	}
	return client, nil
}

func subscribeMQTT(client mqtt.Client, cfg MQTTConfig, topic string, cb mqtt.MessageHandler) error {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	token := client.Subscribe(topic, cfg.QoS, cb)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: mqtt subscribe to %s timed out", ErrUnavailable, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: mqtt subscribe to %s: %v", ErrUnavailable, topic, err)
	}
	return nil
}

// MQTTSource receives orientation vectors published as JSON on an MQTT topic.
type MQTTSource struct {
	cfg       MQTTConfig
	newClient ClientFactory

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTSource creates an MQTTSource. newClient may be nil.
func NewMQTTSource(cfg MQTTConfig, newClient ClientFactory) *MQTTSource {
	return &MQTTSource{cfg: cfg, newClient: newClient}
}

// Name implements Source.
func (s *MQTTSource) Name() string { return "mqtt:" + s.cfg.Topic }

// Subscribe implements Source.
func (s *MQTTSource) Subscribe(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	client, err := connectMQTT(s.cfg, "sensor", s.newClient)
	if err != nil {
		return err
	}
	if err := subscribeMQTT(client, s.cfg, s.cfg.Topic, vectorHandler(h)); err != nil {
		client.Disconnect(250)
		return err
	}

	s.client = client
	slog.Info("mqtt sensor subscribed", "broker", s.cfg.Broker, "topic", s.cfg.Topic)
	return nil
}

// Unsubscribe implements Source.
func (s *MQTTSource) Unsubscribe() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return
	}
	client.Unsubscribe(s.cfg.Topic).WaitTimeout(2 * time.Second)
	client.Disconnect(250)
}

func vectorHandler(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		v, err := DecodeVector(msg.Payload())
		if err != nil {
			slog.Debug("dropping malformed sensor payload", "topic", msg.Topic(), "err", err)
			return
		}
		h(v)
	}
}

// MQTTBroadcasts forwards eye-gesture messages from an MQTT topic into a broadcast bus.
// Payloads are flat JSON objects such as {"gesture":"WINK"}.
type MQTTBroadcasts struct {
	cfg       MQTTConfig
	bus       *broadcast.Bus
	newClient ClientFactory

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTBroadcasts creates a forwarder for cfg.Topic. newClient may be nil.
func NewMQTTBroadcasts(cfg MQTTConfig, bus *broadcast.Bus, newClient ClientFactory) *MQTTBroadcasts {
	return &MQTTBroadcasts{cfg: cfg, bus: bus, newClient: newClient}
}

// Start connects and subscribes.
func (b *MQTTBroadcasts) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return nil
	}

	client, err := connectMQTT(b.cfg, "broadcasts", b.newClient)
	if err != nil {
		return err
	}
	if err := subscribeMQTT(client, b.cfg, b.cfg.Topic, b.onMessage); err != nil {
		client.Disconnect(250)
		return err
	}
	b.client = client
	return nil
}

// Stop disconnects from the broker.
func (b *MQTTBroadcasts) Stop() {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.mu.Unlock()

	if client != nil {
		client.Disconnect(250)
	}
}

func (b *MQTTBroadcasts) onMessage(_ mqtt.Client, msg mqtt.Message) {
	extras := make(map[string]string)
	if err := json.Unmarshal(msg.Payload(), &extras); err != nil {
		slog.Debug("dropping malformed broadcast", "topic", msg.Topic(), "err", err)
		return
	}

	m := &broadcast.Message{Action: broadcast.EyeGestureAction, Extras: extras}
	if b.bus.Send(m) {
		slog.Debug("broadcast consumed", "gesture", m.Extra("gesture"))
	}
}
