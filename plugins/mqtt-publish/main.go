// Package main provides a plugin that publishes gestures to an MQTT broker.
// Build it next to its manifest: go build -o plugins/mqtt-publish/mqtt-publish ./plugins/mqtt-publish
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 3 * time.Second

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Gesture    string          `json:"gesture"`
	DetectedAt time.Time       `json:"detected_at"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PublishConfig is the action configuration bound to a gesture. Broker and topic fall
// back to NODWATCH_MQTT_BROKER and NODWATCH_MQTT_TOPIC, so manifest-default dispatch
// works without a stored binding.
type PublishConfig struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
	// Payload is sent verbatim. Empty publishes the gesture as JSON.
	Payload string `json:"payload"`
	QoS     byte   `json:"qos"`
	Retain  bool   `json:"retain"`
}

// clientFactory is replaced in tests.
type clientFactory func(opts *mqtt.ClientOptions) mqtt.Client

func main() {
	run(os.Stdin, os.Stdout, mqtt.NewClient)
}

func run(in io.Reader, out io.Writer, newClient clientFactory) {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		writeResponse(out, Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	switch req.Action {
	case "publish", req.Gesture:
		if err := publish(req, newClient); err != nil {
			writeResponse(out, Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
			return
		}
	default:
		writeResponse(out, Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	writeResponse(out, Response{Success: true})
}

func parseConfig(raw json.RawMessage) (PublishConfig, error) {
	var cfg PublishConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Broker == "" {
		cfg.Broker = os.Getenv("NODWATCH_MQTT_BROKER")
	}
	if cfg.Topic == "" {
		cfg.Topic = os.Getenv("NODWATCH_MQTT_TOPIC")
	}
	if cfg.Broker == "" {
		return cfg, errors.New("broker is required")
	}
	if cfg.Topic == "" {
		return cfg, errors.New("topic is required")
	}
	if cfg.QoS > 2 {
		return cfg, fmt.Errorf("qos %d out of range", cfg.QoS)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "nodwatch-mqtt-publish"
	}
	return cfg, nil
}

func payload(req Request, cfg PublishConfig) ([]byte, error) {
	if cfg.Payload != "" {
		return []byte(cfg.Payload), nil
	}
	return json.Marshal(map[string]any{
		"gesture":     req.Gesture,
		"detected_at": req.DetectedAt,
	})
}

func publish(req Request, newClient clientFactory) error {
	cfg, err := parseConfig(req.Config)
	if err != nil {
		return err
	}
	body, err := payload(req, cfg)
	if err != nil {
		return err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(publishTimeout)
	client := newClient(opts)

	if err := wait(client.Connect(), "connect"); err != nil {
		return err
	}
	defer client.Disconnect(250)

	return wait(client.Publish(cfg.Topic, cfg.QoS, cfg.Retain, body), "publish")
}

func wait(tok mqtt.Token, op string) error {
	if !tok.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%s: timeout after %s", op, publishTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func writeResponse(w io.Writer, resp Response) {
	json.NewEncoder(w).Encode(resp)
}
