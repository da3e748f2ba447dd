// Package config loads the nodwatch YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/nodwatch/internal/engine"
	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/sensor"
)

// Config is the root configuration document.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Plugins PluginConfig  `yaml:"plugins"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Engine  engine.Config `yaml:"engine"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Broadcasts forwards eye-gesture messages from MQTT into the wink relay. Nil disables it.
	Broadcasts *sensor.MQTTConfig `yaml:"broadcasts"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PluginConfig configures gesture plugins.
type PluginConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// SensorConfig selects the orientation inputs. The websocket push source is always
// available; MQTT and serial are added when configured.
type SensorConfig struct {
	Extractor              string               `yaml:"extractor"` // gravity or heading
	ArmDisplacementDegrees float64              `yaml:"arm_displacement_degrees"`
	MQTT                   *sensor.MQTTConfig   `yaml:"mqtt"`
	Serial                 *sensor.SerialConfig `yaml:"serial"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Path: defaultStorePath()},
		Plugins: PluginConfig{
			Dir:     "plugins",
			Timeout: 5 * time.Second,
		},
		Sensor: SensorConfig{
			Extractor:              orientation.KindGravity,
			ArmDisplacementDegrees: orientation.DefaultArmDisplacementDegrees,
		},
		Engine:  engine.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nodwatch.db"
	}
	return home + "/.nodwatch/nodwatch.db"
}

// Load reads and validates the YAML file at path on top of Defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of Defaults and validates the result.
// Unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if cfg.Plugins.Timeout < 0 {
		errs = append(errs, fmt.Errorf("plugins.timeout %s must not be negative", cfg.Plugins.Timeout))
	}

	if _, err := orientation.NewExtractor(cfg.Sensor.Extractor, cfg.Sensor.ArmDisplacementDegrees); err != nil {
		errs = append(errs, fmt.Errorf("sensor.extractor: %w", err))
	}
	if m := cfg.Sensor.MQTT; m != nil {
		if m.Broker == "" {
			errs = append(errs, errors.New("sensor.mqtt.broker is required"))
		}
		if m.Topic == "" {
			errs = append(errs, errors.New("sensor.mqtt.topic is required"))
		}
		if m.QoS > 2 {
			errs = append(errs, fmt.Errorf("sensor.mqtt.qos %d is out of range [0, 2]", m.QoS))
		}
	}
	if s := cfg.Sensor.Serial; s != nil && s.Port == "" {
		errs = append(errs, errors.New("sensor.serial.port is required"))
	}
	if b := cfg.Broadcasts; b != nil {
		if b.Broker == "" || b.Topic == "" {
			errs = append(errs, errors.New("broadcasts.broker and broadcasts.topic are required"))
		}
	}

	if err := cfg.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Warnings lists valid but probably unintended settings. Callers log them once logging
// is configured.
func Warnings(cfg *Config) []string {
	var warns []string
	if cfg.Sensor.MQTT == nil && cfg.Sensor.Serial == nil {
		warns = append(warns, "no hardware sensor configured; only websocket and replay input will reach the engine")
	}
	return warns
}
