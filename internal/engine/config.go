package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/nodwatch/internal/gesture"
)

// Engine timing and sizing defaults.
const (
	// DefaultTickInterval is the consumer period.
	DefaultTickInterval = 50 * time.Millisecond
	// MinTickInterval and MaxTickInterval bound TickInterval.
	MinTickInterval = 10 * time.Millisecond
	MaxTickInterval = 250 * time.Millisecond
	// DefaultWindowSize is the per-axis window capacity.
	DefaultWindowSize = 50
)

// Sampling selects who feeds the windows.
type Sampling string

const (
	// SamplingTick pushes the latest angles into the windows on every tick, so the
	// windows hold a uniform time series regardless of sensor rate.
	SamplingTick Sampling = "tick"
	// SamplingSensor pushes every sensor sample as it arrives.
	SamplingSensor Sampling = "sensor"
)

// ConflictPolicy decides what happens when both windows classify positive on one tick.
type ConflictPolicy string

const (
	// ConflictSuppress fires neither gesture and clears nothing.
	ConflictSuppress ConflictPolicy = "suppress"
	// ConflictNodPriority fires the nod and clears only the nod window.
	ConflictNodPriority ConflictPolicy = "nod_priority"
)

// Config holds engine parameters. The zero value of each field means its default.
type Config struct {
	TickInterval time.Duration      `yaml:"tick_interval" json:"tick_interval"`
	WindowSize   int                `yaml:"window_size" json:"window_size"`
	Sampling     Sampling           `yaml:"sampling" json:"sampling"`
	Conflict     ConflictPolicy     `yaml:"conflict" json:"conflict"`
	Nod          gesture.Thresholds `yaml:"nod" json:"nod"`
	Shake        gesture.Thresholds `yaml:"shake" json:"shake"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		WindowSize:   DefaultWindowSize,
		Sampling:     SamplingTick,
		Conflict:     ConflictSuppress,
		Nod:          gesture.DefaultNodThresholds(),
		Shake:        gesture.DefaultShakeThresholds(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval == 0 {
		c.TickInterval = d.TickInterval
	}
	if c.WindowSize == 0 {
		c.WindowSize = d.WindowSize
	}
	if c.Sampling == "" {
		c.Sampling = d.Sampling
	}
	if c.Conflict == "" {
		c.Conflict = d.Conflict
	}
	if c.Nod.Policy == "" {
		c.Nod = d.Nod
	}
	if c.Shake.Policy == "" {
		c.Shake = d.Shake
	}
	return c
}

// Validate checks c after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()

	var errs []error
	if c.TickInterval < MinTickInterval || c.TickInterval > MaxTickInterval {
		errs = append(errs, fmt.Errorf("tick_interval %s outside [%s, %s]", c.TickInterval, MinTickInterval, MaxTickInterval))
	}
	if c.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("window_size must be positive, got %d", c.WindowSize))
	}
	switch c.Sampling {
	case SamplingTick, SamplingSensor:
	default:
		errs = append(errs, fmt.Errorf("unknown sampling %q", c.Sampling))
	}
	switch c.Conflict {
	case ConflictSuppress, ConflictNodPriority:
	default:
		errs = append(errs, fmt.Errorf("unknown conflict policy %q", c.Conflict))
	}
	if err := c.Nod.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("nod: %w", err))
	}
	if err := c.Shake.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("shake: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("engine: invalid config: %w", errors.Join(errs...))
	}
	return nil
}
