package gesture

import (
	"errors"
	"fmt"
)

// Classification policies.
const (
	PolicyExcursion  = "excursion"
	PolicyOccurrence = "occurrence"
)

// Thresholds is the immutable parameter set of one gesture axis.
type Thresholds struct {
	Policy string `yaml:"policy" json:"policy"`

	// Excursion policy.
	StepDegrees   float64 `yaml:"step_degrees" json:"step_degrees"`
	RequiredSteps int     `yaml:"required_steps" json:"required_steps"`

	// Occurrence policy.
	Low           float64 `yaml:"low" json:"low"`
	High          float64 `yaml:"high" json:"high"`
	RequiredLows  int     `yaml:"required_lows" json:"required_lows"`
	RequiredHighs int     `yaml:"required_highs" json:"required_highs"`
	CollapseRuns  bool    `yaml:"collapse_runs" json:"collapse_runs"`
}

// DefaultNodThresholds returns the default nod parameters.
func DefaultNodThresholds() Thresholds {
	return Thresholds{
		Policy:        PolicyExcursion,
		StepDegrees:   15,
		RequiredSteps: 3,
		Low:           -8,
		High:          8,
		RequiredLows:  2,
		RequiredHighs: 2,
		CollapseRuns:  true,
	}
}

// DefaultShakeThresholds returns the default head-shake parameters.
func DefaultShakeThresholds() Thresholds {
	return Thresholds{
		Policy:        PolicyExcursion,
		StepDegrees:   15,
		RequiredSteps: 3,
		Low:           -15,
		High:          15,
		RequiredLows:  2,
		RequiredHighs: 2,
		CollapseRuns:  true,
	}
}

// Validate checks the parameters of the selected policy.
func (t Thresholds) Validate() error {
	var errs []error

	switch t.Policy {
	case PolicyExcursion:
		if t.StepDegrees <= 0 {
			errs = append(errs, fmt.Errorf("step_degrees must be positive, got %v", t.StepDegrees))
		}
		if t.RequiredSteps < 1 {
			errs = append(errs, fmt.Errorf("required_steps must be at least 1, got %d", t.RequiredSteps))
		}
	case PolicyOccurrence:
		if t.Low >= t.High {
			errs = append(errs, fmt.Errorf("low (%v) must be below high (%v)", t.Low, t.High))
		}
		if t.RequiredLows < 1 || t.RequiredHighs < 1 {
			errs = append(errs, fmt.Errorf("required_lows and required_highs must be at least 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q", t.Policy))
	}

	if len(errs) > 0 {
		return fmt.Errorf("gesture: invalid thresholds: %w", errors.Join(errs...))
	}
	return nil
}
