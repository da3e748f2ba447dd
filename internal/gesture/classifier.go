// Package gesture decides whether a window of head angles contains a nod or a head-shake.
//
// Two policies are available. The excursion policy (default) simplifies the window into
// its extrema and counts large swings between them. The occurrence policy counts how often
// the angle crosses fixed low and high thresholds.
package gesture

import "fmt"

// Kind identifies a recognized gesture.
type Kind string

const (
	// KindNod is an up-down head movement.
	KindNod Kind = "nod"
	// KindHeadShake is a left-right head movement.
	KindHeadShake Kind = "head_shake"
	// KindWink is relayed from the platform's eye-gesture events.
	KindWink Kind = "wink"
)

// Valid reports whether k is one of the known gesture kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNod, KindHeadShake, KindWink:
		return true
	}
	return false
}

// Classifier decides whether values (oldest first) contain a gesture.
// Implementations hold no state between calls.
type Classifier interface {
	Classify(values []float64) bool
}

// ExcursionClassifier reports a gesture when at least RequiredSteps of the swings between
// consecutive extrema are StepDegrees or larger.
type ExcursionClassifier struct {
	StepDegrees   float64
	RequiredSteps int
}

// Classify implements Classifier.
func (c ExcursionClassifier) Classify(values []float64) bool {
	if len(values) < 2 {
		return false
	}
	return c.Steps(values) >= c.RequiredSteps
}

// Steps returns the number of swings of at least StepDegrees in values.
func (c ExcursionClassifier) Steps(values []float64) int {
	steps := 0
	for _, d := range Differences(Simplify(values)) {
		if d >= c.StepDegrees {
			steps++
		}
	}
	return steps
}

// OccurrenceClassifier reports a gesture when at least RequiredHighs values are >= High
// and at least RequiredLows values are <= Low.
//
// With CollapseRuns the values are first reduced to one extreme per sign run, so a single
// excursion counts once regardless of how many samples it spans.
type OccurrenceClassifier struct {
	Low           float64
	High          float64
	RequiredLows  int
	RequiredHighs int
	CollapseRuns  bool
}

// Classify implements Classifier.
func (c OccurrenceClassifier) Classify(values []float64) bool {
	if len(values) < 2 {
		return false
	}
	if c.CollapseRuns {
		values = collapseSigns(values)
	}

	lows, highs := 0, 0
	for _, v := range values {
		if v >= c.High {
			highs++
		}
		if v <= c.Low {
			lows++
		}
	}

	return lows >= c.RequiredLows && highs >= c.RequiredHighs
}

// New builds the classifier selected by th.Policy.
func New(th Thresholds) (Classifier, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	switch th.Policy {
	case PolicyExcursion:
		return ExcursionClassifier{
			StepDegrees:   th.StepDegrees,
			RequiredSteps: th.RequiredSteps,
		}, nil
	case PolicyOccurrence:
		return OccurrenceClassifier{
			Low:           th.Low,
			High:          th.High,
			RequiredLows:  th.RequiredLows,
			RequiredHighs: th.RequiredHighs,
			CollapseRuns:  th.CollapseRuns,
		}, nil
	}
	return nil, fmt.Errorf("gesture: unknown policy %q", th.Policy)
}
