package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"nil", nil, nil},
		{"single", []float64{3}, []float64{3}},
		{"every sample an extremum", []float64{2, 18, 3, 20, 1, 19, 4}, []float64{2, 18, 3, 20, 1, 19, 4}},
		{"monotonic rise", []float64{1, 2, 3, 4}, []float64{1, 4}},
		{"jitter collapses", []float64{0, 5, 10, 9, 8, 2, 3, 12}, []float64{0, 10, 2, 12}},
		{"plateau is one run", []float64{2, 18, 18, 18, 3}, []float64{2, 18, 3}},
		{"leading flat run", []float64{5, 5, 7, 1}, []float64{5, 7, 1}},
		{"all equal", []float64{4, 4, 4}, []float64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}

func TestDifferences(t *testing.T) {
	assert.Nil(t, Differences(nil))
	assert.Nil(t, Differences([]float64{1}))
	assert.Equal(t, []float64{16, 15, 17, 19, 18, 15}, Differences([]float64{2, 18, 3, 20, 1, 19, 4}))
	assert.Equal(t, []float64{5, 5}, Differences([]float64{-5, 0, -5}))
}

func TestExcursionClassifier_AlternatingPeaks(t *testing.T) {
	c := ExcursionClassifier{StepDegrees: 15, RequiredSteps: 3}
	values := []float64{2, 18, 3, 20, 1, 19, 4}

	assert.Equal(t, 6, c.Steps(values))
	assert.True(t, c.Classify(values))
}

func TestExcursionClassifier_FlatNoise(t *testing.T) {
	c := ExcursionClassifier{StepDegrees: 15, RequiredSteps: 3}
	assert.False(t, c.Classify([]float64{0.1, 0.12, 0.09, 0.11}))
}

func TestExcursionClassifier_TooFewSteps(t *testing.T) {
	c := ExcursionClassifier{StepDegrees: 15, RequiredSteps: 3}

	// one full down-up swing: two large differences
	assert.False(t, c.Classify([]float64{0, -20, 0}))
	// densely sampled version of three swings
	assert.True(t, c.Classify([]float64{0, -5, -10, -20, -10, 0, 5, 10, 20, 10, 0, -5, -20}))
}

func TestExcursionClassifier_EmptyAndSingle(t *testing.T) {
	c := ExcursionClassifier{StepDegrees: 15, RequiredSteps: 1}
	assert.False(t, c.Classify(nil))
	assert.False(t, c.Classify([]float64{90}))
}

func TestClassifier_Deterministic(t *testing.T) {
	values := []float64{0, 25, -3, 22, -8, 30, 0}
	classifiers := []Classifier{
		ExcursionClassifier{StepDegrees: 15, RequiredSteps: 3},
		OccurrenceClassifier{Low: -2, High: 20, RequiredLows: 2, RequiredHighs: 2, CollapseRuns: true},
	}

	for _, c := range classifiers {
		first := c.Classify(values)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, c.Classify(values))
		}
	}
	assert.Equal(t, []float64{0, 25, -3, 22, -8, 30, 0}, values, "input must not be mutated")
}

func TestOccurrenceClassifier(t *testing.T) {
	c := OccurrenceClassifier{Low: -10, High: 10, RequiredLows: 2, RequiredHighs: 2}

	assert.True(t, c.Classify([]float64{0, 12, -11, 15, -14}))
	assert.False(t, c.Classify([]float64{0, 12, -11, 5, -4}), "only one low")
	assert.True(t, c.Classify([]float64{10, -10, 10, -10}), "thresholds are inclusive")
	assert.False(t, c.Classify(nil))
	assert.False(t, c.Classify([]float64{50}))
}

func TestOccurrenceClassifier_CollapseRuns(t *testing.T) {
	// A single slow excursion above and below: raw counts pass, collapsed counts do not.
	values := []float64{11, 12, 13, -11, -12, -13}

	raw := OccurrenceClassifier{Low: -10, High: 10, RequiredLows: 2, RequiredHighs: 2}
	collapsed := raw
	collapsed.CollapseRuns = true

	assert.True(t, raw.Classify(values))
	assert.False(t, collapsed.Classify(values))
	assert.True(t, collapsed.Classify([]float64{11, -11, 12, -12}))
}

func TestCollapseSigns(t *testing.T) {
	assert.Nil(t, collapseSigns(nil))
	assert.Equal(t, []float64{-3, 5}, collapseSigns([]float64{-1, -3, 0, 1, 5, 4, 0, 2}))
	assert.Equal(t, []float64{5}, collapseSigns([]float64{5, 0, 3}), "zero does not end a positive run")
	assert.Equal(t, []float64{-2, 4, -1}, collapseSigns([]float64{0, -2, 0, 4, 0, -1, 0}))
}

func TestNew(t *testing.T) {
	c, err := New(DefaultNodThresholds())
	require.NoError(t, err)
	assert.Equal(t, ExcursionClassifier{StepDegrees: 15, RequiredSteps: 3}, c)

	th := DefaultShakeThresholds()
	th.Policy = PolicyOccurrence
	c, err = New(th)
	require.NoError(t, err)
	assert.IsType(t, OccurrenceClassifier{}, c)

	_, err = New(Thresholds{Policy: "magic"})
	assert.Error(t, err)

	_, err = New(Thresholds{Policy: PolicyExcursion})
	assert.Error(t, err)

	_, err = New(Thresholds{Policy: PolicyOccurrence, Low: 5, High: 5, RequiredLows: 1, RequiredHighs: 1})
	assert.Error(t, err)
}

func TestKind_Valid(t *testing.T) {
	for _, k := range []Kind{KindNod, KindHeadShake, KindWink} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("blink").Valid())
}
