package orientation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gravityFor(nodDeg float64) Vector {
	rad := nodDeg * math.Pi / 180
	return Vector{X: 0, Y: math.Cos(rad), Z: -math.Sin(rad)}
}

func TestGravityExtractor_NodAngle(t *testing.T) {
	ex := GravityExtractor{}

	for _, want := range []float64{-40, -15, 0, 10, 30, 60} {
		got := ex.Extract(gravityFor(want))
		assert.InDelta(t, want, got.Nod, 1e-9, "nod for %v°", want)
		assert.InDelta(t, 0, got.Shake, 1e-9)
	}
}

func TestGravityExtractor_ShakeAngle(t *testing.T) {
	ex := GravityExtractor{}

	// X isolated against the Y/Z plane: x = y = 1, z = 0 gives -45°.
	got := ex.Extract(Vector{X: 1, Y: 1, Z: 0})
	assert.InDelta(t, -45, got.Shake, 1e-9)
	assert.InDelta(t, 0, got.Nod, 1e-9)
}

func TestGravityExtractor_Degenerate(t *testing.T) {
	ex := GravityExtractor{}

	tests := []struct {
		name string
		v    Vector
	}{
		{"zero vector", Vector{}},
		{"nan component", Vector{X: math.NaN(), Y: 1, Z: 0}},
		{"inf component", Vector{X: 0, Y: math.Inf(1), Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.v)
			assert.Equal(t, Angles{}, got)
		})
	}
}

func TestGravityExtractor_ZeroDenominatorPerAxis(t *testing.T) {
	// Pure Z gravity: the nod denominator hypot(x, y) is zero.
	got := GravityExtractor{}.Extract(Vector{Z: 9.81})
	assert.Equal(t, 0.0, got.Nod)
	assert.False(t, math.IsNaN(got.Shake))
}

func TestHeadingExtractor(t *testing.T) {
	ex := HeadingExtractor{ArmDisplacementDegrees: DefaultArmDisplacementDegrees}

	got := ex.Extract(Vector{X: math.Pi / 2, Y: -math.Pi / 6, Z: 0})
	assert.InDelta(t, -30, got.Nod, 1e-9)
	assert.InDelta(t, 84, got.Shake, 1e-9)

	// Heading 3° minus 6° wraps to -3°, not 357°.
	got = ex.Extract(Vector{X: 3 * math.Pi / 180})
	assert.InDelta(t, -3, got.Shake, 1e-9)

	assert.Equal(t, Angles{}, ex.Extract(Vector{X: math.NaN()}))
}

func TestWrap180(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{179, 179},
		{180, -180},
		{-181, 179},
		{360, 0},
		{725, 5},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Wrap180(tt.in), 1e-9, "Wrap180(%v)", tt.in)
	}
}

func TestNewExtractor(t *testing.T) {
	ex, err := NewExtractor("", 0)
	require.NoError(t, err)
	assert.IsType(t, GravityExtractor{}, ex)

	ex, err = NewExtractor(KindHeading, 4)
	require.NoError(t, err)
	assert.Equal(t, HeadingExtractor{ArmDisplacementDegrees: 4}, ex)

	_, err = NewExtractor("magnetometer", 0)
	assert.Error(t, err)
}
