package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nodwatch/internal/gesture"
	"github.com/ayusman/nodwatch/internal/orientation"
)

func angles(t *testing.T, name string) (nod, shake []float64) {
	t.Helper()
	vecs, err := LoadStream(name)
	require.NoError(t, err)
	require.NotEmpty(t, vecs)

	var ex orientation.GravityExtractor
	for _, v := range vecs {
		a := ex.Extract(v)
		nod = append(nod, a.Nod)
		shake = append(shake, a.Shake)
	}
	return nod, shake
}

func TestStreams_Classify(t *testing.T) {
	nodCls, err := gesture.New(gesture.DefaultNodThresholds())
	require.NoError(t, err)
	shakeCls, err := gesture.New(gesture.DefaultShakeThresholds())
	require.NoError(t, err)

	nod, shake := angles(t, Nod)
	assert.True(t, nodCls.Classify(nod), "nod stream")
	assert.False(t, shakeCls.Classify(shake), "nod stream shake axis")

	nod, shake = angles(t, Shake)
	assert.False(t, nodCls.Classify(nod), "shake stream nod axis")
	assert.True(t, shakeCls.Classify(shake), "shake stream")

	nod, shake = angles(t, Still)
	assert.False(t, nodCls.Classify(nod))
	assert.False(t, shakeCls.Classify(shake))
}

func TestGravityHelpers(t *testing.T) {
	var ex orientation.GravityExtractor

	a := ex.Extract(GravityForNod(12))
	assert.InDelta(t, 12, a.Nod, 1e-9)
	assert.InDelta(t, 0, a.Shake, 1e-9)

	a = ex.Extract(GravityForShake(-7))
	assert.InDelta(t, -7, a.Shake, 1e-9)
	assert.InDelta(t, 0, a.Nod, 1e-9)
}

func TestLoadStream_Unknown(t *testing.T) {
	_, err := LoadStream("missing")
	assert.Error(t, err)
}
