package engine

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nodwatch/internal/broadcast"
	"github.com/ayusman/nodwatch/internal/gesture"
	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/sensor"
)

// anglesExtractor treats the vector's X as the nod angle and Y as the shake angle.
type anglesExtractor struct{}

func (anglesExtractor) Extract(v orientation.Vector) orientation.Angles {
	return orientation.Angles{Nod: v.X, Shake: v.Y}
}

type countingListener struct {
	nods, shakes, winks atomic.Int32
}

func (l *countingListener) OnNod()       { l.nods.Add(1) }
func (l *countingListener) OnHeadShake() { l.shakes.Add(1) }
func (l *countingListener) OnWink()      { l.winks.Add(1) }

type unavailableSource struct{}

func (unavailableSource) Name() string { return "broken" }
func (unavailableSource) Subscribe(sensor.Handler) error {
	return sensor.ErrUnavailable
}
func (unavailableSource) Unsubscribe() {}

type manualEngine struct {
	*Engine
	src   *sensor.Push
	ticks chan time.Time
	l     *countingListener
}

func newManualEngine(t *testing.T, cfg Config, opts ...Option) *manualEngine {
	t.Helper()
	src := sensor.NewPush("test")
	l := &countingListener{}
	e, err := New(cfg, src, anglesExtractor{}, l, opts...)
	require.NoError(t, err)

	ticks := make(chan time.Time)
	e.newTicker = func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} }
	require.NoError(t, e.Start())
	t.Cleanup(e.Stop)

	return &manualEngine{Engine: e, src: src, ticks: ticks, l: l}
}

// step runs exactly one tick and waits for it to finish.
func (m *manualEngine) step(t *testing.T) {
	t.Helper()
	before := m.Stats().Ticks
	m.ticks <- time.Now()
	require.Eventually(t, func() bool { return m.Stats().Ticks > before }, time.Second, time.Millisecond)
}

func (m *manualEngine) feed(t *testing.T, nod, shake []float64) {
	t.Helper()
	for i := range nod {
		m.src.Publish(orientation.Vector{X: nod[i], Y: shake[i]})
		m.step(t)
	}
}

// nodWave qualifies on its last sample: three swings of at least 15 degrees.
var (
	nodWave  = []float64{2, 18, 3, 20}
	flatWave = []float64{0, 2, -1, 3}
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Config{}.Validate())
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TickInterval = time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sampling = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Conflict = "coin_flip"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Nod.RequiredSteps = 0
	assert.Error(t, cfg.Validate())
}

func TestNew_RejectsNil(t *testing.T) {
	_, err := New(Config{}, nil, nil, &countingListener{})
	assert.Error(t, err)

	_, err = New(Config{}, sensor.NewPush("p"), nil, nil)
	assert.Error(t, err)
}

func TestNod_FiresOnceAndClearsWindow(t *testing.T) {
	m := newManualEngine(t, Config{})

	m.feed(t, nodWave, flatWave)

	assert.Equal(t, int32(1), m.l.nods.Load())
	assert.Equal(t, int32(0), m.l.shakes.Load())

	nod, shake := m.Windows()
	assert.Empty(t, nod, "nod window cleared after firing")
	assert.Len(t, shake, len(flatWave), "shake window untouched")

	// The same latest angle keeps being sampled, but the cleared window cannot
	// re-qualify without new movement.
	for i := 0; i < 10; i++ {
		m.step(t)
	}
	assert.Equal(t, int32(1), m.l.nods.Load())
}

func TestHeadShake_Fires(t *testing.T) {
	m := newManualEngine(t, Config{})

	m.feed(t, flatWave, nodWave)

	assert.Equal(t, int32(0), m.l.nods.Load())
	assert.Equal(t, int32(1), m.l.shakes.Load())

	nod, shake := m.Windows()
	assert.Len(t, nod, len(flatWave))
	assert.Empty(t, shake)
}

func TestConflict_SuppressFiresNeither(t *testing.T) {
	m := newManualEngine(t, Config{})

	m.feed(t, nodWave, nodWave)

	assert.Equal(t, int32(0), m.l.nods.Load())
	assert.Equal(t, int32(0), m.l.shakes.Load())

	nod, shake := m.Windows()
	assert.Len(t, nod, len(nodWave))
	assert.Len(t, shake, len(nodWave))
}

func TestConflict_NodPriority(t *testing.T) {
	m := newManualEngine(t, Config{Conflict: ConflictNodPriority})

	m.feed(t, nodWave, nodWave)

	assert.Equal(t, int32(1), m.l.nods.Load())
	assert.Equal(t, int32(0), m.l.shakes.Load())

	nod, shake := m.Windows()
	assert.Empty(t, nod)
	assert.Len(t, shake, len(nodWave))
}

func TestTickSampling_NoSampleNoPush(t *testing.T) {
	m := newManualEngine(t, Config{})

	m.step(t)
	m.step(t)

	nod, shake := m.Windows()
	assert.Empty(t, nod)
	assert.Empty(t, shake)
}

func TestTickSampling_RepeatsLatest(t *testing.T) {
	m := newManualEngine(t, Config{})

	m.src.Publish(orientation.Vector{X: 7, Y: -3})
	m.step(t)
	m.step(t)
	m.step(t)

	nod, shake := m.Windows()
	assert.Equal(t, []float64{7, 7, 7}, nod)
	assert.Equal(t, []float64{-3, -3, -3}, shake)
}

func TestSensorSampling_PushesEverySample(t *testing.T) {
	m := newManualEngine(t, Config{Sampling: SamplingSensor})

	for _, v := range nodWave {
		m.src.Publish(orientation.Vector{X: v})
	}

	nod, _ := m.Windows()
	assert.Equal(t, nodWave, nod)
	assert.Equal(t, int32(0), m.l.nods.Load(), "producer never classifies")

	m.step(t)
	assert.Equal(t, int32(1), m.l.nods.Load())
}

func TestWindowEviction(t *testing.T) {
	m := newManualEngine(t, Config{WindowSize: 3, Sampling: SamplingSensor})

	for i := 1; i <= 5; i++ {
		m.src.Publish(orientation.Vector{X: float64(i) * 0.1})
	}

	nod, _ := m.Windows()
	assert.InDeltaSlice(t, []float64{0.3, 0.4, 0.5}, nod, 1e-9)
}

func TestStop_NoMutationAfterReturn(t *testing.T) {
	m := newManualEngine(t, Config{Sampling: SamplingSensor})

	m.src.Publish(orientation.Vector{X: 1, Y: 1})
	m.Stop()

	assert.False(t, m.Listening())
	assert.False(t, m.src.Subscribed())

	nod, shake := m.Windows()
	assert.Empty(t, nod)
	assert.Empty(t, shake)

	// A stale handler reference must not reach the windows.
	m.handleSample(orientation.Vector{X: 5, Y: 5})
	nod, shake = m.Windows()
	assert.Empty(t, nod)
	assert.Empty(t, shake)

	// The ticker goroutine is gone: nobody receives on the tick channel.
	select {
	case m.ticks <- time.Now():
		t.Fatal("tick delivered after Stop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	m := newManualEngine(t, Config{})

	require.NoError(t, m.Start())
	assert.True(t, m.Listening())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Stop()
		}()
	}
	wg.Wait()
	m.Stop()
	assert.False(t, m.Listening())

	// Restart begins with empty windows.
	require.NoError(t, m.Start())
	nod, shake := m.Windows()
	assert.Empty(t, nod)
	assert.Empty(t, shake)
}

func TestStart_SensorUnavailable(t *testing.T) {
	e, err := New(Config{}, unavailableSource{}, nil, &countingListener{})
	require.NoError(t, err)

	err = e.Start()
	assert.ErrorIs(t, err, ErrSensorUnavailable)
	assert.ErrorIs(t, err, sensor.ErrUnavailable)
	assert.False(t, e.Listening())

	// Stop on a never-started engine is a no-op.
	e.Stop()
}

func TestWink_RelayedAndAborted(t *testing.T) {
	bus := broadcast.NewBus()
	var lowPriority []string
	bus.Register(broadcast.EyeGestureAction, 0, broadcast.ReceiverFunc(func(msg *broadcast.Message) {
		lowPriority = append(lowPriority, msg.Extra("gesture"))
	}))

	m := newManualEngine(t, Config{}, WithBus(bus))
	m.src.Publish(orientation.Vector{X: 3})
	m.step(t)

	consumed := bus.Send(&broadcast.Message{
		Action: broadcast.EyeGestureAction,
		Extras: map[string]string{"gesture": WinkGesture},
	})
	assert.True(t, consumed)
	assert.Equal(t, int32(1), m.l.winks.Load())
	assert.Empty(t, lowPriority, "wink must not reach lower-priority receivers")

	consumed = bus.Send(&broadcast.Message{
		Action: broadcast.EyeGestureAction,
		Extras: map[string]string{"gesture": "DOUBLE_BLINK"},
	})
	assert.False(t, consumed)
	assert.Equal(t, []string{"DOUBLE_BLINK"}, lowPriority)
	assert.Equal(t, int32(1), m.l.winks.Load())

	nod, _ := m.Windows()
	assert.Equal(t, []float64{3}, nod, "winks do not touch the windows")
	assert.Equal(t, uint64(1), m.Stats().Winks)

	m.Stop()
	assert.Equal(t, 1, bus.Len(), "relay unregistered on Stop")
	bus.Send(&broadcast.Message{
		Action: broadcast.EyeGestureAction,
		Extras: map[string]string{"gesture": WinkGesture},
	})
	assert.Equal(t, int32(1), m.l.winks.Load())
}

func TestWink_InFlightSendAfterStop(t *testing.T) {
	bus := broadcast.NewBus()
	m := newManualEngine(t, Config{}, WithBus(bus))

	var lowPriority int
	bus.Register(broadcast.EyeGestureAction, WinkPriority+1000, broadcast.ReceiverFunc(func(*broadcast.Message) {
		m.Stop()
	}))
	bus.Register(broadcast.EyeGestureAction, 0, broadcast.ReceiverFunc(func(*broadcast.Message) {
		lowPriority++
	}))

	consumed := bus.Send(&broadcast.Message{
		Action: broadcast.EyeGestureAction,
		Extras: map[string]string{"gesture": WinkGesture},
	})
	assert.False(t, m.Listening())
	assert.False(t, consumed, "a stopped relay must not consume the wink")
	assert.Equal(t, int32(0), m.l.winks.Load())
	assert.Equal(t, uint64(0), m.Stats().Winks)
	assert.Equal(t, 1, lowPriority)
}

func TestRealTicker_DetectsNod(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-time test in short mode")
	}

	src := sensor.NewPush("live")
	fired := make(chan struct{}, 1)
	l := ListenerFuncs{Nod: func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}}

	e, err := New(Config{TickInterval: 10 * time.Millisecond, Sampling: SamplingSensor}, src, orientation.GravityExtractor{}, l)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	defer e.Stop()

	for _, deg := range []float64{2, 18, 3, 20, 1, 19, 4} {
		r := deg * math.Pi / 180
		src.Publish(orientation.Vector{X: 0, Y: math.Cos(r), Z: -math.Sin(r)})
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("nod not detected")
	}
	assert.GreaterOrEqual(t, e.Stats().Nods, uint64(1))
}

func TestListenerFuncs_NilSlots(t *testing.T) {
	var l ListenerFuncs
	l.OnNod()
	l.OnHeadShake()
	l.OnWink()
}

func TestStats_CountSamples(t *testing.T) {
	m := newManualEngine(t, Config{})
	m.src.Publish(orientation.Vector{})
	m.src.Publish(orientation.Vector{})
	assert.Equal(t, uint64(2), m.Stats().Samples)
}

func TestUnknownPolicyRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nod = gesture.Thresholds{Policy: "magic"}
	_, err := New(cfg, sensor.NewPush("p"), nil, &countingListener{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrSensorUnavailable))
}
