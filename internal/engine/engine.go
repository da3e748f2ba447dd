// Package engine turns a stream of orientation samples into nod, head-shake and wink
// notifications.
//
// A producer (the sensor callback) records angles, and a consumer goroutine ticking at
// Config.TickInterval classifies the nod and shake windows. When exactly one axis
// classifies positive the listener is notified and that window is cleared, so a single
// physical gesture fires once. Winks arrive through a broadcast bus and are relayed
// without touching the windows.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/nodwatch/internal/broadcast"
	"github.com/ayusman/nodwatch/internal/gesture"
	"github.com/ayusman/nodwatch/internal/metrics"
	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/sensor"
	"github.com/ayusman/nodwatch/internal/window"
)

// ErrSensorUnavailable is returned by Start when the source cannot be subscribed.
var ErrSensorUnavailable = errors.New("engine: sensor unavailable")

// Listener receives gesture notifications. OnNod and OnHeadShake run on the engine's
// consumer goroutine, OnWink on the goroutine that sent the broadcast. Implementations
// must return quickly and must not call Stop.
type Listener interface {
	OnNod()
	OnHeadShake()
	OnWink()
}

// ListenerFuncs adapts optional functions to Listener. Nil slots are ignored.
type ListenerFuncs struct {
	Nod       func()
	HeadShake func()
	Wink      func()
}

// OnNod implements Listener.
func (l ListenerFuncs) OnNod() {
	if l.Nod != nil {
		l.Nod()
	}
}

// OnHeadShake implements Listener.
func (l ListenerFuncs) OnHeadShake() {
	if l.HeadShake != nil {
		l.HeadShake()
	}
}

// OnWink implements Listener.
func (l ListenerFuncs) OnWink() {
	if l.Wink != nil {
		l.Wink()
	}
}

// Stats is a point-in-time view of engine counters. Counters survive Stop/Start.
type Stats struct {
	Ticks      uint64 `json:"ticks"`
	Samples    uint64 `json:"samples"`
	Nods       uint64 `json:"nods"`
	HeadShakes uint64 `json:"head_shakes"`
	Winks      uint64 `json:"winks"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBus relays winks from bus while listening.
func WithBus(bus *broadcast.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// Engine is the gesture engine. It is safe for concurrent use.
type Engine struct {
	cfg       Config
	src       sensor.Source
	extractor orientation.Extractor
	listener  Listener
	nodCls    gesture.Classifier
	shakeCls  gesture.Classifier
	bus       *broadcast.Bus
	metrics   *metrics.Metrics

	// newTicker is replaced in tests to drive ticks by hand.
	newTicker func(d time.Duration) (<-chan time.Time, func())

	// mu serializes Start and Stop.
	mu         sync.Mutex
	stopCh     chan struct{}
	done       chan struct{}
	unregister func()

	// gate is read-held by producers and write-held while the engine changes state,
	// so no sample touches the windows once Stop has closed it.
	gate      sync.RWMutex
	accepting bool
	nodWin    *window.Window[float64]
	shakeWin  *window.Window[float64]

	latestMu  sync.Mutex
	latest    orientation.Angles
	hasLatest bool

	listening                           atomic.Bool
	ticks, samples, nods, shakes, winks atomic.Uint64
}

// New creates a stopped engine. A nil extractor selects orientation.GravityExtractor.
func New(cfg Config, src sensor.Source, extractor orientation.Extractor, l Listener, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, errors.New("engine: nil source")
	}
	if l == nil {
		return nil, errors.New("engine: nil listener")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	nodCls, err := gesture.New(cfg.Nod)
	if err != nil {
		return nil, fmt.Errorf("engine: nod classifier: %w", err)
	}
	shakeCls, err := gesture.New(cfg.Shake)
	if err != nil {
		return nil, fmt.Errorf("engine: shake classifier: %w", err)
	}
	if extractor == nil {
		extractor = orientation.GravityExtractor{}
	}

	e := &Engine{
		cfg:       cfg,
		src:       src,
		extractor: extractor,
		listener:  l,
		nodCls:    nodCls,
		shakeCls:  shakeCls,
		newTicker: realTicker,
		nodWin:    window.New[float64](cfg.WindowSize),
		shakeWin:  window.New[float64](cfg.WindowSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start subscribes to the sensor and starts the consumer goroutine. It returns nil
// without effect when already listening. If the sensor cannot be subscribed the engine
// stays stopped and the error wraps ErrSensorUnavailable.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopCh != nil {
		return nil
	}

	e.gate.Lock()
	e.nodWin = window.New[float64](e.cfg.WindowSize)
	e.shakeWin = window.New[float64](e.cfg.WindowSize)
	e.accepting = true
	e.gate.Unlock()

	e.latestMu.Lock()
	e.latest, e.hasLatest = orientation.Angles{}, false
	e.latestMu.Unlock()

	if err := e.src.Subscribe(e.handleSample); err != nil {
		e.gate.Lock()
		e.accepting = false
		e.gate.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrSensorUnavailable, e.src.Name(), err)
	}

	if e.bus != nil {
		e.unregister = e.bus.Register(broadcast.EyeGestureAction, WinkPriority, &WinkRelay{engine: e})
	}

	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	go e.run(e.stopCh, e.done)
	e.listening.Store(true)

	e.metrics.SetListening(true)
	slog.Info("gesture engine started",
		"source", e.src.Name(),
		"tick", e.cfg.TickInterval,
		"window", e.cfg.WindowSize,
		"sampling", e.cfg.Sampling)
	return nil
}

// Stop unsubscribes from the sensor, joins the consumer goroutine and clears both
// windows. It is idempotent. After Stop returns no tick runs and no window changes.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopCh == nil {
		return
	}

	e.src.Unsubscribe()
	if e.unregister != nil {
		e.unregister()
		e.unregister = nil
	}

	e.gate.Lock()
	e.accepting = false
	e.gate.Unlock()

	close(e.stopCh)
	<-e.done
	e.stopCh, e.done = nil, nil
	e.listening.Store(false)

	e.nodWin.Clear()
	e.shakeWin.Clear()

	e.metrics.SetListening(false)
	slog.Info("gesture engine stopped", "source", e.src.Name())
}

// Listening reports whether the engine is started.
func (e *Engine) Listening() bool {
	return e.listening.Load()
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Ticks:      e.ticks.Load(),
		Samples:    e.samples.Load(),
		Nods:       e.nods.Load(),
		HeadShakes: e.shakes.Load(),
		Winks:      e.winks.Load(),
	}
}

// Windows returns copies of the nod and shake windows, oldest first.
func (e *Engine) Windows() (nod, shake []float64) {
	e.gate.RLock()
	defer e.gate.RUnlock()
	return e.nodWin.Snapshot(), e.shakeWin.Snapshot()
}

// handleSample is the producer. It never classifies.
func (e *Engine) handleSample(v orientation.Vector) {
	e.gate.RLock()
	defer e.gate.RUnlock()

	if !e.accepting {
		return
	}

	a := e.extractor.Extract(v)
	e.samples.Add(1)
	e.metrics.Sample()

	switch e.cfg.Sampling {
	case SamplingSensor:
		e.nodWin.Push(a.Nod)
		e.shakeWin.Push(a.Shake)
	default:
		e.latestMu.Lock()
		e.latest, e.hasLatest = a, true
		e.latestMu.Unlock()
	}
}

func (e *Engine) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	c, stop := e.newTicker(e.cfg.TickInterval)
	defer stop()

	for {
		select {
		case <-stopCh:
			return
		case <-c:
			e.tick()
		}
	}
}

// tick is the consumer step: sample, classify, debounce.
func (e *Engine) tick() {
	start := time.Now()

	if e.cfg.Sampling == SamplingTick {
		e.latestMu.Lock()
		a, ok := e.latest, e.hasLatest
		e.latestMu.Unlock()
		if ok {
			e.nodWin.Push(a.Nod)
			e.shakeWin.Push(a.Shake)
		}
	}

	nodVals := e.nodWin.Snapshot()
	shakeVals := e.shakeWin.Snapshot()
	isNod := e.nodCls.Classify(nodVals)
	isShake := e.shakeCls.Classify(shakeVals)

	e.metrics.Tick(time.Since(start))
	defer e.ticks.Add(1)

	switch {
	case isNod && !isShake:
		e.fireNod(nodVals)
	case !isNod && isShake:
		e.fireHeadShake(shakeVals)
	case isNod && isShake:
		if e.cfg.Conflict == ConflictNodPriority {
			e.fireNod(nodVals)
			return
		}
		slog.Debug("nod and head shake both matched, suppressing", "nod", nodVals, "shake", shakeVals)
	}
}

func (e *Engine) fireNod(vals []float64) {
	e.nodWin.Clear()
	e.metrics.WindowCleared("nod")
	e.nods.Add(1)
	e.metrics.Gesture(string(gesture.KindNod))
	slog.Debug("nod detected", "window", vals)
	e.listener.OnNod()
}

func (e *Engine) fireHeadShake(vals []float64) {
	e.shakeWin.Clear()
	e.metrics.WindowCleared("shake")
	e.shakes.Add(1)
	e.metrics.Gesture(string(gesture.KindHeadShake))
	slog.Debug("head shake detected", "window", vals)
	e.listener.OnHeadShake()
}
