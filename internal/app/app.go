// Package app wires the gesture engine to persistence, live clients and plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/nodwatch/internal/broadcast"
	"github.com/ayusman/nodwatch/internal/engine"
	"github.com/ayusman/nodwatch/internal/gesture"
	"github.com/ayusman/nodwatch/internal/metrics"
	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/plugin"
	"github.com/ayusman/nodwatch/internal/sensor"
	"github.com/ayusman/nodwatch/internal/store"
)

// Errors returned by App.
var (
	ErrNotListening     = errors.New("app: not listening")
	ErrReplayInProgress = errors.New("app: replay already in progress")
)

// eventQueueSize bounds the gestures waiting to be persisted and dispatched.
const eventQueueSize = 64

// winkSource is the event source recorded for relayed winks.
const winkSource = "broadcast"

// Publisher receives every detected gesture, e.g. a websocket hub.
type Publisher interface {
	Publish(v any)
}

// Notifier shows the current state to the user, e.g. a tray menu.
type Notifier interface {
	SetListening(listening bool)
	SetLastGesture(kind string, at time.Time)
}

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Engine    engine.Config
	Extractor orientation.Extractor
	// Sources are read in addition to the built-in push source.
	Sources  []sensor.Source
	Plugins  *plugin.Manager
	Executor *plugin.Executor
	Metrics  *metrics.Metrics
	Events   Publisher
}

// App is the main application that orchestrates gesture detection and action execution.
type App struct {
	config Config
	push   *sensor.Push
	bus    *broadcast.Bus
	engine *engine.Engine
	source string

	notifierMu sync.RWMutex
	notifier   Notifier

	// queueMu guards closing queue against late winks.
	queueMu   sync.RWMutex
	closed    bool
	queue     chan *store.Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	replaying atomic.Bool
}

// New creates the application and its stopped engine.
func New(config Config) (*App, error) {
	if config.Store == nil {
		return nil, errors.New("app: nil store")
	}
	if config.Executor == nil {
		config.Executor = plugin.NewExecutor(0)
	}

	a := &App{
		config: config,
		push:   sensor.NewPush("push"),
		bus:    broadcast.NewBus(),
		queue:  make(chan *store.Event, eventQueueSize),
	}

	var src sensor.Source = a.push
	if len(config.Sources) > 0 {
		src = sensor.NewMulti(append([]sensor.Source{a.push}, config.Sources...)...)
	}
	a.source = src.Name()

	eng, err := engine.New(config.Engine, src, config.Extractor, a,
		engine.WithMetrics(config.Metrics),
		engine.WithBus(a.bus))
	if err != nil {
		return nil, err
	}
	a.engine = eng

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.wg.Add(1)
	go a.processEvents()

	return a, nil
}

// SetNotifier attaches n, which may be nil.
func (a *App) SetNotifier(n Notifier) {
	a.notifierMu.Lock()
	a.notifier = n
	a.notifierMu.Unlock()

	if n != nil {
		n.SetListening(a.Listening())
	}
}

func (a *App) currentNotifier() Notifier {
	a.notifierMu.RLock()
	defer a.notifierMu.RUnlock()
	return a.notifier
}

// Start begins listening and remembers the choice for the next launch.
func (a *App) Start() error {
	if err := a.engine.Start(); err != nil {
		if n := a.currentNotifier(); n != nil {
			n.SetListening(false)
		}
		return err
	}
	return a.setListening(true)
}

// Stop ends listening and remembers the choice for the next launch.
func (a *App) Stop() error {
	a.engine.Stop()
	return a.setListening(false)
}

func (a *App) setListening(on bool) error {
	if n := a.currentNotifier(); n != nil {
		n.SetListening(on)
	}
	if err := a.config.Store.Settings().Set(store.SettingListening, strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("app: persist listening state: %w", err)
	}
	return nil
}

// Resume starts listening when the previous run ended while listening. A fresh store
// leaves the engine stopped.
func (a *App) Resume() error {
	v, err := a.config.Store.Settings().Get(store.SettingListening)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("app: read listening state: %w", err)
	}
	if on, _ := strconv.ParseBool(v); !on {
		return nil
	}

	slog.Info("resuming gesture listening")
	return a.Start()
}

// Listening reports whether the engine is started.
func (a *App) Listening() bool {
	return a.engine.Listening()
}

// Stats returns the engine counters.
func (a *App) Stats() engine.Stats {
	return a.engine.Stats()
}

// Push returns the in-process sensor source fed by websocket clients and replays.
func (a *App) Push() *sensor.Push {
	return a.push
}

// Bus returns the broadcast bus the wink relay listens on.
func (a *App) Bus() *broadcast.Bus {
	return a.bus
}

// Engine returns the gesture engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Close stops the engine without touching the remembered listening state, then drains
// queued events and waits for running plugins.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.engine.Stop()

		a.queueMu.Lock()
		a.closed = true
		close(a.queue)
		a.queueMu.Unlock()

		a.cancel()
		a.wg.Wait()
	})
}

// OnNod implements engine.Listener.
func (a *App) OnNod() { a.handle(gesture.KindNod, a.source) }

// OnHeadShake implements engine.Listener.
func (a *App) OnHeadShake() { a.handle(gesture.KindHeadShake, a.source) }

// OnWink implements engine.Listener.
func (a *App) OnWink() { a.handle(gesture.KindWink, winkSource) }

// handle runs on the engine's goroutine, so everything slow is queued.
func (a *App) handle(kind gesture.Kind, source string) {
	e := &store.Event{Kind: string(kind), Source: source, DetectedAt: time.Now().UTC()}
	slog.Info("gesture detected", "kind", kind, "source", source)

	if n := a.currentNotifier(); n != nil {
		n.SetLastGesture(string(kind), e.DetectedAt)
	}

	a.queueMu.RLock()
	defer a.queueMu.RUnlock()

	if a.closed {
		slog.Debug("dropping gesture after shutdown", "kind", kind)
		return
	}
	select {
	case a.queue <- e:
	default:
		slog.Warn("event queue full, dropping gesture", "kind", kind)
	}
}

func (a *App) processEvents() {
	defer a.wg.Done()

	for e := range a.queue {
		if err := a.config.Store.Events().Create(e); err != nil {
			slog.Error("failed to persist gesture event", "kind", e.Kind, "err", err)
		}
		if a.config.Events != nil {
			a.config.Events.Publish(e)
		}
		a.dispatch(e)
	}
}
