package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/nodwatch/internal/engine"
	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/sensor"
)

// Replay streams the stored recording id into the push source and returns when it has
// been sent or ctx is cancelled. interval <= 0 uses the recording's own interval.
func (a *App) Replay(ctx context.Context, id string, interval time.Duration) error {
	vecs, interval, err := a.loadRecording(id, interval)
	if err != nil {
		return err
	}
	if !a.Listening() {
		return ErrNotListening
	}
	if !a.replaying.CompareAndSwap(false, true) {
		return ErrReplayInProgress
	}
	defer a.replaying.Store(false)

	return a.replay(ctx, id, vecs, interval)
}

// ReplayBatch listens only for the duration of one replay of recording id and returns
// the engine counters afterwards. The remembered listening state is left untouched.
func (a *App) ReplayBatch(ctx context.Context, id string, interval time.Duration) (engine.Stats, error) {
	if a.Listening() {
		return engine.Stats{}, ErrReplayInProgress
	}
	if err := a.engine.Start(); err != nil {
		return engine.Stats{}, err
	}
	defer a.engine.Stop()

	if err := a.Replay(ctx, id, interval); err != nil {
		return engine.Stats{}, fmt.Errorf("replay %s: %w", id, err)
	}

	// a few ticks classify the tail of the recording
	select {
	case <-ctx.Done():
	case <-time.After(3 * a.engine.Config().TickInterval):
	}
	return a.engine.Stats(), nil
}

// StartReplay validates the request like Replay and then streams in the background.
func (a *App) StartReplay(id string, interval time.Duration) error {
	vecs, interval, err := a.loadRecording(id, interval)
	if err != nil {
		return err
	}
	if !a.Listening() {
		return ErrNotListening
	}
	if !a.replaying.CompareAndSwap(false, true) {
		return ErrReplayInProgress
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.replaying.Store(false)

		if err := a.replay(a.ctx, id, vecs, interval); err != nil {
			slog.Warn("replay interrupted", "recording", id, "err", err)
		}
	}()
	return nil
}

func (a *App) replay(ctx context.Context, id string, vecs []orientation.Vector, interval time.Duration) error {
	slog.Info("replaying recording", "recording", id, "samples", len(vecs), "interval", interval)
	return sensor.Replay(ctx, a.push, vecs, interval)
}

func (a *App) loadRecording(id string, interval time.Duration) ([]orientation.Vector, time.Duration, error) {
	rec, err := a.config.Store.Recordings().GetByID(id)
	if err != nil {
		return nil, 0, err
	}
	samples, err := a.config.Store.Recordings().Samples(id)
	if err != nil {
		return nil, 0, err
	}

	if interval <= 0 {
		interval = time.Duration(rec.IntervalMs) * time.Millisecond
	}

	vecs := make([]orientation.Vector, len(samples))
	for i, s := range samples {
		vecs[i] = orientation.Vector{X: s.X, Y: s.Y, Z: s.Z}
	}
	return vecs, interval, nil
}
