package engine

import (
	"log/slog"

	"github.com/ayusman/nodwatch/internal/broadcast"
	"github.com/ayusman/nodwatch/internal/gesture"
)

// WinkPriority places the relay ahead of ordinary eye-gesture receivers.
const WinkPriority = 1000

// WinkGesture is the eye-gesture extra value that identifies a wink.
const WinkGesture = "WINK"

// WinkRelay consumes wink broadcasts and forwards them to the engine's listener.
// Other eye gestures pass through to lower-priority receivers.
type WinkRelay struct {
	engine *Engine
}

// Receive implements broadcast.Receiver. A send already in flight when Stop runs
// may still reach the relay; it then leaves the message untouched.
func (r *WinkRelay) Receive(m *broadcast.Message) {
	if m.Action != broadcast.EyeGestureAction || m.Extra("gesture") != WinkGesture {
		return
	}

	e := r.engine
	e.gate.RLock()
	defer e.gate.RUnlock()
	if !e.accepting {
		return
	}
	m.Abort()

	e.winks.Add(1)
	e.metrics.Gesture(string(gesture.KindWink))
	slog.Debug("wink detected")
	e.listener.OnWink()
}
