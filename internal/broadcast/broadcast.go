// Package broadcast delivers out-of-band platform messages to receivers in priority order.
// A receiver may abort a message, which stops delivery to lower-priority receivers.
package broadcast

import (
	"sort"
	"sync"
)

// EyeGestureAction is the action carried by eye-gesture broadcasts.
const EyeGestureAction = "eye_gesture"

// Message is a single broadcast.
type Message struct {
	Action string            `json:"action"`
	Extras map[string]string `json:"extras,omitempty"`

	aborted bool
}

// Extra returns the named extra, or "" when absent.
func (m *Message) Extra(key string) string {
	if m.Extras == nil {
		return ""
	}
	return m.Extras[key]
}

// Abort stops delivery of m to any remaining receivers.
func (m *Message) Abort() {
	m.aborted = true
}

// Aborted reports whether a receiver consumed m.
func (m *Message) Aborted() bool {
	return m.aborted
}

// Receiver handles broadcasts.
type Receiver interface {
	Receive(m *Message)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(m *Message)

// Receive implements Receiver.
func (f ReceiverFunc) Receive(m *Message) { f(m) }

type registration struct {
	id       uint64
	action   string
	priority int
	receiver Receiver
}

// Bus routes messages to registered receivers. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	regs   []registration
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Register adds r for messages whose Action equals action. Higher priorities receive
// first; equal priorities keep registration order. The returned function removes the
// registration and is safe to call more than once.
func (b *Bus) Register(action string, priority int, r Receiver) (unregister func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.regs = append(b.regs, registration{id: id, action: action, priority: priority, receiver: r})
	sort.SliceStable(b.regs, func(i, j int) bool {
		return b.regs[i].priority > b.regs[j].priority
	})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, reg := range b.regs {
		if reg.id == id {
			b.regs = append(b.regs[:i], b.regs[i+1:]...)
			return
		}
	}
}

// Send delivers m to matching receivers until one aborts it, and reports whether it was
// consumed. Receivers run on the caller's goroutine.
func (b *Bus) Send(m *Message) bool {
	b.mu.RLock()
	targets := make([]Receiver, 0, len(b.regs))
	for _, reg := range b.regs {
		if reg.action == m.Action {
			targets = append(targets, reg.receiver)
		}
	}
	b.mu.RUnlock()

	for _, r := range targets {
		r.Receive(m)
		if m.Aborted() {
			return true
		}
	}
	return false
}

// Len returns the number of registered receivers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.regs)
}
