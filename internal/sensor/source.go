// Package sensor provides the orientation sample sources the gesture engine consumes.
package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/nodwatch/internal/orientation"
)

// ErrUnavailable is returned by Subscribe when the underlying sensor cannot be reached.
var ErrUnavailable = errors.New("sensor unavailable")

// Handler receives samples. It is called from the source's delivery goroutine and must
// return quickly.
type Handler func(v orientation.Vector)

// Source delivers orientation samples to a single subscriber.
type Source interface {
	Name() string
	// Subscribe starts delivery to h. It fails with an error wrapping ErrUnavailable
	// when the sensor cannot be reached.
	Subscribe(h Handler) error
	// Unsubscribe stops delivery. It is safe to call when not subscribed.
	Unsubscribe()
}

// Push is an in-process Source fed through Publish.
type Push struct {
	name    string
	mu      sync.RWMutex
	handler Handler
}

// NewPush creates a Push source with the given name.
func NewPush(name string) *Push {
	return &Push{name: name}
}

// Name implements Source.
func (p *Push) Name() string { return p.name }

// Subscribe implements Source. A later Subscribe replaces the previous handler.
func (p *Push) Subscribe(h Handler) error {
	if h == nil {
		return fmt.Errorf("sensor %s: nil handler", p.name)
	}
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
	return nil
}

// Unsubscribe implements Source.
func (p *Push) Unsubscribe() {
	p.mu.Lock()
	p.handler = nil
	p.mu.Unlock()
}

// Publish delivers v to the subscriber and reports whether anyone was subscribed.
func (p *Push) Publish(v orientation.Vector) bool {
	p.mu.RLock()
	h := p.handler
	p.mu.RUnlock()

	if h == nil {
		return false
	}
	h(v)
	return true
}

// Subscribed reports whether a handler is attached.
func (p *Push) Subscribed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.handler != nil
}

// Multi fans several sources into one subscriber.
type Multi struct {
	sources []Source
}

// NewMulti combines sources. Subscribe is all-or-nothing.
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

// Name implements Source.
func (m *Multi) Name() string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// Subscribe implements Source.
func (m *Multi) Subscribe(h Handler) error {
	for i, s := range m.sources {
		if err := s.Subscribe(h); err != nil {
			for _, prev := range m.sources[:i] {
				prev.Unsubscribe()
			}
			return err
		}
	}
	return nil
}

// Unsubscribe implements Source.
func (m *Multi) Unsubscribe() {
	for _, s := range m.sources {
		s.Unsubscribe()
	}
}

// Replay publishes samples into p, one every interval. It returns ctx.Err() when
// cancelled before the last sample.
func Replay(ctx context.Context, p *Push, samples []orientation.Vector, interval time.Duration) error {
	if len(samples) == 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, v := range samples {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Publish(v)
		}
	}
	return nil
}

// ParseVector parses a text line of three numbers separated by commas, semicolons or
// whitespace.
func ParseVector(line string) (orientation.Vector, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return orientation.Vector{}, fmt.Errorf("sensor: want 3 components, got %d in %q", len(fields), line)
	}

	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return orientation.Vector{}, fmt.Errorf("sensor: component %d: %w", i, err)
		}
		c[i] = v
	}
	return orientation.Vector{X: c[0], Y: c[1], Z: c[2]}, nil
}

// DecodeVector decodes a JSON payload, either {"x":..,"y":..,"z":..} or [x, y, z].
func DecodeVector(payload []byte) (orientation.Vector, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var arr []float64
		if err := json.Unmarshal(payload, &arr); err != nil {
			return orientation.Vector{}, fmt.Errorf("sensor: decode array: %w", err)
		}
		if len(arr) != 3 {
			return orientation.Vector{}, fmt.Errorf("sensor: want 3 components, got %d", len(arr))
		}
		return orientation.Vector{X: arr[0], Y: arr[1], Z: arr[2]}, nil
	}

	var v orientation.Vector
	if err := json.Unmarshal(payload, &v); err != nil {
		return orientation.Vector{}, fmt.Errorf("sensor: decode object: %w", err)
	}
	return v, nil
}
