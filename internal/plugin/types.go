// Package plugin discovers and runs external gesture plugins.
//
// A plugin is a directory holding a plugin.json manifest and an executable. The executable
// receives a JSON Request on stdin and answers with a JSON Response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Gestures lists the gesture kinds the plugin handles without an explicit binding.
	Gestures     []string        `json:"gestures,omitempty"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the manifest subscribes to gesture kind.
func (m Manifest) Handles(kind string) bool {
	return slices.Contains(m.Gestures, kind)
}

// DefaultAction is the action sent to a manifest-subscribed plugin: its first declared
// action, or the gesture kind itself when it declares none.
func (m Manifest) DefaultAction(kind string) string {
	if len(m.Actions) > 0 {
		return m.Actions[0]
	}
	return kind
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action     string          `json:"action"`
	Gesture    string          `json:"gesture"`
	DetectedAt time.Time       `json:"detected_at"`
	Config     json.RawMessage `json:"config,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
