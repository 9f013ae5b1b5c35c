// Package hook runs user executables when the punch alert starts or stops.
package hook

import (
	"encoding/json"
	"slices"
	"time"
)

// Event names a hook can subscribe to.
const (
	EventAlertStart = "alert_start"
	EventAlertStop  = "alert_stop"
)

// Manifest describes a hook's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin as JSON.
type Request struct {
	Event  string          `json:"event"`
	Label  string          `json:"label"`
	At     time.Time       `json:"at"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribed to event. A manifest with no events
// receives all of them.
func (h *Hook) Handles(event string) bool {
	return len(h.Manifest.Events) == 0 || slices.Contains(h.Manifest.Events, event)
}
