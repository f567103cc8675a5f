// Package plugin runs external programs that act on committed words, such as
// speaking them aloud or typing them into the focused window.
package plugin

import (
	"encoding/json"
	"slices"
)

// ActionWord is the action sent when a word is committed.
const ActionWord = "word"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Action string `json:"action"`
	// Word is the committed word after correction.
	Word string `json:"word"`
	// Original is the word as signed, before correction.
	Original  string          `json:"original,omitempty"`
	Corrected bool            `json:"corrected,omitempty"`
	Session   string          `json:"session,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest Manifest
	// Path is the plugin directory; the executable runs there.
	Path       string
	Executable string
	// Config is sent as Request.Config unless the request carries its own.
	Config json.RawMessage
}
