// Package config provides the configuration schema and loader for mudra.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/gesture"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching slog level. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Profile names a preset of engine thresholds.
type Profile string

const (
	// ProfileStandard recognises letters plus the nothing/space/del controls.
	ProfileStandard Profile = "standard"

	// ProfileLetters recognises letters only and waits longer before a repeat.
	ProfileLetters Profile = "letters"
)

// IsValid reports whether p is a known profile.
func (p Profile) IsValid() bool {
	return p == ProfileStandard || p == ProfileLetters
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Engine   EngineConfig   `yaml:"engine"`
	Spell    SpellConfig    `yaml:"spell"`
	Capture  CaptureConfig  `yaml:"capture"`
	Detector DetectorConfig `yaml:"detector"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Tray     TrayConfig     `yaml:"tray"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on.
	ListenAddr string `yaml:"listen_addr"`

	// StaticDir is served at /. Empty disables static files.
	StaticDir string `yaml:"static_dir"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	// Path of the database file. Empty means ~/.mudra/mudra.db.
	Path string `yaml:"path"`
}

// EngineConfig selects a threshold profile and optionally overrides single values.
type EngineConfig struct {
	Profile Profile `yaml:"profile"`

	ConfirmationThreshold *int     `yaml:"confirmation_threshold,omitempty"`
	ConfidenceThreshold   *float64 `yaml:"confidence_threshold,omitempty"`
	NoHandThreshold       *int     `yaml:"no_hand_threshold,omitempty"`
	ResetThreshold        *int     `yaml:"reset_threshold,omitempty"`
	CooldownLength        *int     `yaml:"cooldown_length,omitempty"`

	// Alphabet is "controls" or "letters". Empty keeps the profile's alphabet.
	Alphabet string `yaml:"alphabet,omitempty"`
}

// Gesture returns the engine configuration: the profile preset with any
// explicit values applied on top.
func (e EngineConfig) Gesture() gesture.Config {
	cfg := gesture.DefaultConfig()
	if e.Profile == ProfileLetters {
		cfg = gesture.LettersConfig()
	}
	if e.ConfirmationThreshold != nil {
		cfg.ConfirmationThreshold = *e.ConfirmationThreshold
	}
	if e.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *e.ConfidenceThreshold
	}
	if e.NoHandThreshold != nil {
		cfg.NoHandThreshold = *e.NoHandThreshold
	}
	if e.ResetThreshold != nil {
		cfg.ResetThreshold = *e.ResetThreshold
	}
	if e.CooldownLength != nil {
		cfg.CooldownLength = *e.CooldownLength
	}
	if a, ok := gesture.ParseAlphabet(e.Alphabet); ok && e.Alphabet != "" {
		cfg.Alphabet = a
	}
	return cfg
}

// SpellConfig controls word correction.
type SpellConfig struct {
	// Autocorrect is the initial state of the autocorrect toggle. A value
	// saved in the store takes precedence.
	Autocorrect bool `yaml:"autocorrect"`

	// Dictionary is a word-per-line file. Empty uses the built-in list.
	Dictionary string `yaml:"dictionary"`

	// MaxLengthDelta bounds the length difference of scanned entries.
	MaxLengthDelta int `yaml:"max_length_delta"`
}

// CaptureConfig controls the camera loop.
type CaptureConfig struct {
	Enabled  bool `yaml:"enabled"`
	CameraID int  `yaml:"camera_id"`

	// TickHz is the fixed observation rate. Engine thresholds count these ticks.
	TickHz int `yaml:"tick_hz"`

	// Mirror flips frames horizontally before detection, so a front camera
	// reports the signing hand the way the signer sees it.
	Mirror bool `yaml:"mirror"`
}

// DetectorConfig configures hand detection and template matching.
type DetectorConfig struct {
	MaxHands              int     `yaml:"max_hands"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MinTrackingConfidence float64 `yaml:"min_tracking_confidence"`

	// Tolerance is the default template match distance.
	Tolerance float64 `yaml:"tolerance"`
}

// PluginsConfig selects the plugins that receive committed words.
type PluginsConfig struct {
	// Dir is scanned for plugin.json manifests. Empty means ~/.mudra/plugins.
	Dir string `yaml:"dir"`

	// Speak names the plugin that voices each word. Empty disables it.
	Speak string `yaml:"speak"`

	// Type names the plugin that types each word. Empty disables it.
	Type string `yaml:"type"`

	TimeoutMS int `yaml:"timeout_ms"`

	// Settings holds per-plugin options keyed by plugin name. Each entry is
	// sent to that plugin as the request config.
	Settings map[string]map[string]any `yaml:"settings"`
}

// SettingsJSON encodes Settings for the plugin requests.
func (p PluginsConfig) SettingsJSON() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(p.Settings))
	for name, settings := range p.Settings {
		raw, err := json.Marshal(settings)
		if err != nil {
			return nil, fmt.Errorf("plugins.settings.%s: %w", name, err)
		}
		out[name] = raw
	}
	return out, nil
}

// TrayConfig controls the menu bar icon.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Engine: EngineConfig{Profile: ProfileStandard},
		Spell: SpellConfig{
			Autocorrect:    true,
			MaxLengthDelta: 2,
		},
		Capture: CaptureConfig{TickHz: 20},
		Detector: DetectorConfig{
			MaxHands:              1,
			MinConfidence:         0.7,
			MinTrackingConfidence: 0.5,
			Tolerance:             1.5,
		},
		Plugins: PluginsConfig{
			Speak:     "speech",
			TimeoutMS: 5000,
		},
	}
}

// DataDir returns ~/.mudra, where the database, plugins and web assets live by default.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mudra"), nil
}
