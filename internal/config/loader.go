package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/gesture"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// A missing file yields [Default].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates the result.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Engine.Profile != "" && !cfg.Engine.Profile.IsValid() {
		errs = append(errs, fmt.Errorf("engine.profile %q is invalid; valid values: standard, letters", cfg.Engine.Profile))
	}
	if _, ok := gesture.ParseAlphabet(cfg.Engine.Alphabet); !ok {
		errs = append(errs, fmt.Errorf("engine.alphabet %q is invalid; valid values: controls, letters", cfg.Engine.Alphabet))
	}
	if err := cfg.Engine.Gesture().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}

	if cfg.Spell.MaxLengthDelta < 0 {
		errs = append(errs, fmt.Errorf("spell.max_length_delta must not be negative, got %d", cfg.Spell.MaxLengthDelta))
	}

	if cfg.Capture.TickHz < 1 || cfg.Capture.TickHz > 120 {
		errs = append(errs, fmt.Errorf("capture.tick_hz must be in [1,120], got %d", cfg.Capture.TickHz))
	}
	if cfg.Capture.CameraID < 0 {
		errs = append(errs, fmt.Errorf("capture.camera_id must not be negative, got %d", cfg.Capture.CameraID))
	}

	if cfg.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be at least 1, got %d", cfg.Detector.MaxHands))
	}
	if cfg.Detector.MinConfidence < 0 || cfg.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence must be in [0,1], got %v", cfg.Detector.MinConfidence))
	}
	if cfg.Detector.MinTrackingConfidence < 0 || cfg.Detector.MinTrackingConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_tracking_confidence must be in [0,1], got %v", cfg.Detector.MinTrackingConfidence))
	}
	if cfg.Detector.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("detector.tolerance must be positive, got %v", cfg.Detector.Tolerance))
	}

	if cfg.Plugins.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("plugins.timeout_ms must be positive, got %d", cfg.Plugins.TimeoutMS))
	}
	if _, err := cfg.Plugins.SettingsJSON(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
