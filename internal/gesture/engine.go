package gesture

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Observation is one classifier tick: a labelled prediction or the absence of a hand.
type Observation struct {
	Label      Symbol
	Confidence float64
	Absent     bool
}

// Observed returns a present observation.
func Observed(label Symbol, confidence float64) Observation {
	return Observation{Label: label, Confidence: confidence}
}

// NoHand returns the observation for a frame without a detected hand.
func NoHand() Observation {
	return Observation{Absent: true}
}

// Clamp forces Confidence into [0,1]. NaN becomes 0.
func (o Observation) Clamp() Observation {
	switch {
	case math.IsNaN(o.Confidence), o.Confidence < 0:
		o.Confidence = 0
	case o.Confidence > 1:
		o.Confidence = 1
	}
	return o
}

// ActionKind enumerates the outcomes of a tick.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionAppend
	ActionDelete
	ActionCommit
)

func (k ActionKind) String() string {
	switch k {
	case ActionAppend:
		return "append"
	case ActionDelete:
		return "delete"
	case ActionCommit:
		return "commit"
	default:
		return "none"
	}
}

// Action is what a tick produced. Symbol is set only for ActionAppend.
type Action struct {
	Kind   ActionKind
	Symbol Symbol
}

// Config holds the tick-counted thresholds of the confirmation engine.
// All counts are in ticks, so their wall-clock meaning depends on the feed rate.
type Config struct {
	// ConfirmationThreshold is the number of consecutive identical frames needed to confirm a symbol.
	ConfirmationThreshold int
	// ConfidenceThreshold is the minimum confidence for a frame to count.
	ConfidenceThreshold float64
	// NoHandThreshold is the number of absent frames that commits the current word.
	NoHandThreshold int
	// ResetThreshold is the number of absent frames that clears repeat suppression.
	ResetThreshold int
	// CooldownLength is the number of frames ignored after a confirmation.
	CooldownLength int
	// Alphabet selects whether control symbols are recognised.
	Alphabet Alphabet
}

// DefaultConfig returns the standard profile: 0.2s confirmation, 1s word commit and
// 0.75s cooldown at 20 ticks per second, with control symbols.
func DefaultConfig() Config {
	return Config{
		ConfirmationThreshold: 4,
		ConfidenceThreshold:   0.6,
		NoHandThreshold:       20,
		ResetThreshold:        8,
		CooldownLength:        15,
		Alphabet:              AlphabetWithControls,
	}
}

// LettersConfig returns the letters-only profile, which waits longer before
// allowing the same letter to be signed again.
func LettersConfig() Config {
	cfg := DefaultConfig()
	cfg.ResetThreshold = 10
	cfg.Alphabet = AlphabetLetters
	return cfg
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	var errs []error
	if c.ConfirmationThreshold < 1 {
		errs = append(errs, fmt.Errorf("confirmation threshold must be at least 1, got %d", c.ConfirmationThreshold))
	}
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold))
	}
	if c.NoHandThreshold < 1 {
		errs = append(errs, fmt.Errorf("no-hand threshold must be at least 1, got %d", c.NoHandThreshold))
	}
	if c.ResetThreshold < 1 {
		errs = append(errs, fmt.Errorf("reset threshold must be at least 1, got %d", c.ResetThreshold))
	}
	if c.ResetThreshold > c.NoHandThreshold {
		errs = append(errs, fmt.Errorf("reset threshold %d exceeds no-hand threshold %d", c.ResetThreshold, c.NoHandThreshold))
	}
	if c.CooldownLength < 0 {
		errs = append(errs, fmt.Errorf("cooldown length must not be negative, got %d", c.CooldownLength))
	}
	if c.Alphabet != AlphabetWithControls && c.Alphabet != AlphabetLetters {
		errs = append(errs, fmt.Errorf("unknown alphabet %d", c.Alphabet))
	}
	return errors.Join(errs...)
}

// State is everything the engine remembers between ticks.
type State struct {
	LastConfirmed      Symbol
	ConfirmationCount  int
	NoObservationCount int
	CooldownRemaining  int
	JustCommitted      bool
	Letters            []Symbol
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Letters = slices.Clone(s.Letters)
	return s
}

// Step is the transition function of the confirmation engine. It never mutates
// the Letters slice of the input state.
//
// Order of gates for a present observation: confidence, cooldown, repeat-vs-new
// symbol, then threshold with repeat suppression.
func Step(cfg Config, s State, obs Observation) (State, Action) {
	if obs.Absent {
		s.NoObservationCount++
		if s.NoObservationCount >= cfg.ResetThreshold {
			s.JustCommitted = false
			s.LastConfirmed = None
			s.ConfirmationCount = 0
			s.CooldownRemaining = 0
		}
		if s.NoObservationCount >= cfg.NoHandThreshold && len(s.Letters) > 0 {
			s.NoObservationCount = 0
			return s, Action{Kind: ActionCommit}
		}
		return s, Action{}
	}

	s.NoObservationCount = 0

	if obs.Confidence < cfg.ConfidenceThreshold || !cfg.Alphabet.Contains(obs.Label) {
		s.ConfirmationCount = 0
		return s, Action{}
	}

	if s.CooldownRemaining > 0 {
		s.CooldownRemaining--
		return s, Action{}
	}

	if obs.Label == s.LastConfirmed {
		s.ConfirmationCount++
	} else {
		s.LastConfirmed = obs.Label
		s.ConfirmationCount = 1
		s.JustCommitted = false
	}

	if s.ConfirmationCount < cfg.ConfirmationThreshold || s.JustCommitted {
		return s, Action{}
	}

	s.JustCommitted = true
	s.CooldownRemaining = cfg.CooldownLength
	s.ConfirmationCount = 0

	switch obs.Label {
	case Nothing:
		return s, Action{}
	case Space:
		return s, Action{Kind: ActionCommit}
	case Delete:
		if n := len(s.Letters); n > 0 {
			s.Letters = slices.Clone(s.Letters[:n-1])
		}
		return s, Action{Kind: ActionDelete}
	default:
		letters := make([]Symbol, len(s.Letters), len(s.Letters)+1)
		copy(letters, s.Letters)
		s.Letters = append(letters, obs.Label)
		return s, Action{Kind: ActionAppend, Symbol: obs.Label}
	}
}

// Engine owns one State and applies Step to it. It is not safe for concurrent use;
// callers feed it from a single tick loop.
type Engine struct {
	cfg   Config
	state State
}

// NewEngine creates an engine with an empty state.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Step advances the engine by one tick.
func (e *Engine) Step(obs Observation) Action {
	var act Action
	e.state, act = Step(e.cfg, e.state, obs)
	return act
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state.Clone()
}

// Letters returns a copy of the in-progress word.
func (e *Engine) Letters() []Symbol {
	return slices.Clone(e.state.Letters)
}

// Backspace removes the last letter. It reports false when the buffer was already empty.
func (e *Engine) Backspace() bool {
	n := len(e.state.Letters)
	if n == 0 {
		return false
	}
	e.state.Letters = e.state.Letters[:n-1]
	return true
}

// TakeWord returns the buffered letters and clears the buffer.
func (e *Engine) TakeWord() []Symbol {
	letters := e.state.Letters
	e.state.Letters = nil
	return letters
}

// Reset clears the buffer and every counter.
func (e *Engine) Reset() {
	e.state = State{}
}
