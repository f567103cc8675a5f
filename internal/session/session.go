// Package session drives one fingerspelling session: it feeds observations to
// the confirmation engine, corrects committed words and keeps the state shown
// to the user.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/spell"
)

// Word is one committed word.
type Word struct {
	Text       string    `json:"text"`
	Raw        string    `json:"raw"`
	Corrected  bool      `json:"corrected"`
	Distance   int       `json:"distance"`
	Similarity float64   `json:"similarity"`
	At         time.Time `json:"at"`
}

// Snapshot is a read-only copy of everything the display shows.
type Snapshot struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	// Confidence is nil while no hand is in view.
	Confidence     *float64          `json:"confidence"`
	Buffer         string            `json:"buffer"`
	Words          []Word            `json:"words"`
	LastCorrection *spell.Correction `json:"last_correction,omitempty"`
	Autocorrect    bool              `json:"autocorrect"`
	Ticks          uint64            `json:"ticks"`
}

// Text joins the completed words with spaces.
func (s Snapshot) Text() string {
	texts := make([]string, len(s.Words))
	for i, w := range s.Words {
		texts[i] = w.Text
	}
	return strings.Join(texts, " ")
}

// Event is the result of one tick.
type Event struct {
	Action gesture.Action
	// Word is set when the tick committed a non-empty word.
	Word *Word
}

// Option configures a Session.
type Option func(*Session)

// WithAutocorrect sets whether committed words go through the corrector. Default: true.
func WithAutocorrect(on bool) Option {
	return func(s *Session) {
		s.autocorrect = on
	}
}

// WithMetrics records session activity on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithCorrector replaces the corrector built from the dictionary.
func WithCorrector(c *spell.Corrector) Option {
	return func(s *Session) {
		if c != nil {
			s.corrector = c
		}
	}
}

// WithID sets the session identifier instead of a random one.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Session serialises ticks and manual edits against one engine.
// It is safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	id          string
	engine      *gesture.Engine
	corrector   *spell.Corrector
	autocorrect bool
	metrics     *observe.Metrics

	symbol     gesture.Symbol
	confidence *float64
	words      []Word
	last       *spell.Correction
	ticks      uint64

	listenerMu    sync.RWMutex
	wordListeners []func(Word)
	tickListeners []func(Snapshot)

	now func() time.Time
}

// New creates a session over engine. A nil dictionary disables correction.
func New(engine *gesture.Engine, dict *spell.Dictionary, opts ...Option) *Session {
	s := &Session{
		id:          uuid.New().String(),
		engine:      engine,
		corrector:   spell.NewCorrector(dict),
		autocorrect: true,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// OnWord registers fn to be called after every committed word.
func (s *Session) OnWord(fn func(Word)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.wordListeners = append(s.wordListeners, fn)
}

// OnTick registers fn to be called with the display state after every tick
// and manual edit.
func (s *Session) OnTick(fn func(Snapshot)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.tickListeners = append(s.tickListeners, fn)
}

// Tick feeds one observation through the engine and applies its action.
func (s *Session) Tick(obs gesture.Observation) Event {
	obs = obs.Clamp()
	ctx := context.Background()

	s.mu.Lock()
	s.ticks++
	if obs.Absent {
		s.symbol, s.confidence = gesture.None, nil
	} else {
		c := obs.Confidence
		s.symbol, s.confidence = obs.Label, &c
	}

	before := len(s.engine.State().Letters)
	act := s.engine.Step(obs)
	ev := Event{Action: act}

	switch act.Kind {
	case gesture.ActionAppend:
		if s.metrics != nil {
			s.metrics.LettersAppended.Add(ctx, 1)
		}
	case gesture.ActionDelete:
		if s.metrics != nil && len(s.engine.State().Letters) < before {
			s.metrics.LettersDeleted.Add(ctx, 1)
		}
	case gesture.ActionCommit:
		ev.Word = s.commitLocked(ctx)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		kind := observe.TickPresent
		if obs.Absent {
			kind = observe.TickAbsent
		}
		s.metrics.RecordTick(ctx, kind)
	}

	s.notify(snap, ev.Word)
	return ev
}

// Backspace removes the last buffered letter. It reports false on an empty buffer.
func (s *Session) Backspace() bool {
	s.mu.Lock()
	ok := s.engine.Backspace()
	if ok && s.metrics != nil {
		s.metrics.LettersDeleted.Add(context.Background(), 1)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap, nil)
	return ok
}

// CommitNow commits the buffered word without waiting for the hand to leave.
// It returns nil when the buffer is empty.
func (s *Session) CommitNow() *Word {
	s.mu.Lock()
	w := s.commitLocked(context.Background())
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap, w)
	return w
}

// Clear drops the buffer, the completed words and every engine counter.
func (s *Session) Clear() {
	s.mu.Lock()
	s.engine.Reset()
	s.words = nil
	s.last = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap, nil)
}

// SetAutocorrect turns correction of committed words on or off.
func (s *Session) SetAutocorrect(on bool) {
	s.mu.Lock()
	s.autocorrect = on
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap, nil)
}

// Autocorrect reports whether committed words are corrected.
func (s *Session) Autocorrect() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autocorrect
}

// Snapshot returns the current display state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Correct runs the session corrector on raw without touching session state.
func (s *Session) Correct(raw string) spell.Correction {
	return s.corrector.Correct(raw)
}

// commitLocked takes the buffer, corrects it and appends the result.
// LastCorrection is replaced by the outcome of every non-empty commit.
// The caller holds s.mu.
func (s *Session) commitLocked(ctx context.Context) *Word {
	letters := s.engine.TakeWord()
	if len(letters) == 0 {
		return nil
	}
	raw := gesture.Word(letters)
	s.last = nil

	w := Word{Text: raw, Raw: raw, Similarity: 1, At: s.now()}
	if s.autocorrect {
		start := time.Now()
		c := s.corrector.Correct(raw)
		if s.metrics != nil {
			s.metrics.CorrectDuration.Record(ctx, time.Since(start).Seconds())
		}
		w.Text, w.Corrected, w.Distance, w.Similarity = c.Word, c.Corrected, c.Distance, c.Similarity
		if c.Corrected {
			s.last = &c
			if s.metrics != nil {
				s.metrics.WordsCorrected.Add(ctx, 1)
			}
		}
	}

	s.words = append(s.words, w)
	if s.metrics != nil {
		s.metrics.WordsCommitted.Add(ctx, 1)
	}
	return &w
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Symbol:      s.symbol.String(),
		Buffer:      gesture.Word(s.engine.Letters()),
		Words:       slices.Clone(s.words),
		Autocorrect: s.autocorrect,
		Ticks:       s.ticks,
	}
	if s.confidence != nil {
		c := *s.confidence
		snap.Confidence = &c
	}
	if s.last != nil {
		c := *s.last
		snap.LastCorrection = &c
	}
	return snap
}

// notify runs listeners outside s.mu so they may read the session.
func (s *Session) notify(snap Snapshot, w *Word) {
	s.listenerMu.RLock()
	wordListeners := slices.Clone(s.wordListeners)
	tickListeners := slices.Clone(s.tickListeners)
	s.listenerMu.RUnlock()

	if w != nil {
		for _, fn := range wordListeners {
			fn(*w)
		}
	}
	for _, fn := range tickListeners {
		fn(snap)
	}
}
