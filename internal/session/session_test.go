package session

import (
	"context"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/spell"
	"github.com/ayusman/mudra/internal/trace"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	engine, err := gesture.NewEngine(gesture.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	dict := spell.NewDictionary([]string{"HELLO", "HI", "WATER", "GOOD"})
	return New(engine, dict, opts...)
}

// sign holds sym long enough to confirm it, then withdraws the hand long
// enough to clear repeat suppression but not to commit.
func sign(s *Session, sym gesture.Symbol) {
	for i := 0; i < 4; i++ {
		s.Tick(gesture.Observed(sym, 0.9))
	}
	for i := 0; i < 8; i++ {
		s.Tick(gesture.NoHand())
	}
}

func signWord(s *Session, word string) {
	for _, r := range word {
		sym, _ := gesture.ParseLabel(string(r))
		sign(s, sym)
	}
}

// endWord keeps the hand away until the engine commits.
func endWord(s *Session) *Word {
	for i := 0; i < 40; i++ {
		if ev := s.Tick(gesture.NoHand()); ev.Word != nil {
			return ev.Word
		}
	}
	return nil
}

func TestSession_SignAndCommit(t *testing.T) {
	s := newTestSession(t)

	signWord(s, "HRLLO")
	if got := s.Snapshot().Buffer; got != "HRLLO" {
		t.Fatalf("expected buffer HRLLO, got %q", got)
	}

	w := endWord(s)
	if w == nil {
		t.Fatal("expected a committed word")
	}
	if w.Text != "HELLO" || w.Raw != "HRLLO" || !w.Corrected || w.Distance != 1 {
		t.Errorf("unexpected word %+v", w)
	}

	snap := s.Snapshot()
	if snap.Buffer != "" {
		t.Errorf("expected empty buffer after commit, got %q", snap.Buffer)
	}
	if len(snap.Words) != 1 || snap.Text() != "HELLO" {
		t.Errorf("expected completed text HELLO, got %q", snap.Text())
	}
	if snap.LastCorrection == nil || snap.LastCorrection.Original != "HRLLO" || snap.LastCorrection.Word != "HELLO" {
		t.Errorf("expected last correction HRLLO->HELLO, got %+v", snap.LastCorrection)
	}
}

func TestSession_AutocorrectOff(t *testing.T) {
	s := newTestSession(t, WithAutocorrect(false))

	signWord(s, "HRLLO")
	w := endWord(s)
	if w == nil {
		t.Fatal("expected a committed word")
	}
	if w.Text != "HRLLO" || w.Corrected {
		t.Errorf("expected raw word, got %+v", w)
	}
	if s.Snapshot().LastCorrection != nil {
		t.Error("expected no correction to be reported")
	}

	s.SetAutocorrect(true)
	if !s.Autocorrect() || !s.Snapshot().Autocorrect {
		t.Error("expected autocorrect to be on")
	}
}

func TestSession_LastCorrectionFollowsLatestCommit(t *testing.T) {
	tests := []struct {
		name string
		next string
		off  bool
	}{
		{name: "no candidate", next: "XYZ"},
		{name: "exact match", next: "HI"},
		{name: "autocorrect off", next: "HRLLO", off: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			signWord(s, "HRLLO")
			endWord(s)
			if s.Snapshot().LastCorrection == nil {
				t.Fatal("expected HRLLO to be corrected")
			}

			s.SetAutocorrect(!tt.off)
			signWord(s, tt.next)
			w := endWord(s)
			if w == nil || w.Corrected {
				t.Fatalf("expected uncorrected word %s, got %+v", tt.next, w)
			}
			if lc := s.Snapshot().LastCorrection; lc != nil {
				t.Errorf("LastCorrection = %+v, want nil", lc)
			}
		})
	}
}

func TestSession_SpaceCommits(t *testing.T) {
	s := newTestSession(t)
	signWord(s, "HI")

	var ev Event
	for i := 0; i < 4; i++ {
		ev = s.Tick(gesture.Observed(gesture.Space, 0.95))
	}
	if ev.Action.Kind != gesture.ActionCommit {
		t.Fatalf("expected commit action, got %v", ev.Action.Kind)
	}
	if ev.Word == nil || ev.Word.Text != "HI" || ev.Word.Corrected {
		t.Errorf("expected HI committed unchanged, got %+v", ev.Word)
	}
}

func TestSession_EmptyCommitIsNoop(t *testing.T) {
	s := newTestSession(t)

	for i := 0; i < 4; i++ {
		s.Tick(gesture.Observed(gesture.Space, 0.95))
	}
	if w := s.CommitNow(); w != nil {
		t.Errorf("expected nil word for empty buffer, got %+v", w)
	}
	if n := len(s.Snapshot().Words); n != 0 {
		t.Errorf("expected no words, got %d", n)
	}
}

func TestSession_Backspace(t *testing.T) {
	s := newTestSession(t)
	signWord(s, "AB")

	if !s.Backspace() {
		t.Fatal("expected backspace to remove a letter")
	}
	if got := s.Snapshot().Buffer; got != "A" {
		t.Errorf("expected buffer A, got %q", got)
	}
	s.Backspace()
	if s.Backspace() {
		t.Error("expected backspace on empty buffer to report false")
	}
}

func TestSession_CommitNowAndClear(t *testing.T) {
	s := newTestSession(t)
	signWord(s, "WATRE")

	w := s.CommitNow()
	if w == nil || w.Text != "WATER" {
		t.Fatalf("expected WATER, got %+v", w)
	}

	signWord(s, "GOD")
	s.Clear()

	snap := s.Snapshot()
	if snap.Buffer != "" || len(snap.Words) != 0 || snap.LastCorrection != nil {
		t.Errorf("expected cleared session, got %+v", snap)
	}
}

func TestSession_DisplayState(t *testing.T) {
	s := newTestSession(t)

	s.Tick(gesture.Observed(gesture.K, 0.7))
	snap := s.Snapshot()
	if snap.Symbol != "K" || snap.Confidence == nil || *snap.Confidence != 0.7 {
		t.Errorf("expected K at 0.7, got %q %v", snap.Symbol, snap.Confidence)
	}

	s.Tick(gesture.NoHand())
	snap = s.Snapshot()
	if snap.Confidence != nil {
		t.Errorf("expected no confidence while the hand is away, got %v", *snap.Confidence)
	}
	if snap.Ticks != 2 {
		t.Errorf("expected 2 ticks, got %d", snap.Ticks)
	}

	s.Tick(gesture.Observed(gesture.K, math.NaN()))
	if c := s.Snapshot().Confidence; c == nil || *c != 0 {
		t.Errorf("expected NaN confidence to be clamped to 0, got %v", c)
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := newTestSession(t)
	signWord(s, "HI")
	s.CommitNow()

	snap := s.Snapshot()
	snap.Words[0].Text = "CHANGED"
	if s.Snapshot().Words[0].Text != "HI" {
		t.Error("modifying a snapshot changed the session")
	}
}

func TestSession_Listeners(t *testing.T) {
	s := newTestSession(t, WithID("fixed"))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var words []Word
	ticks := 0
	s.OnWord(func(w Word) { words = append(words, w) })
	s.OnTick(func(snap Snapshot) {
		ticks++
		// Listeners run outside the lock and may read the session.
		if s.Snapshot().ID != "fixed" || snap.ID != "fixed" {
			t.Errorf("unexpected session id %q", snap.ID)
		}
	})

	signWord(s, "HI")
	endWord(s)

	if len(words) != 1 || words[0].Text != "HI" || !words[0].At.Equal(fixed) {
		t.Errorf("expected one HI word at %v, got %+v", fixed, words)
	}
	if uint64(ticks) != s.Snapshot().Ticks {
		t.Errorf("expected one tick notification per tick, got %d for %d", ticks, s.Snapshot().Ticks)
	}

	s.Backspace()
	if uint64(ticks) != s.Snapshot().Ticks+1 {
		t.Error("expected manual edits to notify tick listeners")
	}
}

func TestSession_ConcurrentReaders(t *testing.T) {
	s := newTestSession(t)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = s.Snapshot()
				}
			}
		}()
	}

	signWord(s, "GOOD")
	endWord(s)
	close(done)
	wg.Wait()

	if got := s.Snapshot().Text(); got != "GOOD" {
		t.Errorf("expected GOOD, got %q", got)
	}
}

func TestSession_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	s := newTestSession(t, WithMetrics(m))
	signWord(s, "HRLLO")
	s.Backspace()
	signWord(s, "O")
	endWord(s)
	// DELETE on an empty buffer removes nothing.
	sign(s, gesture.Delete)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := map[string]int64{
		"mudra.letters.appended": 6,
		"mudra.letters.deleted":  1,
		"mudra.words.committed":  1,
		"mudra.words.corrected":  1,
		"mudra.ticks":            int64(s.Snapshot().Ticks),
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if sum, ok := met.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[met.Name] += dp.Value
				}
			}
		}
	}
	for name, n := range want {
		if got[name] != n {
			t.Errorf("%s = %d, want %d", name, got[name], n)
		}
	}
}

func TestSession_WithCorrector(t *testing.T) {
	dict := spell.NewDictionary([]string{"HELLO"})
	s := newTestSession(t, WithCorrector(spell.NewCorrector(dict, spell.WithMaxLengthDelta(0))))

	if got := s.Correct("HELO"); got.Corrected {
		t.Errorf("length delta 0 should not reach HELLO from HELO, got %+v", got)
	}
	if got := s.Correct("HELLP"); got.Word != "HELLO" {
		t.Errorf("expected same-length correction to HELLO, got %+v", got)
	}
}

func TestSession_Traces(t *testing.T) {
	names, err := trace.Names()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			tr, err := trace.Load(name)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			obs, err := tr.Observations()
			if err != nil {
				t.Fatalf("Observations() error = %v", err)
			}
			engine, err := gesture.NewEngine(tr.Config())
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}
			s := New(engine, spell.Default(), WithAutocorrect(tr.Autocorrect))

			for _, o := range obs {
				s.Tick(o)
			}

			snap := s.Snapshot()
			var raw, words []string
			for _, w := range snap.Words {
				raw = append(raw, w.Raw)
				words = append(words, w.Text)
			}
			if !slices.Equal(raw, tr.Expect.Raw) {
				t.Errorf("raw = %v, want %v", raw, tr.Expect.Raw)
			}
			if !slices.Equal(words, tr.Expect.Words) {
				t.Errorf("words = %v, want %v", words, tr.Expect.Words)
			}
			if snap.Buffer != tr.Expect.Buffer {
				t.Errorf("buffer = %q, want %q", snap.Buffer, tr.Expect.Buffer)
			}
		})
	}
}
