package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
)

// runPipeline drives one tick per interval until stopCh closes.
//
// Per tick:
//  1. Read a frame. A camera error skips the tick entirely.
//  2. Detect hands. A detector error also skips the tick.
//  3. No hand becomes an absent observation.
//  4. Otherwise the first hand is classified; no matching template is a
//     zero-confidence observation.
//  5. The observation goes to the session.
func (a *App) runPipeline(stopCh <-chan struct{}) {
	defer a.loopWG.Done()

	ticker := time.NewTicker(a.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			a.tick()
		}
	}
}

// tick runs one pipeline step. It reports whether an observation reached
// the session.
func (a *App) tick() (session.Event, bool) {
	obs, ok := a.observe()
	if !ok {
		return session.Event{}, false
	}
	return a.session.Tick(obs), true
}

// observe turns the next camera frame into an observation.
func (a *App) observe() (gesture.Observation, bool) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		if !errors.Is(err, capture.ErrNoFrame) {
			slog.Warn("error reading frame", "err", err)
		}
		return gesture.Observation{}, false
	}

	hands, err := a.detector.Detect(frame)
	frame.Close()
	if err != nil {
		slog.Warn("error detecting hands", "err", err)
		return gesture.Observation{}, false
	}

	if len(hands) == 0 {
		a.publishHand(nil)
		return gesture.NoHand(), true
	}

	hand := &hands[0]
	a.publishHand(hand)

	pred, err := a.classifier.Classify(hand)
	if err != nil && !errors.Is(err, classify.ErrNoTemplates) {
		slog.Warn("classification failed", "err", err)
	}
	obs := classify.ToObservation(pred, err)
	if obs.Label != gesture.None {
		slog.Debug("frame classified", "label", obs.Label, "confidence", obs.Confidence, "distance", pred.Distance)
	}
	return obs, true
}

func (a *App) publishHand(hand *detector.HandLandmarks) {
	if a.config.OnHand != nil {
		a.config.OnHand(hand)
	}
}
