// Package classify turns hand landmarks into per-frame letter predictions.
package classify

import (
	"errors"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNoTemplates is returned when a classifier has nothing to compare against.
var ErrNoTemplates = errors.New("no templates loaded")

// Prediction is the best label for one frame and how sure the classifier is.
type Prediction struct {
	Label      gesture.Symbol
	Confidence float64
	Distance   float64
}

// Classifier predicts the symbol shown by a single hand.
type Classifier interface {
	Classify(hand *detector.HandLandmarks) (Prediction, error)
}

// ToObservation converts a classifier result into an engine observation.
// A failed prediction becomes a zero-confidence frame so the engine resets
// its run without treating the hand as gone.
func ToObservation(p Prediction, err error) gesture.Observation {
	if err != nil || p.Label == gesture.None {
		return gesture.Observation{}
	}
	return gesture.Observation{Label: p.Label, Confidence: p.Confidence}.Clamp()
}
