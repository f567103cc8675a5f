package classify

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Sample is one recorded hand pose.
type Sample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// Trainer processes recorded samples into templates.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Train averages landmark samples into template landmarks. Each sample is
// first reduced to its wrist-relative, scale-free form so poses recorded at
// different positions in the frame average cleanly.
func (t *Trainer) Train(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	sums := make([]float64, detector.FeatureSize)
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		if len(sample.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(sample.Landmarks), detector.NumLandmarks)
		}

		hand := detector.FromPoints(sample.Landmarks)
		for j, v := range hand.Features() {
			sums[j] += v
		}
	}

	n := float64(len(samples))
	averaged := make([]detector.Point3D, detector.NumLandmarks)
	for i := range averaged {
		averaged[i] = detector.Point3D{X: sums[2*i] / n, Y: sums[2*i+1] / n}
	}
	return averaged, nil
}
