package classify

import (
	"math"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// DefaultTolerance is the feature distance beyond which no template matches.
const DefaultTolerance = 1.5

// Template is a reference hand shape for one symbol.
type Template struct {
	ID        string             // Unique identifier for the template
	Label     gesture.Symbol     // Symbol the shape stands for
	Landmarks []detector.Point3D // Averaged landmarks
	Tolerance float64            // Maximum feature distance for a match

	features []float64
}

// TemplateClassifier is a nearest-template classifier over landmark features.
type TemplateClassifier struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewTemplateClassifier creates a classifier with the given templates.
func NewTemplateClassifier(templates ...*Template) *TemplateClassifier {
	c := &TemplateClassifier{}
	c.SetTemplates(templates)
	return c
}

// SetTemplates replaces the template set. Templates without landmarks or with
// a label that is not a symbol are skipped.
func (c *TemplateClassifier) SetTemplates(templates []*Template) {
	prepared := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t == nil || len(t.Landmarks) == 0 || t.Label == gesture.None {
			continue
		}
		cp := *t
		if cp.Tolerance <= 0 {
			cp.Tolerance = DefaultTolerance
		}
		hand := detector.FromPoints(cp.Landmarks)
		cp.features = hand.Features()
		prepared = append(prepared, &cp)
	}

	c.mu.Lock()
	c.templates = prepared
	c.mu.Unlock()
}

// Len returns the number of usable templates.
func (c *TemplateClassifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Classify returns the closest template's label. Confidence is 1/(1+d) for
// feature distance d, or 0 when the closest template is out of tolerance.
func (c *TemplateClassifier) Classify(hand *detector.HandLandmarks) (Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.templates) == 0 {
		return Prediction{}, ErrNoTemplates
	}
	if hand == nil {
		return Prediction{}, nil
	}

	input := hand.Features()
	var best *Template
	bestDist := math.Inf(1)
	for _, t := range c.templates {
		if d := featureDistance(input, t.features); d < bestDist {
			best, bestDist = t, d
		}
	}

	p := Prediction{Label: best.Label, Distance: bestDist}
	if bestDist <= best.Tolerance {
		p.Confidence = 1 / (1 + bestDist)
	}
	return p, nil
}

func featureDistance(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
