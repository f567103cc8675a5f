// Package detector finds hands in camera frames and turns them into landmark
// and feature vectors for the letter classifier.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FeatureSize is the length of the vector returned by HandLandmarks.Features.
const FeatureSize = NumLandmarks * 2

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Features returns the classifier input for the hand: x,y of every landmark
// relative to the wrist, divided by the largest 2D wrist distance. Depth is
// dropped because it is the noisiest axis from a single camera.
func (h *HandLandmarks) Features() []float64 {
	if h == nil {
		return nil
	}

	wrist := h.Points[Wrist]
	var maxDist float64
	for _, p := range h.Points {
		dx, dy := p.X-wrist.X, p.Y-wrist.Y
		if d := math.Sqrt(dx*dx + dy*dy); d > maxDist {
			maxDist = d
		}
	}
	if maxDist < 1e-6 {
		maxDist = 1
	}

	features := make([]float64, 0, FeatureSize)
	for _, p := range h.Points {
		features = append(features, (p.X-wrist.X)/maxDist, (p.Y-wrist.Y)/maxDist)
	}
	return features
}

// FromPoints builds a HandLandmarks from a landmark slice, as stored for templates.
// Missing points are left at the origin and extra points are ignored.
func FromPoints(points []Point3D) HandLandmarks {
	var h HandLandmarks
	copy(h.Points[:], points)
	return h
}
