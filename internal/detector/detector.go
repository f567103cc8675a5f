package detector

import "gocv.io/x/gocv"

// Detector finds hands in a frame. An empty result means no hand is present.
type Detector interface {
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)
	Close() error
}

// Config tunes hand detection. Zero fields take the DefaultConfig value.
type Config struct {
	// MaxHands caps how many hands are reported. Fingerspelling reads one.
	MaxHands int

	// MinConfidence drops detections scored below it, in [0,1].
	MinConfidence float64

	MinTrackingConf float64
}

// DefaultConfig is tuned for a single signing hand.
func DefaultConfig() Config {
	return Config{MaxHands: 1, MinConfidence: 0.7, MinTrackingConf: 0.5}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxHands <= 0 {
		c.MaxHands = def.MaxHands
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = def.MinConfidence
	}
	if c.MinTrackingConf <= 0 {
		c.MinTrackingConf = def.MinTrackingConf
	}
	return c
}
