// Package vision defines the external face-detection and embedding-extraction
// collaborators consumed by the recognition core, plus HTTP client
// implementations for sidecar inference services.
package vision

import (
	"context"
	"time"
)

// Frame is one captured camera image handed to the pipeline.
type Frame struct {
	Image      []byte // encoded image bytes (JPEG/PNG)
	Width      int
	Height     int
	CapturedAt time.Time
}

// Region is one detected face bounding box in raw pixel coordinates.
type Region struct {
	X0, Y0, X1, Y1 float64
	Score          float64 // detector confidence in [0, 1]
}

// Width returns the region width in pixels.
func (r Region) Width() float64 { return r.X1 - r.X0 }

// Height returns the region height in pixels.
func (r Region) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the region area in square pixels.
func (r Region) Area() float64 { return r.Width() * r.Height() }

// Detector finds face regions in a frame. An empty result is normal
// (nobody in view), not an error.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Region, error)
}

// Extractor turns a face region into a fixed-length embedding vector.
// An empty vector signals extraction failure and is treated as no-match
// upstream, never as an error.
type Extractor interface {
	Embed(ctx context.Context, frame Frame, region Region) ([]float32, error)
}
