package recognition

import (
	"context"
	"fmt"

	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// Strategy is one interchangeable detect→embed→match pipeline. Both
// implementations produce outcomes in the identical MatchOutcome shape so
// callers cannot observe which path ran except via the Strategy tag.
type Strategy interface {
	Name() StrategyName

	// Init brings the strategy up. The coordinator treats fallback init
	// failure as fatal and optimized init failure as a degradation.
	Init(ctx context.Context) error

	// Match runs the full pipeline on a frame. No-face, low-quality and
	// extraction failure resolve to a no-match outcome, not an error.
	Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (MatchOutcome, error)

	// MatchProbe matches a precomputed probe embedding, skipping
	// detection and extraction. Used by edge devices that embed locally.
	MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (MatchOutcome, error)
}

// probePipeline turns a frame into a probe embedding using the external
// detector and extractor. Shared by both strategies.
type probePipeline struct {
	detector  vision.Detector
	extractor vision.Extractor
}

// acquire returns the probe embedding for the most prominent acceptable
// face. ok is false (with a nil error) when no usable probe exists: no face
// detected, all faces below quality limits, or extraction came back empty.
func (p probePipeline) acquire(ctx context.Context, frame vision.Frame) (probe []float32, ok bool, err error) {
	regions, err := p.detector.Detect(ctx, frame)
	if err != nil {
		return nil, false, fmt.Errorf("face detection: %w", err)
	}
	if len(regions) == 0 {
		return nil, false, nil
	}

	region, found := vision.BestRegion(regions, frame.Width, frame.Height)
	if !found {
		return nil, false, nil
	}

	embedding, err := p.extractor.Embed(ctx, frame, region)
	if err != nil {
		return nil, false, fmt.Errorf("embedding extraction: %w", err)
	}
	if len(embedding) == 0 {
		// Extraction failure is signalled by an empty vector.
		return nil, false, nil
	}
	return embedding, true, nil
}
