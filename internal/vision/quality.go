package vision

// Face quality limits. Faces below these are too small or too uncertain to
// produce a reliable embedding and resolve to a no-match outcome upstream.
const (
	// MinFaceWidthPx is the absolute minimum face width in pixels.
	MinFaceWidthPx = 35

	// MinFaceWidthRel is the minimum face width relative to frame width (1%).
	MinFaceWidthRel = 0.01

	// MinDetectionScore is the minimum detector confidence.
	MinDetectionScore = 0.5
)

// QualityResult reports whether a region is usable and, if not, why.
type QualityResult struct {
	OK     bool
	Reason string
}

// CheckQuality validates a detected region against the frame dimensions.
// A failed check is an expected per-frame condition, not an error.
func CheckQuality(r Region, frameWidth, frameHeight int) QualityResult {
	if r.Width() <= 0 || r.Height() <= 0 {
		return QualityResult{Reason: "degenerate bounding box"}
	}
	if r.Score < MinDetectionScore {
		return QualityResult{Reason: "low detection score"}
	}
	if r.Width() < MinFaceWidthPx {
		return QualityResult{Reason: "face too small"}
	}
	if frameWidth > 0 && r.Width()/float64(frameWidth) < MinFaceWidthRel {
		return QualityResult{Reason: "face too small relative to frame"}
	}
	if frameWidth > 0 && frameHeight > 0 {
		if r.X0 < 0 || r.Y0 < 0 || r.X1 > float64(frameWidth) || r.Y1 > float64(frameHeight) {
			return QualityResult{Reason: "face partially out of frame"}
		}
	}
	return QualityResult{OK: true}
}

// BestRegion picks the largest acceptable region from a detection result.
// Returns false when no region passes the quality check.
func BestRegion(regions []Region, frameWidth, frameHeight int) (Region, bool) {
	var best Region
	found := false
	for _, r := range regions {
		if !CheckQuality(r, frameWidth, frameHeight).OK {
			continue
		}
		if !found || r.Area() > best.Area() {
			best = r
			found = true
		}
	}
	return best, found
}
