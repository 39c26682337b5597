package recognition

import "fmt"

// DefaultThreshold is the minimum cosine similarity required to accept a
// candidate as a match.
const DefaultThreshold = 0.85

// Matcher selects the best-matching enrolled member for one probe embedding.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher. A non-positive threshold selects
// DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured similarity threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Best returns the best candidate and its similarity. The returned member is
// nil when no candidate reached the threshold; the similarity of the closest
// candidate is still reported. An empty roster yields (nil, 0, nil).
//
// When two members tie for the maximum similarity, the lower member ID wins.
// This keeps the result deterministic regardless of roster order.
func (m *Matcher) Best(probe []float32, roster []Member) (*Member, float64, error) {
	if len(probe) == 0 || IsZeroVector(probe) {
		return nil, 0, ErrInvalidEmbedding
	}
	if len(roster) == 0 {
		return nil, 0, nil
	}

	var best *Member
	bestSim := -1.0
	for i := range roster {
		cand := &roster[i]
		if !cand.HasEmbedding() {
			continue
		}
		if len(cand.Embedding) != len(probe) {
			return nil, 0, fmt.Errorf("%w: probe dim %d, member %s dim %d",
				ErrDimensionMismatch, len(probe), cand.ID, len(cand.Embedding))
		}
		sim := CosineSimilarity(probe, cand.Embedding)
		if sim > bestSim || (sim == bestSim && best != nil && cand.ID < best.ID) {
			bestSim = sim
			best = cand
		}
	}

	if best == nil {
		// Roster had no usable embeddings.
		return nil, 0, nil
	}

	confidence := bestSim
	if confidence < 0 {
		confidence = 0
	}
	if bestSim >= m.threshold {
		return best, confidence, nil
	}
	return nil, confidence, nil
}
