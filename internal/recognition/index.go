package recognition

import (
	"errors"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSW index parameters for face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	hnswMaxNeighbors = 16

	// indexSearchK is the number of approximate candidates fetched per
	// lookup. They are re-ranked exactly before thresholding, so a small
	// pool is enough for top-1 selection.
	indexSearchK = 8
)

// ErrIndexNotBuilt is returned by Search before Build populated the graph.
var ErrIndexNotBuilt = errors.New("roster index not built")

// RosterIndex is an approximate-nearest-neighbor index over one tenant's
// roster snapshot. It accelerates the optimized match path; the exhaustive
// matcher remains the source of truth for scoring.
type RosterIndex struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[string]
	byID      map[string]*Member
	fetchedAt time.Time
}

// NewRosterIndex creates an empty index.
func NewRosterIndex() *RosterIndex {
	return &RosterIndex{byID: make(map[string]*Member)}
}

// Build replaces the index contents with the given snapshot. Members
// without embeddings are skipped. fetchedAt identifies the snapshot so
// callers can detect staleness against the cache entry.
func (x *RosterIndex) Build(members []Member, fetchedAt time.Time) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(members) == 0 {
		x.graph = nil
		x.byID = make(map[string]*Member)
		x.fetchedAt = fetchedAt
		return nil
	}

	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // standard HNSW formula
	g.Distance = hnsw.CosineDistance

	x.byID = make(map[string]*Member, len(members))
	for i := range members {
		m := &members[i]
		if !m.HasEmbedding() {
			continue
		}
		g.Add(hnsw.MakeNode(m.ID, m.Embedding))
		x.byID[m.ID] = m
	}

	x.graph = g
	x.fetchedAt = fetchedAt
	return nil
}

// Candidates returns up to k members nearest to the probe. Distances from
// the graph are approximate; callers re-score with CosineSimilarity.
func (x *RosterIndex) Candidates(probe []float32, k int) ([]Member, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, ErrIndexNotBuilt
	}
	if k <= 0 {
		k = indexSearchK
	}

	neighbors := x.graph.Search(probe, k)
	members := make([]Member, 0, len(neighbors))
	for _, n := range neighbors {
		if m, ok := x.byID[n.Key]; ok {
			members = append(members, *m)
		}
	}
	return members, nil
}

// FetchedAt returns the snapshot timestamp the index was built from.
func (x *RosterIndex) FetchedAt() time.Time {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.fetchedAt
}

// Count returns the number of indexed members.
func (x *RosterIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// IsEmpty reports whether the index has no graph data.
func (x *RosterIndex) IsEmpty() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.graph == nil
}
