package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// DefaultOptimizedTimeout bounds one optimized match attempt. Exceeding it
// is treated identically to a strategy failure and triggers fallback.
const DefaultOptimizedTimeout = 2 * time.Second

// OptimizedStrategy is the accelerated match path: a per-tenant HNSW index
// over the cache snapshot with exact re-ranking of the nearest candidates.
// Any failure here is caught by the coordinator and retried on fallback.
type OptimizedStrategy struct {
	pipeline probePipeline
	cache    *EmbeddingCache
	matcher  *Matcher
	timeout  time.Duration
	disabled bool
	now      func() time.Time

	mu      sync.Mutex
	indexes map[string]*RosterIndex
}

// NewOptimizedStrategy creates the optimized strategy. A non-positive
// timeout selects DefaultOptimizedTimeout.
func NewOptimizedStrategy(detector vision.Detector, extractor vision.Extractor, cache *EmbeddingCache, matcher *Matcher, timeout time.Duration) *OptimizedStrategy {
	if timeout <= 0 {
		timeout = DefaultOptimizedTimeout
	}
	return &OptimizedStrategy{
		pipeline: probePipeline{detector: detector, extractor: extractor},
		cache:    cache,
		matcher:  matcher,
		timeout:  timeout,
		now:      time.Now,
		indexes:  make(map[string]*RosterIndex),
	}
}

// Disable marks the strategy unavailable so Init fails. Used by ops to
// force fallback-only mode and by tests.
func (s *OptimizedStrategy) Disable() {
	s.disabled = true
}

// Name returns the strategy tag.
func (s *OptimizedStrategy) Name() StrategyName {
	return StrategyOptimized
}

// Init brings up the accelerated path. Failure is not fatal to the
// coordinator; it proceeds in fallback-only mode.
func (s *OptimizedStrategy) Init(ctx context.Context) error {
	if s.disabled {
		return errors.New("optimized strategy disabled by configuration")
	}
	if s.cache == nil || s.matcher == nil {
		return errors.New("optimized strategy missing cache or matcher")
	}
	return nil
}

// Match runs detect → embed → index lookup, all bounded by the strategy
// timeout.
func (s *OptimizedStrategy) Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (MatchOutcome, error) {
	started := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	probe, ok, err := s.pipeline.acquire(ctx, frame)
	if err != nil {
		return MatchOutcome{}, err
	}
	if !ok {
		return MatchOutcome{Strategy: StrategyOptimized, ProcessingTime: s.now().Sub(started)}, nil
	}
	return s.matchProbe(ctx, scope, probe, started)
}

// MatchProbe matches a precomputed embedding via the roster index.
func (s *OptimizedStrategy) MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (MatchOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.matchProbe(ctx, scope, probe, s.now())
}

func (s *OptimizedStrategy) matchProbe(ctx context.Context, scope tenant.Scope, probe []float32, started time.Time) (MatchOutcome, error) {
	if len(probe) == 0 || IsZeroVector(probe) {
		return MatchOutcome{}, ErrInvalidEmbedding
	}

	entry, err := s.cache.GetOrRefresh(ctx, scope)
	if err != nil {
		return MatchOutcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return MatchOutcome{}, fmt.Errorf("optimized match timed out: %w", err)
	}
	if len(entry.Members) == 0 {
		return MatchOutcome{Strategy: StrategyOptimized, ProcessingTime: s.now().Sub(started)}, nil
	}

	index, err := s.indexFor(scope, entry)
	if err != nil {
		return MatchOutcome{}, err
	}

	candidates, err := index.Candidates(probe, indexSearchK)
	if err != nil {
		return MatchOutcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return MatchOutcome{}, fmt.Errorf("optimized match timed out: %w", err)
	}

	// Exact re-rank of the approximate candidates keeps scoring and
	// tie-breaking identical to the fallback path.
	member, confidence, err := s.matcher.Best(probe, candidates)
	if err != nil {
		return MatchOutcome{}, err
	}
	return MatchOutcome{
		Member:         member,
		Confidence:     confidence,
		Strategy:       StrategyOptimized,
		ProcessingTime: s.now().Sub(started),
	}, nil
}

// indexFor returns the roster index for the scope, rebuilding it when the
// cache snapshot changed since the last build.
func (s *OptimizedStrategy) indexFor(scope tenant.Scope, entry *CacheEntry) (*RosterIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, ok := s.indexes[scope.Key()]
	if ok && index.FetchedAt().Equal(entry.FetchedAt) {
		return index, nil
	}

	index = NewRosterIndex()
	if err := index.Build(entry.Members, entry.FetchedAt); err != nil {
		return nil, fmt.Errorf("building roster index for %s: %w", scope, err)
	}
	s.indexes[scope.Key()] = index
	return index, nil
}

// DropIndex discards the cached index for a scope. Called alongside cache
// invalidation so a stale index never outlives its snapshot.
func (s *OptimizedStrategy) DropIndex(scope tenant.Scope) {
	s.mu.Lock()
	delete(s.indexes, scope.Key())
	s.mu.Unlock()
}
