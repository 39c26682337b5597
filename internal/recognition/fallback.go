package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// Pinger lets the fallback strategy verify the backing store at startup.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FallbackStrategy is the guaranteed match path: an exhaustive cosine scan
// over the cached roster. It has no acceleration structures to build or
// corrupt, which is what makes it the strategy of last resort.
type FallbackStrategy struct {
	pipeline probePipeline
	cache    *EmbeddingCache
	matcher  *Matcher
	pinger   Pinger
	now      func() time.Time
}

// NewFallbackStrategy creates the fallback strategy. pinger may be nil when
// no startup reachability check is wanted (tests).
func NewFallbackStrategy(detector vision.Detector, extractor vision.Extractor, cache *EmbeddingCache, matcher *Matcher, pinger Pinger) *FallbackStrategy {
	return &FallbackStrategy{
		pipeline: probePipeline{detector: detector, extractor: extractor},
		cache:    cache,
		matcher:  matcher,
		pinger:   pinger,
		now:      time.Now,
	}
}

// Name returns the strategy tag.
func (s *FallbackStrategy) Name() StrategyName {
	return StrategyFallback
}

// Init verifies the strategy's dependencies. The member store must be
// reachable: without it the fallback cannot ever build a roster, and the
// coordinator refuses to run with zero working strategies.
func (s *FallbackStrategy) Init(ctx context.Context) error {
	if s.cache == nil || s.matcher == nil {
		return errors.New("fallback strategy missing cache or matcher")
	}
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.pinger.Ping(pingCtx); err != nil {
			return fmt.Errorf("member store unreachable: %w", err)
		}
	}
	return nil
}

// Match runs detect → embed → exhaustive scan.
func (s *FallbackStrategy) Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (MatchOutcome, error) {
	started := s.now()
	probe, ok, err := s.pipeline.acquire(ctx, frame)
	if err != nil {
		return MatchOutcome{}, err
	}
	if !ok {
		return s.noMatch(started), nil
	}
	return s.matchProbe(ctx, scope, probe, started)
}

// MatchProbe matches a precomputed embedding against the cached roster.
func (s *FallbackStrategy) MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (MatchOutcome, error) {
	return s.matchProbe(ctx, scope, probe, s.now())
}

func (s *FallbackStrategy) matchProbe(ctx context.Context, scope tenant.Scope, probe []float32, started time.Time) (MatchOutcome, error) {
	entry, err := s.cache.GetOrRefresh(ctx, scope)
	if err != nil {
		return MatchOutcome{}, err
	}

	member, confidence, err := s.matcher.Best(probe, entry.Members)
	if err != nil {
		return MatchOutcome{}, err
	}
	return MatchOutcome{
		Member:         member,
		Confidence:     confidence,
		Strategy:       StrategyFallback,
		ProcessingTime: s.now().Sub(started),
	}, nil
}

func (s *FallbackStrategy) noMatch(started time.Time) MatchOutcome {
	return MatchOutcome{
		Strategy:       StrategyFallback,
		ProcessingTime: s.now().Sub(started),
	}
}
