package recognition

import (
	"context"
	"errors"
	"testing"

	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// stubStrategy is a scriptable Strategy for coordinator tests.
type stubStrategy struct {
	name       StrategyName
	initErr    error
	outcome    MatchOutcome
	err        error
	initCalls  int
	matchCalls int
}

func (s *stubStrategy) Name() StrategyName { return s.name }

func (s *stubStrategy) Init(ctx context.Context) error {
	s.initCalls++
	return s.initErr
}

func (s *stubStrategy) Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (MatchOutcome, error) {
	s.matchCalls++
	return s.outcome, s.err
}

func (s *stubStrategy) MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (MatchOutcome, error) {
	s.matchCalls++
	return s.outcome, s.err
}

func matchedOutcome(name StrategyName, id string) MatchOutcome {
	return MatchOutcome{Member: &Member{ID: id}, Confidence: 0.9, Strategy: name}
}

func TestCoordinator_UninitializedRejectsMatches(t *testing.T) {
	c := NewCoordinator(nil, &stubStrategy{name: StrategyFallback})
	if _, err := c.Match(t.Context(), tenant.Legacy(), testFrame()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if c.Mode() != ModeUninitialized {
		t.Errorf("expected uninitialized mode, got %s", c.Mode())
	}
}

func TestCoordinator_FallbackInitFailureIsFatal(t *testing.T) {
	fallback := &stubStrategy{name: StrategyFallback, initErr: errors.New("store down")}
	c := NewCoordinator(&stubStrategy{name: StrategyOptimized}, fallback)

	err := c.Initialize(t.Context())
	if !errors.Is(err, ErrInitializationFailed) {
		t.Fatalf("expected ErrInitializationFailed, got %v", err)
	}
	if c.Mode() != ModeUninitialized {
		t.Errorf("expected coordinator to stay uninitialized, got %s", c.Mode())
	}
}

func TestCoordinator_MissingFallbackIsFatal(t *testing.T) {
	c := NewCoordinator(&stubStrategy{name: StrategyOptimized}, nil)
	if err := c.Initialize(t.Context()); !errors.Is(err, ErrInitializationFailed) {
		t.Errorf("expected ErrInitializationFailed without a fallback, got %v", err)
	}
}

func TestCoordinator_OptimizedInitFailureDegrades(t *testing.T) {
	optimized := &stubStrategy{name: StrategyOptimized, initErr: errors.New("disabled")}
	fallback := &stubStrategy{name: StrategyFallback, outcome: matchedOutcome(StrategyFallback, "m1")}
	c := NewCoordinator(optimized, fallback)

	if err := c.Initialize(t.Context()); err != nil {
		t.Fatalf("expected startup to succeed in degraded mode, got %v", err)
	}
	if c.Mode() != ModeFallbackOnly {
		t.Errorf("expected fallback-only mode, got %s", c.Mode())
	}

	outcome, err := c.Match(t.Context(), tenant.Legacy(), testFrame())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Strategy != StrategyFallback {
		t.Errorf("expected fallback outcome, got %s", outcome.Strategy)
	}
	if optimized.matchCalls != 0 {
		t.Error("expected the optimized strategy to never run in fallback-only mode")
	}
}

func TestCoordinator_HybridPrefersOptimized(t *testing.T) {
	optimized := &stubStrategy{name: StrategyOptimized, outcome: matchedOutcome(StrategyOptimized, "m1")}
	fallback := &stubStrategy{name: StrategyFallback}
	c := NewCoordinator(optimized, fallback)
	if err := c.Initialize(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != ModeHybrid {
		t.Fatalf("expected hybrid mode, got %s", c.Mode())
	}

	outcome, err := c.Match(t.Context(), tenant.Legacy(), testFrame())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Strategy != StrategyOptimized {
		t.Errorf("expected optimized outcome, got %s", outcome.Strategy)
	}
	if fallback.matchCalls != 0 {
		t.Error("expected fallback to stay idle when optimized succeeds")
	}
}

func TestCoordinator_TransparentFallbackOnOptimizedFailure(t *testing.T) {
	optimized := &stubStrategy{name: StrategyOptimized, err: errors.New("index corrupted")}
	fallback := &stubStrategy{name: StrategyFallback, outcome: matchedOutcome(StrategyFallback, "m1")}
	c := NewCoordinator(optimized, fallback)
	if err := c.Initialize(t.Context()); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.Match(t.Context(), tenant.Legacy(), testFrame())
	if err != nil {
		t.Fatalf("expected the failure to be absorbed, got %v", err)
	}
	if !outcome.Matched() || outcome.Strategy != StrategyFallback {
		t.Errorf("expected a fallback match, got %+v", outcome)
	}
	if optimized.matchCalls != 1 || fallback.matchCalls != 1 {
		t.Errorf("expected one attempt per strategy, got optimized=%d fallback=%d",
			optimized.matchCalls, fallback.matchCalls)
	}
}

func TestCoordinator_NoMatchOutcomeDoesNotTriggerFallback(t *testing.T) {
	// A clean no-match (nobody at the door) is a success, not a failure.
	optimized := &stubStrategy{name: StrategyOptimized, outcome: MatchOutcome{Strategy: StrategyOptimized}}
	fallback := &stubStrategy{name: StrategyFallback, outcome: matchedOutcome(StrategyFallback, "m1")}
	c := NewCoordinator(optimized, fallback)
	if err := c.Initialize(t.Context()); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.Match(t.Context(), tenant.Legacy(), testFrame())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Matched() {
		t.Error("expected the optimized no-match to be returned as-is")
	}
	if fallback.matchCalls != 0 {
		t.Error("expected no fallback attempt for a clean no-match")
	}
}

func TestCoordinator_AllStrategiesFailed(t *testing.T) {
	optimizedErr := errors.New("index corrupted")
	fallbackErr := errors.New("store down")
	c := NewCoordinator(
		&stubStrategy{name: StrategyOptimized, err: optimizedErr},
		&stubStrategy{name: StrategyFallback, err: fallbackErr})
	if err := c.Initialize(t.Context()); err != nil {
		t.Fatal(err)
	}

	_, err := c.Match(t.Context(), tenant.Legacy(), testFrame())
	if !errors.Is(err, ErrAllStrategiesFailed) {
		t.Fatalf("expected ErrAllStrategiesFailed, got %v", err)
	}
	// Both causes stay inspectable behind the single public error.
	if !errors.Is(err, optimizedErr) || !errors.Is(err, fallbackErr) {
		t.Error("expected both strategy errors to be wrapped")
	}
}

func TestCoordinator_MatchProbeUsesSamePolicy(t *testing.T) {
	optimized := &stubStrategy{name: StrategyOptimized, err: errors.New("timeout")}
	fallback := &stubStrategy{name: StrategyFallback, outcome: matchedOutcome(StrategyFallback, "m2")}
	c := NewCoordinator(optimized, fallback)
	if err := c.Initialize(t.Context()); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.MatchProbe(t.Context(), tenant.Legacy(), []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Member == nil || outcome.Member.ID != "m2" {
		t.Errorf("expected fallback probe match, got %+v", outcome)
	}
}
