package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// Mode is the coordinator's operating state.
type Mode int

const (
	// ModeUninitialized rejects all match calls.
	ModeUninitialized Mode = iota
	// ModeFallbackOnly runs every call on the guaranteed strategy.
	ModeFallbackOnly
	// ModeHybrid tries the optimized strategy first and degrades per call.
	ModeHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeFallbackOnly:
		return "fallback-only"
	case ModeHybrid:
		return "hybrid"
	default:
		return "uninitialized"
	}
}

// Coordinator guarantees that a match attempt always completes using the
// best available strategy, transparently degrading from the optimized path
// to the guaranteed fallback. The substitution is invisible to callers
// except for the Strategy tag on the outcome.
type Coordinator struct {
	optimized Strategy
	fallback  Strategy

	mu   sync.RWMutex
	mode Mode
}

// NewCoordinator creates an uninitialized coordinator. fallback is
// required; optimized may be nil to force fallback-only operation.
func NewCoordinator(optimized, fallback Strategy) *Coordinator {
	return &Coordinator{optimized: optimized, fallback: fallback}
}

// Initialize brings up the fallback strategy first; its failure is fatal
// because there is no mode with zero working strategies. The optimized
// strategy is best-effort: on failure the coordinator logs and proceeds in
// fallback-only mode.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fallback == nil {
		return fmt.Errorf("%w: no fallback strategy configured", ErrInitializationFailed)
	}
	if err := c.fallback.Init(ctx); err != nil {
		return fmt.Errorf("%w: fallback strategy: %v", ErrInitializationFailed, err)
	}

	c.mode = ModeFallbackOnly
	if c.optimized != nil {
		if err := c.optimized.Init(ctx); err != nil {
			log.Printf("optimized strategy unavailable, continuing fallback-only: %v", err)
		} else {
			c.mode = ModeHybrid
		}
	}

	log.Printf("recognition coordinator ready in %s mode", c.mode)
	return nil
}

// Mode returns the current operating mode.
func (c *Coordinator) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Match runs one frame through the best available strategy. The only error
// callers can see is ErrAllStrategiesFailed (or ErrNotInitialized); every
// optimized-path failure is absorbed and retried on fallback.
func (c *Coordinator) Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (MatchOutcome, error) {
	return c.run(ctx, scope,
		func(s Strategy) (MatchOutcome, error) { return s.Match(ctx, scope, frame) })
}

// MatchProbe is Match for callers that already hold a probe embedding.
func (c *Coordinator) MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (MatchOutcome, error) {
	return c.run(ctx, scope,
		func(s Strategy) (MatchOutcome, error) { return s.MatchProbe(ctx, scope, probe) })
}

func (c *Coordinator) run(ctx context.Context, scope tenant.Scope, attempt func(Strategy) (MatchOutcome, error)) (MatchOutcome, error) {
	mode := c.Mode()
	if mode == ModeUninitialized {
		return MatchOutcome{}, ErrNotInitialized
	}

	var optimizedErr error
	if mode == ModeHybrid {
		outcome, err := attempt(c.optimized)
		if err == nil {
			return outcome, nil
		}
		// Caught locally: retry the same call on the guaranteed path.
		optimizedErr = err
		log.Printf("optimized match failed for %s, falling back: %v", scope, err)
	}

	outcome, err := attempt(c.fallback)
	if err != nil {
		if optimizedErr != nil {
			return MatchOutcome{}, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(optimizedErr, err))
		}
		return MatchOutcome{}, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, err)
	}
	return outcome, nil
}
