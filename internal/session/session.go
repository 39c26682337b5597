// Package session owns the scanning loop for one camera session: probes are
// processed strictly one at a time, and the next probe is only scheduled
// after the current outcome is known.
//
// Camera capture lives outside this repository. Kiosk binaries embed the
// server packages, implement FrameSource over their capture device and run
// one Session per camera; the hosted deployment drives matching through the
// HTTP scan endpoint instead.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// FrameSource supplies frames from a capture device. Next blocks until a
// frame is available or the context is done.
type FrameSource interface {
	Next(ctx context.Context) (vision.Frame, error)
	Close() error
}

// Matcher is the slice of the coordinator the loop needs.
type Matcher interface {
	Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (recognition.MatchOutcome, error)
}

// Recorder is the slice of the attendance recorder the loop needs.
type Recorder interface {
	Record(scope tenant.Scope, memberID string, confidence float64)
}

// Clock abstracts time for deterministic backoff tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Delays between probes. A match pauses longest so one person standing in
// front of the camera is not re-matched every frame.
const (
	DefaultMatchDelay   = 3 * time.Second
	DefaultNoMatchDelay = 500 * time.Millisecond
	DefaultErrorDelay   = 2 * time.Second
)

// Session is one scanning loop bound to a tenant scope and a frame source.
type Session struct {
	scope    tenant.Scope
	source   FrameSource
	matcher  Matcher
	recorder Recorder
	clock    Clock

	matchDelay   time.Duration
	noMatchDelay time.Duration
	errorDelay   time.Duration

	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects a clock. For tests.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithDelays overrides the probe scheduling delays.
func WithDelays(match, noMatch, onError time.Duration) Option {
	return func(s *Session) {
		s.matchDelay = match
		s.noMatchDelay = noMatch
		s.errorDelay = onError
	}
}

// New creates a session. Run must be called exactly once.
func New(scope tenant.Scope, source FrameSource, matcher Matcher, recorder Recorder, opts ...Option) *Session {
	s := &Session{
		scope:        scope,
		source:       source,
		matcher:      matcher,
		recorder:     recorder,
		clock:        realClock{},
		matchDelay:   DefaultMatchDelay,
		noMatchDelay: DefaultNoMatchDelay,
		errorDelay:   DefaultErrorDelay,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the loop until the context is cancelled or Stop is called.
// The frame source is closed on exit. Run returns an error only for
// misuse (second call); per-probe failures are absorbed into backoff.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer close(s.done)
	defer func() {
		if err := s.source.Close(); err != nil {
			log.Printf("closing frame source for %s: %v", s.scope, err)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		delay, err := s.processNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("scan failed for %s: %v", s.scope, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(delay):
		}
	}
}

// processNext handles exactly one probe and returns the delay before the
// next one. In-flight match and record work completes even when the
// session is being stopped; it is simply never rescheduled.
func (s *Session) processNext(ctx context.Context) (time.Duration, error) {
	frame, err := s.source.Next(ctx)
	if err != nil {
		return s.errorDelay, fmt.Errorf("next frame: %w", err)
	}

	outcome, err := s.matcher.Match(ctx, s.scope, frame)
	if err != nil {
		// Only total strategy failure reaches here; absorbed into backoff.
		return s.errorDelay, err
	}

	if !outcome.Matched() {
		return s.noMatchDelay, nil
	}

	s.recorder.Record(s.scope, outcome.Member.ID, outcome.Confidence)
	return s.matchDelay, nil
}

// Stop cancels the loop and waits for it to finish. The capture resource
// is released before Stop returns. Safe to call at any point relative to
// Run, including before it.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}
