package recognition

import "errors"

var (
	// ErrInvalidEmbedding indicates an empty or zero-norm probe vector.
	// It fails the current strategy attempt; the coordinator may fall back.
	ErrInvalidEmbedding = errors.New("invalid probe embedding")

	// ErrDimensionMismatch indicates the probe and a roster embedding have
	// different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotInitialized is returned by Match before Initialize succeeded.
	ErrNotInitialized = errors.New("coordinator not initialized")

	// ErrInitializationFailed is fatal: the guaranteed fallback strategy
	// could not be brought up, so no match attempt can ever complete.
	ErrInitializationFailed = errors.New("recognition initialization failed")

	// ErrAllStrategiesFailed is the only match error surfaced to callers:
	// both the optimized and the fallback strategy failed for one call.
	ErrAllStrategiesFailed = errors.New("all match strategies failed")
)
