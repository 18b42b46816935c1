package graphweave

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("graphweave: invalid configuration")

	// ErrNoTextSource is returned when neither a search API key nor a
	// local corpus directory is configured.
	ErrNoTextSource = errors.New("graphweave: no text source configured")

	// ErrEmptySeed is returned when a build is requested for a blank seed.
	ErrEmptySeed = errors.New("graphweave: empty seed entity")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("graphweave: run not found")

	// ErrEmptyGraph is returned when sampling is requested for a run
	// whose stored graph has no entities.
	ErrEmptyGraph = errors.New("graphweave: run graph is empty")

	// ErrEmbeddingUnavailable is returned when an embedding operation is
	// requested but no embedding provider is configured.
	ErrEmbeddingUnavailable = errors.New("graphweave: embedding provider not configured")
)
