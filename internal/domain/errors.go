package domain

import "errors"

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrMalformedEvent marks an event record missing required fields or
	// carrying an out-of-range rating. Raised by validators and decoders;
	// the scheduler kernel trusts its inputs.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrOutOfOrderEvents marks a replay input whose reviewed_at timestamps
	// are not monotonically non-decreasing.
	ErrOutOfOrderEvents = errors.New("events out of order")

	// ErrCheckpointMismatch marks a checkpoint that references a card other
	// than the events supplied. The replayer falls back to the initial state;
	// the caller decides whether to warn.
	ErrCheckpointMismatch = errors.New("checkpoint card mismatch")
)
