package scheduler

import (
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

// NewCheckpoint snapshots a derived state at the given last event. The
// checkpoint is a value copy; later changes to the state do not affect it.
//
// Checkpoints do not embed settings. When the weight vector or the requested
// retention changes, existing checkpoints are invalid and must be discarded
// by the caller.
func NewCheckpoint(cardID string, state domain.ComputedCardState, lastEvent domain.ReviewEvent, eventCount int) domain.CardCheckpoint {
	return domain.CardCheckpoint{
		CardID:       cardID,
		CheckpointAt: lastEvent.ReviewedAt.UTC(),
		EventCount:   eventCount,
		State:        state,
	}
}

// IsStale reports whether events newer than the checkpoint exist. A nil
// latest timestamp means no events are known and the checkpoint is current.
func IsStale(checkpoint domain.CardCheckpoint, latestEventAt *time.Time) bool {
	if latestEventAt == nil {
		return false
	}
	return latestEventAt.After(checkpoint.CheckpointAt)
}
