// Package scheduler derives card scheduling state from append-only review
// event logs. It is a pure library: no I/O, no global state, no clocks —
// given the same events and settings it always produces the same state.
package scheduler

import (
	"fmt"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
	"github.com/heartwood-labs/lexicard-backend/internal/service/scheduler/fsrs"
)

// ApplyReview advances a card state by a single review. The input state is
// not mutated. cardID seeds the deterministic interval fuzz when enabled.
func ApplyReview(state domain.ComputedCardState, cardID string, rating domain.Rating, settings domain.DeckSettings, now time.Time) domain.ComputedCardState {
	return fsrs.Next(fsrs.FromSettings(settings), state, fsrs.Review{
		CardID: cardID,
		Rating: fsrs.GradeFromRating(rating),
		At:     now,
	})
}

// ComputeState folds an ordered event sequence into a derived card state.
//
// Events must be sorted non-decreasingly by ReviewedAt with ties broken by
// event id (see domain.SortEvents); a strictly decreasing timestamp stops the
// replay with ErrOutOfOrderEvents. Events sharing an id with one already
// folded are skipped, so a log that carries a synced event twice is harmless.
//
// A checkpoint, when provided and belonging to the same card, replaces the
// initial state and only the suffix of events strictly after
// checkpoint.CheckpointAt is replayed. A checkpoint for a different card is
// ignored and the full log is replayed from the initial state.
func ComputeState(events []domain.ReviewEvent, settings domain.DeckSettings, checkpoint *domain.CardCheckpoint) (domain.ComputedCardState, error) {
	params := fsrs.FromSettings(settings)

	state := domain.InitialState()
	useCheckpoint := checkpoint != nil
	if useCheckpoint && len(events) > 0 && !checkpoint.Matches(events[0].CardID) {
		useCheckpoint = false
	}
	if useCheckpoint {
		state = checkpoint.State
	}

	seen := make(map[string]struct{}, len(events))
	var prev *domain.ReviewEvent
	for i := range events {
		e := events[i]

		if prev != nil && e.ReviewedAt.Before(prev.ReviewedAt) {
			return domain.ComputedCardState{}, fmt.Errorf(
				"%w: event %s at %s precedes event %s at %s",
				domain.ErrOutOfOrderEvents,
				e.ID, e.ReviewedAt.UTC().Format(time.RFC3339Nano),
				prev.ID, prev.ReviewedAt.UTC().Format(time.RFC3339Nano),
			)
		}
		prev = &events[i]

		if useCheckpoint && !e.ReviewedAt.After(checkpoint.CheckpointAt) {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}

		state = fsrs.Next(params, state, fsrs.Review{
			CardID: e.CardID,
			Rating: fsrs.GradeFromRating(e.Rating),
			At:     e.ReviewedAt,
		})
	}

	return state, nil
}
