package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ReviewEvent is one immutable entry of a card's append-only review log.
// Two events with equal IDs are the same event; sync between client and
// server is a set union keyed by ID.
type ReviewEvent struct {
	ID         string
	CardID     string
	Rating     Rating
	ReviewedAt time.Time
}

// NewReviewEvent creates a review event with a fresh UUID and a UTC timestamp.
func NewReviewEvent(cardID string, rating Rating, reviewedAt time.Time) ReviewEvent {
	return ReviewEvent{
		ID:         uuid.NewString(),
		CardID:     cardID,
		Rating:     rating,
		ReviewedAt: reviewedAt.UTC(),
	}
}

// Validate checks the event's required fields and rating range.
// Violations are reported as ErrMalformedEvent.
func (e ReviewEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	if e.CardID == "" {
		return fmt.Errorf("%w: event %s: missing card_id", ErrMalformedEvent, e.ID)
	}
	if !e.Rating.IsValid() {
		return fmt.Errorf("%w: event %s: rating %d out of range 0..3", ErrMalformedEvent, e.ID, int(e.Rating))
	}
	if e.ReviewedAt.IsZero() {
		return fmt.Errorf("%w: event %s: missing reviewed_at", ErrMalformedEvent, e.ID)
	}
	return nil
}

// Before reports whether e precedes other in the replay total order:
// ascending ReviewedAt, ties broken by lexicographic ID.
func (e ReviewEvent) Before(other ReviewEvent) bool {
	if !e.ReviewedAt.Equal(other.ReviewedAt) {
		return e.ReviewedAt.Before(other.ReviewedAt)
	}
	return e.ID < other.ID
}

// SortEvents sorts events in place into the replay total order.
func SortEvents(events []ReviewEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Before(events[j])
	})
}
