package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire formats for events and checkpoints. Timestamps are ISO-8601 UTC.
// Unknown fields are ignored. A malformed event (missing required field,
// bad rating or timestamp) fails with ErrMalformedEvent; a malformed
// checkpoint or card state fails with ErrValidation.

// reviewEventJSON is the intermediate struct for ReviewEvent serialization.
// Pointer fields distinguish "absent" from zero values on decode.
type reviewEventJSON struct {
	ID         *string `json:"id"`
	CardID     *string `json:"card_id"`
	Rating     *int    `json:"rating"`
	ReviewedAt *string `json:"reviewed_at"`
}

// EncodeReviewEvent serializes an event into its wire format.
func EncodeReviewEvent(e ReviewEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	id, cardID, rating := e.ID, e.CardID, int(e.Rating)
	at := e.ReviewedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(reviewEventJSON{
		ID:         &id,
		CardID:     &cardID,
		Rating:     &rating,
		ReviewedAt: &at,
	})
}

// DecodeReviewEvent parses an event from its wire format.
func DecodeReviewEvent(data []byte) (ReviewEvent, error) {
	var j reviewEventJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return ReviewEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if j.ID == nil || j.CardID == nil || j.Rating == nil || j.ReviewedAt == nil {
		return ReviewEvent{}, fmt.Errorf("%w: missing required field", ErrMalformedEvent)
	}
	at, err := time.Parse(time.RFC3339Nano, *j.ReviewedAt)
	if err != nil {
		return ReviewEvent{}, fmt.Errorf("%w: reviewed_at: %v", ErrMalformedEvent, err)
	}
	e := ReviewEvent{
		ID:         *j.ID,
		CardID:     *j.CardID,
		Rating:     Rating(*j.Rating),
		ReviewedAt: at.UTC(),
	}
	if err := e.Validate(); err != nil {
		return ReviewEvent{}, err
	}
	return e, nil
}

// cardStateJSON is the intermediate struct for ComputedCardState serialization.
type cardStateJSON struct {
	Queue          string  `json:"queue"`
	Stability      float64 `json:"stability"`
	Difficulty     float64 `json:"difficulty"`
	ScheduledDays  int     `json:"scheduled_days"`
	Reps           int     `json:"reps"`
	Lapses         int     `json:"lapses"`
	NextReviewAt   *string `json:"next_review_at"`
	LastReviewedAt *string `json:"last_reviewed_at"`
}

func toCardStateJSON(s ComputedCardState) cardStateJSON {
	j := cardStateJSON{
		Queue:         string(s.Queue),
		Stability:     s.Stability,
		Difficulty:    s.Difficulty,
		ScheduledDays: s.ScheduledDays,
		Reps:          s.Reps,
		Lapses:        s.Lapses,
	}
	if s.NextReviewAt != nil {
		t := s.NextReviewAt.UTC().Format(time.RFC3339Nano)
		j.NextReviewAt = &t
	}
	if s.LastReviewedAt != nil {
		t := s.LastReviewedAt.UTC().Format(time.RFC3339Nano)
		j.LastReviewedAt = &t
	}
	return j
}

func fromCardStateJSON(j cardStateJSON) (ComputedCardState, error) {
	s := ComputedCardState{
		Queue:         Queue(j.Queue),
		Stability:     j.Stability,
		Difficulty:    j.Difficulty,
		ScheduledDays: j.ScheduledDays,
		Reps:          j.Reps,
		Lapses:        j.Lapses,
	}
	if !s.Queue.IsValid() {
		return ComputedCardState{}, fmt.Errorf("%w: unknown queue %q", ErrValidation, j.Queue)
	}
	if j.NextReviewAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *j.NextReviewAt)
		if err != nil {
			return ComputedCardState{}, fmt.Errorf("%w: next_review_at: %v", ErrValidation, err)
		}
		t = t.UTC()
		s.NextReviewAt = &t
	}
	if j.LastReviewedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *j.LastReviewedAt)
		if err != nil {
			return ComputedCardState{}, fmt.Errorf("%w: last_reviewed_at: %v", ErrValidation, err)
		}
		t = t.UTC()
		s.LastReviewedAt = &t
	}
	return s, nil
}

// EncodeCardState serializes a derived state into its wire format.
func EncodeCardState(s ComputedCardState) ([]byte, error) {
	return json.Marshal(toCardStateJSON(s))
}

// DecodeCardState parses a derived state from its wire format.
func DecodeCardState(data []byte) (ComputedCardState, error) {
	var j cardStateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return ComputedCardState{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return fromCardStateJSON(j)
}

// cardCheckpointJSON is the intermediate struct for CardCheckpoint serialization.
type cardCheckpointJSON struct {
	CardID       string        `json:"card_id"`
	CheckpointAt string        `json:"checkpoint_at"`
	EventCount   int           `json:"event_count"`
	State        cardStateJSON `json:"state"`
}

// EncodeCheckpoint serializes a checkpoint into its wire format.
func EncodeCheckpoint(c CardCheckpoint) ([]byte, error) {
	return json.Marshal(cardCheckpointJSON{
		CardID:       c.CardID,
		CheckpointAt: c.CheckpointAt.UTC().Format(time.RFC3339Nano),
		EventCount:   c.EventCount,
		State:        toCardStateJSON(c.State),
	})
}

// DecodeCheckpoint parses a checkpoint from its wire format.
func DecodeCheckpoint(data []byte) (CardCheckpoint, error) {
	var j cardCheckpointJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return CardCheckpoint{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if j.CardID == "" {
		return CardCheckpoint{}, fmt.Errorf("%w: checkpoint missing card_id", ErrValidation)
	}
	if j.EventCount < 0 {
		return CardCheckpoint{}, fmt.Errorf("%w: checkpoint event_count %d negative", ErrValidation, j.EventCount)
	}
	at, err := time.Parse(time.RFC3339Nano, j.CheckpointAt)
	if err != nil {
		return CardCheckpoint{}, fmt.Errorf("%w: checkpoint_at: %v", ErrValidation, err)
	}
	state, err := fromCardStateJSON(j.State)
	if err != nil {
		return CardCheckpoint{}, err
	}
	return CardCheckpoint{
		CardID:       j.CardID,
		CheckpointAt: at.UTC(),
		EventCount:   j.EventCount,
		State:        state,
	}, nil
}
