package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewEventWire_RoundTrip(t *testing.T) {
	e := ReviewEvent{
		ID:         "e1",
		CardID:     "c1",
		Rating:     RatingEasy,
		ReviewedAt: time.Date(2024, 1, 15, 10, 0, 0, 123456789, time.UTC),
	}

	data, err := EncodeReviewEvent(e)
	require.NoError(t, err)

	got, err := DecodeReviewEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestDecodeReviewEvent(t *testing.T) {
	got, err := DecodeReviewEvent([]byte(`{"id":"e1","card_id":"c1","rating":2,"reviewed_at":"2024-01-15T10:00:00Z"}`))
	require.NoError(t, err)

	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "c1", got.CardID)
	assert.Equal(t, RatingGood, got.Rating)
	assert.Equal(t, t0, got.ReviewedAt)
}

func TestDecodeReviewEvent_UnknownFieldsIgnored(t *testing.T) {
	got, err := DecodeReviewEvent([]byte(`{"id":"e1","card_id":"c1","rating":0,"reviewed_at":"2024-01-15T10:00:00Z","duration_ms":1500,"client":"ios"}`))
	require.NoError(t, err)
	assert.Equal(t, RatingAgain, got.Rating)
}

func TestDecodeReviewEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"missing id", `{"card_id":"c1","rating":2,"reviewed_at":"2024-01-15T10:00:00Z"}`},
		{"missing card_id", `{"id":"e1","rating":2,"reviewed_at":"2024-01-15T10:00:00Z"}`},
		{"missing rating", `{"id":"e1","card_id":"c1","reviewed_at":"2024-01-15T10:00:00Z"}`},
		{"missing reviewed_at", `{"id":"e1","card_id":"c1","rating":2}`},
		{"rating out of range", `{"id":"e1","card_id":"c1","rating":5,"reviewed_at":"2024-01-15T10:00:00Z"}`},
		{"bad timestamp", `{"id":"e1","card_id":"c1","rating":2,"reviewed_at":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReviewEvent([]byte(tt.in))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestCardStateWire_RoundTrip(t *testing.T) {
	next := t0.Add(8 * 24 * time.Hour)
	last := t0
	s := ComputedCardState{
		Queue:          QueueReview,
		Stability:      8.2956,
		Difficulty:     3.14,
		ScheduledDays:  8,
		Reps:           3,
		Lapses:         1,
		NextReviewAt:   &next,
		LastReviewedAt: &last,
	}

	data, err := EncodeCardState(s)
	require.NoError(t, err)

	got, err := DecodeCardState(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestCardStateWire_NewCardNullTimestamps(t *testing.T) {
	data, err := EncodeCardState(InitialState())
	require.NoError(t, err)

	assert.Contains(t, string(data), `"next_review_at":null`)
	assert.Contains(t, string(data), `"last_reviewed_at":null`)

	got, err := DecodeCardState(data)
	require.NoError(t, err)
	assert.Equal(t, InitialState(), got)
}

func TestDecodeCardState_UnknownQueue(t *testing.T) {
	_, err := DecodeCardState([]byte(`{"queue":"FROZEN","stability":1,"difficulty":1,"scheduled_days":1,"reps":1,"lapses":0,"next_review_at":null,"last_reviewed_at":null}`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckpointWire_RoundTrip(t *testing.T) {
	next := t0.Add(8 * 24 * time.Hour)
	last := t0
	cp := CardCheckpoint{
		CardID:       "c1",
		CheckpointAt: t0,
		EventCount:   5,
		State: ComputedCardState{
			Queue:          QueueReview,
			Stability:      12.5,
			Difficulty:     4.2,
			ScheduledDays:  12,
			Reps:           5,
			Lapses:         2,
			NextReviewAt:   &next,
			LastReviewedAt: &last,
		},
	}

	data, err := EncodeCheckpoint(cp)
	require.NoError(t, err)

	got, err := DecodeCheckpoint(data)
	require.NoError(t, err)
	assert.Equal(t, cp, got)
}

func TestDecodeCheckpoint_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `[`},
		{"missing card_id", `{"checkpoint_at":"2024-01-15T10:00:00Z","event_count":1,"state":{"queue":"NEW"}}`},
		{"negative event_count", `{"card_id":"c1","checkpoint_at":"2024-01-15T10:00:00Z","event_count":-1,"state":{"queue":"NEW"}}`},
		{"bad checkpoint_at", `{"card_id":"c1","checkpoint_at":"soon","event_count":1,"state":{"queue":"NEW"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCheckpoint([]byte(tt.in))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
