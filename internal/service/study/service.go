// Package study orchestrates the event-sourced scheduler over storage:
// it appends review events, replays them into derived card states, and keeps
// the checkpoint cache fresh. All scheduling decisions live in the scheduler
// packages; this layer owns transactions and logging.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
	"github.com/heartwood-labs/lexicard-backend/internal/service/scheduler"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type eventRepo interface {
	Create(ctx context.Context, e domain.ReviewEvent) (bool, error)
	ListByCardID(ctx context.Context, cardID string) ([]domain.ReviewEvent, error)
	ListByCardIDAfter(ctx context.Context, cardID string, after time.Time) ([]domain.ReviewEvent, error)
	LatestReviewedAt(ctx context.Context, cardID string) (*time.Time, error)
	CountByCardID(ctx context.Context, cardID string) (int, error)
	ListCardIDs(ctx context.Context) ([]string, error)
}

type checkpointRepo interface {
	Get(ctx context.Context, cardID string) (domain.CardCheckpoint, error)
	Upsert(ctx context.Context, cp domain.CardCheckpoint) error
	Delete(ctx context.Context, cardID string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the study business logic.
type Service struct {
	events      eventRepo
	checkpoints checkpointRepo
	tx          txManager
	log         *slog.Logger
	settings    domain.DeckSettings
}

// NewService creates a new study service bound to one settings version.
// Callers that change settings must invalidate checkpoints and construct a
// new service.
func NewService(
	log *slog.Logger,
	events eventRepo,
	checkpoints checkpointRepo,
	tx txManager,
	settings domain.DeckSettings,
) *Service {
	return &Service{
		events:      events,
		checkpoints: checkpoints,
		tx:          tx,
		log:         log.With("service", "study"),
		settings:    settings,
	}
}

// Settings returns the deck settings this service schedules with.
func (s *Service) Settings() domain.DeckSettings { return s.settings }

// RecordReview appends a review event and returns the card state derived
// from the extended log. Event append and checkpoint refresh commit together.
func (s *Service) RecordReview(ctx context.Context, cardID string, rating domain.Rating, reviewedAt time.Time) (domain.ComputedCardState, error) {
	if cardID == "" {
		return domain.ComputedCardState{}, fmt.Errorf("%w: missing card_id", domain.ErrMalformedEvent)
	}
	if !rating.IsValid() {
		return domain.ComputedCardState{}, fmt.Errorf("%w: rating %d out of range 0..3", domain.ErrMalformedEvent, int(rating))
	}

	event := domain.NewReviewEvent(cardID, rating, reviewedAt)

	var state domain.ComputedCardState
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.events.Create(txCtx, event); err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		var err error
		state, err = s.deriveAndCheckpoint(txCtx, cardID)
		return err
	})
	if err != nil {
		return domain.ComputedCardState{}, err
	}

	s.log.InfoContext(ctx, "review recorded",
		slog.String("card_id", cardID),
		slog.String("event_id", event.ID),
		slog.String("rating", rating.String()),
		slog.String("queue", string(state.Queue)),
		slog.Int("scheduled_days", state.ScheduledDays),
		slog.Float64("stability", state.Stability),
	)

	return state, nil
}

// CardState derives the current state of a card, fast-forwarding from the
// cached checkpoint when one is valid. A stale checkpoint is refreshed
// opportunistically; a failure to refresh only costs the next caller a
// longer replay, so it is logged and swallowed.
func (s *Service) CardState(ctx context.Context, cardID string) (domain.ComputedCardState, error) {
	cp, haveCP, err := s.loadCheckpoint(ctx, cardID)
	if err != nil {
		return domain.ComputedCardState{}, err
	}

	latest, err := s.events.LatestReviewedAt(ctx, cardID)
	if err != nil {
		return domain.ComputedCardState{}, fmt.Errorf("latest event: %w", err)
	}

	if haveCP && !scheduler.IsStale(cp, latest) {
		// Timestamp freshness alone misses events synced in behind the
		// checkpoint; the count catches those.
		count, err := s.events.CountByCardID(ctx, cardID)
		if err != nil {
			return domain.ComputedCardState{}, fmt.Errorf("count events: %w", err)
		}
		if count == cp.EventCount {
			return cp.State, nil
		}
	}

	state, newCP, err := s.replay(ctx, cardID, cpPtr(cp, haveCP))
	if err != nil {
		return domain.ComputedCardState{}, err
	}

	if newCP != nil {
		if err := s.checkpoints.Upsert(ctx, *newCP); err != nil {
			s.log.WarnContext(ctx, "checkpoint refresh failed",
				slog.String("card_id", cardID),
				slog.String("error", err.Error()),
			)
		}
	}

	return state, nil
}

// Previews returns the four what-if outcomes for a card at the given time.
func (s *Service) Previews(ctx context.Context, cardID string, now time.Time) ([4]scheduler.Preview, error) {
	state, err := s.CardState(ctx, cardID)
	if err != nil {
		return [4]scheduler.Preview{}, err
	}
	return scheduler.IntervalPreviews(state, s.settings, now), nil
}

// Retrievability returns the card's current predicted recall probability.
func (s *Service) Retrievability(ctx context.Context, cardID string, now time.Time) (float64, error) {
	state, err := s.CardState(ctx, cardID)
	if err != nil {
		return 0, err
	}
	return scheduler.Retrievability(state, s.settings, now), nil
}

// RebuildCheckpoint re-derives a card's checkpoint from the full event log,
// ignoring any cached one. Cards without events lose their checkpoint.
func (s *Service) RebuildCheckpoint(ctx context.Context, cardID string) (domain.ComputedCardState, error) {
	var state domain.ComputedCardState
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkpoints.Delete(txCtx, cardID); err != nil {
			return fmt.Errorf("drop checkpoint: %w", err)
		}

		var err error
		state, err = s.deriveAndCheckpoint(txCtx, cardID)
		return err
	})
	if err != nil {
		return domain.ComputedCardState{}, err
	}

	return state, nil
}

// RebuildAllCheckpoints re-derives every card's checkpoint from scratch.
// Returns the number of cards processed.
func (s *Service) RebuildAllCheckpoints(ctx context.Context) (int, error) {
	if _, err := s.checkpoints.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("drop checkpoints: %w", err)
	}

	cardIDs, err := s.events.ListCardIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cards: %w", err)
	}

	for _, cardID := range cardIDs {
		if _, err := s.RebuildCheckpoint(ctx, cardID); err != nil {
			return 0, fmt.Errorf("rebuild card %s: %w", cardID, err)
		}
	}

	s.log.InfoContext(ctx, "checkpoints rebuilt", slog.Int("cards", len(cardIDs)))

	return len(cardIDs), nil
}

// InvalidateCheckpoints drops the whole checkpoint cache. Must be called
// whenever the weight vector or request_retention changes.
func (s *Service) InvalidateCheckpoints(ctx context.Context) error {
	n, err := s.checkpoints.DeleteAll(ctx)
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "checkpoints invalidated", slog.Int64("deleted", n))

	return nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// deriveAndCheckpoint replays a card inside the current transaction and
// refreshes its checkpoint. Called with the log already extended.
func (s *Service) deriveAndCheckpoint(ctx context.Context, cardID string) (domain.ComputedCardState, error) {
	cp, haveCP, err := s.loadCheckpoint(ctx, cardID)
	if err != nil {
		return domain.ComputedCardState{}, err
	}

	state, newCP, err := s.replay(ctx, cardID, cpPtr(cp, haveCP))
	if err != nil {
		return domain.ComputedCardState{}, err
	}

	if newCP == nil {
		// No events at all: nothing to cache.
		if haveCP {
			if err := s.checkpoints.Delete(ctx, cardID); err != nil {
				return domain.ComputedCardState{}, fmt.Errorf("drop empty checkpoint: %w", err)
			}
		}
		return state, nil
	}

	if err := s.checkpoints.Upsert(ctx, *newCP); err != nil {
		return domain.ComputedCardState{}, fmt.Errorf("store checkpoint: %w", err)
	}

	return state, nil
}

// replay computes the state of a card and, when the card has events, the
// checkpoint that captures the result. A checkpoint that cannot serve
// (wrong card, or events predating it have appeared) is discarded.
func (s *Service) replay(ctx context.Context, cardID string, cp *domain.CardCheckpoint) (domain.ComputedCardState, *domain.CardCheckpoint, error) {
	if cp != nil && !cp.Matches(cardID) {
		s.log.WarnContext(ctx, "replaying from scratch",
			slog.String("error", domain.ErrCheckpointMismatch.Error()),
			slog.String("card_id", cardID),
			slog.String("checkpoint_card_id", cp.CardID),
		)
		cp = nil
	}

	count, err := s.events.CountByCardID(ctx, cardID)
	if err != nil {
		return domain.ComputedCardState{}, nil, fmt.Errorf("count events: %w", err)
	}

	var events []domain.ReviewEvent
	if cp != nil {
		events, err = s.events.ListByCardIDAfter(ctx, cardID, cp.CheckpointAt)
		if err == nil && cp.EventCount+len(events) != count {
			// An event landed at or before the checkpoint timestamp (late
			// sync, clock skew). The checkpoint no longer covers a prefix of
			// the log; only a full replay is correct.
			cp = nil
			events, err = s.events.ListByCardID(ctx, cardID)
		}
	} else {
		events, err = s.events.ListByCardID(ctx, cardID)
	}
	if err != nil {
		return domain.ComputedCardState{}, nil, fmt.Errorf("load events: %w", err)
	}

	state, err := scheduler.ComputeState(events, s.settings, cp)
	if err != nil {
		return domain.ComputedCardState{}, nil, fmt.Errorf("replay card %s: %w", cardID, err)
	}

	var newCP *domain.CardCheckpoint
	switch {
	case len(events) > 0:
		c := scheduler.NewCheckpoint(cardID, state, events[len(events)-1], count)
		newCP = &c
	case cp != nil:
		// Checkpoint already current.
		newCP = cp
	}

	return state, newCP, nil
}

// loadCheckpoint fetches the card's checkpoint, treating "none cached" as a
// normal condition.
func (s *Service) loadCheckpoint(ctx context.Context, cardID string) (domain.CardCheckpoint, bool, error) {
	cp, err := s.checkpoints.Get(ctx, cardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CardCheckpoint{}, false, nil
		}
		return domain.CardCheckpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp, true, nil
}

func cpPtr(cp domain.CardCheckpoint, have bool) *domain.CardCheckpoint {
	if !have {
		return nil
	}
	return &cp
}
