package fsrs

import (
	"math"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

// Review describes one review as the kernel sees it. CardID feeds the
// deterministic fuzz seed; it carries no other meaning here.
type Review struct {
	CardID string
	Rating Rating
	At     time.Time
}

// Next is the FSRS transition function: given the current derived state and
// one review, it returns the new state. The input state is not mutated.
//
// Clamping happens in a fixed order on every path: stability formula,
// stability clamp to [MinStability, maximum_interval], interval formula,
// rounding, integer clamp to [1, maximum_interval], and only then fuzz. Fuzz
// therefore jitters the rounded, clamped interval, not the raw one, and picks
// a whole day that never crosses maximum_interval. This ordering is part of
// the determinism contract — given equal inputs the output is bit-for-bit
// identical across runs and platforms.
func Next(p Parameters, state domain.ComputedCardState, rev Review) domain.ComputedCardState {
	switch state.Queue {
	case domain.QueueLearning, domain.QueueRelearning:
		return reviewShortTerm(p, state, rev)
	case domain.QueueReview:
		return reviewLong(p, state, rev)
	default:
		// New, or an unrecognized queue from a corrupted cache: both start over.
		return reviewNew(p, state, rev)
	}
}

// reviewNew handles a card's first-ever review.
func reviewNew(p Parameters, state domain.ComputedCardState, rev Review) domain.ComputedCardState {
	g := rev.Rating
	state.Stability = clampStability(InitialStability(p.W, g), p.MaximumInterval)
	state.Difficulty = InitialDifficulty(p.W, g)
	state.Reps = 1
	state.Lapses = 0
	state.LastReviewedAt = timePtr(rev.At)

	if g == Easy {
		// Easy skips the learning queue entirely.
		return graduate(p, state, rev)
	}

	state.Queue = domain.QueueLearning
	state.ScheduledDays = 0
	state.NextReviewAt = timePtr(rev.At.Add(ShortTermInterval(state.Stability)))
	return state
}

// reviewShortTerm handles Learning and Relearning cards. Any grade >= Hard
// graduates to Review; Again stays in the same queue, rescheduled short-term.
func reviewShortTerm(p Parameters, state domain.ComputedCardState, rev Review) domain.ComputedCardState {
	g := rev.Rating
	delta := elapsedDays(state, rev.At)
	newD := NextDifficulty(p.W, state.Difficulty, g)
	state.Reps++
	state.LastReviewedAt = timePtr(rev.At)

	if g == Again {
		// Not a lapse: lapses count only for failures out of Review.
		state.Difficulty = newD
		state.ScheduledDays = 0
		state.NextReviewAt = timePtr(rev.At.Add(ShortTermInterval(state.Stability)))
		return state
	}

	// Graduation recomputes stability with the successful-review formula,
	// treating the short-term stability as the prior S. Elapsed days are
	// usually zero here, which makes R = 1 and leaves S unchanged.
	r := Retrievability(p, delta, state.Stability)
	state.Stability = clampStability(StabilityAfterRecall(p.W, state.Stability, state.Difficulty, r, g), p.MaximumInterval)
	state.Difficulty = newD
	return graduate(p, state, rev)
}

// reviewLong handles Review cards: growth on success, relearning on Again.
func reviewLong(p Parameters, state domain.ComputedCardState, rev Review) domain.ComputedCardState {
	g := rev.Rating
	delta := elapsedDays(state, rev.At)
	r := Retrievability(p, delta, state.Stability)

	// Stability formulas use the pre-update difficulty.
	newD := NextDifficulty(p.W, state.Difficulty, g)
	state.Reps++
	state.LastReviewedAt = timePtr(rev.At)

	if g == Again {
		state.Lapses++
		state.Stability = clampStability(StabilityAfterForgetting(p.W, state.Stability, state.Difficulty, r), p.MaximumInterval)
		state.Difficulty = newD
		state.Queue = domain.QueueRelearning
		state.ScheduledDays = 0
		state.NextReviewAt = timePtr(rev.At.Add(ShortTermInterval(state.Stability)))
		return state
	}

	state.Stability = clampStability(StabilityAfterRecall(p.W, state.Stability, state.Difficulty, r, g), p.MaximumInterval)
	state.Difficulty = newD
	return graduate(p, state, rev)
}

// graduate moves the card into the Review queue and schedules it from its
// current stability.
func graduate(p Parameters, state domain.ComputedCardState, rev Review) domain.ComputedCardState {
	ivl := NextInterval(p, state.Stability)
	if p.EnableFuzz {
		ivl = applyFuzz(p, ivl, rev)
	}
	state.Queue = domain.QueueReview
	state.ScheduledDays = ivl
	state.NextReviewAt = timePtr(rev.At.Add(time.Duration(ivl) * 24 * time.Hour))
	return state
}

// elapsedDays is the whole number of days since the last review, never
// negative. FSRS operates on integer elapsed days.
func elapsedDays(state domain.ComputedCardState, now time.Time) int {
	if state.LastReviewedAt == nil {
		return 0
	}
	secs := now.Sub(*state.LastReviewedAt).Seconds()
	d := int(math.Floor(secs / 86400))
	if d < 0 {
		return 0
	}
	return d
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
