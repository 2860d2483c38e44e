package fsrs

import (
	"math"
	"testing"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func review(rating Rating, at time.Time) Review {
	return Review{CardID: "c1", Rating: rating, At: at}
}

func TestNext_NewCard_AgainHardGood_EnterLearning(t *testing.T) {
	p := defaultParams()
	w := domain.DefaultWeights

	for _, rating := range []Rating{Again, Hard, Good} {
		got := Next(p, domain.InitialState(), review(rating, t0))

		if got.Queue != domain.QueueLearning {
			t.Errorf("rating %d: queue = %s, want LEARNING", rating, got.Queue)
		}
		if got.Reps != 1 || got.Lapses != 0 {
			t.Errorf("rating %d: reps=%d lapses=%d, want 1/0", rating, got.Reps, got.Lapses)
		}
		if got.ScheduledDays != 0 {
			t.Errorf("rating %d: scheduled_days = %d, want 0", rating, got.ScheduledDays)
		}
		if math.Abs(got.Stability-math.Max(MinStability, w[int(rating)-1])) > epsilon {
			t.Errorf("rating %d: stability = %f, want w%d", rating, got.Stability, int(rating)-1)
		}
		if got.Difficulty < 1 || got.Difficulty > 10 {
			t.Errorf("rating %d: difficulty = %f, out of [1,10]", rating, got.Difficulty)
		}
		if got.NextReviewAt == nil || !got.NextReviewAt.After(t0) {
			t.Errorf("rating %d: next review not scheduled after now", rating)
		}
		if got.NextReviewAt.Sub(t0) > time.Hour {
			t.Errorf("rating %d: learning delay %v too long", rating, got.NextReviewAt.Sub(t0))
		}
		if got.LastReviewedAt == nil || !got.LastReviewedAt.Equal(t0) {
			t.Errorf("rating %d: last_reviewed_at not set to now", rating)
		}
	}
}

func TestNext_NewCard_Easy_SkipsLearning(t *testing.T) {
	p := defaultParams()

	got := Next(p, domain.InitialState(), review(Easy, t0))

	if got.Queue != domain.QueueReview {
		t.Fatalf("queue = %s, want REVIEW", got.Queue)
	}
	if math.Abs(got.Stability-8.2956) > epsilon {
		t.Errorf("stability = %f, want w3 = 8.2956", got.Stability)
	}
	if got.ScheduledDays < 7 || got.ScheduledDays > 10 {
		t.Errorf("scheduled_days = %d, want within [7,10]", got.ScheduledDays)
	}
	wantDue := t0.Add(time.Duration(got.ScheduledDays) * 24 * time.Hour)
	if got.NextReviewAt == nil || !got.NextReviewAt.Equal(wantDue) {
		t.Errorf("next_review_at = %v, want %v", got.NextReviewAt, wantDue)
	}
}

func TestNext_Learning_Again_StaysInQueue(t *testing.T) {
	p := defaultParams()

	learning := Next(p, domain.InitialState(), review(Good, t0))
	got := Next(p, learning, review(Again, t0.Add(5*time.Minute)))

	if got.Queue != domain.QueueLearning {
		t.Errorf("queue = %s, want LEARNING", got.Queue)
	}
	if got.Lapses != 0 {
		t.Errorf("lapses = %d, want 0 (failures outside REVIEW are not lapses)", got.Lapses)
	}
	if got.Reps != 2 {
		t.Errorf("reps = %d, want 2", got.Reps)
	}
	if got.ScheduledDays != 0 {
		t.Errorf("scheduled_days = %d, want 0", got.ScheduledDays)
	}
}

func TestNext_Learning_Good_Graduates(t *testing.T) {
	p := defaultParams()

	learning := Next(p, domain.InitialState(), review(Good, t0))
	got := Next(p, learning, review(Good, t0.Add(10*time.Minute)))

	if got.Queue != domain.QueueReview {
		t.Fatalf("queue = %s, want REVIEW", got.Queue)
	}
	if got.ScheduledDays < 1 {
		t.Errorf("scheduled_days = %d, graduation requires >= 1", got.ScheduledDays)
	}
	// Same-day graduation leaves stability at the short-term value.
	if math.Abs(got.Stability-learning.Stability) > epsilon {
		t.Errorf("stability = %f, want unchanged %f at R=1", got.Stability, learning.Stability)
	}
}

func TestNext_Review_Again_LapsesToRelearning(t *testing.T) {
	p := defaultParams()

	rev := Next(p, domain.InitialState(), review(Easy, t0))
	at := t0.Add(8 * 24 * time.Hour)
	got := Next(p, rev, review(Again, at))

	if got.Queue != domain.QueueRelearning {
		t.Fatalf("queue = %s, want RELEARNING", got.Queue)
	}
	if got.Lapses != 1 {
		t.Errorf("lapses = %d, want 1", got.Lapses)
	}
	if got.Stability >= rev.Stability {
		t.Errorf("stability = %f, should drop below %f after a lapse", got.Stability, rev.Stability)
	}
	if got.Stability < MinStability {
		t.Errorf("stability = %f, below floor", got.Stability)
	}
	if got.ScheduledDays != 0 {
		t.Errorf("scheduled_days = %d, want 0 for short-term", got.ScheduledDays)
	}
}

func TestNext_Relearning_Good_GraduatesBack(t *testing.T) {
	p := defaultParams()

	rev := Next(p, domain.InitialState(), review(Easy, t0))
	relearning := Next(p, rev, review(Again, t0.Add(8*24*time.Hour)))
	got := Next(p, relearning, review(Good, t0.Add(8*24*time.Hour+10*time.Minute)))

	if got.Queue != domain.QueueReview {
		t.Fatalf("queue = %s, want REVIEW", got.Queue)
	}
	if got.Lapses != 1 {
		t.Errorf("lapses = %d, want unchanged 1", got.Lapses)
	}
}

func TestNext_Review_Good_StabilityGrows(t *testing.T) {
	p := defaultParams()

	state := Next(p, domain.InitialState(), review(Easy, t0))
	at := t0
	for i := 0; i < 5; i++ {
		at = at.Add(time.Duration(state.ScheduledDays) * 24 * time.Hour)
		next := Next(p, state, review(Good, at))
		if next.Stability < state.Stability {
			t.Fatalf("step %d: stability fell from %f to %f on Good at due date", i, state.Stability, next.Stability)
		}
		if next.Queue != domain.QueueReview {
			t.Fatalf("step %d: queue = %s, want REVIEW", i, next.Queue)
		}
		if next.Difficulty < 1 || next.Difficulty > 10 {
			t.Fatalf("step %d: difficulty %f out of [1,10]", i, next.Difficulty)
		}
		if next.Stability > float64(p.MaximumInterval) {
			t.Fatalf("step %d: stability %f exceeds maximum interval", i, next.Stability)
		}
		state = next
	}
}

func TestNext_DoesNotMutateInput(t *testing.T) {
	p := defaultParams()

	state := domain.InitialState()
	_ = Next(p, state, review(Easy, t0))

	if state.Queue != domain.QueueNew || state.Reps != 0 || state.NextReviewAt != nil {
		t.Errorf("input state was mutated: %+v", state)
	}
}

func TestNext_Deterministic(t *testing.T) {
	p := defaultParams()
	p.EnableFuzz = true

	run := func() domain.ComputedCardState {
		state := Next(p, domain.InitialState(), review(Easy, t0))
		state = Next(p, state, review(Good, t0.Add(9*24*time.Hour)))
		state = Next(p, state, review(Hard, t0.Add(30*24*time.Hour)))
		return state
	}

	a, b := run(), run()
	if a.Stability != b.Stability || a.Difficulty != b.Difficulty ||
		a.ScheduledDays != b.ScheduledDays || !a.NextReviewAt.Equal(*b.NextReviewAt) {
		t.Errorf("same inputs produced different states:\n%+v\n%+v", a, b)
	}
}

func TestNext_ElapsedDaysClampedAtZero(t *testing.T) {
	p := defaultParams()

	state := Next(p, domain.InitialState(), review(Easy, t0))
	// Clock skew: a review timestamped before the last one still computes.
	got := Next(p, state, review(Good, t0.Add(-time.Hour)))

	if got.Queue != domain.QueueReview {
		t.Errorf("queue = %s, want REVIEW", got.Queue)
	}
	if got.Stability < state.Stability {
		t.Errorf("stability = %f, want >= %f (delta clamps to 0, R=1)", got.Stability, state.Stability)
	}
}

func TestNext_MaxIntervalCapsSchedule(t *testing.T) {
	p := defaultParams()
	p.MaximumInterval = 30

	state := domain.ComputedCardState{
		Queue:          domain.QueueReview,
		Stability:      5000,
		Difficulty:     3,
		Reps:           10,
		LastReviewedAt: timePtr(t0.Add(-40 * 24 * time.Hour)),
	}
	got := Next(p, state, review(Easy, t0))

	if got.ScheduledDays != 30 {
		t.Errorf("scheduled_days = %d, want capped 30", got.ScheduledDays)
	}
	if got.Stability > 30 {
		t.Errorf("stability = %f, want capped at maximum interval", got.Stability)
	}
}
