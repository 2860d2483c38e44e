package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
	"github.com/heartwood-labs/lexicard-backend/internal/service/scheduler/fsrs"
)

// Preview describes what one rating would do to a card right now.
type Preview struct {
	Rating       domain.Rating
	Interval     string
	IntervalDays float64
	Queue        domain.Queue
}

// IntervalPreviews computes the outcome of each possible rating, in the fixed
// order Again, Hard, Good, Easy. The input state is never mutated.
//
// Previews show the un-jittered interval: fuzz is disabled for the what-if
// run so the four buttons render stably while the user hesitates.
func IntervalPreviews(state domain.ComputedCardState, settings domain.DeckSettings, now time.Time) [4]Preview {
	params := fsrs.FromSettings(settings)
	params.EnableFuzz = false

	var previews [4]Preview
	for _, r := range []domain.Rating{domain.RatingAgain, domain.RatingHard, domain.RatingGood, domain.RatingEasy} {
		next := fsrs.Next(params, state, fsrs.Review{
			Rating: fsrs.GradeFromRating(r),
			At:     now,
		})

		var days float64
		if next.NextReviewAt != nil {
			days = next.NextReviewAt.Sub(now).Hours() / 24
		}

		previews[r] = Preview{
			Rating:       r,
			Interval:     FormatInterval(days*24*60, true),
			IntervalDays: days,
			Queue:        next.Queue,
		}
	}
	return previews
}

// Retrievability returns the current predicted recall probability, clamped
// to [0, 1]. A never-reviewed card is fully retrievable by definition.
func Retrievability(state domain.ComputedCardState, settings domain.DeckSettings, now time.Time) float64 {
	if state.Queue == domain.QueueNew || state.LastReviewedAt == nil {
		return 1.0
	}
	params := fsrs.FromSettings(settings)
	elapsed := int(math.Floor(now.Sub(*state.LastReviewedAt).Seconds() / 86400))
	if elapsed < 0 {
		elapsed = 0
	}
	return fsrs.Retrievability(params, elapsed, state.Stability)
}

// FormatInterval renders a duration in minutes as a compact human label:
// minutes, hours, days, weeks, months, then years. When useLessThan is set,
// anything under ten minutes collapses to "<10m".
func FormatInterval(minutes float64, useLessThan bool) string {
	if useLessThan && minutes < 10 {
		return "<10m"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", int(math.Round(minutes)))
	}
	if minutes < 1440 {
		return fmt.Sprintf("%dh", int(math.Round(minutes/60)))
	}

	days := minutes / 1440
	switch {
	case days < 7:
		return fmt.Sprintf("%dd", int(math.Round(days)))
	case days < 30:
		return formatUnit(days/7, "w")
	case days < 365:
		return formatUnit(days/30, "mo")
	default:
		return formatUnit(days/365, "y")
	}
}

// formatUnit prints a scaled value with one decimal unless it rounds clean.
func formatUnit(v float64, unit string) string {
	rounded := math.Round(v*10) / 10
	if rounded == math.Trunc(rounded) {
		return fmt.Sprintf("%d%s", int(rounded), unit)
	}
	return fmt.Sprintf("%.1f%s", rounded, unit)
}
