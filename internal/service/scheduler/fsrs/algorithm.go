// Package fsrs implements the FSRS spaced-repetition model on the 21-weight
// parameter vector. All FSRS mathematics lives here; callers treat their
// inputs as validated and the kernel never fails — out-of-domain values are
// clamped, not trapped.
package fsrs

import (
	"math"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

// MinStability is the floor for stability values after any formula.
const MinStability = 0.01

// Rating is the FSRS grade of a review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// GradeFromRating maps the external 0..3 rating to the FSRS grade 1..4.
func GradeFromRating(r domain.Rating) Rating {
	return Rating(int(r) + 1)
}

// Parameters holds the FSRS configuration for one deck.
type Parameters struct {
	W                [domain.WeightCount]float64
	RequestRetention float64
	MaximumInterval  int
	EnableFuzz       bool
}

// FromSettings converts deck settings into kernel parameters.
func FromSettings(s domain.DeckSettings) Parameters {
	return Parameters{
		W:                s.W,
		RequestRetention: s.RequestRetention,
		MaximumInterval:  s.MaximumInterval,
		EnableFuzz:       s.EnableFuzz,
	}
}

// Decay is the forgetting-curve exponent.
//
//	DECAY = -w20
func (p Parameters) Decay() float64 { return -p.W[20] }

// Factor is the forgetting-curve scale constant, chosen so that NextInterval
// returns the stability itself at a requested retention of 0.9.
//
//	FACTOR = 0.9^(1/DECAY) - 1
func (p Parameters) Factor() float64 {
	return math.Pow(0.9, 1/p.Decay()) - 1
}

// Retrievability is the predicted probability of recall after elapsedDays.
//
//	R(Δ, S) = (1 + Δ/(FACTOR·S))^DECAY
//
// Clamped to [0, 1]. A non-positive stability yields 0.
func Retrievability(p Parameters, elapsedDays int, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	r := math.Pow(1+float64(elapsedDays)/(p.Factor()*stability), p.Decay())
	return math.Max(0, math.Min(1, r))
}

// NextInterval converts stability into a scheduled interval in whole days.
//
//	I(S) = (S/FACTOR) · (request_retention^(1/DECAY) - 1)
//
// Rounded to the nearest day, clamped to [1, maximum_interval].
func NextInterval(p Parameters, stability float64) int {
	ivl := stability / p.Factor() * (math.Pow(p.RequestRetention, 1/p.Decay()) - 1)
	return clampInterval(int(math.Round(ivl)), p.MaximumInterval)
}

// ShortTermInterval is the sub-day delay used for Learning and Relearning:
// the stability interpreted as minutes, bounded below at one minute.
func ShortTermInterval(stability float64) time.Duration {
	return time.Duration(math.Max(1, stability) * float64(time.Minute))
}

// InitialStability returns the starting stability for a first rating.
//
//	S0(G) = w[G-1]
func InitialStability(w [domain.WeightCount]float64, rating Rating) float64 {
	return math.Max(MinStability, w[int(rating)-1])
}

// rawInitialDifficulty is D0 before clamping.
//
//	D0(G) = w4 - exp(w5·(G-1)) + 1
func rawInitialDifficulty(w [domain.WeightCount]float64, rating Rating) float64 {
	return w[4] - math.Exp(w[5]*(float64(rating)-1)) + 1
}

// InitialDifficulty returns the starting difficulty for a first rating,
// clamped to [1, 10].
func InitialDifficulty(w [domain.WeightCount]float64, rating Rating) float64 {
	return clampDifficulty(rawInitialDifficulty(w, rating))
}

// NextDifficulty calculates the difficulty after a review.
//
//	D'(D, G) = w7·D0(Good) + (1-w7)·(D - w6·(G-3))
//
// Mean reversion toward the Good anchor keeps difficulty from drifting.
// Clamped to [1, 10].
func NextDifficulty(w [domain.WeightCount]float64, d float64, rating Rating) float64 {
	anchor := rawInitialDifficulty(w, Good)
	return clampDifficulty(w[7]*anchor + (1-w[7])*(d-w[6]*(float64(rating)-3)))
}

// StabilityAfterRecall calculates post-recall stability (G >= Hard).
//
//	S'r = S · (1 + e^w8 · (11-D) · S^(-w9) · (e^(w10·(1-R)) - 1) · hardPenalty · easyBonus)
//
// hardPenalty = w15 if G == Hard, else 1; easyBonus = w16 if G == Easy, else 1.
func StabilityAfterRecall(w [domain.WeightCount]float64, s, d, r float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = w[16]
	}
	grow := math.Exp(w[8]) *
		(11 - d) *
		math.Pow(s, -w[9]) *
		(math.Exp(w[10]*(1-r)) - 1) *
		hardPenalty *
		easyBonus
	return s * (1 + grow)
}

// StabilityAfterForgetting calculates post-lapse stability (G == Again).
//
//	S'f = w11 · D^(-w12) · ((S+1)^w13 - 1) · e^(w14·(1-R))
func StabilityAfterForgetting(w [domain.WeightCount]float64, s, d, r float64) float64 {
	return w[11] *
		math.Pow(d, -w[12]) *
		(math.Pow(s+1, w[13]) - 1) *
		math.Exp(w[14]*(1-r))
}

// clampStability constrains stability to [MinStability, maximum_interval].
func clampStability(s float64, maxIntervalDays int) float64 {
	return math.Max(MinStability, math.Min(s, float64(maxIntervalDays)))
}

// clampDifficulty constrains difficulty to [1, 10].
func clampDifficulty(d float64) float64 {
	return math.Max(1, math.Min(10, d))
}

// clampInterval constrains an interval to [1, maxDays].
func clampInterval(interval, maxDays int) int {
	if interval < 1 {
		return 1
	}
	if interval > maxDays {
		return maxDays
	}
	return interval
}
