package fsrs

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// fuzzRange defines a tier of the 3-tier interval fuzz.
type fuzzRange struct {
	start  float64
	end    float64
	factor float64
}

var fuzzRanges = []fuzzRange{
	{start: 2.5, end: 7.0, factor: 0.15},
	{start: 7.0, end: 20.0, factor: 0.10},
	{start: 20.0, end: math.MaxFloat64, factor: 0.05},
}

// getFuzzRange returns the inclusive [min, max] day bounds after fuzz.
// The range widens with the interval; it never drops below 2 days and
// never crosses the maximum-interval clamp.
func getFuzzRange(interval, maximumInterval float64) (minIvl, maxIvl int) {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}

	minIvl = int(math.Round(interval - delta))
	maxIvl = int(math.Round(interval + delta))

	if minIvl < 2 {
		minIvl = 2
	}
	if maxIvl > int(maximumInterval) {
		maxIvl = int(maximumInterval)
	}
	if minIvl > maxIvl {
		minIvl = maxIvl
	}
	return minIvl, maxIvl
}

// applyFuzz jitters a scheduled interval of at least 3 days within its fuzz
// range, using a PRNG seeded from (card id, review timestamp) so the result
// is reproducible everywhere.
func applyFuzz(p Parameters, interval int, rev Review) int {
	if interval < 3 {
		return interval
	}

	minIvl, maxIvl := getFuzzRange(float64(interval), float64(p.MaximumInterval))
	if minIvl >= maxIvl {
		return minIvl
	}

	//nolint:gosec // deterministic fuzz, not cryptographic
	rng := rand.New(rand.NewSource(fuzzSeed(rev.CardID, rev.At)))
	return minIvl + rng.Intn(maxIvl-minIvl+1)
}

// fuzzSeed derives a stable seed from the card id and the review timestamp
// using FNV-1a. The timestamp is hashed in its canonical UTC form so client
// and server agree on the bit sequence.
func fuzzSeed(cardID string, reviewedAt time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(cardID))
	h.Write([]byte(reviewedAt.UTC().Format(time.RFC3339Nano)))
	return int64(h.Sum64())
}
