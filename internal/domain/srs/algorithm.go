package srs

import (
	"math"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// calculateNewEasiness applies the SM-2 easiness update for a quality grade.
//
// The adjustment is 0.1 - (5-q)*(0.08 + (5-q)*0.02): a perfect grade adds 0.1,
// a grade of 4 leaves easiness unchanged and anything lower reduces it. The
// result is clamped to params.MinEasiness. There is no upper bound.
func calculateNewEasiness(current float64, quality int, params *Params) float64 {
	miss := float64(params.MaxQuality - quality)
	next := current + (0.1 - miss*(0.08+miss*0.02))
	if next < params.MinEasiness {
		next = params.MinEasiness
	}
	return next
}

// calculateNewInterval returns the next interval in days and the new repetition count.
//
// A failed grade resets the repetition count and schedules the card for the next
// day. Passing grades step through the fixed first and second intervals and then
// multiply the previous interval by the easiness factor held before this review.
func calculateNewInterval(interval, repetitions int, easiness float64, quality int, params *Params) (int, int) {
	if quality < params.PassThreshold {
		return params.FirstInterval, 0
	}

	repetitions++
	switch repetitions {
	case 1:
		return params.FirstInterval, repetitions
	case 2:
		return params.SecondInterval, repetitions
	default:
		next := int(math.Round(float64(interval) * easiness))
		if next < 1 {
			next = 1
		}
		return next, repetitions
	}
}

// calculateNextCard produces the card state after a review without modifying the input.
func calculateNextCard(card *domain.MemoryCard, quality int, now time.Time, params *Params) *domain.MemoryCard {
	next := card.Clone()

	next.Interval, next.Repetitions = calculateNewInterval(
		card.Interval, card.Repetitions, card.Easiness, quality, params)
	next.Easiness = calculateNewEasiness(card.Easiness, quality, params)

	reviewedAt := now
	next.LastReview = &reviewedAt
	next.NextReview = now.AddDate(0, 0, next.Interval)
	next.TotalReviews++
	if quality >= params.PassThreshold {
		next.CorrectCount++
	}
	next.UpdatedAt = now

	return next
}

// predictRetention estimates recall probability as a percentage using an
// exponential forgetting curve whose stability grows with interval and easiness.
func predictRetention(card *domain.MemoryCard, elapsedDays float64, params *Params) float64 {
	if card.Interval <= 0 {
		return 0
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}

	stability := float64(card.Interval) * (card.Easiness / params.InitialEasiness)
	retention := math.Exp(-elapsedDays / math.Max(stability, 1))

	return math.Round(retention*1000) / 10
}
