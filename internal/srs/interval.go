// Package srs holds the scheduling core: the interval model, the due
// classifier and the session queue. Every function is pure; "now" is always
// passed in by the caller.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

// Day is the length of one scheduling day.
const Day = 24 * time.Hour

const (
	// MinIntervalDays and MaxIntervalDays bound every computed interval.
	MinIntervalDays = 1.0
	MaxIntervalDays = 365.0

	// DueSoonThresholdDays is how close a scheduled review must be to count
	// as due-soon.
	DueSoonThresholdDays = 2.0
)

// Params holds the per-difficulty constants of the interval model.
type Params struct {
	Seed       map[domain.Difficulty]float64 // first interval in days
	Multiplier map[domain.Difficulty]float64
}

// DefaultParams returns the standard seeds and multipliers.
func DefaultParams() Params {
	return Params{
		Seed: map[domain.Difficulty]float64{
			domain.Easy:   4,
			domain.Medium: 2,
			domain.Hard:   1,
		},
		Multiplier: map[domain.Difficulty]float64{
			domain.Easy:   2.5,
			domain.Medium: 1.5,
			domain.Hard:   1.2,
		},
	}
}

var defaultParams = DefaultParams()

// NextReviewTime returns when a card should next be reviewed.
// A nil currentIntervalDays means the card has never been answered and the
// difficulty's seed is used as is. Otherwise the interval is scaled by the
// difficulty's multiplier and clamped to [MinIntervalDays, MaxIntervalDays].
func NextReviewTime(currentIntervalDays *float64, d domain.Difficulty, now time.Time) (time.Time, error) {
	return defaultParams.NextReviewTime(currentIntervalDays, d, now)
}

// NextReviewTime is NextReviewTime with p's constants.
func (p Params) NextReviewTime(currentIntervalDays *float64, d domain.Difficulty, now time.Time) (time.Time, error) {
	if !d.IsValid() {
		return time.Time{}, fmt.Errorf("%w: %d", domain.ErrInvalidDifficulty, int(d))
	}

	if currentIntervalDays == nil {
		return now.Add(daysToDuration(p.Seed[d])), nil
	}

	days := *currentIntervalDays * p.Multiplier[d]
	days = math.Max(MinIntervalDays, days)
	days = math.Min(MaxIntervalDays, days)
	return now.Add(daysToDuration(days)), nil
}

// CurrentIntervalDays returns the gap between the card's last answer and its
// scheduled review, in days. It is nil unless both instants are set.
func CurrentIntervalDays(card domain.Card) *float64 {
	if card.LastAnswered == nil || card.NextReview == nil {
		return nil
	}
	days := durationToDays(card.NextReview.Sub(*card.LastAnswered))
	return &days
}

// daysToDuration converts days to a Duration rounded to the nearest millisecond.
func daysToDuration(days float64) time.Duration {
	ms := math.Round(days * float64(Day/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

func durationToDays(d time.Duration) float64 {
	return float64(d) / float64(Day)
}
