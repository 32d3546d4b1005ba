package srs

import (
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

// Answer applies a review to card and returns the updated copy. The input
// card is never modified.
func Answer(card domain.Card, d domain.Difficulty, now time.Time) (domain.Card, error) {
	return defaultParams.Answer(card, d, now)
}

// Answer is Answer with p's constants.
func (p Params) Answer(card domain.Card, d domain.Difficulty, now time.Time) (domain.Card, error) {
	if err := card.Validate(); err != nil {
		return domain.Card{}, fmt.Errorf("card %s: %w", card.ID, err)
	}

	next, err := p.NextReviewTime(CurrentIntervalDays(card), d, now)
	if err != nil {
		return domain.Card{}, err
	}

	out := card.Clone()
	answered := now
	out.LastAnswered = &answered
	out.NextReview = &next
	out.History = append(out.History, domain.AnswerRecord{
		Timestamp:    now,
		Difficulty:   d,
		IntervalDays: durationToDays(next.Sub(now)),
	})
	return out, nil
}
