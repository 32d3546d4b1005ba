package srs

import (
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

// Classify returns the due status of card at now.
// The overdue check must run before the due-soon threshold.
func Classify(card domain.Card, now time.Time) domain.DueStatus {
	if card.NextReview == nil {
		return domain.StatusDue
	}
	if !now.Before(*card.NextReview) {
		return domain.StatusDue
	}

	daysUntil := durationToDays(card.NextReview.Sub(now))
	if daysUntil <= DueSoonThresholdDays {
		return domain.StatusDueSoon
	}

	// Unreachable once NextReview is set by Answer, kept for malformed input.
	if card.LastAnswered == nil {
		return domain.StatusLearning
	}
	return domain.StatusDone
}
