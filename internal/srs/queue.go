package srs

import (
	"slices"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

// BuildQueue returns the cards eligible for review at now, oldest schedule
// first. Unscheduled cards come before all scheduled ones and ties keep their
// input order.
func BuildQueue(cards []domain.Card, now time.Time) []domain.Card {
	queue := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		switch Classify(c, now) {
		case domain.StatusDue, domain.StatusLearning:
			queue = append(queue, c)
		}
	}

	slices.SortStableFunc(queue, func(a, b domain.Card) int {
		switch {
		case a.NextReview == nil && b.NextReview == nil:
			return 0
		case a.NextReview == nil:
			return -1
		case b.NextReview == nil:
			return 1
		}
		return a.NextReview.Compare(*b.NextReview)
	})
	return queue
}
