package domain

import (
	"time"

	"github.com/google/uuid"
)

// Card represents a single question-answer flashcard and its review ledger.
// NextReview is nil until the card has been answered once; such a card is due
// immediately.
type Card struct {
	ID           uuid.UUID      `json:"id"`
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	Created      time.Time      `json:"created"`
	LastAnswered *time.Time     `json:"last_answered"` // nil before first answer.
	NextReview   *time.Time     `json:"next_review"`   // nil before first answer.
	History      []AnswerRecord `json:"history"`
}

// AnswerRecord records a single answer event for a card.
// IntervalDays is the gap until the next review at the time of answering and is
// never re-derived.
type AnswerRecord struct {
	Timestamp    time.Time  `json:"timestamp"`
	Difficulty   Difficulty `json:"difficulty"`
	IntervalDays float64    `json:"interval"`
}

// NewCard creates an unanswered card with a random ID.
func NewCard(question, answer string, created time.Time) Card {
	return Card{
		ID:       uuid.New(),
		Question: question,
		Answer:   answer,
		Created:  created,
	}
}

// Validate checks that LastAnswered agrees with History.
func (c Card) Validate() error {
	if len(c.History) == 0 {
		if c.LastAnswered != nil {
			return ErrInconsistentHistory
		}
		return nil
	}
	last := c.History[len(c.History)-1]
	if c.LastAnswered == nil || !c.LastAnswered.Equal(last.Timestamp) {
		return ErrInconsistentHistory
	}
	return nil
}

// Clone returns a deep copy of the card. Pointer fields and the history slice
// are copied by value.
func (c Card) Clone() Card {
	out := c
	if c.LastAnswered != nil {
		v := *c.LastAnswered
		out.LastAnswered = &v
	}
	if c.NextReview != nil {
		v := *c.NextReview
		out.NextReview = &v
	}
	if c.History != nil {
		out.History = make([]AnswerRecord, len(c.History))
		copy(out.History, c.History)
	}
	return out
}
