package domain

import "time"

// DueStatus is the urgency of a card at a given instant. It is always derived
// from the card and never stored.
type DueStatus string

const (
	StatusDue      DueStatus = "due"
	StatusDueSoon  DueStatus = "due-soon"
	StatusLearning DueStatus = "learning"
	StatusDone     DueStatus = "done"
)

// StudyStats is the derived summary shown on the dashboard.
type StudyStats struct {
	AnsweredToday int `json:"answered_today"`
	Streak        int `json:"streak"`
	TotalCards    int `json:"total_cards"`
	DueCards      int `json:"due_cards"`
}

// StreakState is the only study state that cannot be derived from the cards.
// LastStudyDate is local midnight of the most recent study day, nil if the
// learner has never studied.
type StreakState struct {
	Streak        int        `json:"streak"`
	LastStudyDate *time.Time `json:"last_study_date"`
}
