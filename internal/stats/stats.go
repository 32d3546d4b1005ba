// Package stats derives study statistics from a card collection. Day
// boundaries are local midnights in the location of the "now" argument.
package stats

import (
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/srs"
)

// HistogramDays is the length of the activity window.
const HistogramDays = 7

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Recompute derives StudyStats from cards and advances the streak.
// The streak only moves when at least one card was answered today; otherwise
// prior is returned unchanged.
func Recompute(cards []domain.Card, now time.Time, prior domain.StreakState) (domain.StudyStats, domain.StreakState) {
	today := StartOfDay(now)

	var answeredToday, due int
	for _, c := range cards {
		if c.LastAnswered != nil && !c.LastAnswered.Before(today) && !c.LastAnswered.After(now) {
			answeredToday++
		}
		if srs.Classify(c, now) == domain.StatusDue {
			due++
		}
	}

	next := prior
	if answeredToday > 0 {
		next = advanceStreak(prior, today)
	}

	return domain.StudyStats{
		AnsweredToday: answeredToday,
		Streak:        next.Streak,
		TotalCards:    len(cards),
		DueCards:      due,
	}, next
}

func advanceStreak(prior domain.StreakState, today time.Time) domain.StreakState {
	streak := prior.Streak
	if prior.LastStudyDate == nil {
		streak = 1
	} else {
		last := StartOfDay(prior.LastStudyDate.In(today.Location()))
		yesterday := today.AddDate(0, 0, -1)
		switch {
		case last.Equal(yesterday):
			streak++
		case last.Before(yesterday):
			streak = 1
		}
		// Today, or a future date from a skewed clock, keeps the count.
	}
	return domain.StreakState{Streak: streak, LastStudyDate: &today}
}

// WeeklyHistogram counts answer records per calendar day for the
// HistogramDays days ending today. Index 0 is the oldest day.
func WeeklyHistogram(cards []domain.Card, now time.Time) [HistogramDays]int {
	var hist [HistogramDays]int
	today := StartOfDay(now)
	oldest := today.AddDate(0, 0, -(HistogramDays - 1))

	for _, c := range cards {
		for _, rec := range c.History {
			day := StartOfDay(rec.Timestamp.In(now.Location()))
			if day.Before(oldest) || day.After(today) {
				continue
			}
			hist[daysBetween(oldest, day)]++
		}
	}
	return hist
}

// daysBetween counts calendar days from a to b, both local midnights.
// It steps with AddDate so DST transitions never shift a bucket.
func daysBetween(a, b time.Time) int {
	n := 0
	for d := a; d.Before(b); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// DueWithin counts scheduled cards whose next review falls in [now, now+window].
func DueWithin(cards []domain.Card, now time.Time, window time.Duration) int {
	end := now.Add(window)
	n := 0
	for _, c := range cards {
		if c.NextReview == nil {
			continue
		}
		if !c.NextReview.Before(now) && !c.NextReview.After(end) {
			n++
		}
	}
	return n
}
