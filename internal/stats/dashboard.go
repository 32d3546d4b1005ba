package stats

import (
	"math"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/srs"
)

// LearnedAnswers is the number of answers after which a card counts as learned.
const LearnedAnswers = 3

// Progress splits the collection by how far each card has been studied.
type Progress struct {
	New            int `json:"new"`
	Learning       int `json:"learning"`
	Learned        int `json:"learned"`
	LearnedPercent int `json:"learned_percent"`
}

// Dashboard is everything the study overview shows.
type Dashboard struct {
	Stats       domain.StudyStats  `json:"stats"`
	Weekly      [HistogramDays]int `json:"weekly"`
	DueNextWeek int                `json:"due_next_week"`
	Progress    Progress           `json:"progress"`
}

// BuildDashboard recomputes the overview and the streak state behind it.
func BuildDashboard(cards []domain.Card, now time.Time, prior domain.StreakState) (Dashboard, domain.StreakState) {
	st, next := Recompute(cards, now, prior)
	return Dashboard{
		Stats:       st,
		Weekly:      WeeklyHistogram(cards, now),
		DueNextWeek: DueWithin(cards, now, HistogramDays*srs.Day),
		Progress:    CardProgress(cards),
	}, next
}

// CardProgress counts never-answered, learning and learned cards. Cards with
// fewer than LearnedAnswers answers are still learning. LearnedPercent is
// rounded to the nearest whole percent and is 0 for an empty collection.
func CardProgress(cards []domain.Card) Progress {
	var p Progress
	for _, c := range cards {
		switch {
		case c.LastAnswered == nil:
			p.New++
		case len(c.History) < LearnedAnswers:
			p.Learning++
		default:
			p.Learned++
		}
	}
	if len(cards) > 0 {
		p.LearnedPercent = int(math.Round(float64(p.Learned) * 100 / float64(len(cards))))
	}
	return p
}
