package deck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/srs"
	"github.com/conorfennell/recall/internal/stats"
	"github.com/google/uuid"
)

// AnswerResult is the outcome of recording an answer.
type AnswerResult struct {
	Card   domain.Card       `json:"card"`
	Status domain.DueStatus  `json:"status"`
	Stats  domain.StudyStats `json:"stats"`
}

// RecordAnswer applies a difficulty rating to a card, stores the updated card,
// and recomputes the study stats so the streak reflects the answer.
func (s *Service) RecordAnswer(ctx context.Context, id uuid.UUID, d domain.Difficulty) (AnswerResult, error) {
	if !d.IsValid() {
		return AnswerResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidDifficulty, int(d))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("get card: %w", err)
	}

	updated, err := srs.Answer(card, d, now)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("answer card: %w", err)
	}
	if err := s.store.UpdateCard(ctx, updated); err != nil {
		return AnswerResult{}, fmt.Errorf("save card: %w", err)
	}

	st, err := s.recomputeLocked(ctx, now)
	if err != nil {
		return AnswerResult{}, err
	}

	s.log.InfoContext(ctx, "answer recorded",
		slog.String("card_id", id.String()),
		slog.String("difficulty", d.String()),
		slog.Time("next_review", *updated.NextReview),
		slog.Int("streak", st.Streak),
	)

	return AnswerResult{
		Card:   updated,
		Status: srs.Classify(updated, now),
		Stats:  st,
	}, nil
}

// Queue returns the cards to study now, in review order.
func (s *Service) Queue(ctx context.Context) ([]domain.Card, error) {
	cards, err := s.Cards(ctx)
	if err != nil {
		return nil, err
	}
	return srs.BuildQueue(cards, s.now()), nil
}

// Status classifies a single card at the current instant.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (domain.DueStatus, error) {
	_, status, err := s.CardStatus(ctx, id)
	return status, err
}

// CardStatus returns a card together with its status, both taken from a
// single read.
func (s *Service) CardStatus(ctx context.Context, id uuid.UUID) (domain.Card, domain.DueStatus, error) {
	card, err := s.Card(ctx, id)
	if err != nil {
		return domain.Card{}, "", err
	}
	return card, srs.Classify(card, s.now()), nil
}

// Stats recomputes the study stats and persists any streak change.
func (s *Service) Stats(ctx context.Context) (domain.StudyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(ctx, s.now())
}

// Dashboard returns the stats together with the weekly activity and the
// number of cards due in the coming week.
func (s *Service) Dashboard(ctx context.Context) (stats.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, prior, err := s.snapshot(ctx)
	if err != nil {
		return stats.Dashboard{}, err
	}
	d, next := stats.BuildDashboard(cards, s.now(), prior)
	if err := s.saveStreakIfChanged(ctx, prior, next); err != nil {
		return stats.Dashboard{}, err
	}
	return d, nil
}

func (s *Service) recomputeLocked(ctx context.Context, now time.Time) (domain.StudyStats, error) {
	cards, prior, err := s.snapshot(ctx)
	if err != nil {
		return domain.StudyStats{}, err
	}
	st, next := stats.Recompute(cards, now, prior)
	if err := s.saveStreakIfChanged(ctx, prior, next); err != nil {
		return domain.StudyStats{}, err
	}
	return st, nil
}

func (s *Service) snapshot(ctx context.Context) ([]domain.Card, domain.StreakState, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, domain.StreakState{}, fmt.Errorf("list cards: %w", err)
	}
	prior, err := s.store.LoadStreak(ctx)
	if err != nil {
		return nil, domain.StreakState{}, fmt.Errorf("load streak: %w", err)
	}
	return cards, prior, nil
}

func (s *Service) saveStreakIfChanged(ctx context.Context, prior, next domain.StreakState) error {
	if sameStreak(prior, next) {
		return nil
	}
	if err := s.store.SaveStreak(ctx, next); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	s.log.InfoContext(ctx, "streak updated", slog.Int("streak", next.Streak))
	return nil
}

func sameStreak(a, b domain.StreakState) bool {
	if a.Streak != b.Streak {
		return false
	}
	if a.LastStudyDate == nil || b.LastStudyDate == nil {
		return a.LastStudyDate == nil && b.LastStudyDate == nil
	}
	return a.LastStudyDate.Equal(*b.LastStudyDate)
}
