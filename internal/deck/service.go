// Package deck is the application service around the scheduling core. It
// loads cards from a Store, applies answers through srs, and persists the
// results together with the streak state.
package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Store persists cards and the streak state.
type Store interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error)
	InsertCard(ctx context.Context, card domain.Card) error
	UpdateCard(ctx context.Context, card domain.Card) error
	DeleteCard(ctx context.Context, id uuid.UUID) error
	LoadStreak(ctx context.Context) (domain.StreakState, error)
	SaveStreak(ctx context.Context, st domain.StreakState) error
}

// Clock supplies the current instant.
type Clock func() time.Time

// Service coordinates card edits, answers and derived views.
type Service struct {
	store    Store
	clock    Clock
	loc      *time.Location
	log      *slog.Logger
	validate *validator.Validate

	// mu serialises read-modify-write sequences issued through this service.
	mu gosync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the time zone that defines study days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService creates a Service backed by store.
func NewService(store Store, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clock:    time.Now,
		loc:      time.Local,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current instant in the study-day zone, truncated to the
// millisecond precision the store keeps. Other layers use it so that every
// timestamp comes from the same clock.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) now() time.Time {
	return s.clock().In(s.loc).Truncate(time.Millisecond)
}

// CardInput is the editable content of a card.
type CardInput struct {
	Question string `json:"question" validate:"required,max=4096"`
	Answer   string `json:"answer" validate:"required,max=4096"`
}

func (s *Service) validateInput(in *CardInput) error {
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.TrimSpace(in.Answer)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s %s", domain.ErrInvalidInput, strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// AddCard creates a new, unanswered card.
func (s *Service) AddCard(ctx context.Context, in CardInput) (domain.Card, error) {
	if err := s.validateInput(&in); err != nil {
		return domain.Card{}, err
	}

	card := domain.NewCard(in.Question, in.Answer, s.now())
	if err := s.store.InsertCard(ctx, card); err != nil {
		return domain.Card{}, fmt.Errorf("save card: %w", err)
	}

	s.log.InfoContext(ctx, "card added", slog.String("card_id", card.ID.String()))
	return card, nil
}

// UpdateCard replaces a card's question and answer. Its schedule and history
// are kept.
func (s *Service) UpdateCard(ctx context.Context, id uuid.UUID, in CardInput) (domain.Card, error) {
	if err := s.validateInput(&in); err != nil {
		return domain.Card{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("get card: %w", err)
	}
	card.Question = in.Question
	card.Answer = in.Answer
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return domain.Card{}, fmt.Errorf("save card: %w", err)
	}

	s.log.InfoContext(ctx, "card updated", slog.String("card_id", id.String()))
	return card, nil
}

// DeleteCard removes a card and its history.
func (s *Service) DeleteCard(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.log.InfoContext(ctx, "card deleted", slog.String("card_id", id.String()))
	return nil
}

// Card returns a single card.
func (s *Service) Card(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

// Cards returns every card.
func (s *Service) Cards(ctx context.Context) ([]domain.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// Search returns the cards whose question or answer contains term,
// ignoring case. An empty term matches every card.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Card, error) {
	cards, err := s.Cards(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return cards, nil
	}

	var out []domain.Card
	for _, c := range cards {
		if strings.Contains(strings.ToLower(c.Question), term) ||
			strings.Contains(strings.ToLower(c.Answer), term) {
			out = append(out, c)
		}
	}
	return out, nil
}
