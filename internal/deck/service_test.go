package deck

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/srs"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *storage.DB, *fakeClock) {
	t.Helper()
	return newTestServiceWith(t, func(db *storage.DB) Store { return db })
}

// newTestServiceWith builds a service over a store derived from a fresh
// database.
func newTestServiceWith(t *testing.T, wrap func(*storage.DB) Store) (*Service, *storage.DB, *fakeClock) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(wrap(db), log, WithClock(clock.Now), WithLocation(time.UTC))
	return svc, db, clock
}

// vanishingStore deletes every card right after handing it out, the way a
// concurrent sync removing an orphan would.
type vanishingStore struct {
	*storage.DB
}

func (s vanishingStore) GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	card, err := s.DB.GetCard(ctx, id)
	if err == nil {
		err = s.DB.DeleteCard(ctx, id)
	}
	return card, err
}

// countingStore counts card reads.
type countingStore struct {
	*storage.DB
	reads *int
}

func (s countingStore) GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	*s.reads++
	return s.DB.GetCard(ctx, id)
}

func TestAddCard(t *testing.T) {
	ctx := context.Background()
	svc, db, clock := newTestService(t)

	card, err := svc.AddCard(ctx, CardInput{Question: "  What is Go? ", Answer: "A language"})
	require.NoError(t, err)
	assert.Equal(t, "What is Go?", card.Question)
	assert.True(t, card.Created.Equal(clock.t))

	stored, err := db.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Question, stored.Question)
}

func TestAddCardValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tests := []struct {
		name string
		in   CardInput
	}{
		{"empty question", CardInput{Question: "", Answer: "a"}},
		{"blank answer", CardInput{Question: "q", Answer: "   "}},
		{"oversized question", CardInput{Question: string(make([]byte, 5000)), Answer: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddCard(ctx, tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestUpdateCardKeepsSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	card, err := svc.AddCard(ctx, CardInput{Question: "q", Answer: "a"})
	require.NoError(t, err)
	res, err := svc.RecordAnswer(ctx, card.ID, domain.Easy)
	require.NoError(t, err)

	updated, err := svc.UpdateCard(ctx, card.ID, CardInput{Question: "q2", Answer: "a2"})
	require.NoError(t, err)
	assert.Equal(t, "q2", updated.Question)
	assert.Len(t, updated.History, 1)
	assert.True(t, updated.NextReview.Equal(*res.Card.NextReview))

	_, err = svc.UpdateCard(ctx, uuid.New(), CardInput{Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	card, err := svc.AddCard(ctx, CardInput{Question: "q", Answer: "a"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCard(ctx, card.ID))

	_, err = svc.Card(ctx, card.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteCard(ctx, card.ID), domain.ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, in := range []CardInput{
		{Question: "Capital of France?", Answer: "Paris"},
		{Question: "Capital of Spain?", Answer: "Madrid"},
		{Question: "Largest planet?", Answer: "Jupiter"},
	} {
		_, err := svc.AddCard(ctx, in)
		require.NoError(t, err)
	}

	got, err := svc.Search(ctx, "CAPITAL")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.Search(ctx, "jupiter")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Largest planet?", got[0].Question)

	got, err = svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRecordAnswer(t *testing.T) {
	ctx := context.Background()
	svc, db, clock := newTestService(t)
	start := clock.t

	card, err := svc.AddCard(ctx, CardInput{Question: "q", Answer: "a"})
	require.NoError(t, err)

	res, err := svc.RecordAnswer(ctx, card.ID, domain.Easy)
	require.NoError(t, err)
	assert.True(t, res.Card.NextReview.Equal(start.Add(4*srs.Day)))
	assert.Equal(t, domain.StatusDone, res.Status)
	assert.Equal(t, 1, res.Stats.AnsweredToday)
	assert.Equal(t, 1, res.Stats.Streak)
	assert.Zero(t, res.Stats.DueCards)

	stored, err := db.GetCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, domain.Easy, stored.History[0].Difficulty)

	// Four days later the card is due; the interval was 4 days, medium gives 6.
	clock.Advance(4 * srs.Day)
	status, err := svc.Status(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDue, status)

	res, err = svc.RecordAnswer(ctx, card.ID, domain.Medium)
	require.NoError(t, err)
	assert.True(t, res.Card.NextReview.Equal(clock.t.Add(6*srs.Day)))
	assert.Len(t, res.Card.History, 2)
	assert.Equal(t, 1, res.Stats.Streak, "a three-day gap resets the streak")
}

func TestRecordAnswerErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	card, err := svc.AddCard(ctx, CardInput{Question: "q", Answer: "a"})
	require.NoError(t, err)

	_, err = svc.RecordAnswer(ctx, card.ID, domain.Difficulty(0))
	assert.ErrorIs(t, err, domain.ErrInvalidDifficulty)

	_, err = svc.RecordAnswer(ctx, uuid.New(), domain.Easy)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWritesDoNotRecreateDeletedCard(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestServiceWith(t, func(db *storage.DB) Store { return vanishingStore{db} })

	answered, err := svc.AddCard(ctx, CardInput{Question: "q1", Answer: "a1"})
	require.NoError(t, err)
	_, err = svc.RecordAnswer(ctx, answered.ID, domain.Easy)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = db.GetCard(ctx, answered.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	edited, err := svc.AddCard(ctx, CardInput{Question: "q2", Answer: "a2"})
	require.NoError(t, err)
	_, err = svc.UpdateCard(ctx, edited.ID, CardInput{Question: "q3", Answer: "a3"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = db.GetCard(ctx, edited.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	st, err := db.LoadStreak(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Streak)
}

func TestCardStatusReadsOnce(t *testing.T) {
	ctx := context.Background()
	var reads int
	svc, _, clock := newTestServiceWith(t, func(db *storage.DB) Store { return countingStore{DB: db, reads: &reads} })

	card, err := svc.AddCard(ctx, CardInput{Question: "q", Answer: "a"})
	require.NoError(t, err)

	got, status, err := svc.CardStatus(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, domain.StatusDue, status)
	assert.Equal(t, 1, reads)
	assert.True(t, svc.Now().Equal(clock.t))

	_, _, err = svc.CardStatus(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStreakAcrossDays(t *testing.T) {
	ctx := context.Background()
	svc, db, clock := newTestService(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		c, err := svc.AddCard(ctx, CardInput{Question: uuid.NewString(), Answer: "a"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	for day, id := range ids {
		res, err := svc.RecordAnswer(ctx, id, domain.Hard)
		require.NoError(t, err)
		assert.Equal(t, day+1, res.Stats.Streak)

		// Recomputing again on the same day leaves the streak alone.
		st, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, day+1, st.Streak)

		clock.Advance(24 * time.Hour)
	}

	st, err := db.LoadStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Streak)

	// A day without answers keeps the stored streak until the next answer.
	clock.Advance(24 * time.Hour)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.AnsweredToday)
	assert.Equal(t, 3, stats.Streak)
}

func TestQueueAndDashboard(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)

	first, err := svc.AddCard(ctx, CardInput{Question: "first", Answer: "a"})
	require.NoError(t, err)
	second, err := svc.AddCard(ctx, CardInput{Question: "second", Answer: "b"})
	require.NoError(t, err)

	queue, err := svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].ID)

	_, err = svc.RecordAnswer(ctx, first.ID, domain.Hard)
	require.NoError(t, err)

	queue, err = svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Stats.TotalCards)
	assert.Equal(t, 1, d.Stats.DueCards)
	assert.Equal(t, 1, d.Stats.AnsweredToday)
	assert.Equal(t, 1, d.Weekly[len(d.Weekly)-1])
	assert.Equal(t, 1, d.DueNextWeek)
	assert.Equal(t, 1, d.Progress.New)
	assert.Equal(t, 1, d.Progress.Learning)

	clock.Advance(srs.Day)
	queue, err = svc.Queue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 2, "the hard card is due again after a day")
}
