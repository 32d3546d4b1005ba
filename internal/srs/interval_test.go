package srs

import (
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

var testNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestNextReviewTimeSeeds(t *testing.T) {
	testCases := []struct {
		difficulty domain.Difficulty
		wantDays   int
	}{
		{domain.Easy, 4},
		{domain.Medium, 2},
		{domain.Hard, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.difficulty.String(), func(t *testing.T) {
			got, err := NextReviewTime(nil, tc.difficulty, testNow)
			if err != nil {
				t.Fatalf("NextReviewTime() returned an unexpected error: %v", err)
			}
			want := testNow.Add(time.Duration(tc.wantDays) * Day)
			if !got.Equal(want) {
				t.Errorf("Expected next review %v, but got %v", want, got)
			}
		})
	}
}

func TestNextReviewTimeMultipliers(t *testing.T) {
	testCases := []struct {
		name       string
		interval   float64
		difficulty domain.Difficulty
		want       time.Duration
	}{
		{"medium scales 10 days to 15", 10, domain.Medium, 15 * Day},
		{"easy scales 4 days to 10", 4, domain.Easy, 10 * Day},
		{"hard scales 10 days to 12", 10, domain.Hard, 12 * Day},
		{"easy clamps 300 days to 365", 300, domain.Easy, 365 * Day},
		{"zero interval clamps to one day", 0, domain.Easy, Day},
		{"short interval clamps to one day", 0.5, domain.Hard, Day},
		{"fractional interval keeps sub-day precision", 2, domain.Hard, 2*Day + 9*time.Hour + 36*time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextReviewTime(ptr(tc.interval), tc.difficulty, testNow)
			if err != nil {
				t.Fatalf("NextReviewTime() returned an unexpected error: %v", err)
			}
			if gap := got.Sub(testNow); gap != tc.want {
				t.Errorf("Expected interval %v, but got %v", tc.want, gap)
			}
		})
	}
}

func TestNextReviewTimeBounds(t *testing.T) {
	intervals := []float64{0, 0.01, 0.5, 1, 3.7, 50, 146, 200, 365, 1000}
	for _, d := range []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard} {
		for _, iv := range intervals {
			got, err := NextReviewTime(ptr(iv), d, testNow)
			if err != nil {
				t.Fatalf("NextReviewTime(%v, %s) returned an unexpected error: %v", iv, d, err)
			}
			gap := got.Sub(testNow)
			if gap < Day || gap > 365*Day {
				t.Errorf("NextReviewTime(%v, %s) gap %v outside [1d, 365d]", iv, d, gap)
			}
		}
	}
}

func TestNextReviewTimeMonotonic(t *testing.T) {
	for _, iv := range []float64{0, 1, 2.5, 10, 100, 300} {
		hard, _ := NextReviewTime(ptr(iv), domain.Hard, testNow)
		medium, _ := NextReviewTime(ptr(iv), domain.Medium, testNow)
		easy, _ := NextReviewTime(ptr(iv), domain.Easy, testNow)
		if hard.After(medium) || medium.After(easy) {
			t.Errorf("interval %v: expected hard <= medium <= easy, got %v, %v, %v", iv, hard, medium, easy)
		}
	}
}

func TestNextReviewTimeInvalidDifficulty(t *testing.T) {
	for _, d := range []domain.Difficulty{0, -1, 4} {
		if _, err := NextReviewTime(nil, d, testNow); !errors.Is(err, domain.ErrInvalidDifficulty) {
			t.Errorf("NextReviewTime(nil, %d) error = %v, want ErrInvalidDifficulty", int(d), err)
		}
	}
}

func TestCurrentIntervalDays(t *testing.T) {
	t.Run("nil for a new card", func(t *testing.T) {
		if got := CurrentIntervalDays(domain.Card{}); got != nil {
			t.Errorf("Expected nil interval, but got %v", *got)
		}
	})

	t.Run("nil when only next review is set", func(t *testing.T) {
		if got := CurrentIntervalDays(domain.Card{NextReview: ptr(testNow)}); got != nil {
			t.Errorf("Expected nil interval, but got %v", *got)
		}
	})

	t.Run("gap between last answer and next review", func(t *testing.T) {
		card := domain.Card{
			LastAnswered: ptr(testNow.Add(-10 * Day)),
			NextReview:   ptr(testNow.Add(2 * time.Hour)),
		}
		got := CurrentIntervalDays(card)
		if got == nil {
			t.Fatal("Expected an interval, but got nil")
		}
		want := 10 + 2.0/24
		if diff := *got - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Expected interval %v, but got %v", want, *got)
		}
	})
}
