package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

// Streak days are compared at UTC midnight. Clients in other timezones may see
// a day roll over at an odd local hour; the tradeoff is that two servers can
// never disagree about which day an activity belongs to.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UpdateStreak computes the new streak counters for a study activity at now.
// It is idempotent within a calendar day: repeated calls on an already-credited
// day return the inputs unchanged. A gap of two or more days, or a last-study
// date in the future from a skewed clock, resets the streak to 1. The longest
// streak never decreases.
func UpdateStreak(currentStreak, longestStreak int, lastStudyDate *time.Time, now time.Time) (int, int) {
	today := dayOf(now)

	if lastStudyDate == nil {
		return 1, max(longestStreak, 1)
	}

	last := dayOf(*lastStudyDate)
	switch {
	case last.Equal(today):
		return currentStreak, longestStreak
	case today.Sub(last) == 24*time.Hour:
		streak := currentStreak + 1
		return streak, max(longestStreak, streak)
	default:
		return 1, max(longestStreak, 1)
	}
}

// StreakStore is the per-user streak persistence contract. The conditional
// update is keyed on the previously read last_study_date so that two
// concurrent credits cannot both observe "not yet credited today".
type StreakStore interface {
	GetStreak(ctx context.Context, userID uuid.UUID) (*models.StreakState, error)
	UpdateStreakCAS(ctx context.Context, userID uuid.UUID, prevLastStudyDate *time.Time, newStreak, newLongest int, today time.Time) (bool, error)
}

type StreakService struct {
	store StreakStore
	clock func() time.Time
}

func NewStreakService(store StreakStore) *StreakService {
	return &StreakService{store: store, clock: time.Now}
}

const streakCASRetries = 3

// Credit records a study activity for today and returns the updated counters.
// Safe to call any number of times per day.
func (s *StreakService) Credit(ctx context.Context, userID uuid.UUID) (*models.StreakState, error) {
	for attempt := 0; attempt < streakCASRetries; attempt++ {
		state, err := s.store.GetStreak(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Message: "User not found"}
			}
			return nil, err
		}

		now := s.clock()
		newStreak, newLongest := UpdateStreak(state.CurrentStreak, state.LongestStreak, state.LastStudyDate, now)
		today := dayOf(now)

		ok, err := s.store.UpdateStreakCAS(ctx, userID, state.LastStudyDate, newStreak, newLongest, today)
		if err != nil {
			return nil, err
		}
		if ok {
			return &models.StreakState{
				CurrentStreak: newStreak,
				LongestStreak: newLongest,
				LastStudyDate: &today,
			}, nil
		}
		// Lost the race to a concurrent credit; re-read and recompute.
	}
	return nil, fmt.Errorf("streak update for user %s lost %d consecutive races", userID, streakCASRetries)
}
