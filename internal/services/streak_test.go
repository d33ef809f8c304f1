package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

func TestUpdateStreak(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name           string
		current        int
		longest        int
		last           *time.Time
		now            time.Time
		wantStreak     int
		wantLongest    int
	}{
		{"first ever activity", 0, 0, nil, day(2025, 3, 10), 1, 1},
		{"first activity keeps old longest", 0, 7, nil, day(2025, 3, 10), 1, 7},
		{"same day is a no-op", 4, 6, ptr(day(2025, 3, 10)), day(2025, 3, 10).Add(9 * time.Hour), 4, 6},
		{"consecutive day extends", 4, 6, ptr(day(2025, 3, 10)), day(2025, 3, 11), 5, 6},
		{"extension can set new longest", 6, 6, ptr(day(2025, 3, 10)), day(2025, 3, 11), 7, 7},
		{"one missed day resets", 9, 9, ptr(day(2025, 3, 10)), day(2025, 3, 12), 1, 9},
		{"long gap resets", 3, 12, ptr(day(2025, 2, 1)), day(2025, 3, 12), 1, 12},
		{"last date in the future resets", 3, 5, ptr(day(2025, 3, 20)), day(2025, 3, 12), 1, 5},
		{"late evening to early morning still consecutive", 2, 2,
			ptr(time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)),
			time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC), 3, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			streak, longest := UpdateStreak(tc.current, tc.longest, tc.last, tc.now)
			if streak != tc.wantStreak || longest != tc.wantLongest {
				t.Errorf("Expected (%d, %d), got (%d, %d)", tc.wantStreak, tc.wantLongest, streak, longest)
			}
		})
	}
}

func TestUpdateStreak_IdempotentWithinDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	streak, longest := UpdateStreak(0, 0, nil, now)
	last := dayOf(now)

	for i := 0; i < 5; i++ {
		s2, l2 := UpdateStreak(streak, longest, &last, now.Add(time.Duration(i)*time.Hour))
		if s2 != streak || l2 != longest {
			t.Fatalf("Call %d changed counters: (%d, %d) → (%d, %d)", i, streak, longest, s2, l2)
		}
	}
}

// fakeStreakStore holds one user's streak row and applies the same conditional
// update the SQL layer does.
type fakeStreakStore struct {
	mu      sync.Mutex
	missing bool
	state   models.StreakState
}

func (f *fakeStreakStore) GetStreak(ctx context.Context, userID uuid.UUID) (*models.StreakState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing {
		return nil, pgx.ErrNoRows
	}
	snapshot := f.state
	return &snapshot, nil
}

func (f *fakeStreakStore) UpdateStreakCAS(ctx context.Context, userID uuid.UUID, prevLastStudyDate *time.Time, newStreak, newLongest int, today time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	same := (f.state.LastStudyDate == nil && prevLastStudyDate == nil) ||
		(f.state.LastStudyDate != nil && prevLastStudyDate != nil && f.state.LastStudyDate.Equal(*prevLastStudyDate))
	if !same {
		return false, nil
	}

	f.state = models.StreakState{
		CurrentStreak: newStreak,
		LongestStreak: newLongest,
		LastStudyDate: &today,
	}
	return true, nil
}

func TestStreakCredit_FirstAndNextDay(t *testing.T) {
	store := &fakeStreakStore{}
	svc := NewStreakService(store)

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	state, err := svc.Credit(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if state.CurrentStreak != 1 || state.LongestStreak != 1 {
		t.Errorf("Expected (1, 1), got (%d, %d)", state.CurrentStreak, state.LongestStreak)
	}

	now = now.Add(24 * time.Hour)
	state, err = svc.Credit(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if state.CurrentStreak != 2 || state.LongestStreak != 2 {
		t.Errorf("Expected (2, 2), got (%d, %d)", state.CurrentStreak, state.LongestStreak)
	}
}

func TestStreakCredit_UnknownUser(t *testing.T) {
	svc := NewStreakService(&fakeStreakStore{missing: true})

	_, err := svc.Credit(context.Background(), uuid.New())
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestStreakCredit_ConcurrentSameDay(t *testing.T) {
	store := &fakeStreakStore{}
	svc := NewStreakService(store)

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Credit(context.Background(), userID); err != nil {
				t.Errorf("Credit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.state.CurrentStreak != 1 || store.state.LongestStreak != 1 {
		t.Errorf("Expected a single credited day, got (%d, %d)", store.state.CurrentStreak, store.state.LongestStreak)
	}
}
