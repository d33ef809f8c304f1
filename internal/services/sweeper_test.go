package services

import (
	"context"
	"testing"
	"time"

	"studyhub-backend/internal/repository"
)

type fakeOverdueStore struct {
	calls []time.Time
	n     int64
}

func (f *fakeOverdueStore) MarkOverdueMissed(ctx context.Context, now time.Time) (int64, error) {
	f.calls = append(f.calls, now)
	return f.n, nil
}

type fakeAtRiskStore struct {
	days  []time.Time
	users []repository.StreakAtRiskUser
}

func (f *fakeAtRiskStore) ListStreakAtRisk(ctx context.Context, day time.Time) ([]repository.StreakAtRiskUser, error) {
	f.days = append(f.days, day)
	return f.users, nil
}

type fakeReminderSender struct {
	sent []string
}

func (f *fakeReminderSender) SendStreakReminderEmail(to, fullName string, currentStreak int) error {
	f.sent = append(f.sent, to)
	return nil
}

func newTestSweeper(sessions *fakeOverdueStore, users *fakeAtRiskStore, reminders *fakeReminderSender) *SessionSweeper {
	return NewSessionSweeper(sessions, users, reminders)
}

func TestSweepMissed_DelegatesToStore(t *testing.T) {
	sessions := &fakeOverdueStore{n: 3}
	sweeper := newTestSweeper(sessions, &fakeAtRiskStore{}, &fakeReminderSender{})

	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	sweeper.sweepMissed(context.Background(), now)

	if len(sessions.calls) != 1 {
		t.Fatalf("Expected one MarkOverdueMissed call, got %d", len(sessions.calls))
	}
	if !sessions.calls[0].Equal(now) {
		t.Errorf("Expected sweep to pass now through, got %v", sessions.calls[0])
	}
}

func TestStreakReminders_HourGate(t *testing.T) {
	atRisk := []repository.StreakAtRiskUser{{Email: "a@example.com", FullName: "A", CurrentStreak: 4}}

	tests := []struct {
		name     string
		now      time.Time
		wantSent int
	}{
		{"before send hour", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), 0},
		{"just before send hour", time.Date(2025, 3, 10, 17, 59, 0, 0, time.UTC), 0},
		{"at send hour", time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), 1},
		{"late evening", time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reminders := &fakeReminderSender{}
			sweeper := newTestSweeper(&fakeOverdueStore{}, &fakeAtRiskStore{users: atRisk}, reminders)

			sweeper.sendStreakReminders(context.Background(), tc.now)

			if len(reminders.sent) != tc.wantSent {
				t.Errorf("Expected %d reminders at %s, got %d", tc.wantSent, tc.now, len(reminders.sent))
			}
		})
	}
}

func TestStreakReminders_AtRiskDayIsYesterday(t *testing.T) {
	users := &fakeAtRiskStore{}
	sweeper := newTestSweeper(&fakeOverdueStore{}, users, &fakeReminderSender{})

	now := time.Date(2025, 3, 10, 19, 45, 0, 0, time.UTC)
	sweeper.sendStreakReminders(context.Background(), now)

	if len(users.days) != 1 {
		t.Fatalf("Expected one at-risk lookup, got %d", len(users.days))
	}
	wantDay := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	if !users.days[0].Equal(wantDay) {
		t.Errorf("Expected at-risk day %v (yesterday at midnight), got %v", wantDay, users.days[0])
	}
}

func TestStreakReminders_OncePerDay(t *testing.T) {
	atRisk := []repository.StreakAtRiskUser{
		{Email: "a@example.com", FullName: "A", CurrentStreak: 4},
		{Email: "b@example.com", FullName: "B", CurrentStreak: 12},
	}
	reminders := &fakeReminderSender{}
	sweeper := newTestSweeper(&fakeOverdueStore{}, &fakeAtRiskStore{users: atRisk}, reminders)

	evening := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	sweeper.sendStreakReminders(context.Background(), evening)
	if len(reminders.sent) != 2 {
		t.Fatalf("Expected 2 reminders on first run, got %d", len(reminders.sent))
	}

	// The hourly poll fires again the same evening: latched, nothing sent.
	sweeper.sendStreakReminders(context.Background(), evening.Add(1*time.Hour))
	sweeper.sendStreakReminders(context.Background(), evening.Add(2*time.Hour))
	if len(reminders.sent) != 2 {
		t.Errorf("Expected same-day polls to be no-ops, got %d total sends", len(reminders.sent))
	}

	// Next day's evening re-arms the latch.
	sweeper.sendStreakReminders(context.Background(), evening.AddDate(0, 0, 1))
	if len(reminders.sent) != 4 {
		t.Errorf("Expected reminders to go out again the next day, got %d total sends", len(reminders.sent))
	}
}
