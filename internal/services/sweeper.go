package services

import (
	"context"
	"log"
	"time"

	"studyhub-backend/internal/repository"
)

const (
	missedSweepInterval  = 1 * time.Minute
	reminderPollInterval = 1 * time.Hour
	// Streak reminders go out in the UTC evening, giving users a few hours
	// before the day boundary breaks the streak.
	reminderSendHourUTC = 18
)

// OverdueSessionStore marks upcoming sessions whose window has passed.
type OverdueSessionStore interface {
	MarkOverdueMissed(ctx context.Context, now time.Time) (int64, error)
}

// StreakAtRiskStore lists users whose streak dies at the next day boundary.
type StreakAtRiskStore interface {
	ListStreakAtRisk(ctx context.Context, day time.Time) ([]repository.StreakAtRiskUser, error)
}

// ReminderSender delivers the streak reminder email.
type ReminderSender interface {
	SendStreakReminderEmail(to, fullName string, currentStreak int) error
}

// SessionSweeper runs the background housekeeping the request path never
// touches: marking overdue upcoming sessions as missed, and nudging users
// whose streak ends at midnight.
type SessionSweeper struct {
	sessions  OverdueSessionStore
	users     StreakAtRiskStore
	reminders ReminderSender
	stopChan  chan struct{}

	lastReminderDay time.Time
}

func NewSessionSweeper(sessions OverdueSessionStore, users StreakAtRiskStore, reminders ReminderSender) *SessionSweeper {
	return &SessionSweeper{
		sessions:  sessions,
		users:     users,
		reminders: reminders,
		stopChan:  make(chan struct{}),
	}
}

func (s *SessionSweeper) Start() {
	go s.loop(missedSweepInterval, s.sweepMissed)
	go s.loop(reminderPollInterval, s.sendStreakReminders)
	log.Printf("Session sweeper started")
}

func (s *SessionSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SessionSweeper) loop(interval time.Duration, runFn func(ctx context.Context, now time.Time)) {
	// Run on startup as well as by interval.
	runFn(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			runFn(context.Background(), time.Now().UTC())
		}
	}
}

func (s *SessionSweeper) sweepMissed(ctx context.Context, now time.Time) {
	n, err := s.sessions.MarkOverdueMissed(ctx, now)
	if err != nil {
		log.Printf("missed sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("missed sweep: marked %d overdue sessions as missed", n)
	}
}

func (s *SessionSweeper) sendStreakReminders(ctx context.Context, now time.Time) {
	if now.Hour() < reminderSendHourUTC {
		return
	}
	today := dayOf(now)
	if s.lastReminderDay.Equal(today) {
		return
	}

	atRisk, err := s.users.ListStreakAtRisk(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		log.Printf("streak reminders: failed to list users: %v", err)
		return
	}

	for _, u := range atRisk {
		if err := s.reminders.SendStreakReminderEmail(u.Email, u.FullName, u.CurrentStreak); err != nil {
			log.Printf("streak reminders: failed to send to %s: %v", u.Email, err)
		}
	}

	s.lastReminderDay = today
	if len(atRisk) > 0 {
		log.Printf("streak reminders: sent %d", len(atRisk))
	}
}
