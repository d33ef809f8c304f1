package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

// SessionStore is the session persistence contract consumed by the tracker.
type SessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error)
	Save(ctx context.Context, s *models.StudySession) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error)
}

// SessionService owns the study-session lifecycle. Every state transition is a
// load-transition-save under a per-session lock, so concurrent pause/resume
// calls on the same session can never interleave and corrupt the elapsed time.
type SessionService struct {
	store SessionStore
	locks *keyedMutex
	clock func() time.Time
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{
		store: store,
		locks: newKeyedMutex(),
		clock: time.Now,
	}
}

func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, subject, topic string, scheduledAt time.Time, durationMinutes int) (*models.StudySession, error) {
	fieldErrors := make(map[string]string)
	if subject == "" {
		fieldErrors["subject"] = "Subject is required"
	}
	if durationMinutes < 1 {
		fieldErrors["duration_minutes"] = "Duration must be at least 1 minute"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	session := &models.StudySession{
		UserID:          userID,
		Subject:         subject,
		Topic:           topic,
		ScheduledAt:     scheduledAt,
		DurationMinutes: durationMinutes,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudySession, error) {
	return s.load(ctx, userID, sessionID)
}

func (s *SessionService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *SessionService) Start(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudySession, error) {
	return s.transition(ctx, userID, sessionID, (*models.StudySession).Start)
}

func (s *SessionService) Pause(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudySession, error) {
	return s.transition(ctx, userID, sessionID, (*models.StudySession).Pause)
}

func (s *SessionService) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudySession, error) {
	return s.transition(ctx, userID, sessionID, (*models.StudySession).Resume)
}

// Complete ends the session and reports whether it finished short of its
// scheduled duration. The caller decides what endedEarly means (streak credit
// and milestone grants happen there, not here).
func (s *SessionService) Complete(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudySession, bool, error) {
	session, err := s.transition(ctx, userID, sessionID, (*models.StudySession).Complete)
	if err != nil {
		return nil, false, err
	}
	return session, session.EndedEarly(), nil
}

func (s *SessionService) transition(ctx context.Context, userID, sessionID uuid.UUID, op func(*models.StudySession, time.Time) error) (*models.StudySession, error) {
	unlock := s.locks.Lock(sessionID.String())
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := op(session, s.clock()); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) load(ctx context.Context, userID, sessionID uuid.UUID) (*models.StudySession, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, &ForbiddenError{Message: "Access denied"}
	}
	return session, nil
}
