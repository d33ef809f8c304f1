package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	s.ID = uuid.New()
	s.Status = models.SessionUpcoming

	query := `
		INSERT INTO study_sessions (id, user_id, subject, topic, scheduled_at, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.Subject, s.Topic, s.ScheduledAt, s.DurationMinutes, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

const sessionColumns = `id, user_id, subject, topic, scheduled_at, duration_minutes, status,
	segment_start, total_elapsed_seconds, ended_at, created_at, updated_at`

func (r *StudySessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	s := &models.StudySession{}
	err := r.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM study_sessions WHERE id = $1", id).Scan(
		&s.ID, &s.UserID, &s.Subject, &s.Topic, &s.ScheduledAt, &s.DurationMinutes, &s.Status,
		&s.SegmentStart, &s.TotalElapsedSeconds, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Save persists the mutable lifecycle fields after a state transition.
func (r *StudySessionRepo) Save(ctx context.Context, s *models.StudySession) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET status = $2,
			segment_start = $3,
			total_elapsed_seconds = $4,
			ended_at = $5,
			updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.Status, s.SegmentStart, s.TotalElapsedSeconds, s.EndedAt)
	return err
}

func (r *StudySessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+sessionColumns+" FROM study_sessions WHERE user_id = $1 ORDER BY scheduled_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.StudySession
	for rows.Next() {
		var s models.StudySession
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Subject, &s.Topic, &s.ScheduledAt, &s.DurationMinutes, &s.Status,
			&s.SegmentStart, &s.TotalElapsedSeconds, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// MarkOverdueMissed flips upcoming sessions whose scheduled window has fully
// passed to missed. Used by the background sweeper, never by request handlers.
func (r *StudySessionRepo) MarkOverdueMissed(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET status = $1, updated_at = NOW()
		WHERE status = $2
		  AND scheduled_at + make_interval(mins => duration_minutes) < $3
	`, models.SessionMissed, models.SessionUpcoming, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
