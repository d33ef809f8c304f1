package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

func (r *NoteRepo) Create(ctx context.Context, n *models.StudyNote) error {
	n.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO study_notes (id, user_id, session_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, n.ID, n.UserID, n.SessionID, n.Content).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *NoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyNote, error) {
	n := &models.StudyNote{}
	err := r.pool.QueryRow(ctx,
		"SELECT id, user_id, session_id, content, created_at, updated_at FROM study_notes WHERE id = $1", id,
	).Scan(&n.ID, &n.UserID, &n.SessionID, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.StudyNote, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, user_id, session_id, content, created_at, updated_at FROM study_notes WHERE session_id = $1 ORDER BY created_at", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.StudyNote
	for rows.Next() {
		var n models.StudyNote
		if err := rows.Scan(&n.ID, &n.UserID, &n.SessionID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *NoteRepo) Update(ctx context.Context, id uuid.UUID, content string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE study_notes SET content = $1, updated_at = NOW() WHERE id = $2", content, id)
	return err
}

func (r *NoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM study_notes WHERE id = $1", id)
	return err
}
