package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, education_level, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	user.ID = uuid.New()
	user.IsActive = true

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.EducationLevel, user.IsVerified,
	).Scan(&user.CreatedAt)
}

const userColumns = `id, email, password_hash, full_name, education_level, wallet_address,
	is_verified, is_active, current_streak, longest_streak, last_study_date, created_at, last_login_at`

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.EducationLevel,
		&user.WalletAddress, &user.IsVerified, &user.IsActive,
		&user.CurrentStreak, &user.LongestStreak, &user.LastStudyDate,
		&user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET is_verified = TRUE WHERE id = $1", userID)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET full_name = $1, email = $2, education_level = $3 WHERE id = $4",
		user.FullName, user.Email, user.EducationLevel, user.ID,
	)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) SetWalletAddress(ctx context.Context, userID uuid.UUID, address string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET wallet_address = $1 WHERE id = $2", address, userID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	return err
}

// GetStreak returns the user's current streak snapshot.
func (r *UserRepo) GetStreak(ctx context.Context, userID uuid.UUID) (*models.StreakState, error) {
	s := &models.StreakState{}
	err := r.pool.QueryRow(ctx,
		"SELECT current_streak, longest_streak, last_study_date FROM users WHERE id = $1", userID,
	).Scan(&s.CurrentStreak, &s.LongestStreak, &s.LastStudyDate)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// StreakAtRiskUser is a reminder recipient: streak still alive from yesterday
// but not yet credited today.
type StreakAtRiskUser struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	CurrentStreak int
}

// ListStreakAtRisk returns active, verified users whose last credited study
// day is exactly the given day (yesterday, from the caller's point of view).
func (r *UserRepo) ListStreakAtRisk(ctx context.Context, day time.Time) ([]StreakAtRiskUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, full_name, current_streak
		FROM users
		WHERE is_active = TRUE
		  AND is_verified = TRUE
		  AND current_streak > 0
		  AND last_study_date = $1
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []StreakAtRiskUser
	for rows.Next() {
		var u StreakAtRiskUser
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.CurrentStreak); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateStreakCAS writes the new streak counters only if last_study_date still
// matches the value the caller read. Returns false when another writer won the
// race, in which case the caller should re-read and recompute.
func (r *UserRepo) UpdateStreakCAS(ctx context.Context, userID uuid.UUID, prevLastStudyDate *time.Time, newStreak, newLongest int, today time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET current_streak = $2,
			longest_streak = $3,
			last_study_date = $4
		WHERE id = $1
		  AND last_study_date IS NOT DISTINCT FROM $5
	`, userID, newStreak, newLongest, today, prevLastStudyDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
