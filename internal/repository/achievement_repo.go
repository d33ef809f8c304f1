package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
)

// ErrDuplicateGrant is returned by Create when the (user_id, milestone_key)
// unique index rejects the insert. This is how a lost race surfaces.
var ErrDuplicateGrant = errors.New("achievement already granted")

type AchievementRepo struct {
	pool *pgxpool.Pool
}

func NewAchievementRepo(pool *pgxpool.Pool) *AchievementRepo {
	return &AchievementRepo{pool: pool}
}

const achievementColumns = `id, user_id, milestone_key, name, description, tx_hash, token_uri, image,
	achievement_type, earned_at, created_at`

func (r *AchievementRepo) FindByUserAndKey(ctx context.Context, userID uuid.UUID, key string) (*models.Achievement, error) {
	a := &models.Achievement{}
	err := r.pool.QueryRow(ctx,
		"SELECT "+achievementColumns+" FROM achievements WHERE user_id = $1 AND milestone_key = $2",
		userID, key,
	).Scan(
		&a.ID, &a.UserID, &a.Key, &a.Name, &a.Description, &a.TxHash, &a.TokenURI, &a.Image,
		&a.AchievementType, &a.EarnedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AchievementRepo) Create(ctx context.Context, a *models.Achievement) error {
	a.ID = uuid.New()

	query := `
		INSERT INTO achievements (id, user_id, milestone_key, name, description, tx_hash, token_uri, image, achievement_type, earned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.Key, a.Name, a.Description, a.TxHash, a.TokenURI, a.Image,
		a.AchievementType, a.EarnedAt,
	).Scan(&a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateGrant
		}
		return err
	}
	return nil
}

func (r *AchievementRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+achievementColumns+" FROM achievements WHERE user_id = $1 ORDER BY earned_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Key, &a.Name, &a.Description, &a.TxHash, &a.TokenURI, &a.Image,
			&a.AchievementType, &a.EarnedAt, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}
