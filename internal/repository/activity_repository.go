package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepository struct {
	*base.Repository
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{Repository: base.NewRepository(pool)}
}

// Create записывает действие пользователя
func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	query := `
		INSERT INTO activities (id, user_id, description, action)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.QueryRow(ctx, query, activity.ID, activity.UserID, activity.Description, activity.Action).
		Scan(&activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}

	return nil
}
