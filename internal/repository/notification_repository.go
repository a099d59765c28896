package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	*base.Repository
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет уведомление для одного получателя
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, actor_id, event_type, title, body, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	var payload []byte
	if len(n.Payload) > 0 {
		payload = n.Payload
	}

	err := r.QueryRow(ctx, query, n.ID, n.RecipientID, n.ActorID, n.EventType, n.Title, n.Body, payload).
		Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}
