package repository

import (
	"context"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	*base.Repository
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{Repository: base.NewRepository(pool)}
}

// Append добавляет сообщение в чат сессии
func (r *MessageRepository) Append(ctx context.Context, msg *model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, sender_id, message, message_type, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	return r.Exec(ctx, "append chat message", query,
		msg.ID, msg.SessionID, msg.SenderID, msg.Message, msg.Type, msg.Timestamp)
}

// ListBySession получает сообщения сессии по возрастанию времени
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	query := `
		SELECT id::text, session_id::text, sender_id, message, message_type, sent_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY sent_at ASC, id ASC
	`

	return base.QueryAll(ctx, r.Repository, "list chat messages", query, scanMessage, sessionID)
}

func scanMessage(row pgx.Row) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := row.Scan(
		&msg.ID,
		&msg.SessionID,
		&msg.SenderID,
		&msg.Message,
		&msg.Type,
		&msg.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
