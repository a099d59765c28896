package service

import (
	"context"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/notify"
)

// SessionStore хранилище менторских сессий
type SessionStore interface {
	Create(ctx context.Context, session *model.MentorshipSession) error
	GetByID(ctx context.Context, id string) (*model.MentorshipSession, error)
	List(ctx context.Context, filter model.SessionFilter) ([]*model.MentorshipSession, error)
	ListByMentor(ctx context.Context, mentorID string) ([]*model.MentorshipSession, error)
	ListBetween(ctx context.Context, menteeID, mentorID string) ([]*model.MentorshipSession, error)
	ListActive(ctx context.Context) ([]*model.MentorshipSession, error)
	UpdateStatus(ctx context.Context, id string, version int64, change model.StatusChange) error
	SetEvaluation(ctx context.Context, id string, version int64, evaluation *model.Evaluation) error
}

// MessageStore хранилище сообщений чата
type MessageStore interface {
	Append(ctx context.Context, msg *model.ChatMessage) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)
}

// ActivityLog журнал действий пользователей, ошибки не возвращаются
type ActivityLog interface {
	Record(ctx context.Context, userID, description, action string)
}

// Notifier рассылка уведомлений, ошибки не возвращаются
type Notifier interface {
	Dispatch(ctx context.Context, eventType, actorID string, payload notify.Payload)
}
