package service

import (
	"context"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Действия для журнала
const (
	ActionScheduled  = "mentoria.agendar"
	ActionAccepted   = "mentoria.aceitar"
	ActionRejected   = "mentoria.rejeitar"
	ActionCancelled  = "mentoria.cancelar"
	ActionReconciled = "mentoria.status"
	ActionEvaluated  = "mentoria.avaliar"
	ActionChatText   = "chat.enviar"
	ActionChatAudio  = "chat.enviar-audio"
)

// SystemActor автор переходов, выполненных по времени
const SystemActor = "system"

type ActivityStore interface {
	Create(ctx context.Context, activity *model.Activity) error
}

// ActivityService пишет журнал действий и глотает ошибки записи
type ActivityService struct {
	store  ActivityStore
	logger *zap.Logger
}

func NewActivityService(store ActivityStore, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		store:  store,
		logger: logger,
	}
}

// Record записывает действие пользователя
func (s *ActivityService) Record(ctx context.Context, userID, description, action string) {
	activity := &model.Activity{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: description,
		Action:      action,
	}

	if err := s.store.Create(ctx, activity); err != nil {
		s.logger.Warn("Failed to record activity",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}
