package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ChatService пропускает сообщения только в идущие сессии
type ChatService struct {
	sessions SessionStore
	messages MessageStore
	activity ActivityLog
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewChatService(
	sessions SessionStore,
	messages MessageStore,
	activity ActivityLog,
	clk clockwork.Clock,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		sessions: sessions,
		messages: messages,
		activity: activity,
		clock:    clk,
		logger:   logger,
	}
}

// SendMessage отправляет текстовое сообщение
func (s *ChatService) SendMessage(ctx context.Context, sessionID, senderID, text string) (*model.ChatMessage, error) {
	return s.send(ctx, sessionID, senderID, text, model.MessageTypeText)
}

// SendAudio отправляет ссылку на аудиозапись
func (s *ChatService) SendAudio(ctx context.Context, sessionID, senderID, audioRef string) (*model.ChatMessage, error) {
	return s.send(ctx, sessionID, senderID, audioRef, model.MessageTypeAudio)
}

// send проверяет сохранённый статус без повторной сверки по времени
func (s *ChatService) send(ctx context.Context, sessionID, senderID, payload string, kind model.MessageType) (*model.ChatMessage, error) {
	if sessionID == "" || senderID == "" || strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: sessaoId, remetenteId and mensagem are required", ErrValidation)
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionStatusInProgress {
		s.logger.Debug("Chat send denied",
			zap.String("session_id", sessionID),
			zap.String("status", string(session.Status)))
		return nil, fmt.Errorf("%w: session is %s", ErrAccessDenied, session.Status)
	}

	if !session.IsParticipant(senderID) {
		return nil, fmt.Errorf("%w: sender is not a participant", ErrAccessDenied)
	}

	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		SenderID:  senderID,
		Message:   payload,
		Type:      kind,
		Timestamp: s.clock.Now(),
	}

	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	action := ActionChatText
	description := "Enviou uma mensagem no chat da mentoria"
	if kind == model.MessageTypeAudio {
		action = ActionChatAudio
		description = "Enviou um áudio no chat da mentoria"
	}
	s.activity.Record(ctx, senderID, description, action)

	return msg, nil
}

// ListMessages возвращает историю чата без проверки статуса
func (s *ChatService) ListMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessaoId is required", ErrValidation)
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return []*model.ChatMessage{}, nil
	}

	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}

// VerifySession находит последнюю идущую или завершённую сессию пары
func (s *ChatService) VerifySession(ctx context.Context, menteeID, mentorID string) (string, error) {
	if menteeID == "" || mentorID == "" {
		return "", fmt.Errorf("%w: usuarioId and mentorId are required", ErrValidation)
	}

	sessions, err := s.sessions.ListBetween(ctx, menteeID, mentorID)
	if err != nil {
		return "", fmt.Errorf("list sessions between: %w", err)
	}

	var latest *model.MentorshipSession
	for _, session := range sessions {
		if session.Status != model.SessionStatusInProgress && session.Status != model.SessionStatusFinished {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}

	if latest == nil {
		return "", ErrNotFound
	}

	return latest.ID, nil
}

func (s *ChatService) getSession(ctx context.Context, id string) (*model.MentorshipSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrNotFound
	}

	return session, nil
}
