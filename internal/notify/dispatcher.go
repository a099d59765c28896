// Package notify рассылает уведомления о событиях менторских сессий.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Типы событий
const (
	EventSessionScheduled = "mentoria.agendar"
	EventSessionAccepted  = "mentoria.aceitar"
	EventSessionRejected  = "mentoria.rejeitar"
	EventSessionCancelled = "mentoria.cancelar"
	EventSessionEvaluated = "mentoria.avaliada"
)

// DefaultChannel канал Redis для доставки push-уведомлений
const DefaultChannel = "notifications"

// Payload данные события
type Payload struct {
	Recipients []string            `json:"-"`
	SessionID  string              `json:"sessionId"`
	Status     model.SessionStatus `json:"status,omitempty"`
	StartAt    time.Time           `json:"startAt"`
	EndAt      time.Time           `json:"endAt"`
	Category   string              `json:"category,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Rating     int                 `json:"rating,omitempty"`
}

// Store сохраняет уведомление получателя
type Store interface {
	Create(ctx context.Context, n *model.Notification) error
}

// Publisher публикует событие (реализуется *redis.Client)
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Sender отправляет сообщение в Telegram (реализуется *bot.Bot)
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Option func(*Dispatcher)

// WithRedis включает публикацию событий в канал Redis
func WithRedis(publisher Publisher, channel string) Option {
	return func(d *Dispatcher) {
		d.publisher = publisher
		d.channel = channel
	}
}

// WithTelegram дублирует события в служебный чат
func WithTelegram(sender Sender, chatID int64) Option {
	return func(d *Dispatcher) {
		d.telegram = sender
		d.telegramChatID = chatID
	}
}

// Dispatcher раскладывает событие по получателям. Ошибки доставки только логируются.
type Dispatcher struct {
	store          Store
	publisher      Publisher
	channel        string
	telegram       Sender
	telegramChatID int64
	logger         *zap.Logger
}

func NewDispatcher(store Store, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		channel: DefaultChannel,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// event сообщение, публикуемое в Redis
type event struct {
	NotificationID string          `json:"notificationId"`
	RecipientID    string          `json:"recipientId"`
	ActorID        string          `json:"actorId"`
	EventType      string          `json:"eventType"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	Payload        json.RawMessage `json:"payload"`
}

// Dispatch сохраняет и публикует уведомление для каждого получателя
func (d *Dispatcher) Dispatch(ctx context.Context, eventType, actorID string, payload Payload) {
	title, body := Render(eventType, payload)

	raw, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("Failed to marshal notification payload",
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	for _, recipient := range payload.Recipients {
		if recipient == "" || recipient == actorID {
			continue
		}

		n := &model.Notification{
			ID:          uuid.NewString(),
			RecipientID: recipient,
			ActorID:     actorID,
			EventType:   eventType,
			Title:       title,
			Body:        body,
			Payload:     raw,
		}

		if err := d.store.Create(ctx, n); err != nil {
			d.logger.Error("Failed to store notification",
				zap.String("event_type", eventType),
				zap.String("recipient_id", recipient),
				zap.Error(err))
			continue
		}

		d.publish(ctx, n)
	}

	d.mirror(ctx, eventType, title, body)
}

func (d *Dispatcher) publish(ctx context.Context, n *model.Notification) {
	if d.publisher == nil {
		return
	}

	msg, err := json.Marshal(event{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		ActorID:        n.ActorID,
		EventType:      n.EventType,
		Title:          n.Title,
		Body:           n.Body,
		Payload:        n.Payload,
	})
	if err != nil {
		d.logger.Error("Failed to marshal notification event", zap.Error(err))
		return
	}

	if err := d.publisher.Publish(ctx, d.channel, msg).Err(); err != nil {
		d.logger.Warn("Failed to publish notification",
			zap.String("channel", d.channel),
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
}

func (d *Dispatcher) mirror(ctx context.Context, eventType, title, body string) {
	if d.telegram == nil {
		return
	}

	_, err := d.telegram.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: d.telegramChatID,
		Text:   fmt.Sprintf("[%s] %s\n%s", eventType, title, body),
	})
	if err != nil {
		d.logger.Warn("Failed to mirror notification to telegram",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

// Render возвращает заголовок и текст уведомления
func Render(eventType string, p Payload) (string, string) {
	when := FormatDateTime(p.StartAt)

	switch eventType {
	case EventSessionScheduled:
		return "Nova solicitação de mentoria", fmt.Sprintf("Sessão de %s solicitada para %s, %s.",
			p.Category, p.StartAt.Format("02/01/2006"), FormatTimeRange(p.StartAt, p.EndAt))
	case EventSessionAccepted:
		return "Mentoria aceita", fmt.Sprintf("Sua sessão de %s foi aceita.", when)
	case EventSessionRejected:
		body := fmt.Sprintf("Sua sessão de %s foi recusada.", when)
		if p.Reason != "" {
			body += " Motivo: " + p.Reason
		}
		return "Mentoria recusada", body
	case EventSessionCancelled:
		body := fmt.Sprintf("A sessão de %s foi cancelada.", when)
		if p.Reason != "" {
			body += " Motivo: " + p.Reason
		}
		return "Mentoria cancelada", body
	case EventSessionEvaluated:
		return "Mentoria avaliada", fmt.Sprintf("Sua sessão recebeu nota %d.", p.Rating)
	}

	display := GetStatusDisplay(p.Status)
	return "Mentoria", fmt.Sprintf("%s %s", display.Emoji, display.Text)
}
