package model

import (
	"encoding/json"
	"time"
)

// Notification уведомление для одного получателя
type Notification struct {
	ID          string          `json:"id"`
	RecipientID string          `json:"recipientId"`
	ActorID     string          `json:"actorId"`
	EventType   string          `json:"eventType"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"createdAt"`
}
