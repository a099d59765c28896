package model

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
)

// ChatMessage сообщение в чате сессии
type ChatMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessaoId"`
	SenderID  string      `json:"remetenteId"`
	Message   string      `json:"mensagem"` // текст или ссылка на аудио
	Type      MessageType `json:"tipo,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
