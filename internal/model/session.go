package model

import "time"

type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"     // Ожидает ответа ментора
	SessionStatusAccepted   SessionStatus = "accepted"    // Принята ментором
	SessionStatusRejected   SessionStatus = "rejected"    // Отклонена ментором
	SessionStatusCancelled  SessionStatus = "cancelled"   // Отменена участником или из-за конфликта
	SessionStatusInProgress SessionStatus = "in_progress" // Идёт сейчас
	SessionStatusExpired    SessionStatus = "expired"     // Не была принята до начала
	SessionStatusFinished   SessionStatus = "finished"    // Завершена
)

// SessionDuration фиксированная длительность сессии
const SessionDuration = 30 * time.Minute

// IsTerminal возвращает true для статусов, из которых нет переходов
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusRejected, SessionStatusCancelled, SessionStatusExpired, SessionStatusFinished:
		return true
	}
	return false
}

// Valid проверяет что статус известен
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPending, SessionStatusAccepted, SessionStatusRejected, SessionStatusCancelled,
		SessionStatusInProgress, SessionStatusExpired, SessionStatusFinished:
		return true
	}
	return false
}

// Evaluation оценка, выставленная после завершения сессии
type Evaluation struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	EvaluatorID string    `json:"evaluatorId"`
	Date        time.Time `json:"date"`
}

// MentorshipSession одна запись на менторскую сессию
type MentorshipSession struct {
	ID                 string        `json:"id"`
	MenteeID           string        `json:"menteeId"`
	MentorID           string        `json:"mentorId"`
	Date               string        `json:"date"` // YYYY-MM-DD
	Time               string        `json:"time"` // HH:MM
	StartAt            time.Time     `json:"startAt"`
	EndAt              time.Time     `json:"endAt"`
	Category           string        `json:"category"`
	Plan               string        `json:"plan,omitempty"`
	Status             SessionStatus `json:"status"`
	RejectionReason    string        `json:"rejectionReason,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	Evaluation         *Evaluation   `json:"evaluation,omitempty"`
	Version            int64         `json:"-"` // для compare-and-swap при обновлении
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Contains проверяет попадает ли момент в окно [StartAt, EndAt)
func (s *MentorshipSession) Contains(t time.Time) bool {
	return !t.Before(s.StartAt) && t.Before(s.EndAt)
}

// Overlaps проверяет пересекаются ли окна двух сессий
func (s *MentorshipSession) Overlaps(other *MentorshipSession) bool {
	return s.StartAt.Before(other.EndAt) && other.StartAt.Before(s.EndAt)
}

// IsParticipant проверяет является ли пользователь ментором или менти
func (s *MentorshipSession) IsParticipant(userID string) bool {
	return userID != "" && (userID == s.MenteeID || userID == s.MentorID)
}

// Counterpart возвращает второго участника сессии
func (s *MentorshipSession) Counterpart(userID string) string {
	if userID == s.MentorID {
		return s.MenteeID
	}
	return s.MentorID
}

// StatusChange описывает запись нового статуса
type StatusChange struct {
	Status             SessionStatus
	RejectionReason    string
	CancellationReason string
}

// Apply переносит изменение статуса в сессию
func (c StatusChange) Apply(s *MentorshipSession) {
	s.Status = c.Status
	if c.RejectionReason != "" {
		s.RejectionReason = c.RejectionReason
	}
	if c.CancellationReason != "" {
		s.CancellationReason = c.CancellationReason
	}
}

// SessionFilter фильтр для выборки сессий
type SessionFilter struct {
	Status   SessionStatus
	MentorID string
	UserID   string // менти или ментор
}

// Matches проверяет подходит ли сессия под фильтр
func (f SessionFilter) Matches(s *MentorshipSession) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.MentorID != "" && s.MentorID != f.MentorID {
		return false
	}
	if f.UserID != "" && !s.IsParticipant(f.UserID) {
		return false
	}
	return true
}
