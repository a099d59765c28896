// Package lifecycle содержит таблицу переходов статусов менторской сессии.
// Все функции чистые: текущее время и соседние сессии передаются явно.
package lifecycle

import (
	"errors"
	"sort"
	"time"

	"github.com/Freeeeeet/mentorship_api/internal/model"
)

// ConflictReason причина автоматической отмены при пересечении сессий ментора
const ConflictReason = "schedule conflict"

// CancelNotice минимальный запас времени до начала для отмены
const CancelNotice = 24 * time.Hour

var (
	ErrTerminal          = errors.New("session is in a terminal status")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrTooLateToCancel   = errors.New("too late to cancel: session starts in less than 24h")
)

// Decision результат сверки статуса
type Decision struct {
	Change  model.StatusChange
	Changed bool
}

func keep(s *model.MentorshipSession) Decision {
	return Decision{Change: model.StatusChange{Status: s.Status}}
}

func move(status model.SessionStatus) Decision {
	return Decision{Change: model.StatusChange{Status: status}, Changed: true}
}

// Reconcile вычисляет правильный статус сессии на момент now.
// siblings - остальные сессии того же ментора (сама сессия в списке допускается).
func Reconcile(s *model.MentorshipSession, now time.Time, siblings []*model.MentorshipSession) Decision {
	switch s.Status {
	case model.SessionStatusPending:
		if now.After(s.StartAt) {
			return move(model.SessionStatusExpired)
		}
		return keep(s)

	case model.SessionStatusInProgress:
		if !now.Before(s.EndAt) {
			return move(model.SessionStatusFinished)
		}
		return keep(s)

	case model.SessionStatusAccepted:
		if !now.Before(s.EndAt) {
			return move(model.SessionStatusFinished)
		}
		if !s.Contains(now) {
			return keep(s)
		}
		if admitted(s, now, siblings) {
			return move(model.SessionStatusInProgress)
		}
		return Decision{
			Change: model.StatusChange{
				Status:             model.SessionStatusCancelled,
				CancellationReason: ConflictReason,
			},
			Changed: true,
		}
	}

	return keep(s)
}

// admitted решает может ли сессия войти в in_progress.
// Уже идущие сессии ментора имеют приоритет, затем принятые сессии
// по возрастанию CreatedAt (при равенстве - по ID).
func admitted(s *model.MentorshipSession, now time.Time, siblings []*model.MentorshipSession) bool {
	candidates := []*model.MentorshipSession{s}
	for _, o := range siblings {
		if o == nil || o.ID == s.ID || o.MentorID != s.MentorID {
			continue
		}
		switch o.Status {
		case model.SessionStatusInProgress:
			if now.Before(o.EndAt) {
				candidates = append(candidates, o)
			}
		case model.SessionStatusAccepted:
			if o.Contains(now) {
				candidates = append(candidates, o)
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aRunning := a.Status == model.SessionStatusInProgress
		bRunning := b.Status == model.SessionStatusInProgress
		if aRunning != bRunning {
			return aRunning
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	var winners []*model.MentorshipSession
	for _, c := range candidates {
		blocked := false
		for _, w := range winners {
			if c.Overlaps(w) {
				blocked = true
				break
			}
		}
		if c.ID == s.ID {
			return !blocked
		}
		if !blocked || c.Status == model.SessionStatusInProgress {
			winners = append(winners, c)
		}
	}

	return false
}

// Accept ментор принимает запрос
func Accept(s *model.MentorshipSession) (model.StatusChange, error) {
	if s.Status.IsTerminal() {
		return model.StatusChange{}, ErrTerminal
	}
	if s.Status != model.SessionStatusPending {
		return model.StatusChange{}, ErrInvalidTransition
	}
	return model.StatusChange{Status: model.SessionStatusAccepted}, nil
}

// Reject ментор отклоняет запрос
func Reject(s *model.MentorshipSession, reason string) (model.StatusChange, error) {
	if s.Status.IsTerminal() {
		return model.StatusChange{}, ErrTerminal
	}
	if s.Status != model.SessionStatusPending {
		return model.StatusChange{}, ErrInvalidTransition
	}
	return model.StatusChange{Status: model.SessionStatusRejected, RejectionReason: reason}, nil
}

// Cancel участник отменяет принятую сессию не позднее чем за CancelNotice
func Cancel(s *model.MentorshipSession, reason string, now time.Time) (model.StatusChange, error) {
	if s.Status.IsTerminal() {
		return model.StatusChange{}, ErrTerminal
	}
	if s.Status != model.SessionStatusAccepted {
		return model.StatusChange{}, ErrInvalidTransition
	}
	if s.StartAt.Sub(now) < CancelNotice {
		return model.StatusChange{}, ErrTooLateToCancel
	}
	return model.StatusChange{Status: model.SessionStatusCancelled, CancellationReason: reason}, nil
}
