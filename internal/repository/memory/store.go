// Package memory хранит данные в памяти процесса. Используется в тестах и
// для локального запуска без PostgreSQL (DB_DSN=memory).
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/repository"
	"github.com/jonboulle/clockwork"
)

// ErrInjected ошибка, возвращаемая при включённом FailWrites
var ErrInjected = errors.New("injected store failure")

// Store реализует все хранилища сервиса
type Store struct {
	mu            sync.RWMutex
	clock         clockwork.Clock
	sessions      map[string]*model.MentorshipSession
	order         []string
	messages      map[string][]*model.ChatMessage
	activities    []*model.Activity
	notifications []*model.Notification

	// FailWrites ломает запись сессий и сообщений
	FailWrites bool
	// FailSideEffects ломает запись действий и уведомлений
	FailSideEffects bool
}

// NewStore отметки времени берутся из clk
func NewStore(clk clockwork.Clock) *Store {
	return &Store{
		clock:    clk,
		sessions: make(map[string]*model.MentorshipSession),
		messages: make(map[string][]*model.ChatMessage),
	}
}

func cloneSession(s *model.MentorshipSession) *model.MentorshipSession {
	c := *s
	if s.Evaluation != nil {
		e := *s.Evaluation
		c.Evaluation = &e
	}
	return &c
}

func (s *Store) Create(_ context.Context, session *model.MentorshipSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return ErrInjected
	}
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("create session: duplicate id %s", session.ID)
	}

	now := s.clock.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	s.sessions[session.ID] = cloneSession(session)
	s.order = append(s.order, session.ID)
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*model.MentorshipSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if session, ok := s.sessions[id]; ok {
		return cloneSession(session), nil
	}
	return nil, nil
}

func (s *Store) List(_ context.Context, filter model.SessionFilter) ([]*model.MentorshipSession, error) {
	return s.collect(filter.Matches), nil
}

func (s *Store) ListByMentor(_ context.Context, mentorID string) ([]*model.MentorshipSession, error) {
	return s.collect(func(m *model.MentorshipSession) bool { return m.MentorID == mentorID }), nil
}

func (s *Store) ListBetween(_ context.Context, menteeID, mentorID string) ([]*model.MentorshipSession, error) {
	result := s.collect(func(m *model.MentorshipSession) bool {
		return m.MenteeID == menteeID && m.MentorID == mentorID
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListActive(_ context.Context) ([]*model.MentorshipSession, error) {
	return s.collect(func(m *model.MentorshipSession) bool { return !m.Status.IsTerminal() }), nil
}

func (s *Store) collect(match func(*model.MentorshipSession) bool) []*model.MentorshipSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.MentorshipSession
	for _, id := range s.order {
		if session := s.sessions[id]; match(session) {
			result = append(result, cloneSession(session))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (s *Store) UpdateStatus(_ context.Context, id string, version int64, change model.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return ErrInjected
	}
	session, ok := s.sessions[id]
	if !ok || session.Version != version {
		return fmt.Errorf("update session status %s: %w", id, repository.ErrStaleVersion)
	}

	change.Apply(session)
	session.Version++
	session.UpdatedAt = s.clock.Now()
	return nil
}

func (s *Store) SetEvaluation(_ context.Context, id string, version int64, evaluation *model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return ErrInjected
	}
	session, ok := s.sessions[id]
	if !ok || session.Version != version {
		return fmt.Errorf("set session evaluation %s: %w", id, repository.ErrStaleVersion)
	}

	e := *evaluation
	session.Evaluation = &e
	session.Version++
	session.UpdatedAt = s.clock.Now()
	return nil
}

// Bump имитирует конкурентную запись другим процессом
func (s *Store) Bump(id string, change model.StatusChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		change.Apply(session)
		session.Version++
	}
}

func (s *Store) Append(_ context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return ErrInjected
	}
	c := *msg
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], &c)
	return nil
}

func (s *Store) ListBySession(_ context.Context, sessionID string) ([]*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.ChatMessage, 0, len(s.messages[sessionID]))
	for _, msg := range s.messages[sessionID] {
		c := *msg
		result = append(result, &c)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// Activities возвращает все записанные действия
func (s *Store) Activities() []*model.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Activity(nil), s.activities...)
}

// Notifications возвращает все сохранённые уведомления
func (s *Store) Notifications() []*model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Notification(nil), s.notifications...)
}

// ActivityStore адаптер для записи действий
func (s *Store) ActivityStore() *ActivityStore { return &ActivityStore{s} }

// NotificationStore адаптер для записи уведомлений
func (s *Store) NotificationStore() *NotificationStore { return &NotificationStore{s} }

type ActivityStore struct{ s *Store }

func (a *ActivityStore) Create(_ context.Context, activity *model.Activity) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if a.s.FailSideEffects {
		return ErrInjected
	}
	activity.CreatedAt = a.s.clock.Now()
	c := *activity
	a.s.activities = append(a.s.activities, &c)
	return nil
}

type NotificationStore struct{ s *Store }

func (n *NotificationStore) Create(_ context.Context, notification *model.Notification) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	if n.s.FailSideEffects {
		return ErrInjected
	}
	notification.CreatedAt = n.s.clock.Now()
	c := *notification
	n.s.notifications = append(n.s.notifications, &c)
	return nil
}
