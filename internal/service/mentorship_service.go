package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/mentorship_api/internal/lifecycle"
	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/notify"
	"github.com/Freeeeeet/mentorship_api/internal/repository"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// maxWriteAttempts сколько раз перечитываем сессию при конфликте версий
	maxWriteAttempts = 3
)

// ScheduleRequest запрос менти на новую сессию
type ScheduleRequest struct {
	MenteeID string
	MentorID string
	Date     string // YYYY-MM-DD
	Time     string // HH:MM
	Category string
	Plan     string
}

func (r ScheduleRequest) missingFields() []string {
	var missing []string
	if strings.TrimSpace(r.MenteeID) == "" {
		missing = append(missing, "menteeId")
	}
	if strings.TrimSpace(r.MentorID) == "" {
		missing = append(missing, "mentorId")
	}
	if strings.TrimSpace(r.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(r.Time) == "" {
		missing = append(missing, "horario")
	}
	if strings.TrimSpace(r.Category) == "" {
		missing = append(missing, "categoria")
	}
	return missing
}

// EvaluateRequest оценка завершённой сессии
type EvaluateRequest struct {
	SessionID   string
	Rating      int
	Comment     string
	EvaluatorID string
}

type MentorshipService struct {
	sessions SessionStore
	activity ActivityLog
	notifier Notifier
	clock    clockwork.Clock
	location *time.Location
	logger   *zap.Logger
}

func NewMentorshipService(
	sessions SessionStore,
	activity ActivityLog,
	notifier Notifier,
	clk clockwork.Clock,
	location *time.Location,
	logger *zap.Logger,
) *MentorshipService {
	if location == nil {
		location = time.Local
	}
	return &MentorshipService{
		sessions: sessions,
		activity: activity,
		notifier: notifier,
		clock:    clk,
		location: location,
		logger:   logger,
	}
}

// Schedule создаёт новую сессию в статусе pending.
// Пересечения с другими сессиями ментора здесь не проверяются.
func (s *MentorshipService) Schedule(ctx context.Context, req ScheduleRequest) (*model.MentorshipSession, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields: %s", ErrValidation, strings.Join(missing, ", "))
	}

	date := normalizeDate(req.Date)
	startAt, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+strings.TrimSpace(req.Time), s.location)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date or time", ErrValidation)
	}

	now := s.clock.Now()
	if !startAt.After(now) {
		return nil, fmt.Errorf("%w: session must start in the future", ErrValidation)
	}

	session := &model.MentorshipSession{
		ID:        uuid.NewString(),
		MenteeID:  req.MenteeID,
		MentorID:  req.MentorID,
		Date:      date,
		Time:      startAt.Format(timeLayout),
		StartAt:   startAt,
		EndAt:     startAt.Add(model.SessionDuration),
		Category:  req.Category,
		Plan:      req.Plan,
		Status:    model.SessionStatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("Session scheduled",
		zap.String("session_id", session.ID),
		zap.String("mentee_id", session.MenteeID),
		zap.String("mentor_id", session.MentorID),
		zap.Time("start_at", session.StartAt),
	)

	s.activity.Record(ctx, session.MenteeID,
		fmt.Sprintf("Agendou uma mentoria de %s para %s", session.Category, notify.FormatDateTime(session.StartAt)),
		ActionScheduled)
	s.notifier.Dispatch(ctx, notify.EventSessionScheduled, session.MenteeID, notify.Payload{
		Recipients: []string{session.MentorID},
		SessionID:  session.ID,
		Status:     session.Status,
		StartAt:    session.StartAt,
		EndAt:      session.EndAt,
		Category:   session.Category,
	})

	return session, nil
}

// normalizeDate принимает YYYY-MM-DD или полный ISO-8601 и оставляет дату
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if len(date) > len(dateLayout) && date[len(dateLayout)] == 'T' {
		return date[:len(dateLayout)]
	}
	return date
}

// Get получает сессию и сверяет её статус
func (s *MentorshipService) Get(ctx context.Context, id string) (*model.MentorshipSession, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.reconcile(ctx, session, s.sessions.ListByMentor); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *MentorshipService) load(ctx context.Context, id string) (*model.MentorshipSession, error) {
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

// Reconcile приводит статус сессии в соответствие с текущим временем
func (s *MentorshipService) Reconcile(ctx context.Context, session *model.MentorshipSession) (bool, error) {
	return s.reconcile(ctx, session, s.sessions.ListByMentor)
}

type siblingLoader func(ctx context.Context, mentorID string) ([]*model.MentorshipSession, error)

// reconcile обновляет session на месте. Соседние сессии грузятся только
// когда принятая сессия попадает в своё окно.
func (s *MentorshipService) reconcile(ctx context.Context, session *model.MentorshipSession, loadSiblings siblingLoader) (bool, error) {
	for attempt := 1; ; attempt++ {
		now := s.clock.Now()

		var siblings []*model.MentorshipSession
		if session.Status == model.SessionStatusAccepted && session.Contains(now) {
			var err error
			siblings, err = loadSiblings(ctx, session.MentorID)
			if err != nil {
				return false, fmt.Errorf("load mentor sessions: %w", err)
			}
		}

		decision := lifecycle.Reconcile(session, now, siblings)
		if !decision.Changed {
			return false, nil
		}

		err := s.sessions.UpdateStatus(ctx, session.ID, session.Version, decision.Change)
		if err == nil {
			previous := session.Status
			decision.Change.Apply(session)
			session.Version++

			s.logger.Info("Session status reconciled",
				zap.String("session_id", session.ID),
				zap.String("from", string(previous)),
				zap.String("to", string(session.Status)),
				zap.String("reason", decision.Change.CancellationReason),
			)
			s.activity.Record(ctx, SystemActor,
				fmt.Sprintf("Sessão %s: %s -> %s", session.ID, previous, session.Status),
				ActionReconciled)

			return true, nil
		}

		if !errors.Is(err, repository.ErrStaleVersion) {
			return false, fmt.Errorf("reconcile session: %w", err)
		}
		if attempt >= maxWriteAttempts {
			return false, ErrVersionConflict
		}

		fresh, err := s.load(ctx, session.ID)
		if err != nil {
			return false, err
		}
		*session = *fresh
	}
}

// reconcileAll сверяет пачку сессий; сессии одного ментора делят один список соседей
func (s *MentorshipService) reconcileAll(ctx context.Context, sessions []*model.MentorshipSession) (int, error) {
	cache := make(map[string][]*model.MentorshipSession)
	loader := func(ctx context.Context, mentorID string) ([]*model.MentorshipSession, error) {
		if siblings, ok := cache[mentorID]; ok {
			return siblings, nil
		}
		siblings, err := s.sessions.ListByMentor(ctx, mentorID)
		if err != nil {
			return nil, err
		}
		cache[mentorID] = siblings
		return siblings, nil
	}

	updated := 0
	var errs []error
	for _, session := range sessions {
		changed, err := s.reconcile(ctx, session, loader)
		if err != nil {
			s.logger.Error("Failed to reconcile session",
				zap.String("session_id", session.ID),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}

		updated++
		for _, sibling := range cache[session.MentorID] {
			if sibling.ID == session.ID {
				*sibling = *session
			}
		}
	}

	return updated, errors.Join(errs...)
}

// Sweep сверяет все незавершённые сессии и возвращает число изменённых
func (s *MentorshipService) Sweep(ctx context.Context) (int, error) {
	sessions, err := s.sessions.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active sessions: %w", err)
	}

	updated, err := s.reconcileAll(ctx, sessions)

	s.logger.Info("Sweep completed",
		zap.Int("scanned", len(sessions)),
		zap.Int("updated", updated),
	)

	return updated, err
}

// List получает сессии по фильтру; фильтр по статусу применяется после сверки
func (s *MentorshipService) List(ctx context.Context, filter model.SessionFilter) ([]*model.MentorshipSession, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}

	query := filter
	query.Status = ""

	sessions, err := s.sessions.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	if _, err := s.reconcileAll(ctx, sessions); err != nil {
		return nil, err
	}

	result := make([]*model.MentorshipSession, 0, len(sessions))
	for _, session := range sessions {
		if filter.Matches(session) {
			result = append(result, session)
		}
	}

	return result, nil
}

// ListMine получает сессии, в которых пользователь менти или ментор
func (s *MentorshipService) ListMine(ctx context.Context, userID string) ([]*model.MentorshipSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: usuarioId is required", ErrValidation)
	}
	return s.List(ctx, model.SessionFilter{UserID: userID})
}

type guardFunc func(session *model.MentorshipSession, now time.Time) (model.StatusChange, error)

// transition применяет явное действие участника с повтором при конфликте версий
func (s *MentorshipService) transition(ctx context.Context, id string, guard guardFunc) (*model.MentorshipSession, error) {
	for attempt := 1; ; attempt++ {
		session, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		change, err := guard(session, s.clock.Now())
		if err != nil {
			return nil, err
		}

		err = s.sessions.UpdateStatus(ctx, session.ID, session.Version, change)
		if err == nil {
			change.Apply(session)
			session.Version++
			return session, nil
		}

		if !errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("update session status: %w", err)
		}
		if attempt >= maxWriteAttempts {
			return nil, ErrVersionConflict
		}
	}
}

// Accept ментор принимает запрос на сессию
func (s *MentorshipService) Accept(ctx context.Context, id string) (*model.MentorshipSession, error) {
	session, err := s.transition(ctx, id, func(session *model.MentorshipSession, _ time.Time) (model.StatusChange, error) {
		return lifecycle.Accept(session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session accepted",
		zap.String("session_id", session.ID),
		zap.String("mentor_id", session.MentorID),
	)

	s.activity.Record(ctx, session.MentorID, "Aceitou uma sessão de mentoria", ActionAccepted)
	s.notifier.Dispatch(ctx, notify.EventSessionAccepted, session.MentorID, s.payload(session, []string{session.MenteeID}, ""))

	return session, nil
}

// Reject ментор отклоняет запрос на сессию
func (s *MentorshipService) Reject(ctx context.Context, id, reason string) (*model.MentorshipSession, error) {
	reason = strings.TrimSpace(reason)
	session, err := s.transition(ctx, id, func(session *model.MentorshipSession, _ time.Time) (model.StatusChange, error) {
		return lifecycle.Reject(session, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session rejected",
		zap.String("session_id", session.ID),
		zap.String("mentor_id", session.MentorID),
		zap.String("reason", reason),
	)

	s.activity.Record(ctx, session.MentorID, "Recusou uma sessão de mentoria", ActionRejected)
	s.notifier.Dispatch(ctx, notify.EventSessionRejected, session.MentorID, s.payload(session, []string{session.MenteeID}, reason))

	return session, nil
}

// Cancel участник отменяет принятую сессию. actorID может быть пустым,
// тогда уведомляются оба участника.
func (s *MentorshipService) Cancel(ctx context.Context, id, actorID, reason string) (*model.MentorshipSession, error) {
	reason = strings.TrimSpace(reason)
	session, err := s.transition(ctx, id, func(session *model.MentorshipSession, now time.Time) (model.StatusChange, error) {
		if actorID != "" && !session.IsParticipant(actorID) {
			return model.StatusChange{}, ErrAccessDenied
		}
		return lifecycle.Cancel(session, reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session cancelled",
		zap.String("session_id", session.ID),
		zap.String("actor_id", actorID),
		zap.String("reason", reason),
	)

	logUser := actorID
	if logUser == "" {
		logUser = session.MenteeID
	}
	s.activity.Record(ctx, logUser, "Cancelou uma sessão de mentoria", ActionCancelled)
	s.notifier.Dispatch(ctx, notify.EventSessionCancelled, actorID,
		s.payload(session, []string{session.MenteeID, session.MentorID}, reason))

	return session, nil
}

// Evaluate сохраняет оценку завершённой сессии. Повторная оценка запрещена.
func (s *MentorshipService) Evaluate(ctx context.Context, req EvaluateRequest) (*model.MentorshipSession, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: nota must be between 1 and 5", ErrValidation)
	}
	if strings.TrimSpace(req.EvaluatorID) == "" {
		return nil, fmt.Errorf("%w: avaliadorId is required", ErrValidation)
	}

	for attempt := 1; ; attempt++ {
		session, err := s.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}

		if !session.IsParticipant(req.EvaluatorID) {
			return nil, ErrAccessDenied
		}
		if session.Status != model.SessionStatusFinished {
			return nil, fmt.Errorf("%w: session is not finished", ErrInvalidTransition)
		}
		if session.Evaluation != nil {
			return nil, ErrAlreadyEvaluated
		}

		evaluation := &model.Evaluation{
			Rating:      req.Rating,
			Comment:     strings.TrimSpace(req.Comment),
			EvaluatorID: req.EvaluatorID,
			Date:        s.clock.Now(),
		}

		err = s.sessions.SetEvaluation(ctx, session.ID, session.Version, evaluation)
		if err == nil {
			session.Evaluation = evaluation
			session.Version++

			s.logger.Info("Session evaluated",
				zap.String("session_id", session.ID),
				zap.String("evaluator_id", req.EvaluatorID),
				zap.Int("rating", req.Rating),
			)

			s.activity.Record(ctx, req.EvaluatorID, fmt.Sprintf("Avaliou uma mentoria com nota %d", req.Rating), ActionEvaluated)
			payload := s.payload(session, []string{session.MentorID}, "")
			payload.Rating = req.Rating
			s.notifier.Dispatch(ctx, notify.EventSessionEvaluated, req.EvaluatorID, payload)

			return session, nil
		}

		if !errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("set evaluation: %w", err)
		}
		if attempt >= maxWriteAttempts {
			return nil, ErrVersionConflict
		}
	}
}

func (s *MentorshipService) payload(session *model.MentorshipSession, recipients []string, reason string) notify.Payload {
	return notify.Payload{
		Recipients: recipients,
		SessionID:  session.ID,
		Status:     session.Status,
		StartAt:    session.StartAt,
		EndAt:      session.EndAt,
		Category:   session.Category,
		Reason:     reason,
	}
}
