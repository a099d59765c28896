package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `
	id::text, mentee_id, mentor_id, session_date, session_time, start_at, end_at,
	category, plan, status, rejection_reason, cancellation_reason, evaluation,
	version, created_at, updated_at`

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет новую сессию
func (r *SessionRepository) Create(ctx context.Context, session *model.MentorshipSession) error {
	query := `
		INSERT INTO mentorship_sessions (
			id, mentee_id, mentor_id, session_date, session_time, start_at, end_at,
			category, plan, status, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		session.ID,
		session.MenteeID,
		session.MentorID,
		session.Date,
		session.Time,
		session.StartAt,
		session.EndAt,
		session.Category,
		session.Plan,
		session.Status,
		session.Version,
		session.CreatedAt,
	).Scan(&session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID получает сессию по ID, nil если не найдена
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.MentorshipSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM mentorship_sessions WHERE id = $1`

	session, err := scanSession(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// List получает сессии по фильтру в порядке создания
func (r *SessionRepository) List(ctx context.Context, filter model.SessionFilter) ([]*model.MentorshipSession, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.MentorID != "" {
		args = append(args, filter.MentorID)
		conditions = append(conditions, fmt.Sprintf("mentor_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("(mentee_id = $%d OR mentor_id = $%d)", len(args), len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM mentorship_sessions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return r.querySessions(ctx, "list sessions", query, args...)
}

// ListByMentor получает все сессии ментора
func (r *SessionRepository) ListByMentor(ctx context.Context, mentorID string) ([]*model.MentorshipSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM mentorship_sessions
		WHERE mentor_id = $1
		ORDER BY created_at ASC, id ASC`

	return r.querySessions(ctx, "list sessions by mentor", query, mentorID)
}

// ListBetween получает сессии пары менти-ментор, новые первыми
func (r *SessionRepository) ListBetween(ctx context.Context, menteeID, mentorID string) ([]*model.MentorshipSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM mentorship_sessions
		WHERE mentee_id = $1 AND mentor_id = $2
		ORDER BY created_at DESC`

	return r.querySessions(ctx, "list sessions between", query, menteeID, mentorID)
}

// ListActive получает все сессии в нетерминальных статусах
func (r *SessionRepository) ListActive(ctx context.Context) ([]*model.MentorshipSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM mentorship_sessions
		WHERE status IN ('pending', 'accepted', 'in_progress')
		ORDER BY created_at ASC, id ASC`

	return r.querySessions(ctx, "list active sessions", query)
}

// UpdateStatus записывает новый статус, если версия не изменилась
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, version int64, change model.StatusChange) error {
	query := `
		UPDATE mentorship_sessions
		SET status = $1,
		    rejection_reason = COALESCE(NULLIF($2, ''), rejection_reason),
		    cancellation_reason = COALESCE(NULLIF($3, ''), cancellation_reason),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $4 AND version = $5
	`

	return r.ExecVersioned(ctx, "update session status "+id, query,
		change.Status, change.RejectionReason, change.CancellationReason, id, version)
}

// SetEvaluation записывает оценку, если версия не изменилась
func (r *SessionRepository) SetEvaluation(ctx context.Context, id string, version int64, evaluation *model.Evaluation) error {
	payload, err := json.Marshal(evaluation)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	query := `
		UPDATE mentorship_sessions
		SET evaluation = $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	return r.ExecVersioned(ctx, "set session evaluation "+id, query, payload, id, version)
}

func (r *SessionRepository) querySessions(ctx context.Context, op, query string, args ...interface{}) ([]*model.MentorshipSession, error) {
	return base.QueryAll(ctx, r.Repository, op, query, scanSession, args...)
}

func scanSession(row pgx.Row) (*model.MentorshipSession, error) {
	var (
		session    model.MentorshipSession
		evaluation []byte
	)

	err := row.Scan(
		&session.ID,
		&session.MenteeID,
		&session.MentorID,
		&session.Date,
		&session.Time,
		&session.StartAt,
		&session.EndAt,
		&session.Category,
		&session.Plan,
		&session.Status,
		&session.RejectionReason,
		&session.CancellationReason,
		&evaluation,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(evaluation) > 0 {
		session.Evaluation = &model.Evaluation{}
		if err := json.Unmarshal(evaluation, session.Evaluation); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
	}

	return &session, nil
}
