package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/mentorship_api/internal/lifecycle"
	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/notify"
)

func TestScheduleCreatesPendingSession(t *testing.T) {
	f := newFixture(t)

	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")

	assert.Equal(t, model.SessionStatusPending, session.Status)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), session.StartAt)
	assert.Equal(t, 30*time.Minute, session.EndAt.Sub(session.StartAt))
	assert.Equal(t, int64(1), session.Version)
	assert.NotEmpty(t, session.ID)

	stored, err := f.store.GetByID(f.ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, session.EndAt, stored.EndAt)

	require.Equal(t, 1, f.notifier.count())
	event := f.notifier.last()
	assert.Equal(t, notify.EventSessionScheduled, event.eventType)
	assert.Equal(t, "mentee-1", event.actorID)
	assert.Equal(t, []string{"mentor-1"}, event.payload.Recipients)

	activities := f.store.Activities()
	require.Len(t, activities, 1)
	assert.Equal(t, ActionScheduled, activities[0].Action)
}

func TestTimestampsFollowInjectedClock(t *testing.T) {
	f := newFixture(t)

	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	stored, err := f.store.GetByID(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.Equal(t, testNow, stored.UpdatedAt)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Accept(f.ctx, session.ID)
	require.NoError(t, err)

	stored, err = f.store.GetByID(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.Equal(t, testNow.Add(time.Hour), stored.UpdatedAt)

	for _, activity := range f.store.Activities() {
		assert.False(t, activity.CreatedAt.Before(testNow))
		assert.False(t, activity.CreatedAt.After(testNow.Add(time.Hour)))
	}
}

func TestScheduleAcceptsISODate(t *testing.T) {
	f := newFixture(t)

	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10T00:00:00.000Z", "09:30")

	assert.Equal(t, "2026-03-10", session.Date)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), session.StartAt)
}

func TestScheduleValidation(t *testing.T) {
	tests := []struct {
		name string
		req  ScheduleRequest
	}{
		{"missing mentee", ScheduleRequest{MentorID: "m", Date: "2026-03-10", Time: "10:00", Category: "Go"}},
		{"missing mentor", ScheduleRequest{MenteeID: "u", Date: "2026-03-10", Time: "10:00", Category: "Go"}},
		{"missing date", ScheduleRequest{MenteeID: "u", MentorID: "m", Time: "10:00", Category: "Go"}},
		{"missing time", ScheduleRequest{MenteeID: "u", MentorID: "m", Date: "2026-03-10", Category: "Go"}},
		{"missing category", ScheduleRequest{MenteeID: "u", MentorID: "m", Date: "2026-03-10", Time: "10:00"}},
		{"invalid date", ScheduleRequest{MenteeID: "u", MentorID: "m", Date: "10/03/2026", Time: "10:00", Category: "Go"}},
		{"invalid time", ScheduleRequest{MenteeID: "u", MentorID: "m", Date: "2026-03-10", Time: "25:00", Category: "Go"}},
		{"in the past", ScheduleRequest{MenteeID: "u", MentorID: "m", Date: "2026-03-09", Time: "11:00", Category: "Go"}},
		{"exactly now", ScheduleRequest{MenteeID: "u", MentorID: "m", Date: "2026-03-09", Time: "12:00", Category: "Go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Schedule(f.ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)

			all, err := f.store.List(f.ctx, model.SessionFilter{})
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Equal(t, 0, f.notifier.count())
		})
	}
}

func TestScheduleStoreFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.store.FailWrites = true

	_, err := f.svc.Schedule(f.ctx, ScheduleRequest{
		MenteeID: "u", MentorID: "m", Date: "2026-03-10", Time: "10:00", Category: "Go",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)

	all, _ := f.store.List(f.ctx, model.SessionFilter{})
	assert.Empty(t, all)
}

func TestSideEffectFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.store.FailSideEffects = true

	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")

	assert.Equal(t, model.SessionStatusPending, f.status(t, session.ID))
	assert.Empty(t, f.store.Activities())
}

func TestSessionLifecycleScenarios(t *testing.T) {
	f := newFixture(t)

	// A: создание и принятие
	first := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	f.clock.Advance(time.Minute)
	second := f.schedule(t, "mentee-2", "mentor-1", "2026-03-10", "10:10")

	accepted, err := f.svc.Accept(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusAccepted, accepted.Status)
	assert.Equal(t, notify.EventSessionAccepted, f.notifier.last().eventType)
	assert.Equal(t, []string{"mentee-1"}, f.notifier.last().payload.Recipients)

	_, err = f.svc.Accept(f.ctx, second.ID)
	require.NoError(t, err)

	// B: окно первой сессии, конкурентов нет
	f.moveTo(time.Date(2026, 3, 10, 10, 1, 0, 0, time.UTC))
	got, err := f.svc.Get(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusInProgress, got.Status)

	// C: вторая сессия пересекается с идущей первой
	f.moveTo(time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC))
	got, err = f.svc.Get(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelled, got.Status)
	assert.Equal(t, lifecycle.ConflictReason, got.CancellationReason)

	// D: после конца окна
	f.moveTo(time.Date(2026, 3, 10, 10, 31, 0, 0, time.UTC))
	got, err = f.svc.Get(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusFinished, got.Status)
	assert.Equal(t, 30*time.Minute, got.EndAt.Sub(got.StartAt))
}

func TestAcceptedSessionFinishesWhenWindowMissed(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	_, err := f.svc.Accept(f.ctx, session.ID)
	require.NoError(t, err)

	f.moveTo(time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC))

	got, err := f.svc.Get(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusFinished, got.Status)
}

func TestEarliestBookingWinsRegardlessOfReadOrder(t *testing.T) {
	f := newFixture(t)
	early := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	f.clock.Advance(time.Minute)
	late := f.schedule(t, "mentee-2", "mentor-1", "2026-03-10", "10:00")
	for _, id := range []string{early.ID, late.ID} {
		_, err := f.svc.Accept(f.ctx, id)
		require.NoError(t, err)
	}

	f.moveTo(time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC))

	// сначала читаем более позднюю бронь
	got, err := f.svc.Get(f.ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelled, got.Status)

	got, err = f.svc.Get(f.ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusInProgress, got.Status)
}

func TestCancelTooLate(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-09", "14:00")
	_, err := f.svc.Accept(f.ctx, session.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(f.ctx, session.ID, "mentee-1", "imprevisto")
	assert.ErrorIs(t, err, ErrTooLateToCancel)
	assert.Equal(t, model.SessionStatusAccepted, f.status(t, session.ID))
}

func TestCancelWithNotice(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-12", "10:00")
	_, err := f.svc.Accept(f.ctx, session.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(f.ctx, session.ID, "stranger", "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	cancelled, err := f.svc.Cancel(f.ctx, session.ID, "mentee-1", "viagem")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelled, cancelled.Status)
	assert.Equal(t, "viagem", cancelled.CancellationReason)

	event := f.notifier.last()
	assert.Equal(t, notify.EventSessionCancelled, event.eventType)
	assert.Equal(t, "mentee-1", event.actorID)
	assert.Equal(t, "viagem", event.payload.Reason)
}

func TestCancelPendingIsInvalid(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-12", "10:00")

	_, err := f.svc.Cancel(f.ctx, session.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectStoresReason(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")

	rejected, err := f.svc.Reject(f.ctx, session.ID, " agenda cheia ")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusRejected, rejected.Status)
	assert.Equal(t, "agenda cheia", rejected.RejectionReason)

	stored, _ := f.store.GetByID(f.ctx, session.ID)
	assert.Equal(t, "agenda cheia", stored.RejectionReason)
	assert.Equal(t, []string{"mentee-1"}, f.notifier.last().payload.Recipients)
}

func TestTerminalSessionsIgnoreActions(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-12", "10:00")
	_, err := f.svc.Reject(f.ctx, session.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Accept(f.ctx, session.ID)
	assert.ErrorIs(t, err, ErrTerminal)
	_, err = f.svc.Reject(f.ctx, session.ID, "again")
	assert.ErrorIs(t, err, ErrTerminal)
	_, err = f.svc.Cancel(f.ctx, session.ID, "mentee-1", "")
	assert.ErrorIs(t, err, ErrTerminal)

	f.moveTo(time.Date(2026, 3, 12, 10, 10, 0, 0, time.UTC))
	got, err := f.svc.Get(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusRejected, got.Status)
}

func TestAcceptExpiredSessionFails(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")

	f.moveTo(time.Date(2026, 3, 10, 10, 1, 0, 0, time.UTC))

	_, err := f.svc.Accept(f.ctx, session.ID)
	assert.ErrorIs(t, err, ErrTerminal)
	assert.Equal(t, model.SessionStatusExpired, f.status(t, session.ID))
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	expiring := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	later := f.schedule(t, "mentee-2", "mentor-1", "2026-03-10", "15:00")
	starting := f.schedule(t, "mentee-3", "mentor-2", "2026-03-10", "10:00")
	_, err := f.svc.Accept(f.ctx, starting.ID)
	require.NoError(t, err)
	events := f.notifier.count()

	f.moveTo(time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC))

	updated, err := f.svc.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, model.SessionStatusExpired, f.status(t, expiring.ID))
	assert.Equal(t, model.SessionStatusPending, f.status(t, later.ID))
	assert.Equal(t, model.SessionStatusInProgress, f.status(t, starting.ID))
	assert.Equal(t, events, f.notifier.count(), "time-driven transitions do not notify")

	updated, err = f.svc.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestSweepResolvesConflictsDeterministically(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, "mentee-1", "mentor-1", time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), model.SessionStatusAccepted)
	b := f.seed(t, "mentee-2", "mentor-1", time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC), model.SessionStatusAccepted)
	c := f.seed(t, "mentee-3", "mentor-1", time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), model.SessionStatusAccepted)

	f.moveTo(time.Date(2026, 3, 10, 10, 20, 0, 0, time.UTC))

	updated, err := f.svc.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.Equal(t, model.SessionStatusInProgress, f.status(t, a.ID))
	assert.Equal(t, model.SessionStatusCancelled, f.status(t, b.ID))
	assert.Equal(t, model.SessionStatusCancelled, f.status(t, c.ID))
}

func TestSweepReportsStoreFailures(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	f.moveTo(time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC))
	f.store.FailWrites = true

	updated, err := f.svc.Sweep(f.ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, updated)
}

func TestReconcileRetriesOnStaleVersion(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	_, err := f.svc.Accept(f.ctx, session.ID)
	require.NoError(t, err)

	stale, err := f.store.GetByID(f.ctx, session.ID)
	require.NoError(t, err)
	f.store.Bump(session.ID, model.StatusChange{Status: model.SessionStatusAccepted})

	f.moveTo(time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC))

	changed, err := f.svc.Reconcile(f.ctx, stale)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.SessionStatusInProgress, stale.Status)
	assert.Equal(t, int64(4), stale.Version)
	assert.Equal(t, model.SessionStatusInProgress, f.status(t, session.ID))
}

func TestReconcileDoesNotOverrideConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	session := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")

	stale, err := f.store.GetByID(f.ctx, session.ID)
	require.NoError(t, err)
	f.store.Bump(session.ID, model.StatusChange{Status: model.SessionStatusRejected})

	f.moveTo(time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC))

	changed, err := f.svc.Reconcile(f.ctx, stale)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.SessionStatusRejected, stale.Status)
	assert.Equal(t, model.SessionStatusRejected, f.status(t, session.ID))
}

func TestListFiltersAfterReconcile(t *testing.T) {
	f := newFixture(t)
	running := f.schedule(t, "mentee-1", "mentor-1", "2026-03-10", "10:00")
	f.schedule(t, "mentee-2", "mentor-2", "2026-03-10", "10:00")
	_, err := f.svc.Accept(f.ctx, running.ID)
	require.NoError(t, err)

	f.moveTo(time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC))

	all, err := f.svc.List(f.ctx, model.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inProgress, err := f.svc.List(f.ctx, model.SessionFilter{Status: model.SessionStatusInProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, running.ID, inProgress[0].ID)

	byMentor, err := f.svc.List(f.ctx, model.SessionFilter{MentorID: "mentor-2"})
	require.NoError(t, err)
	require.Len(t, byMentor, 1)
	assert.Equal(t, model.SessionStatusExpired, byMentor[0].Status)

	mine, err := f.svc.ListMine(f.ctx, "mentee-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = f.svc.ListMine(f.ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.List(f.ctx, model.SessionFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(f.ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Accept(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluateRatingBounds(t *testing.T) {
	f := newFixture(t)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.Evaluate(f.ctx, EvaluateRequest{SessionID: uuid.NewString(), Rating: rating, EvaluatorID: "mentee-1"})
		assert.ErrorIs(t, err, ErrValidation, "rating %d", rating)
	}

	start := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	for rating := 1; rating <= 5; rating++ {
		session := f.seed(t, "mentee-1", "mentor-1", start, model.SessionStatusFinished)

		evaluated, err := f.svc.Evaluate(f.ctx, EvaluateRequest{
			SessionID:   session.ID,
			Rating:      rating,
			Comment:     "ótimo",
			EvaluatorID: "mentee-1",
		})
		require.NoError(t, err, "rating %d", rating)
		require.NotNil(t, evaluated.Evaluation)
		assert.Equal(t, rating, evaluated.Evaluation.Rating)
	}

	event := f.notifier.last()
	assert.Equal(t, notify.EventSessionEvaluated, event.eventType)
	assert.Equal(t, []string{"mentor-1"}, event.payload.Recipients)
	assert.Equal(t, 5, event.payload.Rating)
}

func TestEvaluateGuards(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	finished := f.seed(t, "mentee-1", "mentor-1", start, model.SessionStatusFinished)
	pending := f.schedule(t, "mentee-1", "mentor-1", "2026-03-12", "10:00")

	_, err := f.svc.Evaluate(f.ctx, EvaluateRequest{SessionID: pending.ID, Rating: 4, EvaluatorID: "mentee-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Evaluate(f.ctx, EvaluateRequest{SessionID: finished.ID, Rating: 4, EvaluatorID: "stranger"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.Evaluate(f.ctx, EvaluateRequest{SessionID: finished.ID, Rating: 4})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Evaluate(f.ctx, EvaluateRequest{SessionID: finished.ID, Rating: 4, EvaluatorID: "mentee-1"})
	require.NoError(t, err)

	_, err = f.svc.Evaluate(f.ctx, EvaluateRequest{SessionID: finished.ID, Rating: 2, EvaluatorID: "mentor-1"})
	assert.ErrorIs(t, err, ErrAlreadyEvaluated)

	stored, _ := f.store.GetByID(f.ctx, finished.ID)
	require.NotNil(t, stored.Evaluation)
	assert.Equal(t, 4, stored.Evaluation.Rating)
	assert.Equal(t, "mentee-1", stored.Evaluation.EvaluatorID)
}
