package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/mentorship_api/internal/model"
	"github.com/Freeeeeet/mentorship_api/internal/notify"
	"github.com/Freeeeeet/mentorship_api/internal/repository/memory"
)

// today 12:00 UTC; tomorrow is 2026-03-10
var testNow = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

type sentEvent struct {
	eventType string
	actorID   string
	payload   notify.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Dispatch(_ context.Context, eventType, actorID string, payload notify.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{eventType: eventType, actorID: actorID, payload: payload})
}

func (n *recordingNotifier) last() sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	svc      *MentorshipService
	chat     *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clockwork.NewFakeClockAt(testNow)
	store := memory.NewStore(clk)
	logger := zap.NewNop()
	activity := NewActivityService(store.ActivityStore(), logger)
	notifier := &recordingNotifier{}

	return &fixture{
		ctx:      context.Background(),
		store:    store,
		clock:    clk,
		notifier: notifier,
		svc:      NewMentorshipService(store, activity, notifier, clk, time.UTC, logger),
		chat:     NewChatService(store, store, activity, clk, logger),
	}
}

func (f *fixture) schedule(t *testing.T, mentee, mentor, date, at string) *model.MentorshipSession {
	t.Helper()
	session, err := f.svc.Schedule(f.ctx, ScheduleRequest{
		MenteeID: mentee,
		MentorID: mentor,
		Date:     date,
		Time:     at,
		Category: "Go",
		Plan:     "basic",
	})
	require.NoError(t, err)
	return session
}

// seed кладёт сессию с произвольным статусом напрямую в хранилище
func (f *fixture) seed(t *testing.T, mentee, mentor string, start time.Time, status model.SessionStatus) *model.MentorshipSession {
	t.Helper()
	session := &model.MentorshipSession{
		ID:        uuid.NewString(),
		MenteeID:  mentee,
		MentorID:  mentor,
		Date:      start.Format(dateLayout),
		Time:      start.Format(timeLayout),
		StartAt:   start,
		EndAt:     start.Add(model.SessionDuration),
		Category:  "Go",
		Status:    status,
		Version:   1,
		CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.store.Create(f.ctx, session))
	f.clock.Advance(time.Second)
	return session
}

// moveTo переводит часы на момент when
func (f *fixture) moveTo(when time.Time) {
	f.clock.Advance(when.Sub(f.clock.Now()))
}

func (f *fixture) status(t *testing.T, id string) model.SessionStatus {
	t.Helper()
	session, err := f.store.GetByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session.Status
}
