package services

import (
	"context"
	"testing"
	"time"

	"crewplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventFixture struct {
	svc   domain.EventService
	repo  *fakeEventRepo
	queue *fakeQueue
}

func newEventFixture(events ...domain.Event) eventFixture {
	repo := newFakeEventRepo(events...)
	queue := &fakeQueue{}
	notifier := NewNotifier(queue, testUsers(), "https://crew.example.com/", nil, discardLogger())
	svc := NewEventService(repo, newFakePositionRepo("deckhand", "skipper"), notifier, discardLogger(), 5*time.Second)
	return eventFixture{svc: svc, repo: repo, queue: queue}
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()

	ev, err := f.svc.CreateEvent(ctx, planner, domain.CreateEventSpec{
		Name:  "Pfingsttoern",
		Start: testNow,
		End:   testNow.Add(48 * time.Hour),
		Slots: []domain.Slot{{Order: 1, Positions: []domain.PositionKey{"skipper"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventStateDraft, ev.State)
	assert.NotEmpty(t, ev.Slots[0].Key)
	_, stored := f.repo.byKey[ev.Key]
	assert.True(t, stored)
}

func TestEventService_CreateEvent_UnknownSlotPosition(t *testing.T) {
	f := newEventFixture()
	_, err := f.svc.CreateEvent(context.Background(), planner, domain.CreateEventSpec{
		Name:  "Pfingsttoern",
		Start: testNow,
		End:   testNow,
		Slots: []domain.Slot{{Positions: []domain.PositionKey{"cook"}}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.repo.byKey)
}

func TestEventService_PermissionCheckedFirst(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(crewEvent())

	_, err := f.svc.CreateEvent(ctx, teamMember, domain.CreateEventSpec{Name: "x", Start: testNow, End: testNow})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UpdateEvent(ctx, teamMember, "ev1", domain.UpdateEventSpec{Name: domain.Some("renamed")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.DeleteEvent(ctx, outsider, "missing")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.GetEvent(ctx, outsider, "ev1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, f.repo.updates)
}

func TestEventService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(crewEvent())

	ev, err := f.svc.GetEvent(ctx, teamMember, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "Sommertoern", ev.Name)

	_, err = f.svc.GetEvent(ctx, teamMember, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	events, err := f.svc.ListEventsByYear(ctx, teamMember, 2025)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = f.svc.ListEventsByYear(ctx, teamMember, 2030)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	_, err = f.svc.ListEventsByYear(ctx, teamMember, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEventService_UpdateEvent_CrewChangesNotified(t *testing.T) {
	f := newEventFixture(crewEvent())

	// move u2 into s2 and take u1 out of s1
	slots := []domain.Slot{
		{Key: "s1", Order: 1, Positions: []domain.PositionKey{"deckhand"}},
		{Key: "s2", Order: 2, Positions: []domain.PositionKey{"deckhand"}, AssignedRegistration: regPtr("r2")},
	}
	ev, err := f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{Slots: domain.Some(slots)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ev.Version)

	assert.Equal(t, []domain.UserKey{"u2"}, f.queue.recipients(domain.NotificationAddedToCrew))
	assert.Equal(t, []domain.UserKey{"u1"}, f.queue.recipients(domain.NotificationRemovedFromCrew))
	added := f.queue.queued[0]
	assert.Equal(t, "ben@example.com", added.To)
	assert.Contains(t, added.Props["confirmUrl"], "https://crew.example.com/events/ev1/registrations/r2/confirm?accessKey=secret-2")
}

func TestEventService_UpdateEvent_BecomingPlannedNotifiesWholeCrew(t *testing.T) {
	ev := crewEvent()
	ev.State = domain.EventStateOpenForSignup
	f := newEventFixture(ev)

	_, err := f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{State: domain.Some(domain.EventStatePlanned)})
	require.NoError(t, err)
	assert.Equal(t, []domain.NotificationType{domain.NotificationAddedToCrew}, f.queue.types())
	assert.Equal(t, []domain.UserKey{"u1"}, f.queue.recipients(domain.NotificationAddedToCrew))
}

func TestEventService_UpdateEvent_DraftChangesAreSilent(t *testing.T) {
	ev := crewEvent()
	ev.State = domain.EventStateDraft
	f := newEventFixture(ev)

	_, err := f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{
		Slots: domain.Some([]domain.Slot{{Key: "s1", Positions: []domain.PositionKey{"deckhand"}, AssignedRegistration: regPtr("r2")}}),
	})
	require.NoError(t, err)
	assert.Empty(t, f.queue.queued)
}

func TestEventService_UpdateEvent_Cancel(t *testing.T) {
	f := newEventFixture(crewEvent())

	ev, err := f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{State: domain.Some(domain.EventStateCanceled)})
	require.NoError(t, err)
	assert.Equal(t, domain.EventStateCanceled, ev.State)
	assert.ElementsMatch(t, []domain.UserKey{"u1", "u2"}, f.queue.recipients(domain.NotificationEventCanceled))

	_, err = f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{State: domain.Some(domain.EventStatePlanned)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEventService_UpdateEvent_StaleVersion(t *testing.T) {
	f := newEventFixture(crewEvent())
	f.repo.updateErr = domain.ErrConflict

	_, err := f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{Name: domain.Some("renamed")})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, f.queue.queued)
}

func TestEventService_UpdateEvent_QueueFailureDoesNotFailUpdate(t *testing.T) {
	f := newEventFixture(crewEvent())
	f.queue.err = assert.AnError

	ev, err := f.svc.UpdateEvent(context.Background(), planner, "ev1", domain.UpdateEventSpec{State: domain.Some(domain.EventStateCanceled)})
	require.NoError(t, err)
	assert.Equal(t, domain.EventStateCanceled, f.repo.byKey["ev1"].State)
	assert.Equal(t, domain.EventStateCanceled, ev.State)
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(crewEvent())

	require.NoError(t, f.svc.DeleteEvent(ctx, planner, "ev1"))
	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, planner, "ev1"), domain.ErrNotFound)
}
