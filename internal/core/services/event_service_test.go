package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
)

func newEventService(t *testing.T) (*EventService, *circFixture) {
	t.Helper()

	f := newCircFixture(t)
	svc := NewEventService(repositories.NewEventRepository(f.db))
	return svc, f
}

func futureEventInput(start time.Time) *EventInput {
	return &EventInput{
		Title:     "Author Meet: Ursula Reads",
		Location:  "Main Hall",
		Category:  "Author Meet",
		StartDate: start,
		EndDate:   start.Add(2 * time.Hour),
	}
}

func TestCreateEventRejectsBadDateRange(t *testing.T) {
	svc, f := newEventService(t)

	staff := f.seedUser(t, domain.RoleLibrarian)
	start := time.Now().Add(48 * time.Hour)

	_, err := svc.Create(context.Background(), &EventInput{
		Title:     "Backwards Event",
		StartDate: start,
		EndDate:   start.Add(-time.Hour),
	}, staff.ID)
	assert.ErrorIs(t, err, ErrBadDateRange)
}

func TestRegisterForEvent(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)
	member := f.seedUser(t, domain.RoleMember)

	event, err := svc.Create(ctx, futureEventInput(time.Now().Add(48*time.Hour)), staff.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, event.ID, member.ID)
	require.NoError(t, err)

	// Signing up twice for the same event is rejected.
	_, err = svc.Register(ctx, event.ID, member.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterStopsAtCapacity(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)
	alice := f.seedUser(t, domain.RoleMember)
	bob := f.seedUser(t, domain.RoleMember)

	input := futureEventInput(time.Now().Add(48 * time.Hour))
	input.Capacity = 1
	event, err := svc.Create(ctx, input, staff.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, event.ID, alice.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, event.ID, bob.ID)
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestRegisterUnlimitedWhenNoCapacity(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)
	event, err := svc.Create(ctx, futureEventInput(time.Now().Add(48*time.Hour)), staff.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		member := f.seedUser(t, domain.RoleMember)
		_, err = svc.Register(ctx, event.ID, member.ID)
		require.NoError(t, err)
	}
}

func TestRegisterAfterStartRejected(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)
	member := f.seedUser(t, domain.RoleMember)

	event, err := svc.Create(ctx, futureEventInput(time.Now().Add(-time.Hour)), staff.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, event.ID, member.ID)
	assert.ErrorIs(t, err, ErrEventStarted)
}

func TestUnregisterFreesASeat(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)
	alice := f.seedUser(t, domain.RoleMember)
	bob := f.seedUser(t, domain.RoleMember)

	input := futureEventInput(time.Now().Add(48 * time.Hour))
	input.Capacity = 1
	event, err := svc.Create(ctx, input, staff.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, event.ID, alice.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, event.ID, alice.ID))

	_, err = svc.Register(ctx, event.ID, bob.ID)
	assert.NoError(t, err)
}

func TestUnregisterWhenNotRegistered(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)
	member := f.seedUser(t, domain.RoleMember)

	event, err := svc.Create(ctx, futureEventInput(time.Now().Add(48*time.Hour)), staff.ID)
	require.NoError(t, err)

	err = svc.Unregister(ctx, event.ID, member.ID)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestListFeaturedEvents(t *testing.T) {
	svc, f := newEventService(t)
	ctx := context.Background()

	staff := f.seedUser(t, domain.RoleLibrarian)

	plain := futureEventInput(time.Now().Add(24 * time.Hour))
	_, err := svc.Create(ctx, plain, staff.ID)
	require.NoError(t, err)

	featured := futureEventInput(time.Now().Add(48 * time.Hour))
	featured.Title = "Summer Reading Kickoff"
	featured.Featured = true
	_, err = svc.Create(ctx, featured, staff.ID)
	require.NoError(t, err)

	events, err := svc.ListFeatured(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Summer Reading Kickoff", events[0].Title)
}
