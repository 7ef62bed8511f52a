package group

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/internal/store"
)

type event struct {
	kind       string
	recipients []string
	actor      string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeNotifier) record(kind string, recipients []string, actor string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{kind: kind, recipients: recipients, actor: actor})
}

func (f *fakeNotifier) JoinRequested(_ context.Context, memberUIDs []string, actorUID, _, _ string) {
	f.record("join-requested", memberUIDs, actorUID)
}

func (f *fakeNotifier) JoinAccepted(_ context.Context, recipientUID, deciderUID, _, _ string) {
	f.record("join-accepted", []string{recipientUID}, deciderUID)
}

func (f *fakeNotifier) JoinRejected(_ context.Context, recipientUID, deciderUID, _, _ string) {
	f.record("join-rejected", []string{recipientUID}, deciderUID)
}

func (f *fakeNotifier) JoinDecisionBroadcast(_ context.Context, memberUIDs []string, deciderUID, _, _, _ string, _ bool) {
	f.record("join-decision-broadcast", memberUIDs, deciderUID)
}

func (f *fakeNotifier) MemberLeft(_ context.Context, memberUIDs []string, actorUID, _, _ string) {
	f.record("member-left", memberUIDs, actorUID)
}

func (f *fakeNotifier) GroupDisbanded(_ context.Context, recipientUID, _, _ string) {
	f.record("group-disbanded", []string{recipientUID}, "")
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.kind
	}
	return out
}

type fixture struct {
	store    store.Store
	svc      *Service
	groups   *Repository
	listings *listing.Repository
	notifier *fakeNotifier
}

func newFixture(maxUsers int) *fixture {
	s := store.NewMemoryStore()
	groups := NewRepository(s)
	listings := listing.NewRepository(s)
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:    s,
		svc:      NewService(s, groups, listings, notifier, nil, logger, maxUsers, 5),
		groups:   groups,
		listings: listings,
		notifier: notifier,
	}
}

func (f *fixture) seedListing(t *testing.T, uid, groupID string) {
	t.Helper()
	now := time.Now().UTC()
	l := &listing.TravelerListing{
		UserID:             uid,
		AirportCode:        "JFK",
		FlightCarrier:      "DL",
		FlightNumber:       "405",
		DestinationAddress: "destination",
		ConnectionRequests: []string{},
		GroupID:            groupID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, f.listings.Create(context.Background(), l))
}

// seedGroup creates a group plus one active listing per member.
func (f *fixture) seedGroup(t *testing.T, members ...string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	g := &Group{
		ID:              id,
		Name:            DefaultName,
		AirportCode:     "JFK",
		Members:         members,
		PendingRequests: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := f.store.RunTransaction(context.Background(), []string{Key(id)}, func(tx store.Tx) error {
		return f.groups.PutTx(tx, g)
	})
	require.NoError(t, err)
	for _, m := range members {
		f.seedListing(t, m, id)
	}
	return id
}

func TestRequestJoin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")

	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []string{"joiner"}, g.PendingRequests)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "join-requested", f.notifier.events[0].kind)
	assert.ElementsMatch(t, []string{"m1", "m2"}, f.notifier.events[0].recipients)
}

func TestRequestJoinIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")

	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))
	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []string{"joiner"}, g.PendingRequests, "second request must not duplicate")
	assert.Len(t, f.notifier.events, 1, "second request must not re-notify")
}

func TestRequestJoinPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")

	err := f.svc.RequestJoin(ctx, "nobody", uuid.NewString())
	assert.ErrorIs(t, err, ErrGroupNotFound)

	err = f.svc.RequestJoin(ctx, "m1", gid)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// No active listing at the group's airport.
	err = f.svc.RequestJoin(ctx, "stranger", gid)
	assert.ErrorIs(t, err, ErrNoListing)

	// Member of another group.
	f.seedGroup(t, "x1", "x2")
	err = f.svc.RequestJoin(ctx, "x1", gid)
	assert.ErrorIs(t, err, ErrAlreadyGrouped)
}

func TestRequestJoinFullGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(2)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")

	err := f.svc.RequestJoin(ctx, "joiner", gid)
	assert.ErrorIs(t, err, ErrGroupFull)
}

func TestRespondToJoinAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2", "m3")
	f.seedListing(t, "joiner", "")
	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	require.NoError(t, f.svc.RespondToJoin(ctx, "m1", gid, "joiner", true))

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2", "m3", "joiner"}, g.Members)
	assert.Empty(t, g.PendingRequests)

	l, err := f.listings.Get(ctx, "JFK", "joiner")
	require.NoError(t, err)
	assert.Equal(t, gid, l.GroupID)

	kinds := f.notifier.kinds()
	assert.Contains(t, kinds, "join-accepted")
	assert.Contains(t, kinds, "join-decision-broadcast")
	for _, e := range f.notifier.events {
		if e.kind == "join-decision-broadcast" {
			assert.ElementsMatch(t, []string{"m2", "m3"}, e.recipients,
				"broadcast excludes decider and requester")
		}
	}
}

func TestRespondToJoinReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")
	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	require.NoError(t, f.svc.RespondToJoin(ctx, "m2", gid, "joiner", false))

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Empty(t, g.PendingRequests)
	assert.Len(t, g.Members, 2)

	l, err := f.listings.Get(ctx, "JFK", "joiner")
	require.NoError(t, err)
	assert.Empty(t, l.GroupID)

	assert.Contains(t, f.notifier.kinds(), "join-rejected")
}

func TestRespondToJoinSecondDeciderNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")
	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	require.NoError(t, f.svc.RespondToJoin(ctx, "m1", gid, "joiner", true))
	err := f.svc.RespondToJoin(ctx, "m2", gid, "joiner", true)
	assert.ErrorIs(t, err, ErrRequestNotFound, "second decider must not double-process")
}

func TestRespondToJoinNonMemberCannotDecide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")
	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	err := f.svc.RespondToJoin(ctx, "outsider", gid, "joiner", true)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestConcurrentAcceptsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2", "m3")
	f.seedListing(t, "j1", "")
	f.seedListing(t, "j2", "")
	require.NoError(t, f.svc.RequestJoin(ctx, "j1", gid))
	require.NoError(t, f.svc.RequestJoin(ctx, "j2", gid))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = f.svc.RespondToJoin(ctx, "m1", gid, "j1", true)
	}()
	go func() {
		defer wg.Done()
		errs[1] = f.svc.RespondToJoin(ctx, "m2", gid, "j2", true)
	}()
	wg.Wait()

	var wins, full int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrGroupFull):
			full++
		}
	}
	assert.Equal(t, 1, wins, "exactly one accept fills the last slot")
	assert.Equal(t, 1, full, "the other accept hits the capacity re-check")

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Len(t, g.Members, 4, "capacity invariant holds after the race")
}

func TestLeaveGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2", "m3")

	require.NoError(t, f.svc.Leave(ctx, "m1", gid))

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.ElementsMatch(t, []string{"m2", "m3"}, g.Members)

	l, err := f.listings.Get(ctx, "JFK", "m1")
	require.NoError(t, err)
	assert.Empty(t, l.GroupID)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "member-left", f.notifier.events[0].kind)
	assert.ElementsMatch(t, []string{"m2", "m3"}, f.notifier.events[0].recipients)
}

func TestLeaveGroupDisbandsAtOneMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")

	require.NoError(t, f.svc.Leave(ctx, "m1", gid))

	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Nil(t, g, "disbanded group is deleted")

	for _, uid := range []string{"m1", "m2"} {
		l, err := f.listings.Get(ctx, "JFK", uid)
		require.NoError(t, err)
		assert.Empty(t, l.GroupID, "no listing may reference the disbanded group")
	}

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "group-disbanded", f.notifier.events[0].kind,
		"the remainder gets a disband notice, not a member-left notice")
	assert.Equal(t, []string{"m2"}, f.notifier.events[0].recipients)
}

func TestLeaveGroupPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")

	err := f.svc.Leave(ctx, "m1", uuid.NewString())
	assert.ErrorIs(t, err, ErrGroupNotFound)

	err = f.svc.Leave(ctx, "outsider", gid)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestUpdateName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")

	err := f.svc.UpdateName(ctx, "m1", gid, "Team 1")
	assert.ErrorIs(t, err, ErrInvalidName, "digits are not allowed")

	err = f.svc.UpdateName(ctx, "m1", gid, "")
	assert.ErrorIs(t, err, ErrInvalidName)

	err = f.svc.UpdateName(ctx, "outsider", gid, "Team One")
	assert.ErrorIs(t, err, ErrNotMember)

	require.NoError(t, f.svc.UpdateName(ctx, "m1", gid, "Team One"))
	g, err := f.groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, "Team One", g.Name)
}

func TestGroupReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(4)
	gid := f.seedGroup(t, "m1", "m2")
	f.seedListing(t, "joiner", "")
	require.NoError(t, f.svc.RequestJoin(ctx, "joiner", gid))

	groups, err := f.svc.ByAirport(ctx, "JFK")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, gid, groups[0].ID)
	assert.Equal(t, 2, groups[0].MemberCount)
	assert.Equal(t, 1, groups[0].PendingCount)

	members, err := f.svc.Members(ctx, gid)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = f.svc.JoinRequests(ctx, "outsider", gid)
	assert.ErrorIs(t, err, ErrNotMember)

	requests, err := f.svc.JoinRequests(ctx, "m1", gid)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "joiner", requests[0].UserID)
}
