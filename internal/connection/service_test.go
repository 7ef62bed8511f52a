package connection

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChakshuVerma/halfride/internal/group"
	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/internal/store"
)

type fakeNotifier struct {
	mu        sync.Mutex
	requested []string
	accepted  []string
	rejected  []string
}

func (f *fakeNotifier) ConnectionRequested(_ context.Context, recipientUID, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, recipientUID)
}

func (f *fakeNotifier) ConnectionAccepted(_ context.Context, recipientUID, _, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, recipientUID)
}

func (f *fakeNotifier) ConnectionRejected(_ context.Context, recipientUID, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, recipientUID)
}

type fixture struct {
	svc      *Service
	listings *listing.Repository
	groups   *group.Repository
	notifier *fakeNotifier
}

func newFixture() *fixture {
	s := store.NewMemoryStore()
	listings := listing.NewRepository(s)
	groups := group.NewRepository(s)
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		svc:      NewService(s, listings, groups, notifier, logger, 5),
		listings: listings,
		groups:   groups,
		notifier: notifier,
	}
}

func (f *fixture) seedListing(t *testing.T, uid string) *listing.TravelerListing {
	t.Helper()
	now := time.Now().UTC()
	l := &listing.TravelerListing{
		UserID:             uid,
		AirportCode:        "JFK",
		FlightCarrier:      "DL",
		FlightNumber:       "405",
		DestinationAddress: "somewhere in Brooklyn",
		ConnectionRequests: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, f.listings.Create(context.Background(), l))
	return l
}

func TestRequestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	err := f.svc.Request(ctx, "a", "a", "JFK", "DL", "405")
	assert.ErrorIs(t, err, ErrSelfConnection)

	err = f.svc.Request(ctx, "a", "b", "newark", "DL", "405")
	assert.ErrorIs(t, err, listing.ErrInvalidAirport)
}

func TestRequestTargetMissingOrGrouped(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")

	err := f.svc.Request(ctx, "a", "b", "JFK", "DL", "405")
	assert.ErrorIs(t, err, ErrListingNotFound)

	b := f.seedListing(t, "b")
	b.GroupID = "g1"
	require.NoError(t, f.listings.Put(ctx, b))
	err = f.svc.Request(ctx, "a", "b", "JFK", "DL", "405")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestRequestFlightMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")

	err := f.svc.Request(ctx, "a", "b", "JFK", "DL", "999")
	assert.ErrorIs(t, err, ErrFlightMismatch)
}

func TestRequestRequiresOwnListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "b")

	err := f.svc.Request(ctx, "a", "b", "JFK", "DL", "405")
	assert.ErrorIs(t, err, ErrNoOwnListing)
}

func TestRequestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")

	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))
	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))

	b, err := f.listings.Get(ctx, "JFK", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, b.ConnectionRequests, "duplicate request must not duplicate the entry")
	assert.Len(t, f.notifier.requested, 1, "duplicate request must not re-notify")
}

func TestRespondRejectRemovesRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")
	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))

	groupID, err := f.svc.Respond(ctx, "b", "a", "JFK", false)
	require.NoError(t, err)
	assert.Empty(t, groupID)

	b, err := f.listings.Get(ctx, "JFK", "b")
	require.NoError(t, err)
	assert.Empty(t, b.ConnectionRequests)
	assert.Equal(t, []string{"a"}, f.notifier.rejected)

	// The state machine reverts: a can ask again.
	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))
}

func TestRespondAcceptFormsGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")
	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))

	groupID, err := f.svc.Respond(ctx, "b", "a", "JFK", true)
	require.NoError(t, err)
	require.NotEmpty(t, groupID)

	g, err := f.groups.Get(ctx, groupID)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.ElementsMatch(t, []string{"a", "b"}, g.Members)
	assert.Equal(t, "JFK", g.AirportCode)
	assert.Empty(t, g.PendingRequests)

	for _, uid := range []string{"a", "b"} {
		l, err := f.listings.Get(ctx, "JFK", uid)
		require.NoError(t, err)
		assert.Equal(t, groupID, l.GroupID)
		assert.Empty(t, l.ConnectionRequests)
	}
	assert.Equal(t, []string{"a"}, f.notifier.accepted)
}

func TestRespondUnknownRequestNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")

	_, err := f.svc.Respond(ctx, "b", "a", "JFK", true)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRespondRevokedRequesterConsumesRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")
	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))
	require.NoError(t, f.listings.Delete(ctx, "JFK", "a"))

	_, err := f.svc.Respond(ctx, "b", "a", "JFK", true)
	assert.ErrorIs(t, err, ErrRequesterGone)

	// The stale request is gone; deciding again reports not found.
	_, err = f.svc.Respond(ctx, "b", "a", "JFK", true)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestMutualAcceptTieBreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedListing(t, "a")
	f.seedListing(t, "b")
	require.NoError(t, f.svc.Request(ctx, "a", "b", "JFK", "DL", "405"))
	require.NoError(t, f.svc.Request(ctx, "b", "a", "JFK", "DL", "405"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	ids := make([]string, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ids[0], errs[0] = f.svc.Respond(ctx, "a", "b", "JFK", true)
	}()
	go func() {
		defer wg.Done()
		ids[1], errs[1] = f.svc.Respond(ctx, "b", "a", "JFK", true)
	}()
	wg.Wait()

	var wins, aborts int
	var groupID string
	for i := range errs {
		switch {
		case errs[i] == nil:
			wins++
			groupID = ids[i]
		case assert.ErrorIs(t, errs[i], ErrAlreadyMatched):
			aborts++
		}
	}
	assert.Equal(t, 1, wins, "exactly one accept commits")
	assert.Equal(t, 1, aborts, "the loser observes the race")

	g, err := f.groups.Get(ctx, groupID)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.ElementsMatch(t, []string{"a", "b"}, g.Members)

	for _, uid := range []string{"a", "b"} {
		l, err := f.listings.Get(ctx, "JFK", uid)
		require.NoError(t, err)
		assert.Equal(t, groupID, l.GroupID, "both travelers reference the single group")
	}
}
