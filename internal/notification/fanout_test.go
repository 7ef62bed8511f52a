package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	created []*Notification
	err     error
}

func (f *fakeCreator) Create(_ context.Context, n *Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

type fakeNames struct {
	names map[string]string
}

func (f *fakeNames) DisplayName(_ context.Context, uid string) (string, error) {
	if name, ok := f.names[uid]; ok {
		return name, nil
	}
	return "", errors.New("unknown user")
}

type fakePublisher struct {
	keys   []string
	values [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
	return nil
}

func newTestFanout(creator *fakeCreator, publisher Publisher) *Fanout {
	names := &fakeNames{names: map[string]string{"alice": "Alice", "bob": "Bob"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFanout(creator, names, publisher, logger)
}

func TestNearbyListingCreatedExcludesActor(t *testing.T) {
	creator := &fakeCreator{}
	f := newTestFanout(creator, nil)

	f.NearbyListingCreated(context.Background(), []string{"bob", "alice", "carol"}, "alice", "JFK")

	require.Len(t, creator.created, 2)
	for _, n := range creator.created {
		assert.NotEqual(t, "alice", n.RecipientUID)
		assert.Equal(t, TypeNewNearbyListing, n.Type)
		assert.Contains(t, n.Body, "Alice", "actor appears by display name")
	}
}

func TestDisplayNameFallsBackToUID(t *testing.T) {
	creator := &fakeCreator{}
	f := newTestFanout(creator, nil)

	f.ConnectionRequested(context.Background(), "bob", "stranger-42", "JFK")

	require.Len(t, creator.created, 1)
	assert.Contains(t, creator.created[0].Body, "stranger-42")
}

func TestConnectionAcceptedEmitsDocAndEvent(t *testing.T) {
	creator := &fakeCreator{}
	publisher := &fakePublisher{}
	f := newTestFanout(creator, publisher)

	f.ConnectionAccepted(context.Background(), "alice", "bob", "JFK", "g1")

	require.Len(t, creator.created, 1)
	n := creator.created[0]
	assert.Equal(t, "alice", n.RecipientUID)
	assert.Equal(t, TypeConnectionAccepted, n.Type)
	require.NotNil(t, n.GroupID)
	assert.Equal(t, "g1", *n.GroupID)

	require.Len(t, publisher.keys, 1)
	assert.Equal(t, "g1", publisher.keys[0])
	assert.Contains(t, string(publisher.values[0]), "group_formed")
}

func TestJoinDecisionBroadcastEchoesDecider(t *testing.T) {
	creator := &fakeCreator{}
	f := newTestFanout(creator, nil)

	f.JoinDecisionBroadcast(context.Background(), []string{"carol", "dave"}, "alice", "bob", "g1", "Team One", true)

	require.Len(t, creator.created, 3)
	recipients := make([]string, len(creator.created))
	for i, n := range creator.created {
		recipients[i] = n.RecipientUID
		assert.Equal(t, TypeJoinDecisionBroadcast, n.Type)
	}
	assert.ElementsMatch(t, []string{"carol", "dave", "alice"}, recipients,
		"others get the broadcast, the decider gets an echo")
}

func TestFanoutSwallowsWriteFailures(t *testing.T) {
	creator := &fakeCreator{err: errors.New("db down")}
	f := newTestFanout(creator, nil)

	// Must not panic or propagate; the transition already committed.
	f.GroupDisbanded(context.Background(), "bob", "g1", "Team One")
	f.MemberLeft(context.Background(), []string{"bob"}, "alice", "g1", "Team One")
	assert.Empty(t, creator.created)
}
