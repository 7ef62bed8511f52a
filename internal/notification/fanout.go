package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ChakshuVerma/halfride/internal/observability"
)

// Creator persists notification documents.
type Creator interface {
	Create(ctx context.Context, n *Notification) error
}

// NameResolver maps a user ID to a display name for notification text.
type NameResolver interface {
	DisplayName(ctx context.Context, uid string) (string, error)
}

// Publisher emits match events to the event stream.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Fanout turns committed state transitions into one notification document
// per affected recipient. It runs strictly after the triggering
// transaction; failures are logged and counted, never propagated, so a
// dropped notification cannot undo a successful transition.
type Fanout struct {
	creator Creator
	names   NameResolver
	events  Publisher
	logger  *slog.Logger
}

// NewFanout builds the fan-out. names and events may be nil; display
// names then fall back to raw user IDs and no stream events are emitted.
func NewFanout(creator Creator, names NameResolver, events Publisher, logger *slog.Logger) *Fanout {
	return &Fanout{creator: creator, names: names, events: events, logger: logger}
}

// NearbyListingCreated notifies travelers at an airport about a new listing.
func (f *Fanout) NearbyListingCreated(ctx context.Context, recipients []string, actorUID, airportCode string) {
	actor := f.displayName(ctx, actorUID)
	for _, uid := range recipients {
		if uid == actorUID {
			continue
		}
		f.emit(ctx, &Notification{
			RecipientUID: uid,
			Type:         TypeNewNearbyListing,
			Title:        "New traveler at " + airportCode,
			Body:         actor + " is looking for a shared ride from " + airportCode,
			ActorUID:     &actorUID,
			AirportCode:  &airportCode,
		})
	}
}

// ConnectionRequested notifies the target of a new connection request.
func (f *Fanout) ConnectionRequested(ctx context.Context, recipientUID, actorUID, airportCode string) {
	actor := f.displayName(ctx, actorUID)
	f.emit(ctx, &Notification{
		RecipientUID: recipientUID,
		Type:         TypeConnectionRequested,
		Title:        "New connection request",
		Body:         actor + " wants to share a ride with you",
		ActorUID:     &actorUID,
		AirportCode:  &airportCode,
	})
}

// ConnectionAccepted notifies the requester that their request was accepted
// and a group was formed.
func (f *Fanout) ConnectionAccepted(ctx context.Context, recipientUID, actorUID, airportCode, groupID string) {
	actor := f.displayName(ctx, actorUID)
	f.emit(ctx, &Notification{
		RecipientUID: recipientUID,
		Type:         TypeConnectionAccepted,
		Title:        "Connection accepted",
		Body:         actor + " accepted your request. You are now in a group.",
		GroupID:      &groupID,
		ActorUID:     &actorUID,
		AirportCode:  &airportCode,
	})
	f.publishEvent(ctx, groupID, "group_formed", []string{recipientUID, actorUID})
}

// ConnectionRejected notifies the requester that their request was declined.
func (f *Fanout) ConnectionRejected(ctx context.Context, recipientUID, actorUID, airportCode string) {
	actor := f.displayName(ctx, actorUID)
	f.emit(ctx, &Notification{
		RecipientUID: recipientUID,
		Type:         TypeConnectionRejected,
		Title:        "Connection declined",
		Body:         actor + " declined your connection request",
		ActorUID:     &actorUID,
		AirportCode:  &airportCode,
	})
}

// JoinRequested notifies current members about a pending join request.
func (f *Fanout) JoinRequested(ctx context.Context, memberUIDs []string, actorUID, groupID, groupName string) {
	actor := f.displayName(ctx, actorUID)
	for _, uid := range memberUIDs {
		if uid == actorUID {
			continue
		}
		f.emit(ctx, &Notification{
			RecipientUID: uid,
			Type:         TypeJoinRequested,
			Title:        "Join request for " + groupName,
			Body:         actor + " wants to join your group",
			GroupID:      &groupID,
			ActorUID:     &actorUID,
		})
	}
}

// JoinAccepted notifies the requester that they were admitted.
func (f *Fanout) JoinAccepted(ctx context.Context, recipientUID, deciderUID, groupID, groupName string) {
	f.emit(ctx, &Notification{
		RecipientUID: recipientUID,
		Type:         TypeJoinAccepted,
		Title:        "Welcome to " + groupName,
		Body:         "Your request to join " + groupName + " was accepted",
		GroupID:      &groupID,
		ActorUID:     &deciderUID,
	})
	f.publishEvent(ctx, groupID, "member_joined", []string{recipientUID})
}

// JoinRejected notifies the requester that they were turned down.
func (f *Fanout) JoinRejected(ctx context.Context, recipientUID, deciderUID, groupID, groupName string) {
	f.emit(ctx, &Notification{
		RecipientUID: recipientUID,
		Type:         TypeJoinRejected,
		Title:        "Join request declined",
		Body:         "Your request to join " + groupName + " was declined",
		GroupID:      &groupID,
		ActorUID:     &deciderUID,
	})
}

// JoinDecisionBroadcast tells the other members how a join request was
// decided, and sends the decider a distinct echo confirmation.
func (f *Fanout) JoinDecisionBroadcast(ctx context.Context, memberUIDs []string, deciderUID, requesterUID, groupID, groupName string, accepted bool) {
	decider := f.displayName(ctx, deciderUID)
	requester := f.displayName(ctx, requesterUID)

	verb := "declined"
	if accepted {
		verb = "accepted"
	}
	for _, uid := range memberUIDs {
		if uid == deciderUID || uid == requesterUID {
			continue
		}
		f.emit(ctx, &Notification{
			RecipientUID: uid,
			Type:         TypeJoinDecisionBroadcast,
			Title:        "Join request " + verb,
			Body:         decider + " " + verb + " " + requester + "'s request to join " + groupName,
			GroupID:      &groupID,
			ActorUID:     &deciderUID,
		})
	}

	// Echo confirmation to the decider.
	f.emit(ctx, &Notification{
		RecipientUID: deciderUID,
		Type:         TypeJoinDecisionBroadcast,
		Title:        "Decision recorded",
		Body:         "You " + verb + " " + requester + "'s request to join " + groupName,
		GroupID:      &groupID,
		ActorUID:     &deciderUID,
	})
}

// MemberLeft notifies the remaining members about a departure.
func (f *Fanout) MemberLeft(ctx context.Context, memberUIDs []string, actorUID, groupID, groupName string) {
	actor := f.displayName(ctx, actorUID)
	for _, uid := range memberUIDs {
		if uid == actorUID {
			continue
		}
		f.emit(ctx, &Notification{
			RecipientUID: uid,
			Type:         TypeMemberLeft,
			Title:        "Member left " + groupName,
			Body:         actor + " left your group",
			GroupID:      &groupID,
			ActorUID:     &actorUID,
		})
	}
}

// GroupDisbanded notifies a former member that their group was dissolved.
func (f *Fanout) GroupDisbanded(ctx context.Context, recipientUID, groupID, groupName string) {
	f.emit(ctx, &Notification{
		RecipientUID: recipientUID,
		Type:         TypeGroupDisbanded,
		Title:        groupName + " was disbanded",
		Body:         "Your group " + groupName + " no longer has enough members and was disbanded",
		GroupID:      &groupID,
	})
}

func (f *Fanout) emit(ctx context.Context, n *Notification) {
	if err := f.creator.Create(ctx, n); err != nil {
		observability.NotificationFailuresTotal.Inc()
		f.logger.Error("failed to write notification, dropping it",
			"type", n.Type, "recipient", n.RecipientUID, "error", err)
		return
	}
	observability.NotificationsEmittedTotal.Inc()
}

func (f *Fanout) publishEvent(ctx context.Context, groupID, event string, memberUIDs []string) {
	if f.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"event":   event,
		"groupId": groupID,
		"members": memberUIDs,
	})
	if err != nil {
		f.logger.Error("failed to marshal match event", "event", event, "error", err)
		return
	}
	if err := f.events.Publish(ctx, groupID, payload); err != nil {
		f.logger.Error("failed to publish match event", "event", event, "group", groupID, "error", err)
	}
}

func (f *Fanout) displayName(ctx context.Context, uid string) string {
	if f.names == nil {
		return uid
	}
	name, err := f.names.DisplayName(ctx, uid)
	if err != nil || name == "" {
		return uid
	}
	return name
}
