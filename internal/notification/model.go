package notification

import "time"

// Notification is a persisted notice produced by a committed state
// transition and consumed through the read API
type Notification struct {
	ID           string    `json:"id"`
	RecipientUID string    `json:"recipient_uid"`
	Type         Type      `json:"type"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	GroupID      *string   `json:"group_id,omitempty"`
	ActorUID     *string   `json:"actor_uid,omitempty"`
	AirportCode  *string   `json:"airport_code,omitempty"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
}

// Type represents the type of notification
type Type string

const (
	TypeNewNearbyListing      Type = "NEW_NEARBY_LISTING"
	TypeConnectionRequested   Type = "CONNECTION_REQUESTED"
	TypeConnectionAccepted    Type = "CONNECTION_ACCEPTED"
	TypeConnectionRejected    Type = "CONNECTION_REJECTED"
	TypeJoinRequested         Type = "JOIN_REQUESTED"
	TypeJoinAccepted          Type = "JOIN_ACCEPTED"
	TypeJoinRejected          Type = "JOIN_REJECTED"
	TypeJoinDecisionBroadcast Type = "JOIN_DECISION_BROADCAST"
	TypeMemberLeft            Type = "MEMBER_LEFT"
	TypeGroupDisbanded        Type = "GROUP_DISBANDED"
)
