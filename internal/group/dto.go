package group

import "time"

// Decision actions accepted by respond endpoints.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

type RequestJoinRequest struct {
	GroupID string `json:"groupId"`
}

type RespondJoinRequest struct {
	GroupID      string `json:"groupId"`
	RequesterUID string `json:"requesterUserId"`
	Action       string `json:"action"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"groupId"`
}

type UpdateGroupNameRequest struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

// GroupResponse is the public view of a group
type GroupResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AirportCode  string    `json:"airportCode"`
	Members      []string  `json:"members"`
	MemberCount  int       `json:"memberCount"`
	PendingCount int       `json:"pendingCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MemberResponse is a member or pending requester with an optional
// resolved display name
type MemberResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

func toGroupResponse(g *Group) *GroupResponse {
	return &GroupResponse{
		ID:           g.ID,
		Name:         g.Name,
		AirportCode:  g.AirportCode,
		Members:      g.Members,
		MemberCount:  len(g.Members),
		PendingCount: len(g.PendingRequests),
		CreatedAt:    g.CreatedAt,
	}
}
