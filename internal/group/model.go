package group

import (
	"regexp"
	"time"
)

// MaxNameLength bounds group display names.
const MaxNameLength = 50

// DefaultName is assigned to freshly formed groups until a member renames
// them.
const DefaultName = "New Group"

var nameRe = regexp.MustCompile(`^[A-Za-z ]+$`)

// ValidName reports whether a group name is non-empty, within the length
// bound, and made of letters and spaces only.
func ValidName(name string) bool {
	return len(name) <= MaxNameLength && nameRe.MatchString(name)
}

// Group is a shared-ride party at an airport. Membership is bounded by the
// configured maximum; pending join requests are tracked on the group itself
// so capacity checks and admissions share one document.
type Group struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	AirportCode     string    `json:"airportCode"`
	Members         []string  `json:"members"`
	PendingRequests []string  `json:"pendingRequests"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (g *Group) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

func (g *Group) HasPending(uid string) bool {
	for _, p := range g.PendingRequests {
		if p == uid {
			return true
		}
	}
	return false
}

// AddPending records a join request with set-union semantics and reports
// whether it was newly added.
func (g *Group) AddPending(uid string) bool {
	if g.HasPending(uid) {
		return false
	}
	g.PendingRequests = append(g.PendingRequests, uid)
	return true
}

// RemovePending deletes uid's join request and reports whether one existed.
func (g *Group) RemovePending(uid string) bool {
	for i, p := range g.PendingRequests {
		if p == uid {
			g.PendingRequests = append(g.PendingRequests[:i], g.PendingRequests[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveMember deletes uid from the member list and reports whether they
// were a member.
func (g *Group) RemoveMember(uid string) bool {
	for i, m := range g.Members {
		if m == uid {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}

// IsFull reports whether the group is at the membership cap.
func (g *Group) IsFull(maxUsers int) bool {
	return len(g.Members) >= maxUsers
}
