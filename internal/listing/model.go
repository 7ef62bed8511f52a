package listing

import "time"

// ConnectionStatus is the caller-relative state of the one-to-one
// connection state machine for a listing shown in airport search results.
type ConnectionStatus string

const (
	StatusSendRequest     ConnectionStatus = "SEND_REQUEST"
	StatusRequestSent     ConnectionStatus = "REQUEST_SENT"
	StatusRequestReceived ConnectionStatus = "REQUEST_RECEIVED"
	StatusInGroup         ConnectionStatus = "IN_GROUP"
)

// TravelerListing is a user's active trip record at an airport. Identity is
// the (user, airport) pair; at most one incomplete listing exists per pair.
type TravelerListing struct {
	UserID             string     `json:"userId"`
	AirportCode        string     `json:"airportCode"`
	Terminal           string     `json:"terminal"`
	DestinationAddress string     `json:"destinationAddress"`
	DestinationLoc     string     `json:"destinationLoc"` // opaque location identifier for the distance provider
	FlightCarrier      string     `json:"flightCarrier"`
	FlightNumber       string     `json:"flightNumber"`
	ScheduledArrival   *time.Time `json:"scheduledArrival,omitempty"`
	EstimatedArrival   *time.Time `json:"estimatedArrival,omitempty"`
	ConnectionRequests []string   `json:"connectionRequests"` // requester uids, set semantics
	GroupID            string     `json:"groupId,omitempty"`
	IsCompleted        bool       `json:"isCompleted"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// HasRequestFrom reports whether uid has an open connection request on
// this listing.
func (l *TravelerListing) HasRequestFrom(uid string) bool {
	for _, r := range l.ConnectionRequests {
		if r == uid {
			return true
		}
	}
	return false
}

// AddRequest records a connection request from uid with set-union
// semantics. It reports whether the request was newly added.
func (l *TravelerListing) AddRequest(uid string) bool {
	if l.HasRequestFrom(uid) {
		return false
	}
	l.ConnectionRequests = append(l.ConnectionRequests, uid)
	return true
}

// RemoveRequest deletes uid's connection request. It reports whether a
// request was actually removed.
func (l *TravelerListing) RemoveRequest(uid string) bool {
	for i, r := range l.ConnectionRequests {
		if r == uid {
			l.ConnectionRequests = append(l.ConnectionRequests[:i], l.ConnectionRequests[i+1:]...)
			return true
		}
	}
	return false
}

// FlightMatches reports whether the listing still refers to the given
// flight; used to detect stale client state.
func (l *TravelerListing) FlightMatches(carrier, number string) bool {
	return l.FlightCarrier == carrier && l.FlightNumber == number
}
