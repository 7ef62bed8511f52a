package connection

// Decision actions accepted by respond endpoints.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

type RequestConnectionRequest struct {
	AirportCode   string `json:"airportCode"`
	TravellerUID  string `json:"travellerUid"`
	FlightCarrier string `json:"flightCarrier"`
	FlightNumber  string `json:"flightNumber"`
}

type RespondConnectionRequest struct {
	AirportCode  string `json:"airportCode"`
	RequesterUID string `json:"requesterUserId"`
	Action       string `json:"action"`
}

type RespondConnectionResponse struct {
	GroupID string `json:"groupId,omitempty"`
}
