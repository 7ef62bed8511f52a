package listing

import "time"

type CreateListingRequest struct {
	AirportCode        string `json:"airportCode"`
	Terminal           string `json:"terminal"`
	FlightCarrier      string `json:"flightCarrier"`
	FlightNumber       string `json:"flightNumber"`
	DestinationAddress string `json:"destinationAddress"`
	DestinationLoc     string `json:"destinationLoc"`
}

type RevokeListingRequest struct {
	AirportCode string `json:"airportCode"`
}

// SearchResult is a listing annotated with the caller-relative connection
// status and the destination distance from the caller's own listing.
type SearchResult struct {
	UserID             string           `json:"userId"`
	AirportCode        string           `json:"airportCode"`
	Terminal           string           `json:"terminal"`
	DestinationAddress string           `json:"destinationAddress"`
	FlightCarrier      string           `json:"flightCarrier"`
	FlightNumber       string           `json:"flightNumber"`
	EstimatedArrival   *time.Time       `json:"estimatedArrival,omitempty"`
	ConnectionStatus   ConnectionStatus `json:"connectionStatus"`
	DistanceMeters     *float64         `json:"distanceMeters,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

type CheckListingResponse struct {
	Exists             bool   `json:"exists"`
	AirportCode        string `json:"airportCode,omitempty"`
	Terminal           string `json:"terminal,omitempty"`
	DestinationAddress string `json:"destinationAddress,omitempty"`
	FlightCarrier      string `json:"flightCarrier,omitempty"`
	FlightNumber       string `json:"flightNumber,omitempty"`
	GroupID            string `json:"groupId,omitempty"`
}
