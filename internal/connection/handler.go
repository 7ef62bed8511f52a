package connection

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/pkg/middleware"
	"github.com/ChakshuVerma/halfride/pkg/response"
)

// Handler handles HTTP requests for connection operations
type Handler struct {
	service *Service
}

// NewHandler creates a new connection handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the connection endpoints on the router
func (h *Handler) Register(r chi.Router) {
	r.Post("/request-connection", h.Request)
	r.Post("/respond-to-connection", h.Respond)
}

// Request handles POST /request-connection
// @Summary      Request a connection
// @Description  Record a connection request on another traveler's listing; duplicates are no-ops
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        request body RequestConnectionRequest true "Connection request"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /request-connection [post]
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RequestConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.TravellerUID == "" {
		response.BadRequest(w, "travellerUid is required")
		return
	}

	err := h.service.Request(r.Context(), uid, req.TravellerUID, req.AirportCode, req.FlightCarrier, req.FlightNumber)
	if err != nil {
		switch {
		case errors.Is(err, listing.ErrInvalidAirport), errors.Is(err, ErrSelfConnection):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrFlightMismatch):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrNoOwnListing), errors.Is(err, ErrCallerGrouped):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to request connection")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Connection requested"})
}

// Respond handles POST /respond-to-connection
// @Summary      Respond to a connection request
// @Description  Accept to form a two-member group, or reject to remove the request
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        request body RespondConnectionRequest true "Connection decision"
// @Success      200 {object} response.APIResponse{data=RespondConnectionResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /respond-to-connection [post]
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RespondConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.RequesterUID == "" {
		response.BadRequest(w, "requesterUserId is required")
		return
	}
	if req.Action != ActionAccept && req.Action != ActionReject {
		response.BadRequest(w, "action must be accept or reject")
		return
	}

	groupID, err := h.service.Respond(r.Context(), uid, req.RequesterUID, req.AirportCode, req.Action == ActionAccept)
	if err != nil {
		switch {
		case errors.Is(err, listing.ErrInvalidAirport), errors.Is(err, ErrSelfConnection):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrListingNotFound), errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrRequesterGone):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyMatched), errors.Is(err, ErrRequesterMatched):
			response.Aborted(w, err.Error())
		default:
			response.InternalError(w, "Failed to respond to connection")
		}
		return
	}

	response.JSON(w, http.StatusOK, RespondConnectionResponse{GroupID: groupID})
}
