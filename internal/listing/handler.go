package listing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ChakshuVerma/halfride/pkg/middleware"
	"github.com/ChakshuVerma/halfride/pkg/response"
)

// Handler handles HTTP requests for traveler listings
type Handler struct {
	service *Service
}

// NewHandler creates a new listing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the listing endpoints on the router
func (h *Handler) Register(r chi.Router) {
	r.Post("/create-listing", h.Create)
	r.Post("/revoke-listing", h.Revoke)
	r.Get("/check-listing", h.Check)
	r.Get("/travellers-by-airport/{code}", h.Search)
}

// Create handles POST /create-listing
// @Summary      Create a traveler listing
// @Description  Register the caller's trip at an airport; one active listing per airport
// @Tags         listings
// @Accept       json
// @Produce      json
// @Param        request body CreateListingRequest true "Listing creation request"
// @Success      201 {object} response.APIResponse{data=TravelerListing}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /create-listing [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	l, err := h.service.Create(r.Context(), uid, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAirport), errors.Is(err, ErrMissingField):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrListingExists):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to create listing")
		}
		return
	}

	response.JSON(w, http.StatusCreated, l)
}

// Revoke handles POST /revoke-listing
// @Summary      Revoke a traveler listing
// @Description  Delete the caller's listing; grouped listings cannot be revoked
// @Tags         listings
// @Accept       json
// @Produce      json
// @Param        request body RevokeListingRequest true "Listing revocation request"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /revoke-listing [post]
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RevokeListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.Revoke(r.Context(), uid, req.AirportCode); err != nil {
		switch {
		case errors.Is(err, ErrInvalidAirport):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrListingInGroup):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to revoke listing")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Listing revoked"})
}

// Check handles GET /check-listing
// @Summary      Check the caller's listing at an airport
// @Description  Report whether the caller has an active listing and its details
// @Tags         listings
// @Produce      json
// @Param        airportCode query string true "IATA airport code"
// @Success      200 {object} response.APIResponse{data=CheckListingResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /check-listing [get]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	l, err := h.service.Active(r.Context(), uid, r.URL.Query().Get("airportCode"))
	if err != nil {
		if errors.Is(err, ErrInvalidAirport) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to check listing")
		return
	}

	if l == nil {
		response.JSON(w, http.StatusOK, CheckListingResponse{Exists: false})
		return
	}
	response.JSON(w, http.StatusOK, CheckListingResponse{
		Exists:             true,
		AirportCode:        l.AirportCode,
		Terminal:           l.Terminal,
		DestinationAddress: l.DestinationAddress,
		FlightCarrier:      l.FlightCarrier,
		FlightNumber:       l.FlightNumber,
		GroupID:            l.GroupID,
	})
}

// Search handles GET /travellers-by-airport/{code}
// @Summary      List travelers at an airport
// @Description  Other travelers' active listings, annotated with connection status, nearest destination first
// @Tags         listings
// @Produce      json
// @Param        code path string true "IATA airport code"
// @Success      200 {object} response.APIResponse{data=[]SearchResult}
// @Failure      400 {object} response.APIResponse
// @Router       /travellers-by-airport/{code} [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	results, err := h.service.Search(r.Context(), uid, chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, ErrInvalidAirport) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list travelers")
		return
	}

	response.JSON(w, http.StatusOK, results)
}
