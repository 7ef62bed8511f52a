package group

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ChakshuVerma/halfride/internal/listing"
	"github.com/ChakshuVerma/halfride/pkg/middleware"
	"github.com/ChakshuVerma/halfride/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the group endpoints on the router
func (h *Handler) Register(r chi.Router) {
	r.Get("/groups-by-airport/{code}", h.ByAirport)
	r.Get("/group-members/{groupId}", h.Members)
	r.Get("/group-join-requests/{groupId}", h.JoinRequests)
	r.Post("/request-join-group", h.RequestJoin)
	r.Post("/respond-to-join-request", h.RespondToJoin)
	r.Post("/leave-group", h.Leave)
	r.Post("/update-group-name", h.UpdateName)
}

// ByAirport handles GET /groups-by-airport/{code}
// @Summary      List groups at an airport
// @Tags         groups
// @Produce      json
// @Param        code path string true "IATA airport code"
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups-by-airport/{code} [get]
func (h *Handler) ByAirport(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ByAirport(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, listing.ErrInvalidAirport) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list groups")
		return
	}
	response.JSON(w, http.StatusOK, groups)
}

// Members handles GET /group-members/{groupId}
// @Summary      List group members
// @Tags         groups
// @Produce      json
// @Param        groupId path string true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /group-members/{groupId} [get]
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.Members(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list members")
		return
	}
	response.JSON(w, http.StatusOK, members)
}

// JoinRequests handles GET /group-join-requests/{groupId}
// @Summary      List pending join requests
// @Description  Visible to current members only
// @Tags         groups
// @Produce      json
// @Param        groupId path string true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /group-join-requests/{groupId} [get]
func (h *Handler) JoinRequests(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requests, err := h.service.JoinRequests(r.Context(), uid, chi.URLParam(r, "groupId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to list join requests")
		}
		return
	}
	response.JSON(w, http.StatusOK, requests)
}

// RequestJoin handles POST /request-join-group
// @Summary      Request to join a group
// @Description  Record a pending join request; duplicates are no-ops
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body RequestJoinRequest true "Join request"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /request-join-group [post]
func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RequestJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.GroupID == "" {
		response.BadRequest(w, "groupId is required")
		return
	}

	if err := h.service.RequestJoin(r.Context(), uid, req.GroupID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrGroupFull):
			response.GroupFull(w, err.Error())
		case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrNoListing), errors.Is(err, ErrAlreadyGrouped):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to request join")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Join requested"})
}

// RespondToJoin handles POST /respond-to-join-request
// @Summary      Decide a pending join request
// @Description  Any current member may accept or reject; capacity is re-checked on accept
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body RespondJoinRequest true "Join decision"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /respond-to-join-request [post]
func (h *Handler) RespondToJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RespondJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.GroupID == "" || req.RequesterUID == "" {
		response.BadRequest(w, "groupId and requesterUserId are required")
		return
	}
	if req.Action != ActionAccept && req.Action != ActionReject {
		response.BadRequest(w, "action must be accept or reject")
		return
	}

	err := h.service.RespondToJoin(r.Context(), uid, req.GroupID, req.RequesterUID, req.Action == ActionAccept)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrRequesterGone):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrGroupFull):
			response.GroupFull(w, err.Error())
		case errors.Is(err, ErrRequesterMatched):
			response.Aborted(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to respond to join request")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Join request resolved"})
}

// Leave handles POST /leave-group
// @Summary      Leave a group
// @Description  A departure leaving fewer than two members disbands the group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body LeaveGroupRequest true "Leave request"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /leave-group [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req LeaveGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.GroupID == "" {
		response.BadRequest(w, "groupId is required")
		return
	}

	if err := h.service.Leave(r.Context(), uid, req.GroupID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to leave group")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Left group"})
}

// UpdateName handles POST /update-group-name
// @Summary      Rename a group
// @Description  Letters and spaces only, at most 50 characters; last writer wins
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body UpdateGroupNameRequest true "Rename request"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      412 {object} response.APIResponse
// @Router       /update-group-name [post]
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateGroupNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.GroupID == "" {
		response.BadRequest(w, "groupId is required")
		return
	}

	if err := h.service.UpdateName(r.Context(), uid, req.GroupID, req.Name); err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.PreconditionFailed(w, err.Error())
		default:
			response.InternalError(w, "Failed to update group name")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Group name updated"})
}
