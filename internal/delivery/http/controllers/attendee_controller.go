package controllers

import (
	"log/slog"
	"net/http"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

// AttendeeController handles event registrations and favorites for the current user.
type AttendeeController struct {
	Logger  *slog.Logger
	Service domain.AttendeeService
}

// NewAttendeeController creates an AttendeeController with the given logger and service.
func NewAttendeeController(logger *slog.Logger, svc domain.AttendeeService) *AttendeeController {
	return &AttendeeController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterForEventSuccessResponse is the success response envelope for POST /events/{eventID}/registration (200 or 201).
type RegisterForEventSuccessResponse struct {
	Data  *domain.EventRegistration `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// FavoriteResponse reports the favorite state after a toggle.
type FavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

// FavoriteSuccessResponse is the success response envelope for POST /events/{eventID}/favorite (200).
type FavoriteSuccessResponse struct {
	Data  FavoriteResponse  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// RegisterForEvent godoc
// @Summary Register for an event
// @Description Registers the authenticated user for a published, upcoming event. Idempotent: returns 201 when a new registration is created, 200 when already registered.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegisterForEventSuccessResponse "Already registered"
// @Success 201 {object} controllers.RegisterForEventSuccessResponse "New registration created"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event is full or registration closed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registration [post]
func (c *AttendeeController) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reg, created, err := c.Service.RegisterForEvent(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	if created {
		helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// CancelRegistration godoc
// @Summary Cancel a registration
// @Description Removes the authenticated user's registration for the event.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status is cancelled"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (not registered)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registration [delete]
func (c *AttendeeController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := c.Service.CancelRegistration(r.Context(), eventID, userID); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "cancelled"})
}

// ToggleFavorite godoc
// @Summary Toggle an event favorite
// @Description Adds the event to the user's favorites, or removes it when already favorited.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.FavoriteSuccessResponse "data.favorited is the new state"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/favorite [post]
func (c *AttendeeController) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	favorited, err := c.Service.ToggleFavorite(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, FavoriteResponse{Favorited: favorited})
}
