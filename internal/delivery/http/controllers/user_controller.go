package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

// UpdateProfileRequest is the request body for PUT /users/me.
type UpdateProfileRequest struct {
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url"`
	City        string   `json:"city"`
	Bio         string   `json:"bio"`
	Interests   []string `json:"interests"`
}

// Validate implements Validator.
func (req UpdateProfileRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.DisplayName, validation.Required, validation.Length(1, 50)),
		validation.Field(&req.AvatarURL, is.URL),
		validation.Field(&req.City, validation.Length(0, 100)),
		validation.Field(&req.Bio, validation.Length(0, 500)),
		validation.Field(&req.Interests, validation.Each(validation.Required)),
	))
}

func (req UpdateProfileRequest) profile() domain.Profile {
	interests := make([]string, 0, len(req.Interests))
	for _, i := range req.Interests {
		interests = append(interests, strings.TrimSpace(i))
	}
	return domain.Profile{
		DisplayName: strings.TrimSpace(req.DisplayName),
		AvatarURL:   strings.TrimSpace(req.AvatarURL),
		City:        strings.TrimSpace(req.City),
		Bio:         strings.TrimSpace(req.Bio),
		Interests:   interests,
	}
}

// UserSuccessResponse is the success response envelope for endpoints returning a user (200).
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserEventsSuccessResponse is the success response envelope for GET /users/me/events (200).
type UserEventsSuccessResponse struct {
	Data  *domain.UserEvents `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// UserController handles the current user's profile endpoints.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// GetMe godoc
// @Summary Get current user
// @Description Returns the authenticated user's account and profile.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserSuccessResponse "data contains the user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [get]
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	user, err := c.Service.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update profile
// @Description Replaces the editable profile fields of the authenticated user.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} controllers.UserSuccessResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [put]
func (c *UserController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.UpdateProfile(r.Context(), userID, req.profile())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// ListMyEvents godoc
// @Summary List my events
// @Description Returns the events the user registered for, bookmarked and organizes.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserEventsSuccessResponse "data contains registered, favorited and organized"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me/events [get]
func (c *UserController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// UpgradeToOrganizer godoc
// @Summary Become an organizer
// @Description Grants the organizer role and returns a token carrying it. Admins keep their role.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.AuthSuccessResponse "data contains token, token_type and user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me/upgrade-to-organizer [post]
func (c *UserController) UpgradeToOrganizer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	token, user, err := c.Service.UpgradeToOrganizer(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AuthResponse{Token: token, TokenType: "Bearer", User: user})
}
