package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/domain"
)

// DefaultModerationPageSize matches the dashboard's page size.
const DefaultModerationPageSize = 5

// ModerationListResponse is one page of the moderation queue.
type ModerationListResponse struct {
	Items      []*domain.ModerationItem `json:"items"`
	Pagination helpers.PaginationMeta   `json:"pagination"`
}

// ModerationListSuccessResponse is the success response envelope for the moderation queues (200).
type ModerationListSuccessResponse struct {
	Data  ModerationListResponse `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// ModerationResponse reports the moderation status after a decision.
type ModerationResponse struct {
	ID               string                  `json:"id"`
	ModerationStatus domain.ModerationStatus `json:"moderation_status"`
}

// ModerationSuccessResponse is the success response envelope for moderation decisions (200).
type ModerationSuccessResponse struct {
	Data  ModerationResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// StatsSuccessResponse is the success response envelope for GET /admin/stats (200).
type StatsSuccessResponse struct {
	Data  *domain.DashboardStats `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// AdminController serves the admin dashboard.
type AdminController struct {
	Logger  *slog.Logger
	Service domain.AdminService
}

// NewAdminController creates an AdminController with the given logger and service.
func NewAdminController(logger *slog.Logger, svc domain.AdminService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
	}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Returns user, event, post and registration totals with breakdowns.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.StatsSuccessResponse "data contains the statistics"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/stats [get]
func (c *AdminController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListPendingEvents godoc
// @Summary Pending events
// @Description Lists events awaiting moderation, oldest first.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 5, max 100)"
// @Success 200 {object} controllers.ModerationListSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/moderation/events [get]
func (c *AdminController) ListPendingEvents(w http.ResponseWriter, r *http.Request) {
	c.listPending(w, r, c.Service.ListPendingEvents)
}

// ListPendingPosts godoc
// @Summary Pending posts
// @Description Lists forum posts awaiting moderation, oldest first.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 5, max 100)"
// @Success 200 {object} controllers.ModerationListSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/moderation/posts [get]
func (c *AdminController) ListPendingPosts(w http.ResponseWriter, r *http.Request) {
	c.listPending(w, r, c.Service.ListPendingPosts)
}

// ModerateEvent godoc
// @Summary Moderate an event
// @Description Approves or rejects an event. Rejected events disappear from public listings.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param decision path string true "approve or reject"
// @Success 200 {object} controllers.ModerationSuccessResponse "data contains the new moderation status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/moderation/events/{eventID}/{decision} [post]
func (c *AdminController) ModerateEvent(w http.ResponseWriter, r *http.Request) {
	c.moderate(w, r, "eventID", c.Service.ModerateEvent)
}

// ModeratePost godoc
// @Summary Moderate a post
// @Description Approves or rejects a forum post. Rejected posts are hidden from the forum.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID (UUID)"
// @Param decision path string true "approve or reject"
// @Success 200 {object} controllers.ModerationSuccessResponse "data contains the new moderation status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/moderation/posts/{postID}/{decision} [post]
func (c *AdminController) ModeratePost(w http.ResponseWriter, r *http.Request) {
	c.moderate(w, r, "postID", c.Service.ModeratePost)
}

func (c *AdminController) listPending(w http.ResponseWriter, r *http.Request, list func(context.Context, domain.PaginationParams) ([]*domain.ModerationItem, int, error)) {
	params := helpers.ParsePagination(r, DefaultModerationPageSize)
	items, total, err := list(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.ModerationItem{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ModerationListResponse{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}

func (c *AdminController) moderate(w http.ResponseWriter, r *http.Request, idParam string, apply func(context.Context, string, domain.ModerationDecision) (domain.ModerationStatus, error)) {
	id, ok := pathID(w, r, idParam)
	if !ok {
		return
	}
	status, err := apply(r.Context(), id, domain.ModerationDecision(r.PathValue("decision")))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ModerationResponse{ID: id, ModerationStatus: status})
}
