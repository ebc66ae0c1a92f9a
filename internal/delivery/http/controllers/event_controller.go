package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"

	"freeday/internal/delivery/http/helpers"
	"freeday/internal/delivery/http/middleware"
	"freeday/internal/domain"
)

const dateLayout = "2006-01-02"

var eventTagRule = validation.Each(validation.In(toAny(domain.EventTags)...).Error("must be one of food, music, art, sport, outdoor, social"))

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	LocationText string           `json:"location_text"`
	Lat          *float64         `json:"lat,omitempty"`
	Lng          *float64         `json:"lng,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	Type         string           `json:"type,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	StartAt      time.Time        `json:"start_at"`
	EndAt        time.Time        `json:"end_at"`
	Price        *decimal.Decimal `json:"price,omitempty" swaggertype:"string"`
	Capacity     *int             `json:"capacity,omitempty"`
	Status       string           `json:"status,omitempty"`
}

// Validate implements Validator.
func (req CreateEventRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.Required, validation.By(notBlank), validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Required, validation.By(notBlank)),
		validation.Field(&req.LocationText, validation.Required, validation.By(notBlank)),
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&req.ImageURL, is.URL),
		validation.Field(&req.Tags, eventTagRule),
		validation.Field(&req.StartAt, validation.Required),
		validation.Field(&req.EndAt, validation.Required, validation.By(endsAfter(&req.StartAt))),
		validation.Field(&req.Price, validation.By(nonNegativePrice)),
		validation.Field(&req.Capacity, validation.By(positiveCapacity)),
		validation.Field(&req.Status, validation.In(string(domain.EventStatusDraft), string(domain.EventStatusPublished))),
	))
}

func (req CreateEventRequest) event() *domain.Event {
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.Event{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		LocationText: strings.TrimSpace(req.LocationText),
		Lat:          req.Lat,
		Lng:          req.Lng,
		ImageURL:     strings.TrimSpace(req.ImageURL),
		Type:         strings.TrimSpace(req.Type),
		Tags:         tags,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		Price:        req.Price,
		Capacity:     req.Capacity,
		Status:       domain.EventStatus(req.Status),
	}
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Title        *string          `json:"title,omitempty"`
	Description  *string          `json:"description,omitempty"`
	LocationText *string          `json:"location_text,omitempty"`
	Lat          *float64         `json:"lat,omitempty"`
	Lng          *float64         `json:"lng,omitempty"`
	ImageURL     *string          `json:"image_url,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	StartAt      *time.Time       `json:"start_at,omitempty"`
	EndAt        *time.Time       `json:"end_at,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty" swaggertype:"string"`
	Capacity     *int             `json:"capacity,omitempty"`
}

// Validate implements Validator. Schedule ordering against stored values is checked by the service.
func (req UpdateEventRequest) Validate() []string {
	var endRule validation.Rule = validation.Skip
	if req.StartAt != nil {
		endRule = validation.By(endsAfter(req.StartAt))
	}
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.By(notBlank), validation.Length(1, 200)),
		validation.Field(&req.Description, validation.NilOrNotEmpty, validation.By(notBlank)),
		validation.Field(&req.LocationText, validation.NilOrNotEmpty, validation.By(notBlank)),
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&req.ImageURL, is.URL),
		validation.Field(&req.Tags, eventTagRule),
		validation.Field(&req.EndAt, endRule),
		validation.Field(&req.Price, validation.By(nonNegativePrice)),
		validation.Field(&req.Capacity, validation.By(positiveCapacity)),
	))
}

func (req UpdateEventRequest) update() domain.EventUpdate {
	return domain.EventUpdate{
		Title:        trimPtr(req.Title),
		Description:  trimPtr(req.Description),
		LocationText: trimPtr(req.LocationText),
		Lat:          req.Lat,
		Lng:          req.Lng,
		ImageURL:     trimPtr(req.ImageURL),
		Type:         trimPtr(req.Type),
		Tags:         req.Tags,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		Price:        req.Price,
		Capacity:     req.Capacity,
	}
}

// ChangeStatusRequest is the request body for PATCH /events/{eventID}/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements Validator.
func (req ChangeStatusRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&req,
		validation.Field(&req.Status, validation.Required, validation.In(
			string(domain.EventStatusDraft),
			string(domain.EventStatusPublished),
			string(domain.EventStatusClosed),
			string(domain.EventStatusCancelled),
		)),
	))
}

// EventListResponse is one page of events with pagination metadata.
type EventListResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// EventListSuccessResponse is the success response envelope for GET /events (200).
type EventListSuccessResponse struct {
	Data  EventListResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventsSuccessResponse is the success response envelope for endpoints returning a list of events.
type EventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// StringsSuccessResponse is the success response envelope for option lists such as event types.
type StringsSuccessResponse struct {
	Data  []string          `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventController handles event browsing and management.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

// NewEventController creates an EventController with the given logger and service.
func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Lists published events with filters, sorting and pagination. Results are cached briefly.
// @Tags events
// @Produce json
// @Param q query string false "Search in title and description"
// @Param type query string false "Event type"
// @Param tag query string false "Event tag"
// @Param price query string false "Price band: all, free, low, medium, high"
// @Param from query string false "Earliest start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Latest start date (YYYY-MM-DD or RFC3339)"
// @Param sort query string false "upcoming, newest, price_asc, price_desc, popular"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	page, err := c.Service.ListEvents(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{
		Items:      page.Items,
		Pagination: helpers.NewPaginationMeta(filter.Pagination, page.Total),
	})
}

// ListEventTypes godoc
// @Summary List event types
// @Description Returns the distinct types of listed events, for the type filter.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.StringsSuccessResponse "data is a list of types"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/types [get]
func (c *EventController) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	types, err := c.Service.ListEventTypes(r.Context())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, types)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns an event. Drafts and rejected events are visible only to their organizer and admins.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event owned by the caller. Status defaults to Draft; moderation starts pending.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not an organizer)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor.IsAnonymous() {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := req.event()
	if err := c.Service.CreateEvent(r.Context(), event, actor); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partially updates an event. Only its organizer or an admin may edit it.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, middleware.ActorFromContext(r.Context()), req.update())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ChangeStatus godoc
// @Summary Change event status
// @Description Moves an event through Draft, Published, Closed and Cancelled. Disallowed transitions return 409.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ChangeStatusRequest true "New status"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (invalid status transition)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/status [patch]
func (c *EventController) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.ChangeStatus(r.Context(), eventID, middleware.ActorFromContext(r.Context()), domain.EventStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes an event together with its registrations and favorites.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status is deleted"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, middleware.ActorFromContext(r.Context())); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// ListManagedEvents godoc
// @Summary List my managed events
// @Description Lists the caller's own events, newest first.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search in title and description"
// @Param status query string false "all (default), Draft, Published, Closed or Cancelled"
// @Success 200 {object} controllers.EventsSuccessResponse "data is a list of events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/manage [get]
func (c *EventController) ListManagedEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ManagedEventFilter{Query: strings.TrimSpace(q.Get("q"))}
	if s := strings.TrimSpace(q.Get("status")); s != "" && !strings.EqualFold(s, "all") {
		filter.Status = domain.EventStatus(s)
		if !filter.Status.Valid() {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid status")
			return
		}
	}
	events, err := c.Service.ListManagedEvents(r.Context(), middleware.ActorFromContext(r.Context()), filter)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

func parseEventFilter(r *http.Request) (domain.EventFilter, error) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Query:      strings.TrimSpace(q.Get("q")),
		Type:       strings.TrimSpace(q.Get("type")),
		Tag:        strings.TrimSpace(q.Get("tag")),
		Pagination: helpers.ParsePagination(r, helpers.DefaultPageSize),
	}
	band, ok := domain.ParsePriceBand(q.Get("price"))
	if !ok {
		return filter, errors.New("invalid price band")
	}
	filter.PriceBand = band
	sort, ok := domain.ParseEventSort(q.Get("sort"))
	if !ok {
		return filter, errors.New("invalid sort")
	}
	filter.Sort = sort

	var err error
	if filter.From, err = parseDateParam(q.Get("from"), false); err != nil {
		return filter, errors.New("invalid from date")
	}
	if filter.To, err = parseDateParam(q.Get("to"), true); err != nil {
		return filter, errors.New("invalid to date")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, errors.New("to must not be before from")
	}
	return filter, nil
}

// parseDateParam accepts RFC3339 or a bare date. A bare "to" date covers the whole day.
func parseDateParam(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func endsAfter(start *time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		var end time.Time
		switch v := value.(type) {
		case time.Time:
			end = v
		case *time.Time:
			if v == nil {
				return nil
			}
			end = *v
		}
		if start == nil || start.IsZero() || end.IsZero() {
			return nil
		}
		if !end.After(*start) {
			return errors.New("must be after start_at")
		}
		return nil
	}
}

// notBlank rejects strings that are empty once trimmed. Nil pointers pass.
func notBlank(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func nonNegativePrice(value interface{}) error {
	p, _ := value.(*decimal.Decimal)
	if p != nil && p.IsNegative() {
		return errors.New("must be no less than 0")
	}
	return nil
}

func positiveCapacity(value interface{}) error {
	c, _ := value.(*int)
	if c != nil && *c < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
