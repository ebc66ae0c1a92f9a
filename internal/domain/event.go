package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the publication lifecycle of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "Draft"
	EventStatusPublished EventStatus = "Published"
	EventStatusClosed    EventStatus = "Closed"
	EventStatusCancelled EventStatus = "Cancelled"
)

var eventStatusTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:     {EventStatusPublished, EventStatusCancelled},
	EventStatusPublished: {EventStatusClosed, EventStatusCancelled},
	EventStatusClosed:    {EventStatusPublished},
}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusClosed, EventStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an event in status s may move to next.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	return slices.Contains(eventStatusTransitions[s], next)
}

// ModerationStatus is the admin review state of an event or post.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// ModerationDecision is an admin verdict on a pending item.
type ModerationDecision string

const (
	DecisionApprove ModerationDecision = "approve"
	DecisionReject  ModerationDecision = "reject"
)

// Status returns the moderation status the decision leads to.
func (d ModerationDecision) Status() (ModerationStatus, bool) {
	switch d {
	case DecisionApprove:
		return ModerationApproved, true
	case DecisionReject:
		return ModerationRejected, true
	}
	return "", false
}

// EventTags is the fixed vocabulary of event tags.
var EventTags = []string{"food", "music", "art", "sport", "outdoor", "social"}

// IsEventTag reports whether tag belongs to EventTags.
func IsEventTag(tag string) bool {
	return slices.Contains(EventTags, tag)
}

// Event represents a community event users can register for.
// swagger:model Event
type Event struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	LocationText       string           `json:"location_text"`
	Lat                *float64         `json:"lat,omitempty"`
	Lng                *float64         `json:"lng,omitempty"`
	ImageURL           string           `json:"image_url,omitempty"`
	Type               string           `json:"type,omitempty"`
	Tags               []string         `json:"tags"`
	StartAt            time.Time        `json:"start_at"`
	EndAt              time.Time        `json:"end_at"`
	Price              *decimal.Decimal `json:"price,omitempty" swaggertype:"string"`
	Capacity           *int             `json:"capacity,omitempty"`
	Status             EventStatus      `json:"status"`
	ModerationStatus   ModerationStatus `json:"moderation_status"`
	OrganizerID        string           `json:"organizer_id"`
	RegistrationsCount int              `json:"registrations_count"`
	FavoritesCount     int              `json:"favorites_count"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewEvent returns a new draft Event awaiting moderation. ID is typically set by the repository on create.
func NewEvent(title, description, locationText, organizerID string, startAt, endAt, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:            title,
		Description:      description,
		LocationText:     locationText,
		Tags:             []string{},
		StartAt:          startAt,
		EndAt:            endAt,
		Status:           EventStatusDraft,
		ModerationStatus: ModerationPending,
		OrganizerID:      organizerID,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

// CheckSchedule returns ErrInvalidInput unless the event starts before it ends.
func (e *Event) CheckSchedule() error {
	if !e.StartAt.Before(e.EndAt) {
		return fmt.Errorf("%w: start_at must be before end_at", ErrInvalidInput)
	}
	return nil
}

// CheckDetails rejects events whose required text fields are blank.
func (e *Event) CheckDetails() error {
	var blank []string
	for _, f := range []struct{ name, value string }{
		{"title", e.Title},
		{"description", e.Description},
		{"location_text", e.LocationText},
	} {
		if strings.TrimSpace(f.value) == "" {
			blank = append(blank, f.name)
		}
	}
	if len(blank) > 0 {
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidInput, strings.Join(blank, ", "))
	}
	return nil
}

// IsPubliclyVisible reports whether anonymous visitors may see the event.
func (e *Event) IsPubliclyVisible() bool {
	return e.Status == EventStatusPublished && e.ModerationStatus != ModerationRejected
}

// AcceptsRegistrations reports whether registrations are open at now.
func (e *Event) AcceptsRegistrations(now time.Time) bool {
	return e.Status == EventStatusPublished && e.EndAt.After(now)
}

// IsFull reports whether a capacity is set and has been reached.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && e.RegistrationsCount >= *e.Capacity
}

// EventUpdate is a partial update; nil fields are left unchanged.
type EventUpdate struct {
	Title        *string
	Description  *string
	LocationText *string
	Lat          *float64
	Lng          *float64
	ImageURL     *string
	Type         *string
	Tags         []string
	StartAt      *time.Time
	EndAt        *time.Time
	Price        *decimal.Decimal
	Capacity     *int
}

// Apply merges the provided fields into e.
func (u EventUpdate) Apply(e *Event) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.LocationText != nil {
		e.LocationText = *u.LocationText
	}
	if u.Lat != nil {
		e.Lat = u.Lat
	}
	if u.Lng != nil {
		e.Lng = u.Lng
	}
	if u.ImageURL != nil {
		e.ImageURL = *u.ImageURL
	}
	if u.Type != nil {
		e.Type = *u.Type
	}
	if u.Tags != nil {
		e.Tags = u.Tags
	}
	if u.StartAt != nil {
		e.StartAt = *u.StartAt
	}
	if u.EndAt != nil {
		e.EndAt = *u.EndAt
	}
	if u.Price != nil {
		e.Price = u.Price
	}
	if u.Capacity != nil {
		e.Capacity = u.Capacity
	}
}

// PriceBand groups prices the way the event browser filters them (VND).
type PriceBand string

const (
	PriceAll    PriceBand = "all"
	PriceFree   PriceBand = "free"
	PriceLow    PriceBand = "low"
	PriceMedium PriceBand = "medium"
	PriceHigh   PriceBand = "high"
)

var (
	lowPriceCeiling = decimal.NewFromInt(100000)
	highPriceFloor  = decimal.NewFromInt(500000)
)

// ParsePriceBand parses a query value; empty means PriceAll.
func ParsePriceBand(s string) (PriceBand, bool) {
	switch b := PriceBand(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return PriceAll, true
	case PriceAll, PriceFree, PriceLow, PriceMedium, PriceHigh:
		return b, true
	}
	return "", false
}

// Matches reports whether price falls in the band. A missing price counts as free.
func (b PriceBand) Matches(price *decimal.Decimal) bool {
	p := decimal.Zero
	if price != nil {
		p = *price
	}
	switch b {
	case PriceFree:
		return p.IsZero()
	case PriceLow:
		return p.IsPositive() && p.LessThan(lowPriceCeiling)
	case PriceMedium:
		return p.GreaterThanOrEqual(lowPriceCeiling) && p.LessThanOrEqual(highPriceFloor)
	case PriceHigh:
		return p.GreaterThan(highPriceFloor)
	}
	return true
}

// Bounds returns the inclusive/exclusive limits used to build SQL predicates.
// A nil bound means unbounded on that side.
func (b PriceBand) Bounds() (lo *decimal.Decimal, loInclusive bool, hi *decimal.Decimal, hiInclusive bool) {
	zero := decimal.Zero
	switch b {
	case PriceFree:
		return &zero, true, &zero, true
	case PriceLow:
		return &zero, false, &lowPriceCeiling, false
	case PriceMedium:
		return &lowPriceCeiling, true, &highPriceFloor, true
	case PriceHigh:
		return &highPriceFloor, false, nil, false
	}
	return nil, false, nil, false
}

// EventSort is a sort key for event listings.
type EventSort string

const (
	EventSortUpcoming  EventSort = "upcoming"
	EventSortNewest    EventSort = "newest"
	EventSortPriceAsc  EventSort = "price_asc"
	EventSortPriceDesc EventSort = "price_desc"
	EventSortPopular   EventSort = "popular"
)

// ParseEventSort parses a query value; empty means EventSortUpcoming.
func ParseEventSort(s string) (EventSort, bool) {
	switch v := EventSort(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return EventSortUpcoming, true
	case EventSortUpcoming, EventSortNewest, EventSortPriceAsc, EventSortPriceDesc, EventSortPopular:
		return v, true
	}
	return "", false
}

// EventFilter narrows the public event listing.
type EventFilter struct {
	Query      string
	Type       string
	Tag        string
	PriceBand  PriceBand
	From       *time.Time
	To         *time.Time
	Sort       EventSort
	Pagination PaginationParams
}

// CacheKey returns a stable key for the normalized filter.
func (f EventFilter) CacheKey() string {
	var from, to string
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		to = f.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("q=%s|type=%s|tag=%s|price=%s|from=%s|to=%s|sort=%s|page=%d|size=%d",
		strings.ToLower(strings.TrimSpace(f.Query)),
		strings.ToLower(strings.TrimSpace(f.Type)),
		strings.ToLower(strings.TrimSpace(f.Tag)),
		f.PriceBand, from, to, f.Sort,
		f.Pagination.Page, f.Pagination.PageSize,
	)
}

// EventPage is one page of a filtered listing.
type EventPage struct {
	Items []*Event `json:"items"`
	Total int      `json:"total"`
}

// ManagedEventFilter narrows an organizer's own events. An empty Status means all.
type ManagedEventFilter struct {
	Query  string
	Status EventStatus
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	UpdateStatus(ctx context.Context, id string, status EventStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter) ([]*Event, int, error)
	ListTypes(ctx context.Context) ([]string, error)
	ListByOrganizer(ctx context.Context, organizerID string, filter ManagedEventFilter) ([]*Event, error)
	ListRegisteredByUser(ctx context.Context, userID string) ([]*Event, error)
	ListFavoritedByUser(ctx context.Context, userID string) ([]*Event, error)
}

// EventListCache caches listing pages by key. Get returns nil, nil on a miss.
// Invalidate advances Generation; callers prefix keys with the generation they
// read before loading so a page loaded before a write is never served after it.
type EventListCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) (*EventPage, error)
	Set(ctx context.Context, key string, page *EventPage) error
	Invalidate(ctx context.Context) error
}

// EventService defines the business logic for browsing and managing events.
type EventService interface {
	ListEvents(ctx context.Context, filter EventFilter) (*EventPage, error)
	ListEventTypes(ctx context.Context) ([]string, error)
	GetEvent(ctx context.Context, eventID string, viewer Actor) (*Event, error)
	CreateEvent(ctx context.Context, event *Event, actor Actor) error
	UpdateEvent(ctx context.Context, eventID string, actor Actor, update EventUpdate) (*Event, error)
	ChangeStatus(ctx context.Context, eventID string, actor Actor, status EventStatus) (*Event, error)
	DeleteEvent(ctx context.Context, eventID string, actor Actor) error
	ListManagedEvents(ctx context.Context, actor Actor, filter ManagedEventFilter) ([]*Event, error)
}
