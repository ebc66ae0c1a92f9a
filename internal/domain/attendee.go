package domain

import (
	"context"
	"time"
)

// EventRegistration represents a participant's registration for an event.
// swagger:model EventRegistration
type EventRegistration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEventRegistration creates a new EventRegistration. ID is typically set by the repository on create.
func NewEventRegistration(eventID, userID string, createdAt, updatedAt time.Time) *EventRegistration {
	return &EventRegistration{
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// EventRegistrationRepository defines storage operations for event registrations.
type EventRegistrationRepository interface {
	// Create locks the event row, rejects the insert with ErrEventFull when the
	// capacity is reached and stores the registration in the same transaction.
	Create(ctx context.Context, reg *EventRegistration) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*EventRegistration, error)
	Delete(ctx context.Context, eventID, userID string) error
}

// FavoriteRepository stores the events users bookmarked.
type FavoriteRepository interface {
	// Toggle adds the favorite when absent and removes it otherwise; it returns the new state.
	Toggle(ctx context.Context, eventID, userID string) (bool, error)
}

// AttendeeService defines participant-facing operations such as event registration.
type AttendeeService interface {
	// RegisterForEvent registers the user for the event. Returns (reg, created, err): created is true if a new registration was created, false if already registered.
	RegisterForEvent(ctx context.Context, eventID, userID string) (*EventRegistration, bool, error)
	CancelRegistration(ctx context.Context, eventID, userID string) error
	ToggleFavorite(ctx context.Context, eventID, userID string) (bool, error)
}
