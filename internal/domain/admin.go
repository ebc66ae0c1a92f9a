package domain

import (
	"context"
	"time"
)

// DashboardStats is the aggregate view shown on the admin dashboard.
// swagger:model DashboardStats
type DashboardStats struct {
	UsersTotal         int            `json:"users_total"`
	UsersByRole        map[string]int `json:"users_by_role"`
	EventsTotal        int            `json:"events_total"`
	EventsByStatus     map[string]int `json:"events_by_status"`
	EventsByType       map[string]int `json:"events_by_type"`
	PostsTotal         int            `json:"posts_total"`
	CommentsTotal      int            `json:"comments_total"`
	RegistrationsTotal int            `json:"registrations_total"`
	PendingEvents      int            `json:"pending_events"`
	PendingPosts       int            `json:"pending_posts"`
}

// ModerationItem is a pending event or post as listed in the moderation queue.
// swagger:model ModerationItem
type ModerationItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// AdminRepository defines the aggregate queries and moderation writes of the dashboard.
type AdminRepository interface {
	Stats(ctx context.Context) (*DashboardStats, error)
	ListPendingEvents(ctx context.Context, params PaginationParams) ([]*ModerationItem, int, error)
	ListPendingPosts(ctx context.Context, params PaginationParams) ([]*ModerationItem, int, error)
	SetEventModeration(ctx context.Context, eventID string, status ModerationStatus) error
	SetPostModeration(ctx context.Context, postID string, status ModerationStatus) error
}

// AdminService defines the business logic of the admin dashboard.
type AdminService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
	ListPendingEvents(ctx context.Context, params PaginationParams) ([]*ModerationItem, int, error)
	ListPendingPosts(ctx context.Context, params PaginationParams) ([]*ModerationItem, int, error)
	ModerateEvent(ctx context.Context, eventID string, decision ModerationDecision) (ModerationStatus, error)
	ModeratePost(ctx context.Context, postID string, decision ModerationDecision) (ModerationStatus, error)
}
