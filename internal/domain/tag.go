package domain

import "context"

// Tag represents a named forum tag shared across posts.
// swagger:model Tag
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagRepository defines read access to forum tags.
type TagRepository interface {
	// ListInUse returns the names of tags attached to at least one non-rejected post, alphabetically.
	ListInUse(ctx context.Context) ([]string, error)
}
