package domain

import (
	"context"
	"strings"
	"time"
)

// MaxPostTags bounds the number of tags a post may carry.
const MaxPostTags = 10

// Author is the public card shown next to posts and comments.
// swagger:model Author
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Post is a forum thread.
// swagger:model Post
type Post struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Author           Author           `json:"author"`
	Tags             []string         `json:"tags"`
	CommentsCount    int              `json:"comments_count"`
	LikesCount       int              `json:"likes_count"`
	LikedByMe        bool             `json:"liked_by_me"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewPost returns a pending post authored by authorID.
func NewPost(title, content, authorID string, tags []string, createdAt, updatedAt time.Time) *Post {
	return &Post{
		Title:            title,
		Content:          content,
		Author:           Author{ID: authorID},
		Tags:             NormalizeTags(tags),
		ModerationStatus: ModerationPending,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

// Comment is a reply on a post.
// swagger:model Comment
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeTags trims tags, drops empty ones and removes case-insensitive duplicates,
// keeping the first spelling.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// PostSort is a sort key for forum listings.
type PostSort string

const (
	PostSortNewest       PostSort = "newest"
	PostSortMostComments PostSort = "most_comments"
	PostSortMostLikes    PostSort = "most_likes"
)

// ParsePostSort parses a query value; empty means PostSortNewest.
func ParsePostSort(s string) (PostSort, bool) {
	switch v := PostSort(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return PostSortNewest, true
	case PostSortNewest, PostSortMostComments, PostSortMostLikes:
		return v, true
	}
	return "", false
}

// PostFilter narrows the forum listing. ViewerID fills LikedByMe when set.
type PostFilter struct {
	Query      string
	Tag        string
	Sort       PostSort
	ViewerID   string
	Pagination PaginationParams
}

// PostUpdate is a partial update; nil fields are left unchanged.
type PostUpdate struct {
	Title   *string
	Content *string
	Tags    []string
}

// Apply merges the provided fields into p.
func (u PostUpdate) Apply(p *Post) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Tags != nil {
		p.Tags = NormalizeTags(u.Tags)
	}
}

// PostRepository defines the interface for post storage. Tags are written in the same transaction as the post.
type PostRepository interface {
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, id, viewerID string) (*Post, error)
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter PostFilter) ([]*Post, int, error)
	ToggleLike(ctx context.Context, postID, userID string) (liked bool, likesCount int, err error)
}

// CommentRepository defines the interface for comment storage.
type CommentRepository interface {
	Create(ctx context.Context, comment *Comment) error
	ListByPostID(ctx context.Context, postID string) ([]*Comment, error)
}

// CommentPublisher pushes new comments to live subscribers of a post.
type CommentPublisher interface {
	PublishComment(postID string, comment *Comment)
}

// ForumService defines the business logic of the discussion forum.
type ForumService interface {
	ListPosts(ctx context.Context, filter PostFilter) ([]*Post, int, error)
	ListTags(ctx context.Context) ([]string, error)
	GetPost(ctx context.Context, postID string, viewer Actor) (*Post, error)
	CreatePost(ctx context.Context, post *Post) error
	UpdatePost(ctx context.Context, postID string, actor Actor, update PostUpdate) (*Post, error)
	DeletePost(ctx context.Context, postID string, actor Actor) error
	ListComments(ctx context.Context, postID string, viewer Actor) ([]*Comment, error)
	CreateComment(ctx context.Context, comment *Comment) error
	ToggleLike(ctx context.Context, postID string, actor Actor) (liked bool, likesCount int, err error)
}
