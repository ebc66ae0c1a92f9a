package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"freeday/internal/domain"
)

type forumService struct {
	postRepo       domain.PostRepository
	commentRepo    domain.CommentRepository
	tagRepo        domain.TagRepository
	userRepo       domain.UserRepository
	publisher      domain.CommentPublisher
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewForumService creates a ForumService. publisher may be nil when live updates are disabled.
func NewForumService(
	postRepo domain.PostRepository,
	commentRepo domain.CommentRepository,
	tagRepo domain.TagRepository,
	userRepo domain.UserRepository,
	publisher domain.CommentPublisher,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ForumService {
	return &forumService{
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		tagRepo:        tagRepo,
		userRepo:       userRepo,
		publisher:      publisher,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *forumService) ListPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	posts, total, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return posts, total, nil
}

func (s *forumService) ListTags(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	tags, err := s.tagRepo.ListInUse(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s *forumService) GetPost(ctx context.Context, postID string, viewer domain.Actor) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.visiblePost(ctx, postID, viewer)
}

func (s *forumService) CreatePost(ctx context.Context, post *domain.Post) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	post.Tags = domain.NormalizeTags(post.Tags)
	if err := checkPost(post); err != nil {
		return err
	}
	now := s.now()
	post.ModerationStatus = domain.ModerationPending
	post.CreatedAt = now
	post.UpdatedAt = now
	if err := s.postRepo.Create(ctx, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	created, err := s.getPost(ctx, post.ID, post.Author.ID)
	if err != nil {
		return err
	}
	*post = *created
	return nil
}

func (s *forumService) UpdatePost(ctx context.Context, postID string, actor domain.Actor, update domain.PostUpdate) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	post, err := s.getPost(ctx, postID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if post.Author.ID != actor.UserID {
		if post.ModerationStatus == domain.ModerationRejected && !actor.IsAdmin() {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrForbidden
	}

	update.Apply(post)
	if err := checkPost(post); err != nil {
		return nil, err
	}
	post.UpdatedAt = s.now()
	if err := s.postRepo.Update(ctx, post); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

func (s *forumService) DeletePost(ctx context.Context, postID string, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	post, err := s.getPost(ctx, postID, actor.UserID)
	if err != nil {
		return err
	}
	if !actor.Owns(post.Author.ID) {
		return domain.ErrForbidden
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *forumService) ListComments(ctx context.Context, postID string, viewer domain.Actor) ([]*domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.visiblePost(ctx, postID, viewer); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	return comments, nil
}

func (s *forumService) CreateComment(ctx context.Context, comment *domain.Comment) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	commenter := domain.Actor{UserID: comment.Author.ID}
	if _, err := s.visiblePost(ctx, comment.PostID, commenter); err != nil {
		return err
	}

	author, err := s.userRepo.GetByID(ctx, comment.Author.ID)
	if err != nil {
		return fmt.Errorf("get comment author: %w", err)
	}
	comment.Author = author.Author()
	comment.CreatedAt = s.now()
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("create comment: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishComment(comment.PostID, comment)
	}
	return nil
}

func (s *forumService) ToggleLike(ctx context.Context, postID string, actor domain.Actor) (bool, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.visiblePost(ctx, postID, actor); err != nil {
		return false, 0, err
	}
	liked, count, err := s.postRepo.ToggleLike(ctx, postID, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, 0, domain.ErrNotFound
		}
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}
	return liked, count, nil
}

// visiblePost loads the post as viewer sees it. Rejected posts exist only for
// their author and admins.
func (s *forumService) visiblePost(ctx context.Context, postID string, viewer domain.Actor) (*domain.Post, error) {
	post, err := s.getPost(ctx, postID, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if post.ModerationStatus == domain.ModerationRejected && !viewer.Owns(post.Author.ID) {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

func (s *forumService) getPost(ctx context.Context, postID, viewerID string) (*domain.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func checkPost(post *domain.Post) error {
	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Content) == "" {
		return fmt.Errorf("%w: title and content are required", domain.ErrInvalidInput)
	}
	if len(post.Tags) > domain.MaxPostTags {
		return fmt.Errorf("%w: at most %d tags", domain.ErrInvalidInput, domain.MaxPostTags)
	}
	return nil
}
