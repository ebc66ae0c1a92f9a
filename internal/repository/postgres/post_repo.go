package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"freeday/internal/domain"
)

// postSelectFmt takes the placeholder index of the viewer id, used for liked_by_me.
const postSelectFmt = `
	SELECT p.id, p.title, p.content, p.moderation_status, p.created_at, p.updated_at,
		u.id, COALESCE(NULLIF(u.display_name, ''), u.name), u.avatar_url,
		COALESCE((SELECT array_agg(t.name ORDER BY pt.position) FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id), '{}') AS tags,
		(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comments_count,
		(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS likes_count,
		EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id::text = $%d) AS liked_by_me
	FROM posts p
	JOIN users u ON u.id = p.author_id`

const defaultPostPageSize = 20

type postRepository struct {
	DB *sql.DB
}

func NewPostRepository(db *sql.DB) domain.PostRepository {
	return &postRepository{DB: db}
}

func (r *postRepository) Create(ctx context.Context, p *domain.Post) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `
			INSERT INTO posts (title, content, author_id, moderation_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, query, p.Title, p.Content, p.Author.ID, p.ModerationStatus, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
		if err != nil {
			return err
		}
		return setPostTags(ctx, tx, p.ID, p.Tags)
	})
}

func (r *postRepository) GetByID(ctx context.Context, id, viewerID string) (*domain.Post, error) {
	query := fmt.Sprintf(postSelectFmt, 2) + ` WHERE p.id = $1`
	p, err := scanPost(r.DB.QueryRowContext(ctx, query, id, viewerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postRepository) Update(ctx context.Context, p *domain.Post) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE posts SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
			p.Title, p.Content, p.UpdatedAt, p.ID)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		return setPostTags(ctx, tx, p.ID, p.Tags)
	})
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postRepository) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, int, error) {
	where := []string{"p.moderation_status <> 'rejected'"}
	args := []interface{}{}
	n := 1
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, fmt.Sprintf(`(p.title ILIKE $%d OR p.content ILIKE $%d OR EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id AND t.name ILIKE $%d))`, n, n, n))
		args = append(args, likePattern(q))
		n++
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id AND LOWER(t.name) = LOWER($%d))`, n))
		args = append(args, tag)
		n++
	}
	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(postSelectFmt, n) + whereSQL +
		fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", postOrderBy(filter.Sort), n+1, n+2)
	args = append(args, filter.ViewerID, filter.Pagination.Limit(defaultPostPageSize), filter.Pagination.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, int, error) {
	var liked bool
	var count int
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, userID); err != nil {
				if isForeignKeyViolation(err) {
					return domain.ErrNotFound
				}
				return err
			}
			liked = true
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID).Scan(&count)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func postOrderBy(sort domain.PostSort) string {
	switch sort {
	case domain.PostSortMostComments:
		return "comments_count DESC, p.created_at DESC"
	case domain.PostSortMostLikes:
		return "likes_count DESC, p.created_at DESC"
	default:
		return "p.created_at DESC"
	}
}

func scanPost(row rowScanner) (*domain.Post, error) {
	p := &domain.Post{}
	var tags pq.StringArray
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.ModerationStatus, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Name, &p.Author.AvatarURL,
		&tags, &p.CommentsCount, &p.LikesCount, &p.LikedByMe,
	)
	if err != nil {
		return nil, err
	}
	p.Tags = nonNilStrings(tags)
	return p, nil
}
