package postgres

import (
	"context"
	"database/sql"

	"freeday/internal/domain"
)

type tagRepository struct {
	DB *sql.DB
}

// NewTagRepository returns a domain.TagRepository implemented with Postgres.
func NewTagRepository(db *sql.DB) domain.TagRepository {
	return &tagRepository{DB: db}
}

func (r *tagRepository) ListInUse(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT t.name FROM tags t
		 JOIN post_tags pt ON pt.tag_id = t.id
		 JOIN posts p ON p.id = pt.post_id
		 WHERE p.moderation_status <> 'rejected'
		 ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// ensureTag returns the id of the tag named name, creating it when missing.
// Names match case-insensitively; the first spelling stored wins.
func ensureTag(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var tagID string
	err := tx.QueryRowContext(ctx,
		`INSERT INTO tags (name) VALUES ($1)
		 ON CONFLICT ((LOWER(name))) DO UPDATE SET name = tags.name
		 RETURNING id`, name).Scan(&tagID)
	if err != nil {
		return "", err
	}
	return tagID, nil
}

// setPostTags replaces the tags of a post, keeping the given order.
func setPostTags(ctx context.Context, tx *sql.Tx, postID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return err
	}
	for i, name := range tags {
		tagID, err := ensureTag(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id, position) VALUES ($1, $2, $3) ON CONFLICT (post_id, tag_id) DO NOTHING`,
			postID, tagID, i); err != nil {
			return err
		}
	}
	return nil
}
