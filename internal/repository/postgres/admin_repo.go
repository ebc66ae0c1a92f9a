package postgres

import (
	"context"
	"database/sql"

	"freeday/internal/domain"
)

const defaultModerationPageSize = 5

type adminRepository struct {
	DB *sql.DB
}

func NewAdminRepository(db *sql.DB) domain.AdminRepository {
	return &adminRepository{DB: db}
}

func (r *adminRepository) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}
	var err error

	if stats.UsersByRole, stats.UsersTotal, err = r.groupCount(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`); err != nil {
		return nil, err
	}
	if stats.EventsByStatus, stats.EventsTotal, err = r.groupCount(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status`); err != nil {
		return nil, err
	}
	if stats.EventsByType, _, err = r.groupCount(ctx, `SELECT type, COUNT(*) FROM events WHERE type <> '' GROUP BY type`); err != nil {
		return nil, err
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM comments),
			(SELECT COUNT(*) FROM event_registrations),
			(SELECT COUNT(*) FROM events WHERE moderation_status = 'pending'),
			(SELECT COUNT(*) FROM posts WHERE moderation_status = 'pending')
	`
	err = r.DB.QueryRowContext(ctx, query).Scan(
		&stats.PostsTotal, &stats.CommentsTotal, &stats.RegistrationsTotal, &stats.PendingEvents, &stats.PendingPosts,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *adminRepository) groupCount(ctx context.Context, query string) (map[string]int, int, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	total := 0
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, 0, err
		}
		counts[key] = n
		total += n
	}
	return counts, total, rows.Err()
}

func (r *adminRepository) ListPendingEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE moderation_status = 'pending'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT e.id, e.title, u.id, COALESCE(NULLIF(u.display_name, ''), u.name), e.created_at
		FROM events e
		JOIN users u ON u.id = e.organizer_id
		WHERE e.moderation_status = 'pending'
		ORDER BY e.created_at ASC, e.id
		LIMIT $1 OFFSET $2
	`
	items, err := r.queryItems(ctx, query, params.Limit(defaultModerationPageSize), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *adminRepository) ListPendingPosts(ctx context.Context, params domain.PaginationParams) ([]*domain.ModerationItem, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE moderation_status = 'pending'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT p.id, p.title, u.id, COALESCE(NULLIF(u.display_name, ''), u.name), p.created_at
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.moderation_status = 'pending'
		ORDER BY p.created_at ASC, p.id
		LIMIT $1 OFFSET $2
	`
	items, err := r.queryItems(ctx, query, params.Limit(defaultModerationPageSize), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *adminRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*domain.ModerationItem, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.ModerationItem, 0)
	for rows.Next() {
		item := &domain.ModerationItem{}
		if err := rows.Scan(&item.ID, &item.Title, &item.AuthorID, &item.AuthorName, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *adminRepository) SetEventModeration(ctx context.Context, eventID string, status domain.ModerationStatus) error {
	return r.setModeration(ctx, `UPDATE events SET moderation_status = $1, updated_at = NOW() WHERE id = $2`, eventID, status)
}

func (r *adminRepository) SetPostModeration(ctx context.Context, postID string, status domain.ModerationStatus) error {
	return r.setModeration(ctx, `UPDATE posts SET moderation_status = $1, updated_at = NOW() WHERE id = $2`, postID, status)
}

func (r *adminRepository) setModeration(ctx context.Context, query, id string, status domain.ModerationStatus) error {
	result, err := r.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
