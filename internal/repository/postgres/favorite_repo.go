package postgres

import (
	"context"
	"database/sql"

	"freeday/internal/domain"
)

type favoriteRepository struct {
	DB *sql.DB
}

func NewFavoriteRepository(db *sql.DB) domain.FavoriteRepository {
	return &favoriteRepository{DB: db}
}

func (r *favoriteRepository) Toggle(ctx context.Context, eventID, userID string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_favorites WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, err
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return false, nil
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO event_favorites (event_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, eventID, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return true, nil
}
