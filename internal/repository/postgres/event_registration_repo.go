package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"freeday/internal/domain"
)

type eventRegistrationRepository struct {
	DB *sql.DB
}

func NewEventRegistrationRepository(db *sql.DB) domain.EventRegistrationRepository {
	return &eventRegistrationRepository{
		DB: db,
	}
}

// Create holds the event row lock while it checks status and capacity, so concurrent
// registrations cannot overbook the event.
func (r *eventRegistrationRepository) Create(ctx context.Context, reg *domain.EventRegistration) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var status domain.EventStatus
		var endAt time.Time
		var capacity sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT status, end_at, capacity FROM events WHERE id = $1 FOR UPDATE`, reg.EventID).
			Scan(&status, &endAt, &capacity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if status != domain.EventStatusPublished || !endAt.After(reg.CreatedAt) {
			return domain.ErrRegistrationClosed
		}
		if capacity.Valid {
			var count int64
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, reg.EventID).Scan(&count); err != nil {
				return err
			}
			if count >= capacity.Int64 {
				return domain.ErrEventFull
			}
		}

		query := `
			INSERT INTO event_registrations (event_id, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (event_id, user_id) DO NOTHING
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query, reg.EventID, reg.UserID, reg.CreatedAt, reg.UpdatedAt).Scan(&reg.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrConflict
		}
		return err
	})
}

func (r *eventRegistrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	query := `
		SELECT id, event_id, user_id, created_at, updated_at
		FROM event_registrations
		WHERE event_id = $1 AND user_id = $2
	`
	reg := &domain.EventRegistration{}
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).
		Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *eventRegistrationRepository) Delete(ctx context.Context, eventID, userID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
