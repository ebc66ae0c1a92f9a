package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"freeday/internal/domain"
)

const eventSelect = `
	SELECT e.id, e.title, e.description, e.location_text, e.lat, e.lng, e.image_url, e.type, e.tags,
		e.start_at, e.end_at, e.price, e.capacity, e.status, e.moderation_status, e.organizer_id,
		e.created_at, e.updated_at,
		(SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id) AS registrations_count,
		(SELECT COUNT(*) FROM event_favorites f WHERE f.event_id = e.id) AS favorites_count
	FROM events e`

// listedEventsClause restricts a query to events shown in the public listing.
const listedEventsClause = `e.status = 'Published' AND e.moderation_status <> 'rejected'`

const defaultEventPageSize = 20

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, location_text, lat, lng, image_url, type, tags, start_at, end_at,
			price, capacity, status, moderation_status, organizer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.LocationText, e.Lat, e.Lng, e.ImageURL, e.Type, pq.Array(nonNilStrings(e.Tags)),
		e.StartAt, e.EndAt, nullDecimal(e.Price), e.Capacity, e.Status, e.ModerationStatus, e.OrganizerID,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update writes every editable field of e. Status and moderation have their own writers.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, location_text = $3, lat = $4, lng = $5, image_url = $6, type = $7,
			tags = $8, start_at = $9, end_at = $10, price = $11, capacity = $12, updated_at = $13
		WHERE id = $14
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Description, e.LocationText, e.Lat, e.Lng, e.ImageURL, e.Type, pq.Array(nonNilStrings(e.Tags)),
		e.StartAt, e.EndAt, nullDecimal(e.Price), e.Capacity, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	where, args := eventFilterClauses(filter)
	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Pagination.Limit(defaultEventPageSize)
	n := len(args) + 1
	query := fmt.Sprintf(`%s%s ORDER BY %s LIMIT $%d OFFSET $%d`, eventSelect, whereSQL, eventOrderBy(filter.Sort), n, n+1)
	args = append(args, limit, filter.Pagination.Offset())

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListTypes(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT e.type FROM events e WHERE ` + listedEventsClause + ` AND e.type <> '' ORDER BY e.type`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *eventRepository) ListByOrganizer(ctx context.Context, organizerID string, filter domain.ManagedEventFilter) ([]*domain.Event, error) {
	where := []string{"e.organizer_id = $1"}
	args := []interface{}{organizerID}
	n := 2
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("e.status = $%d", n))
		args = append(args, filter.Status)
		n++
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, fmt.Sprintf("(e.title ILIKE $%d OR e.description ILIKE $%d)", n, n))
		args = append(args, likePattern(q))
	}
	query := eventSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY e.created_at DESC"
	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) ListRegisteredByUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	query := eventSelect + `
		JOIN event_registrations reg ON reg.event_id = e.id
		WHERE reg.user_id = $1
		ORDER BY e.start_at ASC`
	return r.queryEvents(ctx, query, userID)
}

func (r *eventRepository) ListFavoritedByUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	query := eventSelect + `
		JOIN event_favorites fav ON fav.event_id = e.id
		WHERE fav.user_id = $1
		ORDER BY fav.created_at DESC`
	return r.queryEvents(ctx, query, userID)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// eventFilterClauses turns a listing filter into WHERE predicates and their positional args.
func eventFilterClauses(filter domain.EventFilter) ([]string, []interface{}) {
	where := []string{listedEventsClause}
	args := []interface{}{}
	n := 1
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, fmt.Sprintf("(e.title ILIKE $%d OR e.description ILIKE $%d)", n, n))
		args = append(args, likePattern(q))
		n++
	}
	if t := strings.TrimSpace(filter.Type); t != "" {
		where = append(where, fmt.Sprintf("LOWER(e.type) = LOWER($%d)", n))
		args = append(args, t)
		n++
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		where = append(where, fmt.Sprintf("$%d = ANY(e.tags)", n))
		args = append(args, strings.ToLower(tag))
		n++
	}
	lo, loInclusive, hi, hiInclusive := filter.PriceBand.Bounds()
	if lo != nil {
		where = append(where, fmt.Sprintf("COALESCE(e.price, 0) %s $%d", comparison(">", loInclusive), n))
		args = append(args, *lo)
		n++
	}
	if hi != nil {
		where = append(where, fmt.Sprintf("COALESCE(e.price, 0) %s $%d", comparison("<", hiInclusive), n))
		args = append(args, *hi)
		n++
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("e.start_at >= $%d", n))
		args = append(args, *filter.From)
		n++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("e.start_at <= $%d", n))
		args = append(args, *filter.To)
	}
	return where, args
}

func eventOrderBy(sort domain.EventSort) string {
	switch sort {
	case domain.EventSortNewest:
		return "e.created_at DESC, e.id"
	case domain.EventSortPriceAsc:
		return "COALESCE(e.price, 0) ASC, e.start_at ASC, e.id"
	case domain.EventSortPriceDesc:
		return "COALESCE(e.price, 0) DESC, e.start_at ASC, e.id"
	case domain.EventSortPopular:
		return "registrations_count DESC, e.start_at ASC, e.id"
	default:
		return "e.start_at ASC, e.id"
	}
}

func comparison(op string, inclusive bool) string {
	if inclusive {
		return op + "="
	}
	return op
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var latNull, lngNull sql.NullFloat64
	var priceNull decimal.NullDecimal
	var capacityNull sql.NullInt64
	var tags pq.StringArray
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.LocationText, &latNull, &lngNull, &e.ImageURL, &e.Type, &tags,
		&e.StartAt, &e.EndAt, &priceNull, &capacityNull, &e.Status, &e.ModerationStatus, &e.OrganizerID,
		&e.CreatedAt, &e.UpdatedAt, &e.RegistrationsCount, &e.FavoritesCount,
	)
	if err != nil {
		return nil, err
	}
	if latNull.Valid {
		e.Lat = &latNull.Float64
	}
	if lngNull.Valid {
		e.Lng = &lngNull.Float64
	}
	if priceNull.Valid {
		e.Price = &priceNull.Decimal
	}
	if capacityNull.Valid {
		c := int(capacityNull.Int64)
		e.Capacity = &c
	}
	e.Tags = nonNilStrings(tags)
	return e, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a case-insensitive substring match.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
