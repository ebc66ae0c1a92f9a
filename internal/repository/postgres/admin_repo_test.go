package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/domain"
)

func TestAdminRepository_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT role, COUNT\(\*\) FROM users GROUP BY role`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).AddRow("participant", 7).AddRow("organizer", 2).AddRow("admin", 1))
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM events GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("Published", 3).AddRow("Draft", 1))
	mock.ExpectQuery(`SELECT type, COUNT\(\*\) FROM events WHERE type <> ''`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).AddRow("Âm nhạc", 2))
	mock.ExpectQuery(`SELECT \(SELECT COUNT\(\*\) FROM posts\)`).
		WillReturnRows(sqlmock.NewRows([]string{"posts", "comments", "regs", "pe", "pp"}).AddRow(4, 9, 12, 2, 1))

	stats, err := NewAdminRepository(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.UsersTotal)
	assert.Equal(t, 2, stats.UsersByRole["organizer"])
	assert.Equal(t, 4, stats.EventsTotal)
	assert.Equal(t, map[string]int{"Âm nhạc": 2}, stats.EventsByType)
	assert.Equal(t, 4, stats.PostsTotal)
	assert.Equal(t, 9, stats.CommentsTotal)
	assert.Equal(t, 12, stats.RegistrationsTotal)
	assert.Equal(t, 2, stats.PendingEvents)
	assert.Equal(t, 1, stats.PendingPosts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRepository_ListPendingEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE moderation_status = 'pending'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery(`FROM events e\s+JOIN users u .+ORDER BY e.created_at ASC, e.id LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id", "author_name", "created_at"}).
			AddRow("ev-6", "Workshop", "org-1", "Minh Anh", now))

	items, total, err := NewAdminRepository(db).ListPendingEvents(context.Background(), domain.PaginationParams{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Minh Anh", items[0].AuthorName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRepository_ListPendingPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts WHERE moderation_status = 'pending'`).
		WillReturnError(sql.ErrConnDone)

	_, _, err = NewAdminRepository(db).ListPendingPosts(context.Background(), domain.PaginationParams{Page: 1, PageSize: 5})
	require.Error(t, err)
}

func TestAdminRepository_SetModeration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE events SET moderation_status = \$1`).
		WithArgs("approved", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE posts SET moderation_status = \$1`).
		WithArgs("rejected", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAdminRepository(db)
	require.NoError(t, repo.SetEventModeration(context.Background(), "ev-1", domain.ModerationApproved))
	require.ErrorIs(t, repo.SetPostModeration(context.Background(), "missing", domain.ModerationRejected), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
