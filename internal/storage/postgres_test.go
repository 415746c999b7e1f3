package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/build-directory/internal/models"
)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepositoryFromDB(db), mock
}

func TestListBookmarks(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "customer_id", "professional_id", "created_at"}).
		AddRow(int64(2), "cust-1", int64(17), now).
		AddRow(int64(1), "cust-1", int64(4), now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookmarks")).
		WithArgs("cust-1").
		WillReturnRows(rows)

	bookmarks, err := repo.ListBookmarks(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	assert.Equal(t, int64(17), bookmarks[0].ProfessionalID)
	assert.Equal(t, now, bookmarks[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookmarks_Empty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookmarks")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "professional_id", "created_at"}))

	bookmarks, err := repo.ListBookmarks(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, bookmarks)
	assert.Empty(t, bookmarks)
}

func TestCreateBookmark(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookmarks")).
		WithArgs("cust-1", int64(17)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), now))

	b := &models.Bookmark{CustomerID: "cust-1", ProfessionalID: 17}
	require.NoError(t, repo.CreateBookmark(context.Background(), b))
	assert.Equal(t, int64(9), b.ID)
	assert.Equal(t, now, b.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookmark_Duplicate(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookmarks")).
		WithArgs("cust-1", int64(17)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.CreateBookmark(context.Background(), &models.Bookmark{CustomerID: "cust-1", ProfessionalID: 17})
	assert.ErrorIs(t, err, ErrDuplicateBookmark)
}

func TestCreateBookmark_OtherError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookmarks")).
		WillReturnError(errors.New("connection reset"))

	err := repo.CreateBookmark(context.Background(), &models.Bookmark{CustomerID: "cust-1", ProfessionalID: 17})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateBookmark)
}

func TestDeleteBookmark(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookmarks")).
		WithArgs(int64(9), "cust-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteBookmark(context.Background(), "cust-1", 9))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookmarks")).
		WithArgs(int64(9), "cust-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteBookmark(context.Background(), "cust-2", 9), ErrBookmarkNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepositoryFromDB(db)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.Equal(t, "postgres", repo.Name())
	assert.Error(t, repo.HealthCheck(context.Background()))
}
