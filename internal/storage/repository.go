package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/build-directory/internal/models"
)

var (
	ErrBookmarkNotFound  = errors.New("bookmark not found")
	ErrDuplicateBookmark = errors.New("professional already bookmarked")
)

// BookmarkRepository defines the interface for bookmark persistence
type BookmarkRepository interface {
	ListBookmarks(ctx context.Context, customerID string) ([]*models.Bookmark, error)
	CreateBookmark(ctx context.Context, b *models.Bookmark) error
	DeleteBookmark(ctx context.Context, customerID string, id int64) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
