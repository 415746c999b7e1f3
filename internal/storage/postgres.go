package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/terra-clan/build-directory/internal/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements BookmarkRepository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// NewPostgresRepository opens a connection pool and pings it
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an open handle
func NewPostgresRepositoryFromDB(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Name returns the service name
func (r *PostgresRepository) Name() string {
	return "postgres"
}

// HealthCheck checks database connectivity
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx)
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// ListBookmarks returns a customer's bookmarks, newest first
func (r *PostgresRepository) ListBookmarks(ctx context.Context, customerID string) ([]*models.Bookmark, error) {
	query := `
		SELECT id, customer_id, professional_id, created_at
		FROM bookmarks
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []*models.Bookmark{}
	for rows.Next() {
		b := &models.Bookmark{}
		if err := rows.Scan(&b.ID, &b.CustomerID, &b.ProfessionalID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, rows.Err()
}

// CreateBookmark inserts b and fills its ID and CreatedAt
func (r *PostgresRepository) CreateBookmark(ctx context.Context, b *models.Bookmark) error {
	query := `
		INSERT INTO bookmarks (customer_id, professional_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, b.CustomerID, b.ProfessionalID).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateBookmark
		}
		return fmt.Errorf("failed to create bookmark: %w", err)
	}

	return nil
}

// DeleteBookmark removes a bookmark owned by customerID
func (r *PostgresRepository) DeleteBookmark(ctx context.Context, customerID string, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = $1 AND customer_id = $2`,
		id, customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if n == 0 {
		return ErrBookmarkNotFound
	}

	return nil
}
