// Package cache holds listing responses keyed by encoded filter state.
package cache

import (
	"context"

	"github.com/terra-clan/build-directory/internal/models"
)

// Store maps a listing key to the last successful response for it.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached page for key; ok is false on a miss
	Get(ctx context.Context, key string) (page *models.ResultPage, ok bool, err error)
	// Set stores page under key, replacing any previous entry
	Set(ctx context.Context, key string, page *models.ResultPage) error
	// InvalidateAll drops every entry
	InvalidateAll(ctx context.Context) error
	// Name identifies the store in logs and metrics
	Name() string
}
