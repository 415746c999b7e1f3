// Package listing fetches pages of professionals for a filter state.
package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/build-directory/internal/models"
)

// ErrFetchFailed marks every listing fetch failure
var ErrFetchFailed = errors.New("listing fetch failed")

// FetchFailedError is a failed fetch with the attempted filters attached so
// the caller can offer a retry of exactly the same request
type FetchFailedError struct {
	Filters    models.FilterState
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *FetchFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", ErrFetchFailed, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrFetchFailed, e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchFailed) true for any FetchFailedError
func (e *FetchFailedError) Is(target error) bool { return target == ErrFetchFailed }

// Fetcher returns one page of professionals matching filters.
//
// A zero-match search is not an error: it yields an empty page with
// TotalPages 1 and TotalCount 0.
type Fetcher interface {
	FetchListings(ctx context.Context, filters models.FilterState) (*models.ResultPage, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, filters models.FilterState) (*models.ResultPage, error)

func (f FetcherFunc) FetchListings(ctx context.Context, filters models.FilterState) (*models.ResultPage, error) {
	return f(ctx, filters)
}
