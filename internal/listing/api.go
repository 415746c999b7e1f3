package listing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/metrics"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/pkg/client"
)

// APIFetcher reads listings from the marketplace HTTP API
type APIFetcher struct {
	client *client.Client
	log    *zap.Logger
}

// NewAPIFetcher creates a fetcher backed by the marketplace client
func NewAPIFetcher(c *client.Client, log *zap.Logger) *APIFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIFetcher{client: c, log: log.Named("listing.api")}
}

// FetchListings maps filters one-to-one onto request parameters
func (f *APIFetcher) FetchListings(ctx context.Context, filters models.FilterState) (*models.ResultPage, error) {
	start := time.Now()
	resp, err := f.client.ListProfessionals(ctx, ParamsFromFilters(filters))
	metrics.ListingFetchDuration.WithLabelValues("api").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ListingFetches.WithLabelValues("api", "error").Inc()
		failed := &FetchFailedError{Filters: filters, Err: err}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			failed.StatusCode = apiErr.StatusCode
		}
		f.log.Warn("listing fetch failed",
			zap.Int("page", filters.Page),
			zap.Int("status", failed.StatusCode),
			zap.Error(err),
		)
		return nil, failed
	}

	page := resp.ResultPage()
	outcome := "ok"
	if len(page.Items) == 0 {
		outcome = "empty"
	}
	metrics.ListingFetches.WithLabelValues("api", outcome).Inc()
	f.log.Debug("listing fetched",
		zap.Int("page", filters.Page),
		zap.Int("items", len(page.Items)),
		zap.Int("total_pages", page.TotalPages),
		zap.Int("total_count", page.TotalCount),
	)
	return page, nil
}

// ParamsFromFilters builds remote request parameters from a filter state
func ParamsFromFilters(filters models.FilterState) client.ListParams {
	params := client.ListParams{
		Profession:     string(filters.Profession),
		Location:       filters.Location,
		Specialization: filters.Specialization,
		Search:         filters.Search,
		SortBy:         string(filters.SortBy),
		Page:           filters.Page,
	}
	if b := filters.BudgetRange; b != nil {
		min, max := b.Min, b.Max
		params.BudgetMin = &min
		params.BudgetMax = &max
	}
	if params.Page < 1 {
		params.Page = 1
	}
	return params
}
