package listing

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/terra-clan/build-directory/internal/cache"
	"github.com/terra-clan/build-directory/internal/metrics"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/query"
)

// CachedFetcher serves repeated filter states from a cache.Store and
// collapses concurrent identical requests into one upstream fetch.
// Failures are never stored.
type CachedFetcher struct {
	next  Fetcher
	store cache.Store
	group singleflight.Group
	log   *zap.Logger
}

// NewCachedFetcher wraps next with store
func NewCachedFetcher(next Fetcher, store cache.Store, log *zap.Logger) *CachedFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedFetcher{
		next:  next,
		store: store,
		log:   log.Named("listing.cache"),
	}
}

// CacheKey is the store key for filters. Page is always part of the key so
// page 1 and the default state map to the same entry.
func CacheKey(filters models.FilterState) string {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	filters.Page = 1
	return query.Encode(filters) + "#" + strconv.Itoa(page)
}

// FetchListings returns the cached page for filters or fetches it
func (f *CachedFetcher) FetchListings(ctx context.Context, filters models.FilterState) (*models.ResultPage, error) {
	key := CacheKey(filters)

	page, ok, err := f.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(f.store.Name(), "error").Inc()
		f.log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	case ok:
		metrics.CacheLookups.WithLabelValues(f.store.Name(), "hit").Inc()
		return copyPage(page), nil
	default:
		metrics.CacheLookups.WithLabelValues(f.store.Name(), "miss").Inc()
	}

	// the shared fetch outlives any single caller so a cancelled caller
	// cannot fail the others waiting on the same key
	flightCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (interface{}, error) {
		fetched, err := f.next.FetchListings(flightCtx, filters)
		if err != nil {
			return nil, err
		}
		if err := f.store.Set(flightCtx, key, fetched); err != nil {
			f.log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, &FetchFailedError{Filters: filters, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			f.log.Debug("listing fetch shared", zap.String("key", key))
		}
		return copyPage(res.Val.(*models.ResultPage)), nil
	}
}

// InvalidateAll empties the cache. Writes that change ratings or review
// counts call it since they can move a professional on any listing page.
func (f *CachedFetcher) InvalidateAll(ctx context.Context) error {
	return f.store.InvalidateAll(ctx)
}

// copyPage gives every caller its own item slice
func copyPage(p *models.ResultPage) *models.ResultPage {
	out := *p
	out.Items = append([]models.Professional(nil), p.Items...)
	out.Normalize()
	return &out
}
