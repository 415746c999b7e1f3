// Package controller owns the filter and pagination state of one listing
// session and keeps it in sync with the remote listing.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/listing"
	"github.com/terra-clan/build-directory/internal/metrics"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/query"
)

// Status is the sync state of a controller
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

var (
	ErrUnknownField = errors.New("unknown filter field")
	ErrInvalidValue = errors.New("invalid filter value")
)

// View is a consistent snapshot of a controller
type View struct {
	Filters models.FilterState
	Query   string
	// Result is the last successful page; nil before the first success
	Result *models.ResultPage
	Status Status
	Err    error
	// Stale is true when Result was fetched for a different filter state
	Stale bool
}

// Navigator receives the canonical query string whenever the controller
// changes the URL. It runs under the controller lock and must not call back
// into the controller.
type Navigator func(query string)

// Option configures a Controller
type Option func(*Controller)

// WithNavigator sets the URL callback
func WithNavigator(nav Navigator) Option {
	return func(c *Controller) {
		c.navigate = nav
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithContext derives every fetch from ctx, so cancelling it aborts the
// in-flight request. The controller stays usable but later fetches fail.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.parent = ctx
	}
}

// Controller serializes state transitions under a mutex. Fetches run in
// their own goroutines and only the response to the latest request is applied.
type Controller struct {
	fetcher  listing.Fetcher
	navigate Navigator
	log      *zap.Logger

	mu            sync.Mutex
	filters       models.FilterState
	result        *models.ResultPage
	resultFilters models.FilterState
	status        Status
	err           error
	seq           uint64
	cancel        context.CancelFunc
	subs          []chan View
	closed        bool

	parent   context.Context
	base     context.Context
	stopBase context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an idle controller holding the default filter state
func New(fetcher listing.Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		navigate: func(string) {},
		log:      zap.NewNop(),
		filters:  models.DefaultFilterState(),
		status:   StatusIdle,
		parent:   context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.base, c.stopBase = context.WithCancel(c.parent)
	c.log = c.log.Named("controller")
	return c
}

// Mount decodes the initial query and starts the first fetch
func (c *Controller) Mount(rawQuery string) {
	filters := c.decode(rawQuery)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(filters, false)
}

// Navigate applies an externally changed URL such as back/forward
// navigation. An unchanged state does not refetch unless the last fetch failed.
func (c *Controller) Navigate(rawQuery string) {
	filters := c.decode(rawQuery)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sameLocked(filters) {
		return
	}
	c.startLocked(filters, false)
}

// SetFilter sets one field from its raw URL value and resets page to 1.
// An empty value clears the field.
func (c *Controller) SetFilter(name, value string) error {
	field, ok := models.ParseFilterField(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := query.SetField(c.filters, field, value)
	if !ok {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, field, value)
	}
	next.Page = 1
	c.changeLocked(next)
	return nil
}

// ClearFilter resets one field, keeping every other field, and resets page to 1
func (c *Controller) ClearFilter(name string) error {
	field, ok := models.ParseFilterField(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.filters.Without(field)
	next.Page = 1
	c.changeLocked(next)
	return nil
}

// ClearAll resets every field
func (c *Controller) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeLocked(models.DefaultFilterState())
}

// SetPage moves to page n keeping every filter. Pages outside
// [1, totalPages] of the last successful fetch are ignored; before any
// success the only valid page is 1. It reports whether a fetch was started.
func (c *Controller) SetPage(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalPages := 1
	if c.result != nil {
		totalPages = c.result.TotalPages
	}
	if n < 1 || n > totalPages {
		c.log.Debug("page out of range ignored", zap.Int("page", n), zap.Int("total_pages", totalPages))
		return false
	}

	next := c.filters
	next.Page = n
	return c.changeLocked(next)
}

// Retry re-issues the request for the current state
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(c.filters, false)
}

// View returns a snapshot of the current state
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Wait blocks until no fetch is outstanding
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Subscribe returns a channel receiving a view after every transition.
// The channel keeps only the newest undelivered view and is closed by Close.
func (c *Controller) Subscribe() <-chan View {
	ch := make(chan View, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// Close cancels any in-flight fetch, waits for it and closes subscriptions
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.seq++
	c.stopBase()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.mu.Unlock()
}

func (c *Controller) decode(rawQuery string) models.FilterState {
	filters, ignored := query.DecodeWithReport(rawQuery)
	for _, ig := range ignored {
		c.log.Debug("query parameter ignored",
			zap.String("key", ig.Key),
			zap.String("value", ig.Value),
			zap.String("reason", ig.Reason),
		)
	}
	return filters
}

// sameLocked reports whether filters match the current state and the last
// fetch did not fail
func (c *Controller) sameLocked(filters models.FilterState) bool {
	return c.status != StatusError && query.Encode(filters) == query.Encode(c.filters)
}

// changeLocked applies a user intent: the URL follows the new state
func (c *Controller) changeLocked(next models.FilterState) bool {
	if c.sameLocked(next) {
		return false
	}
	if !c.startLocked(next, false) {
		return false
	}
	c.navigate(query.Encode(next))
	return true
}

// startLocked makes filters current and fetches them, superseding any
// outstanding request
func (c *Controller) startLocked(filters models.FilterState, clampRefetch bool) bool {
	if c.closed {
		return false
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.seq++
	seq := c.seq
	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel

	c.filters = filters
	c.status = StatusSyncing
	c.err = nil
	c.publishLocked()

	c.wg.Add(1)
	go c.fetch(ctx, seq, filters, clampRefetch)
	return true
}

func (c *Controller) fetch(ctx context.Context, seq uint64, filters models.FilterState, clampRefetch bool) {
	defer c.wg.Done()

	page, err := c.fetcher.FetchListings(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		metrics.SupersededResponses.Inc()
		c.log.Debug("superseded response discarded", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		return
	}
	c.cancel()
	c.cancel = nil

	if err != nil {
		c.status = StatusError
		c.err = err
		c.log.Warn("listing sync failed", zap.String("query", query.Encode(filters)), zap.Error(err))
		c.publishLocked()
		return
	}

	page.Normalize()
	c.result = page
	c.resultFilters = filters

	if page.TotalPages < filters.Page {
		clamped := filters
		clamped.Page = page.TotalPages
		metrics.PageClamps.Inc()
		c.log.Debug("page clamped",
			zap.Int("requested", filters.Page),
			zap.Int("total_pages", page.TotalPages),
			zap.Bool("refetch", !clampRefetch),
		)
		c.navigate(query.Encode(clamped))

		if !clampRefetch {
			c.startLocked(clamped, true)
			return
		}
		// the refetch is done once; a still shrinking listing keeps its page
		c.filters = clamped
	}

	c.status = StatusIdle
	c.publishLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Filters: c.filters,
		Query:   query.Encode(c.filters),
		Status:  c.status,
		Err:     c.err,
	}
	if c.result != nil {
		r := *c.result
		r.Items = append([]models.Professional(nil), c.result.Items...)
		r.Normalize()
		v.Result = &r
		v.Stale = query.Encode(c.resultFilters) != v.Query
	}
	return v
}

// publishLocked replaces any undelivered view with the current one
func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	v := c.viewLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
