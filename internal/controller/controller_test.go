package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/terra-clan/build-directory/internal/listing"
	"github.com/terra-clan/build-directory/internal/metrics"
	"github.com/terra-clan/build-directory/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fetchResult struct {
	page *models.ResultPage
	err  error
}

type fetchCall struct {
	ctx     context.Context
	filters models.FilterState
	resp    chan fetchResult
}

func (c *fetchCall) respond(page *models.ResultPage, err error) {
	c.resp <- fetchResult{page: page, err: err}
}

// fakeFetcher hands every request to the test, which decides when and how
// it resolves
type fakeFetcher struct {
	calls        chan *fetchCall
	honourCancel bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *fetchCall, 16)}
}

func (f *fakeFetcher) FetchListings(ctx context.Context, filters models.FilterState) (*models.ResultPage, error) {
	call := &fetchCall{ctx: ctx, filters: filters, resp: make(chan fetchResult, 1)}
	f.calls <- call

	if f.honourCancel {
		select {
		case r := <-call.resp:
			return r.page, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := <-call.resp
	return r.page, r.err
}

func (f *fakeFetcher) next(t *testing.T) *fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fetch")
		return nil
	}
}

func (f *fakeFetcher) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected fetch for %+v", call.filters)
	default:
	}
}

// navLog records every URL the controller writes
type navLog struct {
	mu   sync.Mutex
	urls []string
}

func (n *navLog) record(q string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, q)
}

func (n *navLog) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

func resultPage(totalPages, totalCount int, ids ...int64) *models.ResultPage {
	page := &models.ResultPage{TotalPages: totalPages, TotalCount: totalCount, Items: []models.Professional{}}
	for _, id := range ids {
		page.Items = append(page.Items, models.Professional{ID: id})
	}
	return page
}

func newTestController(t *testing.T) (*Controller, *fakeFetcher, *navLog) {
	t.Helper()
	fetcher := newFakeFetcher()
	nav := &navLog{}
	c := New(fetcher, WithNavigator(nav.record), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(c.Close)
	return c, fetcher, nav
}

func TestController_MountFetchesDecodedState(t *testing.T) {
	c, fetcher, nav := newTestController(t)

	c.Mount("type=architect&location=kamshet&page=2")
	assert.Equal(t, StatusSyncing, c.View().Status)

	call := fetcher.next(t)
	assert.Equal(t, models.ProfessionArchitect, call.filters.Profession)
	assert.Equal(t, "kamshet", call.filters.Location)
	assert.Equal(t, 2, call.filters.Page)

	call.respond(resultPage(3, 30, 1, 2), nil)
	c.Wait()

	v := c.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, "profession=architect&location=kamshet&page=2", v.Query)
	require.NotNil(t, v.Result)
	assert.Len(t, v.Result.Items, 2)
	assert.False(t, v.Stale)
	assert.Empty(t, nav.all(), "mount does not rewrite the URL")
	fetcher.assertNoCall(t)
}

func TestController_ClampRefetchesOnce(t *testing.T) {
	c, fetcher, nav := newTestController(t)
	clampsBefore := testutil.ToFloat64(metrics.PageClamps)

	c.Mount("location=kamshet&page=5")
	first := fetcher.next(t)
	assert.Equal(t, 5, first.filters.Page)
	first.respond(resultPage(3, 25), nil)

	second := fetcher.next(t)
	assert.Equal(t, 3, second.filters.Page)
	assert.Equal(t, "kamshet", second.filters.Location)
	assert.Equal(t, StatusSyncing, c.View().Status)

	second.respond(resultPage(3, 25, 21, 22, 23), nil)
	c.Wait()

	v := c.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, 3, v.Filters.Page)
	assert.Len(t, v.Result.Items, 3)
	assert.Equal(t, []string{"location=kamshet&page=3"}, nav.all())
	assert.Equal(t, clampsBefore+1, testutil.ToFloat64(metrics.PageClamps))
	fetcher.assertNoCall(t)
}

func TestController_ClampRefetchIsNotRepeated(t *testing.T) {
	c, fetcher, nav := newTestController(t)

	c.Mount("page=5")
	fetcher.next(t).respond(resultPage(3, 25), nil)

	// listing shrank again between the two requests
	fetcher.next(t).respond(resultPage(2, 15), nil)
	c.Wait()

	v := c.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.Equal(t, 2, v.Filters.Page)
	assert.Equal(t, "page=2", v.Query)
	assert.Equal(t, []string{"page=3", "page=2"}, nav.all())
	fetcher.assertNoCall(t)
}

func TestController_LatestRequestWins(t *testing.T) {
	c, fetcher, _ := newTestController(t)
	supersededBefore := testutil.ToFloat64(metrics.SupersededResponses)

	c.Mount("")
	fetcher.next(t).respond(resultPage(1, 1, 1), nil)
	c.Wait()

	require.NoError(t, c.SetFilter("location", "lonavala"))
	a := fetcher.next(t)
	require.NoError(t, c.SetFilter("location", "kamshet"))
	b := fetcher.next(t)

	assert.Error(t, a.ctx.Err(), "superseded request is cancelled")

	b.respond(resultPage(1, 1, 20), nil)
	require.Eventually(t, func() bool { return c.View().Status == StatusIdle }, time.Second, time.Millisecond)
	a.respond(resultPage(4, 40, 10), nil)
	c.Wait()

	v := c.View()
	assert.Equal(t, "kamshet", v.Filters.Location)
	require.Len(t, v.Result.Items, 1)
	assert.Equal(t, int64(20), v.Result.Items[0].ID)
	assert.Equal(t, 1, v.Result.TotalPages)
	assert.Equal(t, supersededBefore+1, testutil.ToFloat64(metrics.SupersededResponses))
}

func TestController_SupersededResponseDoesNotClamp(t *testing.T) {
	c, fetcher, nav := newTestController(t)

	c.Mount("page=5")
	stale := fetcher.next(t)

	require.NoError(t, c.SetFilter("profession", "contractor"))
	latest := fetcher.next(t)

	stale.respond(resultPage(1, 0), nil)
	latest.respond(resultPage(2, 14, 1), nil)
	c.Wait()

	v := c.View()
	assert.Equal(t, 1, v.Filters.Page)
	assert.Equal(t, models.ProfessionContractor, v.Filters.Profession)
	assert.Equal(t, []string{"profession=contractor"}, nav.all())
	fetcher.assertNoCall(t)
}

func TestController_ClearFilterKeepsOtherFields(t *testing.T) {
	c, fetcher, nav := newTestController(t)

	c.Mount("profession=architect&location=kamshet&search=villa&page=2")
	fetcher.next(t).respond(resultPage(3, 30), nil)
	c.Wait()

	require.NoError(t, c.ClearFilter("location"))
	call := fetcher.next(t)
	assert.Equal(t, models.ProfessionArchitect, call.filters.Profession)
	assert.Equal(t, "villa", call.filters.Search)
	assert.Empty(t, call.filters.Location)
	assert.Equal(t, 1, call.filters.Page)
	call.respond(resultPage(1, 3), nil)
	c.Wait()

	assert.Equal(t, []string{"profession=architect&search=villa"}, nav.all())

	c.ClearAll()
	call = fetcher.next(t)
	assert.Equal(t, models.DefaultFilterState(), call.filters)
	call.respond(resultPage(5, 50), nil)
	c.Wait()
	assert.Equal(t, "", nav.all()[1])
}

func TestController_SetPage(t *testing.T) {
	c, fetcher, nav := newTestController(t)

	assert.False(t, c.SetPage(2), "only page 1 exists before any fetch")

	c.Mount("search=bungalow")
	fetcher.next(t).respond(resultPage(3, 30), nil)
	c.Wait()

	assert.False(t, c.SetPage(0))
	assert.False(t, c.SetPage(4))
	assert.False(t, c.SetPage(1), "current page is a no-op")
	fetcher.assertNoCall(t)

	require.True(t, c.SetPage(3))
	call := fetcher.next(t)
	assert.Equal(t, 3, call.filters.Page)
	assert.Equal(t, "bungalow", call.filters.Search)
	call.respond(resultPage(3, 30), nil)
	c.Wait()

	assert.Equal(t, []string{"search=bungalow&page=3"}, nav.all())
}

func TestController_SetFilterResetsPage(t *testing.T) {
	c, fetcher, _ := newTestController(t)

	c.Mount("page=3")
	fetcher.next(t).respond(resultPage(4, 40), nil)
	c.Wait()

	require.NoError(t, c.SetFilter("budget", "500000-1000000"))
	call := fetcher.next(t)
	assert.Equal(t, 1, call.filters.Page)
	require.NotNil(t, call.filters.BudgetRange)
	assert.Equal(t, int64(500000), call.filters.BudgetRange.Min)
	call.respond(resultPage(1, 2), nil)
	c.Wait()
}

func TestController_SetFilterRejectsBadInput(t *testing.T) {
	c, fetcher, _ := newTestController(t)

	assert.ErrorIs(t, c.SetFilter("colour", "blue"), ErrUnknownField)
	assert.ErrorIs(t, c.SetFilter("profession", "plumber"), ErrInvalidValue)
	assert.ErrorIs(t, c.SetFilter("budget", "lots"), ErrInvalidValue)
	assert.ErrorIs(t, c.ClearFilter("colour"), ErrUnknownField)
	fetcher.assertNoCall(t)
}

func TestController_ErrorKeepsLastResult(t *testing.T) {
	c, fetcher, _ := newTestController(t)

	c.Mount("location=kamshet")
	fetcher.next(t).respond(resultPage(2, 20, 1, 2), nil)
	c.Wait()

	require.NoError(t, c.SetFilter("search", "farmhouse"))
	call := fetcher.next(t)
	call.respond(nil, &listing.FetchFailedError{Filters: call.filters, StatusCode: 502, Err: errors.New("bad gateway")})
	c.Wait()

	v := c.View()
	assert.Equal(t, StatusError, v.Status)
	assert.ErrorIs(t, v.Err, listing.ErrFetchFailed)
	require.NotNil(t, v.Result)
	assert.Len(t, v.Result.Items, 2)
	assert.True(t, v.Stale)
	assert.Equal(t, "farmhouse", v.Filters.Search)

	c.Retry()
	v = c.View()
	assert.Equal(t, StatusSyncing, v.Status)
	assert.NoError(t, v.Err)
	fetcher.next(t).respond(resultPage(1, 1, 9), nil)
	c.Wait()

	v = c.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.False(t, v.Stale)
}

// failedController leaves c in Error with a two-page result for
// location=kamshet still on display
func failedController(t *testing.T) (*Controller, *fakeFetcher, *navLog) {
	t.Helper()
	c, fetcher, nav := newTestController(t)

	c.Mount("location=kamshet")
	fetcher.next(t).respond(resultPage(2, 20, 1, 2), nil)
	c.Wait()

	require.True(t, c.SetPage(2))
	call := fetcher.next(t)
	call.respond(nil, &listing.FetchFailedError{Filters: call.filters, StatusCode: 503, Err: errors.New("unavailable")})
	c.Wait()
	require.Equal(t, StatusError, c.View().Status)
	return c, fetcher, nav
}

func TestController_FilterChangeLeavesError(t *testing.T) {
	c, fetcher, _ := failedController(t)

	require.NoError(t, c.SetFilter("profession", "contractor"))
	v := c.View()
	assert.Equal(t, StatusSyncing, v.Status)
	assert.NoError(t, v.Err)
	assert.Equal(t, 1, v.Filters.Page)

	call := fetcher.next(t)
	assert.Equal(t, models.ProfessionContractor, call.filters.Profession)
	assert.Equal(t, "kamshet", call.filters.Location)
	call.respond(resultPage(1, 1, 5), nil)
	c.Wait()

	v = c.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.NoError(t, v.Err)
	require.Len(t, v.Result.Items, 1)
	assert.Equal(t, int64(5), v.Result.Items[0].ID)
	assert.False(t, v.Stale)
}

func TestController_PageChangeLeavesError(t *testing.T) {
	c, fetcher, nav := failedController(t)

	require.True(t, c.SetPage(1))
	v := c.View()
	assert.Equal(t, StatusSyncing, v.Status)
	assert.NoError(t, v.Err)

	call := fetcher.next(t)
	assert.Equal(t, 1, call.filters.Page)
	call.respond(resultPage(2, 20, 3, 4), nil)
	c.Wait()

	v = c.View()
	assert.Equal(t, StatusIdle, v.Status)
	assert.NoError(t, v.Err)
	assert.Len(t, v.Result.Items, 2)
	assert.Equal(t, []string{"location=kamshet&page=2", "location=kamshet"}, nav.all())
}

func TestController_ContextCancelsFetch(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.honourCancel = true
	ctx, cancel := context.WithCancel(context.Background())
	c := New(fetcher, WithContext(ctx), WithLogger(zaptest.NewLogger(t)))
	defer c.Close()

	c.Mount("location=kamshet")
	call := fetcher.next(t)
	cancel()

	select {
	case <-call.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("fetch context not cancelled")
	}
	c.Wait()
	assert.Equal(t, StatusError, c.View().Status)
	assert.ErrorIs(t, c.View().Err, context.Canceled)
}

func TestController_NavigateSkipsUnchangedState(t *testing.T) {
	c, fetcher, nav := newTestController(t)

	c.Mount("location=kamshet")
	fetcher.next(t).respond(resultPage(1, 1), nil)
	c.Wait()

	c.Navigate("location=kamshet&page=1")
	fetcher.assertNoCall(t)

	c.Navigate("location=pawna")
	call := fetcher.next(t)
	assert.Equal(t, "pawna", call.filters.Location)
	call.respond(resultPage(1, 1), nil)
	c.Wait()
	assert.Empty(t, nav.all(), "navigation comes from the URL")
}

func TestController_SubscribeAndClose(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.honourCancel = true
	c := New(fetcher)

	views := c.Subscribe()
	c.Mount("")
	v := <-views
	assert.Equal(t, StatusSyncing, v.Status)

	fetcher.next(t).respond(resultPage(1, 0), nil)
	c.Wait()
	v = <-views
	assert.Equal(t, StatusIdle, v.Status)

	require.NoError(t, c.SetFilter("location", "kamshet"))
	fetcher.next(t)
	c.Close()

	for range views {
	}
	_, ok := <-c.Subscribe()
	assert.False(t, ok)
	assert.False(t, c.SetPage(1))
}
