package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/abgdnv/buyflow/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeCatalog is a canned catalog.Client keyed by skip offset.
type fakeCatalog struct {
	mu         sync.Mutex
	pages      map[int]*catalog.Page
	categories []catalog.Category
	listErr    error
	catErr     error
	listCalls  []int
}

func (f *fakeCatalog) List(_ context.Context, _, skip int) (*catalog.Page, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, skip)
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	page, ok := f.pages[skip]
	if !ok {
		return &catalog.Page{}, nil
	}
	return page, nil
}

func (f *fakeCatalog) FindByID(_ context.Context, _ int) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func (f *fakeCatalog) Categories(_ context.Context) ([]catalog.Category, error) {
	if f.catErr != nil {
		return nil, f.catErr
	}
	return f.categories, nil
}

func (f *fakeCatalog) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.listCalls...)
}

// threePageCatalog returns a catalog of 6 products split over 3 pages of 2.
func threePageCatalog() *fakeCatalog {
	page := func(skip int, products ...catalog.Product) *catalog.Page {
		return &catalog.Page{Products: products, Total: 6, Skip: skip, Limit: 2}
	}
	return &fakeCatalog{
		pages: map[int]*catalog.Page{
			0: page(0,
				catalog.Product{ID: 1, Title: "Lipstick", Category: "beauty"},
				catalog.Product{ID: 2, Title: "Mascara", Category: "beauty"}),
			2: page(2,
				catalog.Product{ID: 3, Title: "Laptop", Category: "laptops"},
				catalog.Product{ID: 4, Title: "Mouse", Category: "laptops"}),
			4: page(4,
				catalog.Product{ID: 5, Title: "Apple", Category: "groceries"},
				catalog.Product{ID: 6, Title: "Bread", Category: "groceries"}),
		},
		categories: []catalog.Category{
			{Slug: "beauty", Name: "Beauty"},
			{Slug: "laptops", Name: "Laptops"},
			{Slug: "groceries", Name: "Groceries"},
		},
	}
}

func Test_Session_StartLoadsFirstPage(t *testing.T) {
	// given
	client := threePageCatalog()
	session := NewSession(client, 2, testLogger())
	assert.Equal(t, StateIdle, session.View().State)

	// when
	err := session.Start(context.Background())

	// then
	require.NoError(t, err)
	view := session.View()
	assert.Equal(t, StateReady, view.State)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 3, view.TotalPages)
	assert.Equal(t, 6, view.TotalItems)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 1, view.Items[0].ID)
	// only the fetched page's category is active
	require.Len(t, view.Categories, 1)
	assert.Equal(t, "beauty", view.Categories[0].Slug)
}

func Test_Session_CategoryListFailureDegrades(t *testing.T) {
	// given
	client := threePageCatalog()
	client.catErr = catalog.ErrUnavailable
	session := NewSession(client, 2, testLogger())

	// when
	err := session.Start(context.Background())

	// then: products load, the category filter just has nothing to offer
	require.NoError(t, err)
	view := session.View()
	assert.Equal(t, StateReady, view.State)
	assert.Empty(t, view.Categories)
	assert.Len(t, view.Items, 2)
}

func Test_Session_PageLoadFailureAndRetry(t *testing.T) {
	// given
	client := threePageCatalog()
	client.listErr = catalog.ErrUnavailable
	session := NewSession(client, 2, testLogger())

	// when
	err := session.Start(context.Background())

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	view := session.View()
	assert.Equal(t, StateFailed, view.State)
	assert.NotEmpty(t, view.Error)

	// when the catalog recovers, a manual retry goes back through loading
	client.listErr = nil
	require.NoError(t, session.Retry(context.Background()))

	// then
	view = session.View()
	assert.Equal(t, StateReady, view.State)
	assert.Empty(t, view.Error)
	assert.Len(t, view.Items, 2)
}

func Test_Session_SetPageFetchesAndClamps(t *testing.T) {
	testCases := []struct {
		name     string
		page     int
		wantPage int
		wantSkip int
	}{
		{name: "valid page", page: 2, wantPage: 2, wantSkip: 2},
		{name: "above range clamps to last", page: 99, wantPage: 3, wantSkip: 4},
		{name: "below range clamps to first", page: -1, wantPage: 1, wantSkip: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			client := threePageCatalog()
			session := NewSession(client, 2, testLogger())
			require.NoError(t, session.Start(context.Background()))

			// when
			require.NoError(t, session.SetPage(context.Background(), tc.page))

			// then
			view := session.View()
			assert.Equal(t, StateReady, view.State)
			assert.Equal(t, tc.wantPage, view.Page)
			calls := client.calls()
			assert.Equal(t, tc.wantSkip, calls[len(calls)-1])
		})
	}
}

func Test_Session_SetPageToCurrentIsNoOp(t *testing.T) {
	// given
	client := threePageCatalog()
	session := NewSession(client, 2, testLogger())
	require.NoError(t, session.Start(context.Background()))
	fetches := len(client.calls())

	// when
	require.NoError(t, session.SetPage(context.Background(), 1))

	// then
	assert.Len(t, client.calls(), fetches)
}

func Test_Session_FilterChangeResetsPage(t *testing.T) {
	testCases := []struct {
		name   string
		change func(s *Session) error
	}{
		{name: "category change", change: func(s *Session) error {
			return s.SetCategory(context.Background(), "groceries")
		}},
		{name: "search change", change: func(s *Session) error {
			return s.SetSearch(context.Background(), "apple")
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given a session sitting on page 3
			client := threePageCatalog()
			session := NewSession(client, 2, testLogger())
			require.NoError(t, session.Start(context.Background()))
			require.NoError(t, session.SetPage(context.Background(), 3))
			require.Equal(t, 3, session.View().Page)

			// when
			require.NoError(t, tc.change(session))

			// then
			view := session.View()
			assert.Equal(t, 1, view.Page)
			calls := client.calls()
			assert.Equal(t, 0, calls[len(calls)-1], "filter change must refetch from the first page")
		})
	}
}

// Filtering acts on the fetched page only, so a search can miss matches that
// live on other pages.
func Test_Session_FilterIsPageScoped(t *testing.T) {
	// given: "Apple" exists only on page 3
	client := threePageCatalog()
	session := NewSession(client, 2, testLogger())
	require.NoError(t, session.Start(context.Background()))

	// when: searching from page 1 (the search resets to page 1 and refetches it)
	require.NoError(t, session.SetSearch(context.Background(), "apple"))

	// then: no results, even though the catalog has a match on another page
	view := session.View()
	assert.Equal(t, StateReady, view.State)
	assert.Empty(t, view.Items)
	assert.Equal(t, 6, view.TotalItems)
}

func Test_Session_ViewDerivesPromotionalSubsets(t *testing.T) {
	// given
	client := &fakeCatalog{
		pages: map[int]*catalog.Page{
			0: {
				Products: []catalog.Product{
					{ID: 1, Title: "A", Rating: 4.9, DiscountPercentage: 20},
					{ID: 2, Title: "B", Rating: 3.0, DiscountPercentage: 30},
					{ID: 3, Title: "C", Rating: 4.6, DiscountPercentage: 12},
				},
				Total: 3,
			},
		},
	}
	session := NewSession(client, 20, testLogger())
	require.NoError(t, session.Start(context.Background()))

	// when
	view := session.View()

	// then
	require.Len(t, view.Featured, 2)
	assert.Equal(t, []int{1, 3}, []int{view.Featured[0].ID, view.Featured[1].ID})
	require.Len(t, view.Deals, 2)
	assert.Equal(t, []int{2, 1}, []int{view.Deals[0].ID, view.Deals[1].ID})
}

// gatedCatalog blocks each List call until the test releases its skip gate,
// reporting call starts on started.
type gatedCatalog struct {
	pages   map[int]*catalog.Page
	gates   map[int]chan struct{}
	started chan int
}

func (g *gatedCatalog) List(_ context.Context, _, skip int) (*catalog.Page, error) {
	g.started <- skip
	if gate, ok := g.gates[skip]; ok {
		<-gate
	}
	return g.pages[skip], nil
}

func (g *gatedCatalog) FindByID(_ context.Context, _ int) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func (g *gatedCatalog) Categories(_ context.Context) ([]catalog.Category, error) {
	return nil, nil
}

// A slow fetch for an earlier page resolving after a faster fetch for a
// later page must not clobber the later page (last-request-wins).
func Test_Session_StaleResponseIsDiscarded(t *testing.T) {
	// given: page fetches for skip 2 and 4 block until released
	source := threePageCatalog()
	client := &gatedCatalog{
		pages:   source.pages,
		gates:   map[int]chan struct{}{2: make(chan struct{}), 4: make(chan struct{})},
		started: make(chan int, 8),
	}
	session := NewSession(client, 2, testLogger())
	require.NoError(t, session.Start(context.Background()))
	require.Equal(t, 0, <-client.started)

	// when: page 2 is requested first but its response arrives last
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = session.SetPage(context.Background(), 2)
	}()
	require.Equal(t, 2, <-client.started, "page 2 fetch must be in flight first")

	go func() {
		defer wg.Done()
		_ = session.SetPage(context.Background(), 3)
	}()
	require.Equal(t, 4, <-client.started, "page 3 fetch must be in flight")

	close(client.gates[4]) // page 3 resolves first
	close(client.gates[2]) // page 2 resolves last, stale
	wg.Wait()

	// then: the latest requested page owns the visible state
	view := session.View()
	assert.Equal(t, StateReady, view.State)
	assert.Equal(t, 3, view.Page)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 5, view.Items[0].ID)
}

func Test_Session_LoadFailurePropagates(t *testing.T) {
	// given
	client := &fakeCatalog{listErr: errors.New("boom")}
	session := NewSession(client, 20, testLogger())

	// when
	err := session.Start(context.Background())

	// then: the session reports whatever typed failure the client produced
	require.Error(t, err)
	assert.Equal(t, StateFailed, session.View().State)
}
