package query

import (
	"context"
	"log/slog"
	"sync"

	"github.com/abgdnv/buyflow/internal/catalog"
)

// State is the lifecycle state of a listing session.
type State int

const (
	// StateIdle means no fetch has been issued yet.
	StateIdle State = iota
	// StateLoading means a fetch is in flight.
	StateLoading
	// StateReady means the last fetch succeeded and View holds its result.
	StateReady
	// StateFailed means the last fetch failed; Retry transitions back to Loading.
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// View is a consistent snapshot of what the storefront should display.
type View struct {
	State      State              `json:"state"`
	Items      []catalog.Product  `json:"items"`
	Featured   []catalog.Product  `json:"featured"`
	Deals      []catalog.Product  `json:"deals"`
	Categories []catalog.Category `json:"categories"`
	Category   string             `json:"category"`
	Search     string             `json:"search"`
	Page       int                `json:"page"`
	TotalPages int                `json:"totalPages"`
	TotalItems int                `json:"totalItems"`
	Error      string             `json:"error,omitempty"`
}

// Session drives one product listing: it pulls pages from the catalog,
// applies category/search filters over the fetched page and derives the
// promotional subsets.
//
// Fetches are tagged with a monotonically increasing sequence number; a
// result is applied only while its tag still matches the latest issued
// request, so a slow fetch for an old page never clobbers a newer one
// (last-request-wins).
type Session struct {
	client   catalog.Client
	pageSize int
	logger   *slog.Logger

	mu         sync.Mutex
	seq        uint64
	state      State
	page       *catalog.Page
	categories []catalog.Category
	category   string
	term       string
	pageIndex  int
	lastErr    error
}

// NewSession creates an idle session. pageSize must be positive.
func NewSession(client catalog.Client, pageSize int, logger *slog.Logger) *Session {
	return &Session{
		client:    client,
		pageSize:  pageSize,
		logger:    logger.With("component", "query"),
		state:     StateIdle,
		pageIndex: 1,
	}
}

// Start loads the category list and the first product page. A category list
// failure only degrades the filter UI and is logged, not returned; a product
// page failure puts the session into StateFailed and is returned.
func (s *Session) Start(ctx context.Context) error {
	categories, err := s.client.Categories(ctx)
	if err != nil {
		s.logger.Warn("failed to load categories, filter degrades to none", "error", err)
	} else {
		s.mu.Lock()
		s.categories = categories
		s.mu.Unlock()
	}
	return s.load(ctx)
}

// SetPage requests the given 1-based page. Out-of-range values are clamped
// to [1, totalPages]. Requesting the page already displayed while Ready is a
// no-op; any other request goes through Loading with a fresh fetch.
func (s *Session) SetPage(ctx context.Context, page int) error {
	s.mu.Lock()
	page = s.clampLocked(page)
	if page == s.pageIndex && s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	s.pageIndex = page
	s.mu.Unlock()
	return s.load(ctx)
}

// SetCategory selects a category filter (empty slug clears it) and resets
// the page to 1 before fetching.
func (s *Session) SetCategory(ctx context.Context, slug string) error {
	s.mu.Lock()
	s.category = slug
	s.pageIndex = 1
	s.mu.Unlock()
	return s.load(ctx)
}

// SetSearch selects a search term (empty clears it) and resets the page to 1
// before fetching.
func (s *Session) SetSearch(ctx context.Context, term string) error {
	s.mu.Lock()
	s.term = term
	s.pageIndex = 1
	s.mu.Unlock()
	return s.load(ctx)
}

// Retry re-fetches the current page after a failure.
func (s *Session) Retry(ctx context.Context) error {
	return s.load(ctx)
}

// View returns a snapshot of the current listing state. Derived subsets are
// recomputed from the fetched page on every call; they carry no hidden state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		State:      s.state,
		Category:   s.category,
		Search:     s.term,
		Page:       s.pageIndex,
		TotalPages: 1,
	}
	if s.lastErr != nil {
		view.Error = s.lastErr.Error()
	}
	if s.page == nil {
		return view
	}

	view.Items = Filter(s.page.Products, s.category, s.term)
	view.Featured = Featured(s.page.Products)
	view.Deals = Deals(s.page.Products)
	view.Categories = ActiveCategories(s.categories, s.page.Products)
	view.TotalPages = TotalPages(s.page.Total, s.pageSize)
	view.TotalItems = s.page.Total
	return view
}

// load fetches the current page. The fetch is tagged with a new sequence
// number; if another request was issued while this one was in flight, its
// result is discarded on arrival.
func (s *Session) load(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state = StateLoading
	pageIndex := s.pageIndex
	s.mu.Unlock()

	skip := (pageIndex - 1) * s.pageSize
	page, err := s.client.List(ctx, s.pageSize, skip)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		// Superseded by a newer request; the newer one owns the visible state.
		s.logger.Debug("discarding stale page result", "page", pageIndex)
		return nil
	}

	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		s.logger.Warn("page load failed", "page", pageIndex, "error", err)
		return err
	}

	s.state = StateReady
	s.page = page
	s.lastErr = nil
	// The source may have shrunk since the page index was chosen.
	s.pageIndex = s.clampLocked(pageIndex)
	return nil
}

// clampLocked bounds page to [1, totalPages]. With no page fetched yet only
// the lower bound applies. Callers must hold s.mu.
func (s *Session) clampLocked(page int) int {
	if page < 1 {
		return 1
	}
	if s.page == nil {
		return page
	}
	if last := TotalPages(s.page.Total, s.pageSize); page > last {
		return last
	}
	return page
}
