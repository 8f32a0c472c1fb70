package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/aluiziolira/go-book-browser/config"
	"github.com/aluiziolira/go-book-browser/models"
	"github.com/aluiziolira/go-book-browser/paginate"
	"github.com/aluiziolira/go-book-browser/parser"
)

var (
	// ErrStaleResponse is returned by a search superseded by a newer one.
	ErrStaleResponse = errors.New("pipeline: stale response discarded")
)

// Fetcher looks up raw volumes for a genre and free-text query.
type Fetcher interface {
	Fetch(ctx context.Context, genre, query string) ([]models.Volume, error)
}

// View draws the current page and its controls.
type View interface {
	RenderBookList(books []models.Book)
	RenderPagination(totalPages, currentPage int, onSelect func(page int))
	RenderError(message string)
}

// Pipeline owns the result set and pagination state and drives
// fetch, transform, paginate and render.
type Pipeline struct {
	fetcher Fetcher
	opts    parser.Options

	mu     sync.Mutex // guards everything below
	view   View
	books  []models.Book
	page   paginate.State
	genre  string
	query  string
	seq    uint64
	cancel context.CancelFunc

	metrics metrics
}

// NewPipeline wires a fetcher and a view using the page size, placeholder
// cover and locale from cfg.
func NewPipeline(fetcher Fetcher, view View, cfg *config.Config) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		view:    view,
		opts: parser.Options{
			PlaceholderCover: cfg.PlaceholderCover,
			Language:         cfg.LanguageTag(),
		},
		page:    paginate.NewState(cfg.PageSize),
		metrics: newMetrics(),
	}
}

// Search runs the full pipeline for genre and query. The current page goes
// back to 1, an in-flight search is cancelled, and only the latest search
// may replace the result set; older ones return ErrStaleResponse.
func (p *Pipeline) Search(ctx context.Context, genre, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	genre = strings.TrimSpace(genre)
	query = strings.TrimSpace(query)

	p.mu.Lock()
	p.seq++
	seq := p.seq
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.page.Current = 1
	p.genre, p.query = genre, query
	p.mu.Unlock()
	defer cancel()

	p.metrics.incrementSearches()
	volumes, err := p.fetcher.Fetch(ctx, genre, query)

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		p.metrics.incrementStale()
		slog.Debug("discarding stale search response",
			slog.Uint64("seq", seq),
			slog.Uint64("latest", p.seq),
			slog.String("genre", genre),
			slog.String("query", query),
		)
		return ErrStaleResponse
	}
	p.cancel = nil

	if err != nil {
		p.metrics.incrementFailures()
		p.books = nil
		p.page.Reset(0)
		p.view.RenderError(err.Error())
		return err
	}

	p.books = parser.Transform(volumes, query, p.opts)
	p.page.Reset(len(p.books))
	p.renderLocked()

	slog.Info("search completed",
		slog.String("genre", genre),
		slog.String("query", query),
		slog.Int("volumes", len(volumes)),
		slog.Int("books", len(p.books)),
		slog.Int("pages", p.page.Total),
	)
	return nil
}

// GoToPage moves to page n and re-renders the list and controls without
// fetching.
func (p *Pipeline) GoToPage(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.page.GoTo(n); err != nil {
		return err
	}
	p.metrics.incrementPageViews()
	p.renderLocked()
	return nil
}

// SetView replaces the view used by later renders.
func (p *Pipeline) SetView(view View) {
	p.mu.Lock()
	p.view = view
	p.mu.Unlock()
}

// Books returns a copy of the current result set.
func (p *Pipeline) Books() []models.Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Book, len(p.books))
	copy(out, p.books)
	return out
}

// PageItems returns the books on the current page.
func (p *Pipeline) PageItems() []models.Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := paginate.Slice(p.books, p.page.Current, p.page.PageSize)
	out := make([]models.Book, len(items))
	copy(out, items)
	return out
}

// CurrentPage returns the 1-indexed current page.
func (p *Pipeline) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page.Current
}

// TotalPages returns the page count of the current result set.
func (p *Pipeline) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page.Total
}

// Query returns the genre and query of the latest search.
func (p *Pipeline) Query() (genre, query string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.genre, p.query
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) renderLocked() {
	items := paginate.Slice(p.books, p.page.Current, p.page.PageSize)
	p.view.RenderBookList(items)
	p.view.RenderPagination(p.page.Total, p.page.Current, p.selectPage)
}

func (p *Pipeline) selectPage(page int) {
	if err := p.GoToPage(page); err != nil {
		slog.Warn("page selection rejected", slog.Int("page", page), slog.Any("error", err))
	}
}

type metrics struct {
	mu        sync.Mutex
	searches  int64
	failures  int64
	stale     int64
	pageViews int64
}

func newMetrics() metrics {
	return metrics{}
}

func (m *metrics) incrementSearches() {
	m.mu.Lock()
	m.searches++
	m.mu.Unlock()
}

func (m *metrics) incrementFailures() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *metrics) incrementStale() {
	m.mu.Lock()
	m.stale++
	m.mu.Unlock()
}

func (m *metrics) incrementPageViews() {
	m.mu.Lock()
	m.pageViews++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]interface{}{
		"searches":        m.searches,
		"fetch_failures":  m.failures,
		"stale_responses": m.stale,
		"page_views":      m.pageViews,
	}
}
