package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-book-browser/catalog"
	"github.com/aluiziolira/go-book-browser/config"
	"github.com/aluiziolira/go-book-browser/models"
	"github.com/aluiziolira/go-book-browser/paginate"
	"github.com/aluiziolira/go-book-browser/render"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, genre, query string) ([]models.Volume, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, genre, query string) ([]models.Volume, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, genre, query)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticFetcher(volumes []models.Volume, err error) *fakeFetcher {
	return &fakeFetcher{fn: func(context.Context, string, string) ([]models.Volume, error) {
		return volumes, err
	}}
}

func volume(title string, authors ...string) models.Volume {
	return models.Volume{VolumeInfo: models.VolumeInfo{Title: title, Authors: authors}}
}

func numberedVolumes(n int) []models.Volume {
	out := make([]models.Volume, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, volume(fmt.Sprintf("Book %02d", i), "Author"))
	}
	return out
}

func newTestPipeline(t *testing.T, fetcher Fetcher) (*Pipeline, *render.Document) {
	t.Helper()
	doc, err := render.NewDocument()
	require.NoError(t, err)
	return NewPipeline(fetcher, doc, config.DefaultConfig()), doc
}

func TestSearchRendersFirstPage(t *testing.T) {
	fetcher := staticFetcher(numberedVolumes(14), nil)
	p, doc := newTestPipeline(t, fetcher)

	require.NoError(t, p.Search(context.Background(), "fiction", ""))

	assert.Equal(t, 6, doc.BookCards())
	assert.Equal(t, 3, doc.PageControls())
	assert.Equal(t, 1, doc.ActivePage())
	assert.Equal(t, []string{"Book 01", "Book 02", "Book 03", "Book 04", "Book 05", "Book 06"}, doc.Titles())
	assert.Equal(t, 3, p.TotalPages())
	assert.Equal(t, 1, p.CurrentPage())
	assert.Len(t, p.Books(), 14)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPageClickDoesNotRefetch(t *testing.T) {
	fetcher := staticFetcher(numberedVolumes(14), nil)
	p, doc := newTestPipeline(t, fetcher)
	require.NoError(t, p.Search(context.Background(), "fiction", ""))

	require.NoError(t, doc.Click(3))

	assert.Equal(t, 3, p.CurrentPage())
	assert.Equal(t, 3, doc.ActivePage())
	assert.Equal(t, []string{"Book 13", "Book 14"}, doc.Titles())
	assert.Equal(t, 3, doc.PageControls())
	assert.Equal(t, 1, fetcher.callCount())

	require.NoError(t, doc.Click(2))
	assert.Equal(t, 6, doc.BookCards())
	assert.Equal(t, 1, fetcher.callCount())
	assert.EqualValues(t, 2, p.GetMetrics()["page_views"])
}

func TestSearchResetsToFirstPage(t *testing.T) {
	fetcher := staticFetcher(numberedVolumes(14), nil)
	p, doc := newTestPipeline(t, fetcher)
	require.NoError(t, p.Search(context.Background(), "fiction", ""))
	require.NoError(t, p.GoToPage(2))

	require.NoError(t, p.Search(context.Background(), "mystery", ""))

	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 1, doc.ActivePage())
	assert.Equal(t, 2, fetcher.callCount())
	genre, query := p.Query()
	assert.Equal(t, "mystery", genre)
	assert.Empty(t, query)
}

func TestSearchFailureRendersSingleError(t *testing.T) {
	good := numberedVolumes(8)
	var fail bool
	fetcher := &fakeFetcher{fn: func(context.Context, string, string) ([]models.Volume, error) {
		if fail {
			return nil, errors.New("failed to fetch data: boom")
		}
		return good, nil
	}}
	p, doc := newTestPipeline(t, fetcher)
	require.NoError(t, p.Search(context.Background(), "fiction", ""))
	require.Equal(t, 2, doc.PageControls())

	fail = true
	err := p.Search(context.Background(), "fiction", "")
	require.Error(t, err)

	assert.Equal(t, []string{"Error: failed to fetch data: boom"}, doc.ErrorMessages())
	assert.Zero(t, doc.BookCards())
	assert.Zero(t, doc.PageControls())
	assert.Empty(t, p.Books())
	assert.Zero(t, p.TotalPages())
	assert.EqualValues(t, 1, p.GetMetrics()["fetch_failures"])
}

func TestEmptyResultRendersNothing(t *testing.T) {
	p, doc := newTestPipeline(t, staticFetcher(nil, nil))

	require.NoError(t, p.Search(context.Background(), "poetry", "nothing"))

	assert.Zero(t, doc.BookCards())
	assert.Zero(t, doc.PageControls())
	assert.Empty(t, doc.ErrorMessages())
	assert.Zero(t, p.TotalPages())
	assert.Equal(t, 1, p.CurrentPage())
}

func TestSearchFiltersAndSorts(t *testing.T) {
	volumes := []models.Volume{
		volume("zeta Dragons", "B", "C"),
		volume("Middlemarch"),
		volume("Alpha dragons", "A"),
	}
	p, doc := newTestPipeline(t, staticFetcher(volumes, nil))

	require.NoError(t, p.Search(context.Background(), "fantasy", "  DRAGONS "))

	assert.Equal(t, []string{"Alpha dragons", "zeta Dragons"}, doc.Titles())
	books := p.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "B, C", books[1].Author)
	assert.Equal(t, config.DefaultConfig().PlaceholderCover, books[0].CoverURL)
}

func TestGoToPageOutOfRange(t *testing.T) {
	p, doc := newTestPipeline(t, staticFetcher(numberedVolumes(7), nil))
	require.NoError(t, p.Search(context.Background(), "fiction", ""))

	assert.ErrorIs(t, p.GoToPage(3), paginate.ErrPageOutOfRange)
	assert.ErrorIs(t, p.GoToPage(0), paginate.ErrPageOutOfRange)
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 1, doc.ActivePage())
	assert.ErrorIs(t, doc.Click(3), render.ErrNoControl)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{fn: func(_ context.Context, _, query string) ([]models.Volume, error) {
		if query == "slow" {
			close(started)
			<-release
			return []models.Volume{volume("Slow Book")}, nil
		}
		return []models.Volume{volume("Fast Book")}, nil
	}}
	p, doc := newTestPipeline(t, fetcher)

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Search(context.Background(), "fiction", "slow")
	}()
	<-started

	require.NoError(t, p.Search(context.Background(), "fiction", "fast"))
	close(release)

	assert.ErrorIs(t, <-errCh, ErrStaleResponse)
	assert.Equal(t, []string{"Fast Book"}, doc.Titles())
	assert.EqualValues(t, 1, p.GetMetrics()["stale_responses"])
}

func TestNewSearchCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	fetcher := &fakeFetcher{fn: func(ctx context.Context, _, query string) ([]models.Volume, error) {
		if query == "slow" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []models.Volume{volume("Fast Book")}, nil
	}}
	p, doc := newTestPipeline(t, fetcher)

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Search(context.Background(), "fiction", "slow")
	}()
	<-started

	require.NoError(t, p.Search(context.Background(), "fiction", "fast"))

	assert.ErrorIs(t, <-errCh, ErrStaleResponse)
	assert.Empty(t, doc.ErrorMessages(), "a superseded search never renders its error")
	assert.Equal(t, []string{"Fast Book"}, doc.Titles())
}

const integrationEndpoint = "http://catalog.test/books/v1/volumes"

func volumesPayload(n int) string {
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id":"v%d","volumeInfo":{"title":"Volume %02d","authors":["Writer %d"],"imageLinks":{"thumbnail":"http://img.test/%d.jpg"}}}`,
			i, i, i, i))
	}
	return fmt.Sprintf(`{"kind":"books#volumes","totalItems":%d,"items":[%s]}`, n, strings.Join(items, ","))
}

func newIntegrationPipeline(t *testing.T) (*Pipeline, *render.Document, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.APIURL = integrationEndpoint
	cfg.RequestsPerSec = 0

	client, err := catalog.NewClient(cfg)
	require.NoError(t, err)
	transport := httpmock.NewMockTransport()
	client.WithTransport(transport)

	doc, err := render.NewDocument()
	require.NoError(t, err)
	return NewPipeline(client, doc, cfg), doc, transport
}

func TestPipelineAgainstCatalog(t *testing.T) {
	p, doc, transport := newIntegrationPipeline(t)
	transport.RegisterResponder(http.MethodGet, integrationEndpoint,
		httpmock.NewStringResponder(http.StatusOK, volumesPayload(8)))

	require.NoError(t, p.Search(context.Background(), "science", ""))
	assert.Equal(t, 6, doc.BookCards())
	assert.Equal(t, 2, doc.PageControls())

	require.NoError(t, doc.Click(2))
	assert.Equal(t, []string{"Volume 07", "Volume 08"}, doc.Titles())
	assert.Equal(t, 1, transport.GetTotalCallCount())

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `src="http://img.test/8.jpg"`)
	assert.Contains(t, out, "Author: Writer 8")
}

func TestPipelineAgainstFailingCatalog(t *testing.T) {
	p, doc, transport := newIntegrationPipeline(t)
	transport.RegisterResponder(http.MethodGet, integrationEndpoint,
		httpmock.NewStringResponder(http.StatusInternalServerError, "oops"))

	err := p.Search(context.Background(), "science", "")

	var fetchErr *catalog.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)

	messages := doc.ErrorMessages()
	require.Len(t, messages, 1)
	assert.True(t, strings.HasPrefix(messages[0], "Error: failed to fetch data"), messages[0])
	assert.Zero(t, doc.BookCards())
	assert.Zero(t, doc.PageControls())
}

func TestPipelineRendersFallbacksForNullFields(t *testing.T) {
	p, doc, transport := newIntegrationPipeline(t)
	transport.RegisterResponder(http.MethodGet, integrationEndpoint, httpmock.NewStringResponder(http.StatusOK,
		`{"items": [{"volumeInfo": {"title": "Anonymous Verse", "authors": null, "imageLinks": null}}]}`))

	require.NoError(t, p.Search(context.Background(), "poetry", ""))

	assert.Empty(t, doc.ErrorMessages())
	assert.Equal(t, 1, doc.BookCards())
	assert.Equal(t, []models.Book{{
		Title:    "Anonymous Verse",
		Author:   models.UnknownAuthor,
		CoverURL: config.DefaultConfig().PlaceholderCover,
	}}, p.Books())

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, "Author: Unknown Author")
	assert.Contains(t, out, `src="`+config.DefaultConfig().PlaceholderCover+`"`)
}
