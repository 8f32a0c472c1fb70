package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-book-browser/models"
)

func sampleBooks(n int) []models.Book {
	books := make([]models.Book, 0, n)
	for i := 1; i <= n; i++ {
		books = append(books, models.Book{
			Title:    fmt.Sprintf("Book %d", i),
			Author:   "Unknown Author",
			CoverURL: "https://via.placeholder.com/150",
		})
	}
	return books
}

func TestDocumentRenderBookList(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	doc.RenderBookList(sampleBooks(4))
	assert.Equal(t, 4, doc.BookCards())
	assert.Equal(t, []string{"Book 1", "Book 2", "Book 3", "Book 4"}, doc.Titles())

	doc.RenderBookList(sampleBooks(2))
	assert.Equal(t, 2, doc.BookCards(), "render replaces instead of appending")

	doc.RenderBookList(nil)
	assert.Zero(t, doc.BookCards())
	assert.Empty(t, doc.ErrorMessages())
}

func TestDocumentCardContent(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	doc.RenderBookList([]models.Book{{Title: "Dune", Author: "Frank Herbert", CoverURL: "http://img.test/dune.jpg"}})

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="book-item">`)
	assert.Contains(t, out, `src="http://img.test/dune.jpg"`)
	assert.Contains(t, out, `alt="Dune"`)
	assert.Contains(t, out, `<h3>Dune</h3>`)
	assert.Contains(t, out, `<p>Author: Frank Herbert</p>`)
}

func TestDocumentEscapesText(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	doc.RenderBookList([]models.Book{{Title: `<script>alert(1)</script>`, Author: "A & B", CoverURL: "javascript:alert(1)"}})

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "Author: A &amp; B")
	assert.Equal(t, 1, doc.BookCards())
}

func TestDocumentPaginationAndClick(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	var clicked []int
	onSelect := func(page int) { clicked = append(clicked, page) }

	doc.RenderPagination(3, 2, onSelect)
	assert.Equal(t, 3, doc.PageControls())
	assert.Equal(t, 2, doc.ActivePage())

	require.NoError(t, doc.Click(3))
	assert.ErrorIs(t, doc.Click(4), ErrNoControl)
	assert.ErrorIs(t, doc.Click(0), ErrNoControl)
	assert.Equal(t, []int{3}, clicked)

	doc.RenderPagination(0, 1, onSelect)
	assert.Zero(t, doc.PageControls())
	assert.Zero(t, doc.ActivePage())
	assert.ErrorIs(t, doc.Click(1), ErrNoControl)
}

func TestDocumentRenderError(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	doc.RenderBookList(sampleBooks(6))
	doc.RenderPagination(2, 1, func(int) {})

	doc.RenderError("failed to fetch data: Internal Server Error")

	assert.Equal(t, []string{"Error: failed to fetch data: Internal Server Error"}, doc.ErrorMessages())
	assert.Zero(t, doc.BookCards())
	assert.Zero(t, doc.PageControls())
	assert.ErrorIs(t, doc.Click(1), ErrNoControl)

	doc.RenderBookList(sampleBooks(1))
	assert.Empty(t, doc.ErrorMessages(), "next render clears the error")
}

func TestDocumentHTMLKeepsStructure(t *testing.T) {
	doc, err := NewDocument()
	require.NoError(t, err)

	doc.RenderPagination(2, 1, nil)
	out, err := doc.HTML()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `id="book-list"`)
	assert.Contains(t, out, `<li class="page-item active"><a class="page-link" href="#" data-page="1">1</a></li>`)
}

func TestTerminalView(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	var clicked []int
	term.RenderBookList([]models.Book{{Title: "Dune", Author: "Frank Herbert", CoverURL: "http://img.test/dune.jpg"}})
	term.RenderPagination(3, 2, func(page int) { clicked = append(clicked, page) })

	out := buf.String()
	assert.Contains(t, out, "* Dune\n")
	assert.Contains(t, out, "Author: Frank Herbert")
	assert.Contains(t, out, "Pages: 1 [2] 3\n")

	require.NoError(t, term.Click(1))
	assert.ErrorIs(t, term.Click(4), ErrNoControl)
	assert.Equal(t, []int{1}, clicked)

	buf.Reset()
	term.RenderError("failed to fetch data")
	assert.Equal(t, "Error: failed to fetch data\n", buf.String())
	assert.ErrorIs(t, term.Click(1), ErrNoControl)
	assert.NoError(t, term.Err())
}

func TestTerminalEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.RenderBookList(nil)
	term.RenderPagination(0, 1, nil)
	assert.Equal(t, "No books found.\n", buf.String())
}

func TestCSVWriterWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	rw := NewCSVWriter(&buf)

	rw.RenderBookList([]models.Book{{Title: "Dune, Part One", Author: "Frank Herbert", CoverURL: "http://img.test/dune.jpg"}})
	rw.RenderBookList(sampleBooks(1))
	require.NoError(t, rw.Err())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"title", "author", "cover_url"}, records[0])
	assert.Equal(t, []string{"Dune, Part One", "Frank Herbert", "http://img.test/dune.jpg"}, records[1])
	assert.Equal(t, "Book 1", records[2][0])
}

func TestJSONWriterWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	rw := NewJSONWriter(&buf)

	rw.RenderBookList(sampleBooks(2))
	require.NoError(t, rw.Err())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var decoded models.Book
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, models.Book{Title: "Book 2", Author: "Unknown Author", CoverURL: "https://via.placeholder.com/150"}, decoded)
}

func TestRecordWriterKeepsRenderError(t *testing.T) {
	var buf bytes.Buffer
	rw := NewJSONWriter(&buf)

	rw.RenderError("failed to fetch data")
	rw.RenderBookList(sampleBooks(1))

	assert.ErrorContains(t, rw.Err(), "failed to fetch data")
	assert.Empty(t, buf.String())
}
