package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aluiziolira/go-book-browser/models"
)

// Terminal writes the book list and page controls as plain text.
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	onSelect func(page int)
	err      error
}

// NewTerminal returns a view writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// RenderBookList prints one card per book.
func (t *Terminal) RenderBookList(books []models.Book) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(books) == 0 {
		t.printf("No books found.\n")
		return
	}
	for _, b := range books {
		t.printf("* %s\n    Author: %s\n    Cover:  %s\n", b.Title, b.Author, b.CoverURL)
	}
}

// RenderPagination prints the page numbers with the current one bracketed.
func (t *Terminal) RenderPagination(totalPages, currentPage int, onSelect func(page int)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = totalPages
	t.onSelect = onSelect
	if totalPages == 0 {
		return
	}

	labels := make([]string, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		if i == currentPage {
			labels = append(labels, fmt.Sprintf("[%d]", i))
			continue
		}
		labels = append(labels, fmt.Sprintf("%d", i))
	}
	t.printf("Pages: %s\n", strings.Join(labels, " "))
}

// RenderError prints the message and drops the page controls.
func (t *Terminal) RenderError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = 0
	t.onSelect = nil
	t.printf("Error: %s\n", message)
}

// Click activates the control for page.
func (t *Terminal) Click(page int) error {
	t.mu.Lock()
	total, onSelect := t.total, t.onSelect
	t.mu.Unlock()

	if page < 1 || page > total {
		return fmt.Errorf("%w: %d", ErrNoControl, page)
	}
	if onSelect != nil {
		onSelect(page)
	}
	return nil
}

// Err returns the first write error.
func (t *Terminal) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Terminal) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		t.err = err
	}
}
