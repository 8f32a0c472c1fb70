package parser

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/aluiziolira/go-book-browser/models"
)

// Filter keeps books whose title or author contains query, ignoring case.
// An empty query keeps everything.
func Filter(books []models.Book, query string) []models.Book {
	if query == "" {
		return books
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if matches(fold, b, needle) {
			out = append(out, b)
		}
	}
	return out
}

// matches reports whether the folded title or author contains needle, which
// must already be folded.
func matches(fold cases.Caser, b models.Book, needle string) bool {
	return strings.Contains(fold.String(b.Title), needle) || strings.Contains(fold.String(b.Author), needle)
}

// SortByTitle orders books by title using the collation rules of tag.
// Equal titles keep their relative order.
func SortByTitle(books []models.Book, tag language.Tag) {
	col := collate.New(tag)
	sort.SliceStable(books, func(i, j int) bool {
		return col.CompareString(books[i].Title, books[j].Title) < 0
	})
}
