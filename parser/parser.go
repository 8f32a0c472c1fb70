// Package parser turns raw volume records into sorted book view-models.
package parser

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/aluiziolira/go-book-browser/models"
)

// Options controls how volumes become books.
type Options struct {
	PlaceholderCover string
	Language         language.Tag
}

// ToBook maps one volume record to a Book. A missing title becomes the empty
// string; authors keep their listed order.
func ToBook(v models.Volume, placeholder string) models.Book {
	info := v.VolumeInfo
	return models.Book{
		Title:    info.Title,
		Author:   JoinAuthors(info.Authors),
		CoverURL: CoverURL(info.ImageLinks, placeholder),
	}
}

// JoinAuthors joins author names with ", " or returns models.UnknownAuthor.
func JoinAuthors(authors []string) string {
	if len(authors) == 0 {
		return models.UnknownAuthor
	}
	return strings.Join(authors, ", ")
}

// CoverURL returns the thumbnail link or the placeholder.
func CoverURL(links *models.ImageLinks, placeholder string) string {
	if links == nil || strings.TrimSpace(links.Thumbnail) == "" {
		return placeholder
	}
	return links.Thumbnail
}

// Transform maps, filters and sorts volumes into a fresh result set.
func Transform(volumes []models.Volume, query string, opts Options) []models.Book {
	books := make([]models.Book, 0, len(volumes))
	for _, v := range volumes {
		books = append(books, ToBook(v, opts.PlaceholderCover))
	}

	books = Filter(books, query)
	SortByTitle(books, opts.Language)
	return books
}
