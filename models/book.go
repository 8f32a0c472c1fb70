// Package models defines data structures for the catalog browser.
package models

// UnknownAuthor is shown when a volume lists no authors.
const UnknownAuthor = "Unknown Author"

// Book is the normalized view-model rendered as a card.
type Book struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover_url"`
}

// Volume is a raw catalog entry returned by the volumes endpoint.
type Volume struct {
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo holds the nested metadata of a volume record.
type VolumeInfo struct {
	Title      string      `json:"title"`
	Authors    []string    `json:"authors,omitempty"`
	ImageLinks *ImageLinks `json:"imageLinks,omitempty"`
}

// ImageLinks lists the cover images of a volume.
type ImageLinks struct {
	Thumbnail string `json:"thumbnail,omitempty"`
}

// SearchResponse is the payload of a volumes search. Items is absent when
// nothing matched.
type SearchResponse struct {
	Kind       string   `json:"kind,omitempty"`
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items,omitempty"`
}
