// Package paginate splits a result set into fixed-size, 1-indexed pages.
package paginate

import (
	"errors"
	"fmt"
)

// ErrPageOutOfRange is returned when a page outside 1..max(Total,1) is requested.
var ErrPageOutOfRange = errors.New("paginate: page out of range")

// TotalPages returns ceil(n/pageSize). An empty set has zero pages.
func TotalPages(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

// Slice returns the items of page, clipped to the end of items. Pages past
// the end, and pages below 1, are empty.
func Slice[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize <= 0 {
		return items[:0:0]
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return items[:0:0]
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}

// State tracks the current page over a result set it does not own.
type State struct {
	PageSize int
	Current  int
	Total    int
}

// NewState returns a state positioned on page 1 of an empty set.
func NewState(pageSize int) State {
	return State{PageSize: pageSize, Current: 1}
}

// Reset moves back to page 1 and recomputes the page count for n items.
func (s *State) Reset(n int) {
	s.Current = 1
	s.Total = TotalPages(n, s.PageSize)
}

// GoTo moves to page n.
func (s *State) GoTo(n int) error {
	if n < 1 || n > s.lastPage() {
		return fmt.Errorf("%w: %d not in 1..%d", ErrPageOutOfRange, n, s.lastPage())
	}
	s.Current = n
	return nil
}

func (s State) lastPage() int {
	if s.Total < 1 {
		return 1
	}
	return s.Total
}
