// Package paginator slices ordered result sets into numbered pages.
package paginator

import (
	"math"
	"strconv"
)

// Page is one page of an ordered result set.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Number   int   `json:"page"`
	Size     int   `json:"page_size"`
	Total    int64 `json:"total"`
	NumPages int   `json:"num_pages"`
}

// Window describes the offset/limit for a requested page.
type Window struct {
	Number int
	Size   int
	Offset int
}

// NewWindow normalises page numbers: anything below 1 becomes 1, and numbers
// whose offset would overflow int are capped (such pages are always empty).
func NewWindow(page, size int) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return Window{Number: page, Size: size, Offset: (page - 1) * size}
}

// ParsePage reads a ?page= value; missing or malformed values mean page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// NewPage builds a page; items beyond the last page are expected to be empty.
func NewPage[T any](w Window, total int64, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	numPages := int((total + int64(w.Size) - 1) / int64(w.Size))
	if numPages < 1 {
		numPages = 1
	}
	return &Page[T]{Items: items, Number: w.Number, Size: w.Size, Total: total, NumPages: numPages}
}

func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) NextNumber() int   { return p.Number + 1 }

// PreviousNumber never points past the last page, so an out-of-range page
// links back to real content.
func (p *Page[T]) PreviousNumber() int {
	return min(p.Number-1, p.NumPages)
}

func (p *Page[T]) Len() int { return len(p.Items) }

// Numbers lists every page number, for rendering a page bar.
func (p *Page[T]) Numbers() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
