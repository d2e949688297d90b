package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Page is the paginated list envelope: {count, next, previous, results}.
// next/previous are absolute URLs or null.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NextPage returns the page number encoded in Next, 0 when there is none.
func (p Page[T]) NextPage() int {
	if p.Next == nil {
		return 0
	}
	return PageFromURL(*p.Next)
}

// PreviousPage returns the page number encoded in Previous, 0 when there is none.
// A previous link without a page parameter points to page 1.
func (p Page[T]) PreviousPage() int {
	if p.Previous == nil || *p.Previous == "" {
		return 0
	}
	if n := PageFromURL(*p.Previous); n > 0 {
		return n
	}
	return 1
}

// PageFromURL extracts the page query parameter of a pagination link.
// Returns 0 when the link is empty, unparsable or has no valid page number.
func PageFromURL(link string) int {
	if link == "" {
		return 0
	}
	u, err := url.Parse(link)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// FetchAll walks every page starting at page 1 using fetch.
// maxPages bounds the walk against a server that keeps returning next links.
func FetchAll[T any](ctx context.Context, maxPages int, fetch func(ctx context.Context, page int) (*Page[T], error)) ([]T, error) {
	var all []T
	page := 1
	for i := 0; i < maxPages && page > 0; i++ {
		p, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Results...)

		next := p.NextPage()
		if next != 0 && next <= page {
			return nil, fmt.Errorf("pagination did not advance (page %d → %d)", page, next)
		}
		page = next
	}
	return all, nil
}
