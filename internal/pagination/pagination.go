// Package pagination parses page parameters and describes a page in API
// responses.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage   = 20
	RevisionsPerPage = 10
	MaxPerPage       = 100
)

// Page holds pagination state for one request.
type Page struct {
	Number  int // 1-based
	PerPage int
	Total   int // -1 until Apply
	HasNext bool
	HasPrev bool
}

// Offset returns the SQL OFFSET for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit returns the SQL LIMIT for this page.
func (p Page) Limit() int {
	return p.PerPage
}

// TotalPages returns total pages, or -1 if total is unknown.
func (p Page) TotalPages() int {
	if p.Total < 0 {
		return -1
	}
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// FromRequest parses page and per_page from the query string. Out-of-range
// values fall back to the defaults.
func FromRequest(r *http.Request, defaultPerPage int) Page {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}

	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			page = n
		}
	}

	perPage := defaultPerPage
	if s := r.URL.Query().Get("per_page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= MaxPerPage {
			perPage = n
		}
	}

	return Page{Number: page, PerPage: perPage, Total: -1}
}

// Apply sets Total from a count and computes HasPrev/HasNext.
func (p *Page) Apply(total int) {
	p.Total = total
	p.HasPrev = p.Number > 1
	p.HasNext = p.Number < p.TotalPages()
}

// ApplyToSlice windows an in-memory slice and sets Total, HasPrev and
// HasNext.
func ApplyToSlice[T any](p *Page, items []T) []T {
	p.Apply(len(items))
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Meta is the JSON page description, with links that keep the caller's
// other query parameters.
type Meta struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	Prev       string `json:"prev,omitempty"`
	Next       string `json:"next,omitempty"`
}

// Meta builds the response metadata for r. Call after Apply.
func (p Page) Meta(r *http.Request) Meta {
	m := Meta{
		Page:       p.Number,
		PerPage:    p.PerPage,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
	if p.HasPrev {
		m.Prev = buildPageURL(r, p.Number-1)
	}
	if p.HasNext {
		m.Next = buildPageURL(r, p.Number+1)
	}
	return m
}

func buildPageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q.Encode()
}
