package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds the result window requested by a client.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads _count/_offset from the query string. maxLimit caps the
// page size; a non-positive maxLimit means MaxLimit.
func FromContext(c echo.Context, maxLimit int) Params {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	limit, _ := strconv.Atoi(c.QueryParam("_count"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("_offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Slice returns the items inside the window. An offset past the end gives
// an empty, non-nil page.
func (p Params) Slice(items []interface{}) []interface{} {
	if p.Offset >= len(items) {
		return []interface{}{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// Page describes the window that was returned out of total items.
type Page struct {
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	HasMore bool       `json:"has_more"`
	Links   []FHIRLink `json:"links,omitempty"`
}

// NewPage describes p over total items. Links are built against basePath
// when it is non-empty.
func NewPage(p Params, total int, basePath string) Page {
	page := Page{
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
	if basePath != "" {
		page.Links = p.FHIRLinks(basePath, total)
	}
	return page
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page, never negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// FHIRLinks builds self/next/previous links for a result page.
func (p Params) FHIRLinks(basePath string, total int) []FHIRLink {
	links := []FHIRLink{
		{Relation: "self", URL: p.url(basePath, p.Offset)},
	}
	if p.HasNext(total) {
		links = append(links, FHIRLink{Relation: "next", URL: p.url(basePath, p.NextOffset())})
	}
	if p.HasPrevious() {
		links = append(links, FHIRLink{Relation: "previous", URL: p.url(basePath, p.PreviousOffset())})
	}
	return links
}

func (p Params) url(basePath string, offset int) string {
	return fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, offset, p.Limit)
}

// FHIRLink is one navigation link of a result page.
type FHIRLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}
