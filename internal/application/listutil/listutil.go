// Package listutil pages and searches the admin directory lists.
package listutil

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 20

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100}

// Params carries the list parameters parsed from a request.
type Params struct {
	Page    int    // 1-indexed page number
	PerPage int    // rows per page
	Search  string // case-insensitive free text, empty matches everything
}

// PageInfo carries pagination metadata.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of a filtered list.
type Page[T any] struct {
	Items []T `json:"items"`
	PageInfo
}

// ParseParams extracts page, per_page and q from URL query values.
// PRE: none
// POST: returns valid Params with defaults applied
func ParseParams(q url.Values) Params {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !isValidPerPage(perPage) {
		perPage = DefaultPerPage
	}
	return Params{Page: page, PerPage: perPage, Search: strings.TrimSpace(q.Get("q"))}
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: TotalPages >= 1; Page clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the index of the first row on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Paginate filters items by p.Search and cuts out the requested page.
// text returns the searchable fields of an item.
// POST: Items holds at most PerPage entries in their original order
func Paginate[T any](items []T, p Params, text func(T) []string) Page[T] {
	matched := items
	if needle := strings.ToLower(p.Search); needle != "" {
		matched = make([]T, 0, len(items))
		for _, it := range items {
			if contains(text(it), needle) {
				matched = append(matched, it)
			}
		}
	}
	info := NewPageInfo(p.Page, p.PerPage, len(matched))
	start := min(info.Offset(), len(matched))
	end := min(start+info.PerPage, len(matched))
	out := make([]T, end-start)
	copy(out, matched[start:end])
	return Page[T]{Items: out, PageInfo: info}
}

func contains(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func isValidPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
