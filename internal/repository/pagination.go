package repository

import "strings"

// PageOptions bounds what a caller may request. Each list call receives its own
// options; nothing is configured globally.
type PageOptions struct {
	DefaultPerPage int
	MaxPerPage     int
}

// AttemptPageOptions is used for learner attempt listings.
var AttemptPageOptions = PageOptions{DefaultPerPage: 20, MaxPerPage: 100}

// Page is a normalized page request.
type Page struct {
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string // asc|desc
}

// NewPage clamps raw values against opts. Unknown sort columns fall back to defaultSort.
func NewPage(page, perPage int, sortBy, order string, opts PageOptions, defaultSort string, allowedSort ...string) Page {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = opts.DefaultPerPage
	}
	if opts.MaxPerPage > 0 && perPage > opts.MaxPerPage {
		perPage = opts.MaxPerPage
	}

	sortBy = strings.TrimSpace(sortBy)
	allowed := false
	for _, col := range allowedSort {
		if col == sortBy {
			allowed = true
			break
		}
	}
	if !allowed {
		sortBy = defaultSort
	}

	order = strings.ToLower(strings.TrimSpace(order))
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	return Page{Page: page, PerPage: perPage, SortBy: sortBy, SortOrder: order}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int { return (p.Page - 1) * p.PerPage }

// OrderClause renders the ORDER BY expression.
func (p Page) OrderClause() string { return p.SortBy + " " + p.SortOrder }
