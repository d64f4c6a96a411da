package common

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Pagination holds page parameters for list endpoints.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset converts the page number to a row offset.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePagination extracts page and limit from query values, clamping the
// page size.
func ParsePagination(r *http.Request) Pagination {
	p := Pagination{Page: 1, PerPage: defaultPerPage}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.PerPage = v
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}
