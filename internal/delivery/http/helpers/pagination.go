package helpers

import (
	"net/http"
	"strconv"

	"freeday/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1000000
)

// ParsePagination reads page and page_size from the query string using the list's
// default page size. Values that are missing, malformed or below 1 fall back to
// the defaults; page is capped at MaxPage and page_size at MaxPageSize.
func ParsePagination(r *http.Request, defaultPageSize int) domain.PaginationParams {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}
	q := r.URL.Query()
	return domain.PaginationParams{
		Page:     positiveQueryInt(q.Get("page"), DefaultPage, MaxPage),
		PageSize: positiveQueryInt(q.Get("page_size"), defaultPageSize, MaxPageSize),
	}
}

func positiveQueryInt(raw string, fallback, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// PaginationMeta is the pagination block of every list response.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta describes one page of a list with total matching rows.
func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	meta := PaginationMeta{Page: p.Page, PageSize: p.PageSize, Total: total}
	if p.PageSize > 0 {
		meta.TotalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return meta
}
