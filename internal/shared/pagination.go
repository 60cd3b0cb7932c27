package shared

import (
	"math"
	"net/url"
	"strconv"
)

const (
	defaultItemsPerPage = 10
	maxItemsPerPage     = 100
)

// PageParams is the requested page window.
type PageParams struct {
	Page         int
	ItemsPerPage int
}

// ParsePageParams reads page and itemsPerPage, clamping itemsPerPage to [1, 100].
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("itemsPerPage"))
	if err != nil || perPage == 0 {
		perPage = defaultItemsPerPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxItemsPerPage {
		perPage = maxItemsPerPage
	}
	return PageParams{Page: page, ItemsPerPage: perPage}
}

// Offset returns the number of rows to skip.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.ItemsPerPage
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination computes pagination metadata.
func NewPagination(p PageParams, total int) Pagination {
	perPage := p.ItemsPerPage
	if perPage <= 0 {
		perPage = defaultItemsPerPage
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		TotalItems:      total,
		ItemsPerPage:    perPage,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}
