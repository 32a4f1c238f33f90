package shared

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when page is missing or invalid.
	DefaultPage = 1
	// DefaultLimit is used when limit is missing or invalid.
	DefaultLimit = 50
	// MaxLimit caps a single page.
	MaxLimit = 500
	// MaxPage keeps (page-1)*MaxLimit within int.
	MaxPage = math.MaxInt/MaxLimit + 1
)

// PageRequest is a validated page/limit pair.
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// ParsePageRequest reads page and limit from query values. Non-numeric or
// non-positive values fall back to the defaults; limit is capped at MaxLimit
// and page at MaxPage.
func ParsePageRequest(values url.Values) PageRequest {
	page, err := strconv.Atoi(strings.TrimSpace(values.Get("page")))
	if err != nil || page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, err := strconv.Atoi(strings.TrimSpace(values.Get("limit")))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// NewPagination computes pagination metadata.
func NewPagination(req PageRequest, total int) Pagination {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := req.Page
	if page <= 0 {
		page = DefaultPage
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}
