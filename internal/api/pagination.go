package api

import (
	"net/http"
	"strconv"
	"time"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Pagination is the normalized page/limit pair from query parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and limit, clamping to sane bounds. Page
// starts at 1; limit is capped so one request cannot pull the whole table.
func ParsePagination(r *http.Request) Pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// parseTimeParam parses an RFC3339 or date-only query value. A date-only
// upper bound covers its whole day, keeping the range inclusive on both
// ends. Returns nil for absent or unparseable values.
func parseTimeParam(r *http.Request, name string, upperBound bool) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if upperBound {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t
	}
	return nil
}
