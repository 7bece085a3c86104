package utils

import (
	"net/http"
	"strconv"
)

// ParsePagination reads page/limit query parameters, falling back to the
// given default limit. Page starts at 1; offset = (page-1)*limit.
func ParsePagination(r *http.Request, defaultLimit int) (page, limit, offset int) {
	page = 1
	limit = defaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	return page, limit, (page - 1) * limit
}
