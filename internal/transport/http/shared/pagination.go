package shared

import (
	"net/http"
	"strconv"

	"concedii/internal/domain/leave"
)

// ParsePage reads page/pageSize query parameters. Out-of-range values
// are clamped by the domain, not rejected.
func ParsePage(r *http.Request) leave.Page {
	page := leave.Page{}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page.Page = v
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page.PageSize = v
		}
	}
	return page
}
