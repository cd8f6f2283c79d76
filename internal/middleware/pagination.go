package middleware

import (
	"context"
	"net/http"
	"strconv"
)

type pageKey string

const (
	// PageNumberKey is the key for the requested page number in the request context.
	PageNumberKey pageKey = "pageNumber"
)

// Pagination reads the "page" query parameter and stores the requested page
// number in the request context. A missing parameter means the first page;
// a malformed one is stored as 0, which no listing accepts.
func Pagination(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				n = 0
			}
			page = n
		}
		ctx := context.WithValue(r.Context(), PageNumberKey, page)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PageNumber returns the page number stored by Pagination, defaulting to 1.
func PageNumber(ctx context.Context) int {
	if page, ok := ctx.Value(PageNumberKey).(int); ok {
		return page
	}
	return 1
}
