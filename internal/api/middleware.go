package api

import (
	"net/http"
	"strings"
)

const (
	customerHeader      = "X-Customer-ID"
	maxCustomerIDLength = 128
)

// RequireCustomer identifies the customer from the X-Customer-ID header.
// It is identification only; the header is trusted as sent.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(customerHeader))
		if id == "" {
			respondError(w, http.StatusBadRequest, "validation_error", customerHeader+" header is required")
			return
		}
		if len(id) > maxCustomerIDLength {
			respondError(w, http.StatusBadRequest, "validation_error", customerHeader+" header is too long")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithCustomer(r.Context(), id)))
	})
}

// requireBookmarks answers 503 when no bookmark store is configured
func (s *Server) requireBookmarks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.bookmarks == nil {
			respondError(w, http.StatusServiceUnavailable, "bookmarks_disabled", "bookmarks are not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}
