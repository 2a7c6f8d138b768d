package middleware

import (
	"crypto/subtle"
	"net/http"

	"chronolookup-api/pkg/apierror"
)

// AdminKeyHeader carries the operator key for cache maintenance routes.
const AdminKeyHeader = "X-Admin-Key"

// NewAdminKey returns a middleware that rejects requests without the
// configured admin key. An empty key disables the check.
func NewAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(AdminKeyHeader)
			if got == "" {
				apierror.Unauthorized("Authentication required. Use the X-Admin-Key header.").Write(w)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				apierror.Unauthorized("Invalid admin key").Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
