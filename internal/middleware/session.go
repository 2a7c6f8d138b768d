package middleware

import (
	"context"
	"net/http"
	"strings"

	"chronolookup-api/internal/service"
	"chronolookup-api/pkg/uid"
)

// SessionHeader carries the client session id in both directions.
const SessionHeader = "X-Session-ID"

// SessionKey is the key for storing the lookup session in request context.
const SessionKey contextKey = "session"

// NewSessionMiddleware attaches the caller's lookup session to the request.
// Requests without a valid session id get a fresh one, echoed back in the
// response header so the client can keep it.
func NewSessionMiddleware(sessions *service.SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSession(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			id, _ := uid.Canonical(r.Header.Get(SessionHeader))
			sess := sessions.Get(id)
			w.Header().Set(SessionHeader, sess.ID())

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func skipSession(path string) bool {
	switch path {
	case "/api/status", "/metrics", "/api/v1/health", "/api/v1/ready":
		return true
	}
	return strings.HasPrefix(path, "/api/v1/admin")
}

// SessionFrom retrieves the lookup session from request context.
func SessionFrom(ctx context.Context) *service.Session {
	if sess, ok := ctx.Value(SessionKey).(*service.Session); ok {
		return sess
	}
	return nil
}

