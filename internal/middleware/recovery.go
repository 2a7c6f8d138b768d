package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"chronolookup-api/pkg/apierror"
)

// NewRecovery returns a middleware that recovers from panics.
func NewRecovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Bytes("stack", debug.Stack()).
						Str("path", r.URL.Path).
						Msg("recovered from panic")

					apierror.InternalError("internal server error").Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
