package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/sundai/social-agent/internal/api/response"
)

const apiKeyHeader = "X-API-Key"

// Auth validates the X-API-Key header against the configured shared secret.
// An empty configured key means the server is misconfigured: every request is
// refused with 500 rather than silently running open.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				response.RespondInternalServerError(w, "API key is not configured on the server")
				return
			}

			provided := r.Header.Get(apiKeyHeader)
			if provided == "" {
				response.RespondUnauthorized(w, "Missing "+apiKeyHeader+" header")
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.RespondUnauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
