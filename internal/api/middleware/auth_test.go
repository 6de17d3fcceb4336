package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authedHandler(apiKey string) http.Handler {
	return Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		serverKey  string
		requestKey string
		wantStatus int
	}{
		{name: "valid key", serverKey: "secret", requestKey: "secret", wantStatus: http.StatusOK},
		{name: "wrong key", serverKey: "secret", requestKey: "guess", wantStatus: http.StatusUnauthorized},
		{name: "missing header", serverKey: "secret", requestKey: "", wantStatus: http.StatusUnauthorized},
		{name: "server key not configured", serverKey: "", requestKey: "secret", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/memories", nil)
			if tt.requestKey != "" {
				req.Header.Set("X-API-Key", tt.requestKey)
			}

			rec := httptest.NewRecorder()
			authedHandler(tt.serverKey).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
