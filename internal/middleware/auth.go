package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	// APIKeyHeader carries the shared secret on every analysis request.
	APIKeyHeader = "x-api-key"
	// OperatorKeyHeader carries the operator secret for diagnostics routes.
	OperatorKeyHeader = "x-operator-key"
)

const unauthorizedMessage = "Unauthorized: a valid x-api-key header is required."

// PublicPaths are served without authentication.
var PublicPaths = []string{"/health", "/ready", "/live", "/metrics"}

// APIKeyAuth validates the x-api-key header against the shared secret.
// An empty secret rejects every request.
func APIKeyAuth(secret string) func(http.Handler) http.Handler {
	return headerAuth(APIKeyHeader, secret, unauthorizedMessage)
}

// OperatorAuth validates the x-operator-key header. Client keys are never
// accepted here.
func OperatorAuth(secret string) func(http.Handler) http.Handler {
	return headerAuth(OperatorKeyHeader, secret, "Unauthorized: a valid x-operator-key header is required.")
}

func headerAuth(header, secret, message string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			got := strings.TrimSpace(r.Header.Get(header))
			// constant-time comparison to prevent timing attacks
			if got == "" || len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				WriteError(w, http.StatusUnauthorized, message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublic(path string) bool {
	for _, p := range PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}
