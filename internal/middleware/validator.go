package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]{1,64}$`)

// ValidateRequestID accepts client-supplied request IDs that are safe to log.
func ValidateRequestID(id string) error {
	if id == "" {
		return fmt.Errorf("request id cannot be empty")
	}
	if !requestIDPattern.MatchString(id) {
		return fmt.Errorf("invalid request id format (alphanumeric, dot, colon, dash, underscore only, max 64 chars)")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// MsgPayloadTooLarge answers every 413, whether caught by Content-Length or
// while reading.
const MsgPayloadTooLarge = "Payload Too Large: audio sample exceeds the size limit."

// LimitBody caps the request body. Reads past the limit fail with
// *http.MaxBytesError, which the handler maps to 413.
func LimitBody(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > max {
				WriteError(w, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}
