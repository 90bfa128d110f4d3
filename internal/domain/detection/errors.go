package detection

import "errors"

// Client-input errors. The router answers these with 400.
var (
	ErrMissingAudio        = errors.New("audioBase64 is required")
	ErrMissingLanguage     = errors.New("language is required")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrInvalidAudio        = errors.New("audioBase64 is not valid base64 audio")
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
)

// ErrProviderNotConfigured means the model credential is missing server-side.
var ErrProviderNotConfigured = errors.New("provider api key not configured")

// Provider errors. All of them reach the client as the same generic 500.
var (
	ErrProviderFailure = errors.New("provider call failed")
	ErrMalformedOutput = errors.New("provider returned malformed output")
	// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("provider quota exceeded")
)

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingAudio) ||
		errors.Is(err, ErrMissingLanguage) ||
		errors.Is(err, ErrUnsupportedLanguage) ||
		errors.Is(err, ErrInvalidAudio) ||
		errors.Is(err, ErrUnsupportedFormat)
}
