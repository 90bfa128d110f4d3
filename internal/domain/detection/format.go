package detection

import (
	"fmt"
	"strings"
)

// DefaultAudioFormat is what the web client always sends.
const DefaultAudioFormat = "mp3"

var formatMimeTypes = map[string]string{
	"mp3":  "audio/mp3",
	"wav":  "audio/wav",
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"m4a":  "audio/aac",
	"aac":  "audio/aac",
	"flac": "audio/flac",
}

// MimeTypeFor resolves the MIME type sent to the provider. An explicit audio
// MIME type wins over the format tag.
func MimeTypeFor(format, mimeType string) (string, error) {
	if mt := strings.TrimSpace(strings.ToLower(mimeType)); mt != "" {
		if !strings.HasPrefix(mt, "audio/") {
			return "", fmt.Errorf("%w: mime type %s", ErrUnsupportedFormat, mimeType)
		}
		return mt, nil
	}
	f := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(format)), ".")
	if f == "" {
		f = DefaultAudioFormat
	}
	mt, ok := formatMimeTypes[f]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return mt, nil
}
