package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotAudio is returned for files whose content is not an audio type.
var ErrNotAudio = errors.New("not an audio file")

// AudioSample is a selected or recorded clip, held in memory only.
type AudioSample struct {
	Name     string
	MimeType string
	Size     int64
	Base64   string
}

// LoadFile reads a file, checks that it is audio and base64-encodes it.
func LoadFile(path string) (*AudioSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes builds a sample from raw bytes. The MIME type is sniffed from
// the content; the file extension is only used when sniffing is inconclusive.
func FromBytes(name string, data []byte) (*AudioSample, error) {
	mt := DetectMimeType(name, data)
	if !strings.HasPrefix(mt, "audio/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotAudio, name, mt)
	}
	return &AudioSample{
		Name:     name,
		MimeType: mt,
		Size:     int64(len(data)),
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

// audioOnlyExt maps extensions of audio-only files in containers that sniff as video.
var audioOnlyExt = map[string]string{
	".weba": "audio/webm",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
}

// DetectMimeType sniffs the content type of data.
func DetectMimeType(name string, data []byte) string {
	m := mimetype.Detect(data)
	mt := stripParams(m.String())
	if strings.HasPrefix(mt, "audio/") {
		return mt
	}
	if m.Is("video/webm") || m.Is("video/mp4") {
		if byExt, ok := audioOnlyExt[strings.ToLower(filepath.Ext(name))]; ok {
			return byExt
		}
	}
	return mt
}

func stripParams(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		return strings.TrimSpace(mt[:i])
	}
	return mt
}
