package detection

import (
	"fmt"
	"strings"
)

// Language enum
type Language string

const (
	LanguageEnglish   Language = "English"
	LanguageTamil     Language = "Tamil"
	LanguageHindi     Language = "Hindi"
	LanguageMalayalam Language = "Malayalam"
	LanguageTelugu    Language = "Telugu"
)

// Languages lists the supported languages in display order.
var Languages = []Language{
	LanguageEnglish,
	LanguageTamil,
	LanguageHindi,
	LanguageMalayalam,
	LanguageTelugu,
}

// ParseLanguage matches s case-insensitively against the supported set and
// returns the canonical spelling.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingLanguage
	}
	for _, l := range Languages {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, s)
}

// Classification enum
type Classification string

const (
	ClassificationAI    Classification = "AI_GENERATED"
	ClassificationHuman Classification = "HUMAN_GENERATED"
)

func (c Classification) Valid() bool {
	return c == ClassificationAI || c == ClassificationHuman
}

// Status enum for the response envelope
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// AnalysisRequest is one validated analysis call, built per user action.
type AnalysisRequest struct {
	RequestID   string
	Language    Language
	AudioFormat string
	MimeType    string
	// Audio holds the decoded bytes; AudioBase64 the payload as received.
	Audio       []byte
	AudioBase64 string
}

// Verdict is the provider's answer, limited to the three fields we keep.
type Verdict struct {
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Explanation    string         `json:"explanation"`
}

// AnalysisResult is the success envelope returned to clients.
type AnalysisResult struct {
	Status          Status         `json:"status"`
	Language        string         `json:"language"`
	Classification  Classification `json:"classification"`
	ConfidenceScore float64        `json:"confidenceScore"`
	Explanation     string         `json:"explanation"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}
