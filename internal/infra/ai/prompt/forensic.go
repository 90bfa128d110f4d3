package prompt

import (
	"fmt"
	"strings"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
)

// Field names of the structured reply.
const (
	FieldClassification = "classification"
	FieldConfidence     = "confidence"
	FieldExplanation    = "explanation"
)

const criteria = `Look for:
1. Spectral anomalies (unnatural frequency cutoffs, band-limited synthesis artifacts)
2. Phase inconsistencies or robotic, vocoder-like artifacts
3. Unnatural breathing patterns or a complete lack of breaths
4. Prosody and emotional cadence typical of speech synthesis models
5. Linguistic coherence: disfluencies, filler words and self-corrections that humans produce`

const replyFormat = `Return one JSON object only (no markdown, no commentary) with exactly these fields:
{
  "classification": "AI_GENERATED" or "HUMAN_GENERATED",
  "confidence": number between 0.0 and 1.0,
  "explanation": "Detailed technical reasoning in one or two sentences."
}`

// GetForensicPrompt is the single instruction sent next to inline audio.
func GetForensicPrompt(lang detection.Language) string {
	return fmt.Sprintf(`You are a world-class forensic audio engineer specializing in AI voice detection.
Analyze the provided audio sample in %s.
Determine if the voice is AI_GENERATED (deepfake/TTS) or HUMAN_GENERATED.

%s

%s`, lang, criteria, replyFormat)
}

// GetSystemPrompt is used by text-only providers that reason over a transcript.
func GetSystemPrompt() string {
	return `You are a world-class forensic audio engineer specializing in AI voice detection.
You receive a machine transcript of a voice sample together with acoustic metadata, not the audio itself.
Decide whether the voice is AI_GENERATED (deepfake/TTS) or HUMAN_GENERATED and be conservative with confidence when evidence is thin.

` + criteria + `

` + replyFormat
}

// TranscriptMeta is what a speech-to-text pass tells us about the sample.
type TranscriptMeta struct {
	Transcript       string
	DetectedLanguage string
	DurationSeconds  float64
	AudioBytes       int
	MimeType         string
}

// GetTranscriptPrompt builds the user message around a transcript.
func GetTranscriptPrompt(lang detection.Language, m TranscriptMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expected language: %s\n", lang)
	if m.DetectedLanguage != "" {
		fmt.Fprintf(&b, "Detected language: %s\n", m.DetectedLanguage)
	}
	fmt.Fprintf(&b, "Audio: %s, %d bytes", m.MimeType, m.AudioBytes)
	if m.DurationSeconds > 0 {
		fmt.Fprintf(&b, ", %.1f seconds", m.DurationSeconds)
		if words := len(strings.Fields(m.Transcript)); words > 0 {
			fmt.Fprintf(&b, ", %.1f words per second", float64(words)/m.DurationSeconds)
		}
	}
	b.WriteString("\nTranscript:\n")
	if t := strings.TrimSpace(m.Transcript); t != "" {
		b.WriteString(t)
	} else {
		b.WriteString("(no speech recognised)")
	}
	return b.String()
}

// Schema is a minimal JSON-schema node, shared by the providers' structured
// output options.
type Schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

// ResponseSchema constrains the reply to the three verdict fields.
func ResponseSchema() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Schema{
			FieldClassification: {
				Type: "string",
				Enum: []string{string(detection.ClassificationAI), string(detection.ClassificationHuman)},
			},
			FieldConfidence: {
				Type:        "number",
				Description: "certainty in the classification, 0.0 to 1.0",
			},
			FieldExplanation: {
				Type:        "string",
				Description: "technical reasoning in one or two sentences",
			},
		},
		Required: []string{FieldClassification, FieldConfidence, FieldExplanation},
	}
}
