package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/infra/ai/prompt"
)

const (
	maxTokens    = 1024
	DefaultModel = "gpt-4o-mini"
)

// whisperLanguages maps our languages to ISO-639-1 hints.
var whisperLanguages = map[detection.Language]string{
	detection.LanguageEnglish:   "en",
	detection.LanguageTamil:     "ta",
	detection.LanguageHindi:     "hi",
	detection.LanguageMalayalam: "ml",
	detection.LanguageTelugu:    "te",
}

// Client runs a two-step analysis: a Whisper transcription of the sample,
// then a chat completion constrained to the verdict schema.
type Client struct {
	*openai.Client
	ChatModel          string
	TranscriptionModel string
}

// NewClient builds the client. baseURL may be empty for the public API.
func NewClient(apiKey, model, transcriptionModel, baseURL string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = DefaultModel
	}
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	return &Client{
		Client:             openai.NewClientWithConfig(cfg),
		ChatModel:          model,
		TranscriptionModel: transcriptionModel,
	}
}

func (c *Client) Name() string  { return "openai" }
func (c *Client) Model() string { return c.ChatModel }

func (c *Client) Analyze(ctx context.Context, req detection.AnalysisRequest, profile detection.Profile) (detection.Verdict, error) {
	tr, err := c.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.TranscriptionModel,
		FilePath: "sample." + fileExtension(req),
		Reader:   bytes.NewReader(req.Audio),
		Language: whisperLanguages[req.Language],
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return detection.Verdict{}, fmt.Errorf("failed to transcribe sample: %w", classify(err))
	}

	chat := openai.ChatCompletionRequest{
		Model: c.ChatModel,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "voice_verdict",
				Schema: verdictSchema(),
				Strict: true,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetTranscriptPrompt(req.Language, prompt.TranscriptMeta{
				Transcript:       tr.Text,
				DetectedLanguage: tr.Language,
				DurationSeconds:  tr.Duration,
				AudioBytes:       len(req.Audio),
				MimeType:         req.MimeType,
			})},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.ChatModel) {
		chat.MaxCompletionTokens = maxTokens * 4
		chat.ReasoningEffort = reasoningEffort(profile)
	} else {
		chat.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, chat)
	if err != nil {
		return detection.Verdict{}, fmt.Errorf("failed to create chat completion: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return detection.Verdict{}, fmt.Errorf("%w: no choices", detection.ErrMalformedOutput)
	}

	return prompt.ParseVerdict(resp.Choices[0].Message.Content)
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

func reasoningEffort(p detection.Profile) string {
	if p == detection.ProfilePrecise {
		return "high"
	}
	return "low"
}

// verdictSchema mirrors prompt.ResponseSchema in go-openai's schema type.
// Strict mode needs additionalProperties=false on the object.
func verdictSchema() *jsonschema.Definition {
	src := prompt.ResponseSchema()
	props := make(map[string]jsonschema.Definition, len(src.Properties))
	for name, p := range src.Properties {
		props[name] = jsonschema.Definition{
			Type:        jsonschema.DataType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
	}
	return &jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           props,
		Required:             src.Required,
		AdditionalProperties: false,
	}
}

func fileExtension(req detection.AnalysisRequest) string {
	switch f := strings.ToLower(req.AudioFormat); f {
	case "mp3", "wav", "webm", "ogg", "m4a", "flac":
		return f
	case "aac":
		return "m4a"
	}
	if _, sub, ok := strings.Cut(req.MimeType, "/"); ok && sub != "" {
		if sub == "mpeg" {
			return "mp3"
		}
		return sub
	}
	return "mp3"
}

// classify maps rate limiting onto detection.ErrQuotaExceeded.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", detection.ErrQuotaExceeded, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", detection.ErrQuotaExceeded, err)
	}
	return err
}
