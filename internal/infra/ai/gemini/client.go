package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/infra/ai/prompt"
)

const DefaultModel = "gemini-3-flash-preview"

// Client sends the audio inline through the genai SDK.
// Implements detection.Provider.
type Client struct {
	model  string
	models *genai.Models
}

// NewClient creates a Gemini client. An empty baseURL targets the public
// endpoint. timeout <= 0 leaves the call bounded only by the request context.
func NewClient(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{model: model, models: gc.Models}, nil
}

func (c *Client) Name() string  { return "gemini" }
func (c *Client) Model() string { return c.model }

func toSchema(s prompt.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(s.Type)),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toSchema(v)
		}
	}
	return out
}

// thinking maps the profile onto the model family's knob: Gemini 2.5 takes
// a token budget, later models a named level.
func thinking(model string, p detection.Profile) *genai.ThinkingConfig {
	if strings.HasPrefix(model, "gemini-2.5") {
		budget := int32(-1)
		if p == detection.ProfileFast {
			budget = 0
			if strings.Contains(model, "pro") {
				budget = 128
			}
		}
		return &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	if strings.HasPrefix(model, "gemini-2") || strings.HasPrefix(model, "gemini-1") {
		return nil
	}
	level := genai.ThinkingLevelLow
	if p == detection.ProfilePrecise {
		level = genai.ThinkingLevelHigh
	}
	return &genai.ThinkingConfig{ThinkingLevel: level}
}

func asAPIError(err error) (genai.APIError, bool) {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	var pae *genai.APIError
	if errors.As(err, &pae) && pae != nil {
		return *pae, true
	}
	return genai.APIError{}, false
}

// Analyze sends the sample and the forensic prompt in one generateContent call.
func (c *Client) Analyze(ctx context.Context, req detection.AnalysisRequest, profile detection.Profile) (detection.Verdict, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Audio, req.MimeType),
			genai.NewPartFromText(prompt.GetForensicPrompt(req.Language)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(prompt.ResponseSchema()),
		ThinkingConfig:   thinking(c.model, profile),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		if ae, ok := asAPIError(err); ok {
			msg := ae.Status + ": " + ae.Message
			if ae.Code == http.StatusTooManyRequests {
				return detection.Verdict{}, fmt.Errorf("%w: %s", detection.ErrQuotaExceeded, msg)
			}
			return detection.Verdict{}, fmt.Errorf("gemini API error (status %d): %s", ae.Code, msg)
		}
		return detection.Verdict{}, fmt.Errorf("gemini request: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return detection.Verdict{}, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return detection.Verdict{}, fmt.Errorf("%w: no candidates", detection.ErrMalformedOutput)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}
	return prompt.ParseVerdict(text.String())
}
