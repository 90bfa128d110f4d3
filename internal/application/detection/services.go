package detection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/application"
	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/failures"
)

// Outcome labels reported to the Observer.
const (
	OutcomeSuccess       = "success"
	OutcomeProviderError = "provider_error"
	OutcomeRejected      = "rejected"
)

// Observer receives one call per Analyze, whatever the outcome.
type Observer interface {
	ObserveAnalysis(outcome string, classification domain.Classification, provider string, providerDuration time.Duration)
}

// Service implements the voice detection use case.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	// Provider is nil when no model credential is configured.
	Provider domain.Provider
	Profile  domain.Profile
	// Failures is optional; when set, provider failures are recorded there.
	Failures failures.Repository
	Observer Observer
	Clock    application.Clock
	Log      zerolog.Logger
}

// AnalyzeCommand carries the raw request fields, before validation.
type AnalyzeCommand struct {
	RequestID   string
	Language    string
	AudioFormat string
	MimeType    string
	AudioBase64 string
}

// Configured reports whether a provider is available.
func (s *Service) Configured() bool {
	return s.Provider != nil
}

// Analyze runs received -> validated -> model-invoked -> {success | provider-error}.
// Every check short-circuits before the provider is called.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (domain.AnalysisResult, error) {
	if s.Provider == nil {
		s.observe(OutcomeRejected, "", 0)
		return domain.AnalysisResult{}, domain.ErrProviderNotConfigured
	}

	req, err := s.validate(cmd)
	if err != nil {
		s.observe(OutcomeRejected, "", 0)
		return domain.AnalysisResult{}, err
	}

	profile := s.Profile
	if !profile.Valid() {
		profile = domain.ProfileFast
	}

	start := s.now()
	verdict, err := s.Provider.Analyze(ctx, req, profile)
	took := s.now().Sub(start)
	if err != nil {
		s.fail(ctx, req, err, took)
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}

	verdict, err = Normalize(verdict)
	if err != nil {
		s.fail(ctx, req, err, took)
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}

	s.observe(OutcomeSuccess, verdict.Classification, took)
	s.Log.Info().
		Str("request_id", req.RequestID).
		Str("language", string(req.Language)).
		Str("classification", string(verdict.Classification)).
		Float64("confidence", verdict.Confidence).
		Dur("provider_ms", took).
		Msg("analysis complete")

	return domain.AnalysisResult{
		Status:          domain.StatusSuccess,
		Language:        cmd.Language,
		Classification:  verdict.Classification,
		ConfidenceScore: verdict.Confidence,
		Explanation:     verdict.Explanation,
	}, nil
}

func (s *Service) validate(cmd AnalyzeCommand) (domain.AnalysisRequest, error) {
	if strings.TrimSpace(cmd.AudioBase64) == "" {
		return domain.AnalysisRequest{}, domain.ErrMissingAudio
	}
	lang, err := domain.ParseLanguage(cmd.Language)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	mimeType, err := domain.MimeTypeFor(cmd.AudioFormat, cmd.MimeType)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	audio, payload, err := DecodeAudio(cmd.AudioBase64)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	format := cmd.AudioFormat
	if format == "" {
		format = domain.DefaultAudioFormat
	}
	return domain.AnalysisRequest{
		RequestID:   cmd.RequestID,
		Language:    lang,
		AudioFormat: format,
		MimeType:    mimeType,
		Audio:       audio,
		AudioBase64: payload,
	}, nil
}

// DecodeAudio decodes a base64 payload, tolerating a data URL prefix and
// missing padding. It returns the bytes and the canonical padded encoding.
func DecodeAudio(payload string) ([]byte, string, error) {
	p := strings.TrimSpace(payload)
	if strings.HasPrefix(p, "data:") {
		if i := strings.Index(p, ","); i >= 0 {
			p = p[i+1:]
		}
	}
	p = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, p)

	b, err := base64.StdEncoding.DecodeString(p)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(p, "="))
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidAudio, err)
	}
	if len(b) == 0 {
		return nil, "", domain.ErrInvalidAudio
	}
	return b, base64.StdEncoding.EncodeToString(b), nil
}

// Normalize enforces the verdict contract: a known classification and a
// finite confidence, clamped to [0, 1]. The explanation is not touched.
func Normalize(v domain.Verdict) (domain.Verdict, error) {
	if !v.Classification.Valid() {
		return domain.Verdict{}, fmt.Errorf("%w: classification %q", domain.ErrMalformedOutput, v.Classification)
	}
	if math.IsNaN(v.Confidence) || math.IsInf(v.Confidence, 0) {
		return domain.Verdict{}, fmt.Errorf("%w: confidence %v", domain.ErrMalformedOutput, v.Confidence)
	}
	v.Confidence = math.Min(1, math.Max(0, v.Confidence))
	return v, nil
}

// ErrFailureLogDisabled is returned by RecentFailures when no store is configured.
var ErrFailureLogDisabled = errors.New("failure log not configured")

// RecentFailures lists the recorded provider failures for one request, newest first.
func (s *Service) RecentFailures(ctx context.Context, requestID string, limit int) ([]*failures.ProviderFailure, error) {
	if s.Failures == nil {
		return nil, ErrFailureLogDisabled
	}
	return s.Failures.ListByRequest(ctx, requestID, limit)
}

func (s *Service) fail(ctx context.Context, req domain.AnalysisRequest, cause error, took time.Duration) {
	s.observe(OutcomeProviderError, "", took)

	phase := failures.PhaseInvoke
	switch {
	case errors.Is(cause, domain.ErrQuotaExceeded):
		phase = failures.PhaseQuota
	case errors.Is(cause, domain.ErrMalformedOutput):
		phase = failures.PhaseParse
	}

	s.Log.Error().Err(cause).
		Str("request_id", req.RequestID).
		Str("provider", s.Provider.Name()).
		Str("phase", string(phase)).
		Dur("provider_ms", took).
		Msg("provider analysis failed")

	if s.Failures == nil {
		return
	}

	details, _ := json.Marshal(map[string]any{
		"mime_type":   req.MimeType,
		"audio_bytes": len(req.Audio),
		"profile":     string(s.Profile),
		"duration_ms": took.Milliseconds(),
	})
	rec := &failures.ProviderFailure{
		RequestID:   req.RequestID,
		Provider:    s.Provider.Name(),
		Model:       s.Provider.Model(),
		Language:    string(req.Language),
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.now(),
	}

	// must outlive a cancelled request
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.Failures.Save(saveCtx, rec); err != nil {
		s.Log.Warn().Err(err).Str("request_id", req.RequestID).Msg("failed to record provider failure")
	}
}

func (s *Service) observe(outcome string, c domain.Classification, took time.Duration) {
	if s.Observer == nil {
		return
	}
	name := ""
	if s.Provider != nil {
		name = s.Provider.Name()
	}
	s.Observer.ObserveAnalysis(outcome, c, name, took)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
