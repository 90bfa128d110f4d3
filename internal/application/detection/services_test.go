package detection

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/failures"
)

type stubProvider struct {
	mu      sync.Mutex
	calls   int
	last    domain.AnalysisRequest
	profile domain.Profile
	verdict domain.Verdict
	err     error
}

func (p *stubProvider) Analyze(_ context.Context, req domain.AnalysisRequest, profile domain.Profile) (domain.Verdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = req
	p.profile = profile
	return p.verdict, p.err
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-1" }

type memFailures struct {
	saved []*failures.ProviderFailure
	err   error
}

func (m *memFailures) Save(_ context.Context, f *failures.ProviderFailure) error {
	m.saved = append(m.saved, f)
	return m.err
}

func (m *memFailures) ListByRequest(context.Context, string, int) ([]*failures.ProviderFailure, error) {
	return m.saved, nil
}

func (m *memFailures) Ping(context.Context) error { return nil }

type countingObserver struct {
	outcomes []string
}

func (o *countingObserver) ObserveAnalysis(outcome string, _ domain.Classification, _ string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newService(p domain.Provider) *Service {
	return &Service{
		Provider: p,
		Profile:  domain.ProfilePrecise,
		Clock:    fixedClock{t: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		Log:      zerolog.Nop(),
	}
}

var sample = []byte{0x49, 0x44, 0x33, 0x04, 0x00, 0xff, 0xfb, 0x90}

func validCommand() AnalyzeCommand {
	return AnalyzeCommand{
		RequestID:   "req-1",
		Language:    "Hindi",
		AudioFormat: "mp3",
		AudioBase64: base64.StdEncoding.EncodeToString(sample),
	}
}

func TestAnalyze_Success(t *testing.T) {
	p := &stubProvider{verdict: domain.Verdict{
		Classification: domain.ClassificationHuman,
		Confidence:     0.12,
		Explanation:    "steady breathing detected",
	}}
	obs := &countingObserver{}
	svc := newService(p)
	svc.Observer = obs

	res, err := svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)

	assert.Equal(t, domain.AnalysisResult{
		Status:          domain.StatusSuccess,
		Language:        "Hindi",
		Classification:  domain.ClassificationHuman,
		ConfidenceScore: 0.12,
		Explanation:     "steady breathing detected",
	}, res)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, sample, p.last.Audio)
	assert.Equal(t, "audio/mp3", p.last.MimeType)
	assert.Equal(t, domain.LanguageHindi, p.last.Language)
	assert.Equal(t, domain.ProfilePrecise, p.profile)
	assert.Equal(t, []string{OutcomeSuccess}, obs.outcomes)
}

func TestAnalyze_EchoesLanguageUnchanged(t *testing.T) {
	p := &stubProvider{verdict: domain.Verdict{Classification: domain.ClassificationAI, Confidence: 0.9}}
	cmd := validCommand()
	cmd.Language = "tamil"

	res, err := newService(p).Analyze(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "tamil", res.Language)
	assert.Equal(t, domain.LanguageTamil, p.last.Language)
}

func TestAnalyze_ProviderNotConfigured(t *testing.T) {
	svc := newService(nil)
	_, err := svc.Analyze(context.Background(), validCommand())
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)
	assert.False(t, svc.Configured())
}

func TestAnalyze_ValidationShortCircuits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalyzeCommand)
		want   error
	}{
		{"missing audio", func(c *AnalyzeCommand) { c.AudioBase64 = "" }, domain.ErrMissingAudio},
		{"blank audio", func(c *AnalyzeCommand) { c.AudioBase64 = "   " }, domain.ErrMissingAudio},
		{"missing language", func(c *AnalyzeCommand) { c.Language = "" }, domain.ErrMissingLanguage},
		{"unknown language", func(c *AnalyzeCommand) { c.Language = "French" }, domain.ErrUnsupportedLanguage},
		{"bad base64", func(c *AnalyzeCommand) { c.AudioBase64 = "%%%not-base64%%%" }, domain.ErrInvalidAudio},
		{"bad format", func(c *AnalyzeCommand) { c.AudioFormat = "docx" }, domain.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{}
			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := newService(p).Analyze(context.Background(), cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domain.IsClientError(err))
			assert.Zero(t, p.calls)
		})
	}
}

func TestAnalyze_ProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("upstream exploded: secret detail")}
	repo := &memFailures{}
	svc := newService(p)
	svc.Failures = repo

	_, err := svc.Analyze(context.Background(), validCommand())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Equal(t, 1, p.calls)

	require.Len(t, repo.saved, 1)
	rec := repo.saved[0]
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, "stub", rec.Provider)
	assert.Equal(t, "stub-1", rec.Model)
	assert.Equal(t, failures.PhaseInvoke, rec.Phase)
	assert.Contains(t, rec.Message, "upstream exploded")
	assert.NotContains(t, rec.DetailsJSON, base64.StdEncoding.EncodeToString(sample))
}

func TestAnalyze_QuotaPhase(t *testing.T) {
	p := &stubProvider{err: domain.ErrQuotaExceeded}
	repo := &memFailures{}
	svc := newService(p)
	svc.Failures = repo

	_, err := svc.Analyze(context.Background(), validCommand())
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, failures.PhaseQuota, repo.saved[0].Phase)
}

func TestAnalyze_FailureStoreErrorIsSwallowed(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	svc := newService(p)
	svc.Failures = &memFailures{err: errors.New("db down")}

	_, err := svc.Analyze(context.Background(), validCommand())
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.NotContains(t, err.Error(), "db down")
}

func TestAnalyze_MalformedVerdict(t *testing.T) {
	p := &stubProvider{verdict: domain.Verdict{Classification: "PROBABLY_AI", Confidence: 0.5}}
	repo := &memFailures{}
	svc := newService(p)
	svc.Failures = repo

	_, err := svc.Analyze(context.Background(), validCommand())
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.ErrorIs(t, err, domain.ErrMalformedOutput)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, failures.PhaseParse, repo.saved[0].Phase)
}

func TestNormalize(t *testing.T) {
	t.Run("clamps high", func(t *testing.T) {
		v, err := Normalize(domain.Verdict{Classification: domain.ClassificationAI, Confidence: 97})
		require.NoError(t, err)
		assert.Equal(t, 1.0, v.Confidence)
	})

	t.Run("clamps low", func(t *testing.T) {
		v, err := Normalize(domain.Verdict{Classification: domain.ClassificationHuman, Confidence: -0.2})
		require.NoError(t, err)
		assert.Equal(t, 0.0, v.Confidence)
	})

	t.Run("passes through in range", func(t *testing.T) {
		v, err := Normalize(domain.Verdict{Classification: domain.ClassificationHuman, Confidence: 0.12, Explanation: " ok "})
		require.NoError(t, err)
		assert.Equal(t, 0.12, v.Confidence)
		assert.Equal(t, " ok ", v.Explanation)
	})

	t.Run("rejects lower-case classification", func(t *testing.T) {
		_, err := Normalize(domain.Verdict{Classification: "human_generated", Confidence: 0.5})
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
	})

	t.Run("rejects nan", func(t *testing.T) {
		_, err := Normalize(domain.Verdict{Classification: domain.ClassificationAI, Confidence: math.NaN()})
		assert.ErrorIs(t, err, domain.ErrMalformedOutput)
	})
}

func TestDecodeAudio_RoundTrip(t *testing.T) {
	raw := make([]byte, 1024)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	enc := base64.StdEncoding.EncodeToString(raw)

	t.Run("plain", func(t *testing.T) {
		got, canonical, err := DecodeAudio(enc)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
		assert.Equal(t, enc, canonical)
	})

	t.Run("data url", func(t *testing.T) {
		got, _, err := DecodeAudio("data:audio/webm;base64," + enc)
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	})

	t.Run("unpadded with line breaks", func(t *testing.T) {
		unpadded := base64.RawStdEncoding.EncodeToString(raw[:1000])
		wrapped := unpadded[:40] + "\n" + unpadded[40:]
		got, _, err := DecodeAudio(wrapped)
		require.NoError(t, err)
		assert.Equal(t, raw[:1000], got)
	})
}

func TestRecentFailures(t *testing.T) {
	svc := &Service{Provider: &stubProvider{}}
	_, err := svc.RecentFailures(context.Background(), "req-1", 10)
	assert.ErrorIs(t, err, ErrFailureLogDisabled)

	store := &memFailures{saved: []*failures.ProviderFailure{{RequestID: "req-1", Phase: failures.PhaseInvoke}}}
	svc.Failures = store
	list, err := svc.RecentFailures(context.Background(), "req-1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
