package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdetection "github.com/rkuma140394/vox-Gaurd-detect/internal/application/detection"
	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/failures"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/middleware"
)

const (
	secret      = "hackathon-secret"
	operatorKey = "ops-secret"
)

type stubProvider struct {
	mu      sync.Mutex
	calls   int
	verdict domain.Verdict
	err     error
}

func (p *stubProvider) Analyze(context.Context, domain.AnalysisRequest, domain.Profile) (domain.Verdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.verdict, p.err
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-1" }

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memFailures struct {
	mu    sync.Mutex
	saved []*failures.ProviderFailure
}

func (m *memFailures) Save(_ context.Context, f *failures.ProviderFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, f)
	return nil
}

func (m *memFailures) ListByRequest(_ context.Context, requestID string, _ int) ([]*failures.ProviderFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*failures.ProviderFailure
	for _, f := range m.saved {
		if f.RequestID == requestID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFailures) Ping(context.Context) error { return nil }

func newServer(t *testing.T, p domain.Provider, store failures.Repository, maxBody int64) http.Handler {
	t.Helper()
	return newServerWithOperator(t, p, store, maxBody, operatorKey)
}

func newServerWithOperator(t *testing.T, p domain.Provider, store failures.Repository, maxBody int64, opKey string) http.Handler {
	t.Helper()
	svc := &appdetection.Service{
		Provider: p,
		Profile:  domain.ProfileFast,
		Failures: store,
		Log:      zerolog.Nop(),
	}
	if maxBody == 0 {
		maxBody = 50 << 20
	}
	return NewRouter(Options{
		Service:      svc,
		SharedSecret:   secret,
		OperatorSecret: opKey,
		MaxBodyBytes:   maxBody,
		HealthChecks: map[string]middleware.HealthChecker{
			"provider": middleware.ProviderChecker(svc.Configured),
		},
		Log: zerolog.Nop(),
	})
}

func post(t *testing.T, h http.Handler, key string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/voice-detection", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validBody(lang string) string {
	b, _ := json.Marshal(map[string]string{
		"language":    lang,
		"audioFormat": "mp3",
		"audioBase64": base64.StdEncoding.EncodeToString([]byte("ID3\x03fake-mp3-frames")),
	})
	return string(b)
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorEnvelope {
	t.Helper()
	var env domain.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestDetect_Unauthorized(t *testing.T) {
	p := &stubProvider{}
	h := newServer(t, p, nil, 0)

	for _, key := range []string{"", "wrong"} {
		rec := post(t, h, key, validBody("English"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, domain.StatusError, envelope(t, rec).Status)
	}
	assert.Equal(t, 0, p.Calls())
}

func TestDetect_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing audio", `{"language":"English","audioFormat":"mp3"}`, MsgMissingFields},
		{"missing language", `{"audioBase64":"aGVsbG8=","audioFormat":"mp3"}`, MsgMissingFields},
		{"unsupported language", `{"language":"French","audioFormat":"mp3","audioBase64":"aGVsbG8="}`, ""},
		{"invalid base64", `{"language":"Hindi","audioFormat":"mp3","audioBase64":"%%%not-base64%%%"}`, ""},
		{"unsupported format", `{"language":"Hindi","audioFormat":"midi","audioBase64":"aGVsbG8="}`, ""},
		{"malformed json", `{"language":`, MsgMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{}
			rec := post(t, newServer(t, p, nil, 0), secret, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := envelope(t, rec)
			assert.Equal(t, domain.StatusError, env.Status)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, env.Message)
			}
			assert.Equal(t, 0, p.Calls())
		})
	}
}

func TestDetect_Success(t *testing.T) {
	p := &stubProvider{verdict: domain.Verdict{
		Classification: domain.ClassificationHuman,
		Confidence:     0.12,
		Explanation:    "steady breathing detected",
	}}
	rec := post(t, newServer(t, p, nil, 0), secret, validBody("Malayalam"))
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.AnalysisResult{
		Status:          domain.StatusSuccess,
		Language:        "Malayalam",
		Classification:  domain.ClassificationHuman,
		ConfidenceScore: 0.12,
		Explanation:     "steady breathing detected",
	}, got)
	assert.Equal(t, 1, p.Calls())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDetect_ProviderErrorDoesNotLeak(t *testing.T) {
	p := &stubProvider{err: errors.New("upstream 503: secret-internal-detail")}
	store := &memFailures{}
	h := newServer(t, p, store, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/voice-detection", strings.NewReader(validBody("Telugu")))
	req.Header.Set("x-api-key", secret)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := envelope(t, rec)
	assert.Equal(t, MsgAnalysisFailed, env.Message)
	assert.NotContains(t, rec.Body.String(), "secret-internal-detail")
	assert.Equal(t, 1, p.Calls())

	require.Len(t, store.saved, 1)
	assert.Equal(t, "trace-42", store.saved[0].RequestID)

	// the client key cannot read the recorded cause back
	rec = getFailures(t, h, "trace-42", middleware.APIKeyHeader, secret)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-internal-detail")
}

func getFailures(t *testing.T, h http.Handler, requestID, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/voice-detection/failures/"+requestID, nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFailures_Lookup(t *testing.T) {
	p := &stubProvider{err: errors.New("upstream 403 PERMISSION_DENIED: key revoked")}
	store := &memFailures{}
	h := newServer(t, p, store, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/voice-detection", strings.NewReader(validBody("Hindi")))
	req.Header.Set("x-api-key", secret)
	req.Header.Set("X-Request-ID", "trace-77")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, store.saved, 1)

	t.Run("operator key reads the failure", func(t *testing.T) {
		rec := getFailures(t, h, "trace-77", middleware.OperatorKeyHeader, operatorKey)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status   string                      `json:"status"`
			Failures []*failures.ProviderFailure `json:"failures"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)
		require.Len(t, body.Failures, 1)
		assert.Equal(t, "trace-77", body.Failures[0].RequestID)
		assert.Equal(t, "invoke", string(body.Failures[0].Phase))
		assert.Contains(t, body.Failures[0].Message, "PERMISSION_DENIED")
	})

	t.Run("client key is rejected", func(t *testing.T) {
		for _, header := range []string{middleware.APIKeyHeader, middleware.OperatorKeyHeader} {
			rec := getFailures(t, h, "trace-77", header, secret)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotContains(t, rec.Body.String(), "PERMISSION_DENIED")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		rec := getFailures(t, h, "trace-77", middleware.OperatorKeyHeader, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid request id", func(t *testing.T) {
		rec := getFailures(t, h, "bad%20id", middleware.OperatorKeyHeader, operatorKey)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFailures_UnmountedWithoutOperatorKey(t *testing.T) {
	store := &memFailures{}
	h := newServerWithOperator(t, &stubProvider{}, store, 0, "")

	for _, header := range []string{middleware.APIKeyHeader, middleware.OperatorKeyHeader} {
		rec := getFailures(t, h, "abc", header, secret)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestDetect_ProviderNotConfigured(t *testing.T) {
	h := newServer(t, nil, nil, 0)
	rec := post(t, h, secret, validBody("English"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgNotConfigured, envelope(t, rec).Message)

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, health.Code)
}

func TestDetect_PayloadTooLarge(t *testing.T) {
	p := &stubProvider{}
	h := newServer(t, p, nil, 64)
	rec := post(t, h, secret, validBody("English")+strings.Repeat(" ", 128))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgPayloadTooLarge, envelope(t, rec).Message)
	assert.Equal(t, 0, p.Calls())

	// no Content-Length: the limit trips while decoding
	req := httptest.NewRequest(http.MethodPost, "/api/voice-detection", strings.NewReader(validBody("English")+strings.Repeat(" ", 128)))
	req.ContentLength = -1
	req.Header.Set("x-api-key", secret)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgPayloadTooLarge, envelope(t, rec).Message)
	assert.Equal(t, 0, p.Calls())
}

func TestFailures_LogDisabled(t *testing.T) {
	h := newServer(t, &stubProvider{}, nil, 0)
	rec := getFailures(t, h, "abc", middleware.OperatorKeyHeader, operatorKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgFailureLogAbsent, envelope(t, rec).Message)
}

func TestPublicRoutes(t *testing.T) {
	h := newServer(t, &stubProvider{}, nil, 0)
	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newServer(t, &stubProvider{}, nil, 0)
	req := httptest.NewRequest(http.MethodOptions, "/api/voice-detection", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-api-key,content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-api-key")
}
