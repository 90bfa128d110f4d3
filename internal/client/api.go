package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/client/capture"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
)

const (
	DefaultGateway = "http://localhost:8080"
	detectPath     = "/api/voice-detection"
	// audioFormat sent with every request, whatever the sample's container
	requestAudioFormat = "mp3"
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// ErrConnection wraps transport failures reaching the gateway.
var ErrConnection = errors.New("connection to analysis endpoint failed")

// APIClient posts samples to the gateway.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	if baseURL == "" {
		baseURL = DefaultGateway
	}
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type detectBody struct {
	Language    string `json:"language"`
	AudioFormat string `json:"audioFormat"`
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Analyze sends one detection request authenticated with apiKey.
func (c *APIClient) Analyze(ctx context.Context, apiKey string, language detection.Language, sample *capture.AudioSample) (detection.AnalysisResult, error) {
	payload, err := json.Marshal(detectBody{
		Language:    string(language),
		AudioFormat: requestAudioFormat,
		AudioBase64: sample.Base64,
		MimeType:    sample.MimeType,
	})
	if err != nil {
		return detection.AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+detectPath, bytes.NewReader(payload))
	if err != nil {
		return detection.AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return detection.AnalysisResult{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return detection.AnalysisResult{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if resp.StatusCode != http.StatusOK {
		var env detection.ErrorEnvelope
		msg := ""
		if json.Unmarshal(body, &env) == nil {
			msg = env.Message
		}
		if msg == "" {
			msg = "Server authentication failed"
		}
		return detection.AnalysisResult{}, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var res detection.AnalysisResult
	if err := json.Unmarshal(body, &res); err != nil {
		return detection.AnalysisResult{}, fmt.Errorf("decode gateway response: %w", err)
	}
	if res.Status != detection.StatusSuccess {
		return detection.AnalysisResult{}, &APIError{StatusCode: resp.StatusCode, Message: res.Explanation}
	}
	return res, nil
}
