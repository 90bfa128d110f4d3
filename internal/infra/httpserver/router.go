package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	appdetection "github.com/rkuma140394/vox-Gaurd-detect/internal/application/detection"
	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/middleware"
)

// Client-facing messages. Provider detail never appears in these.
const (
	MsgAnalysisFailed   = "Analysis failed. The audio sample may be corrupted or unsupported."
	MsgNotConfigured    = "Internal Server Error: API Key not configured."
	MsgMissingFields    = "Bad Request: audioBase64 and language are required fields."
	MsgMalformedJSON    = "Bad Request: request body must be a JSON object."
	MsgPayloadTooLarge  = middleware.MsgPayloadTooLarge
	MsgFailureLogAbsent = "Not Found: failure log is not enabled."
)

var errMalformedJSON = errors.New("malformed json body")

type Options struct {
	Service      *appdetection.Service
	SharedSecret string
	// OperatorSecret guards the failure lookup; empty leaves it unmounted.
	OperatorSecret string
	AllowedOrigins []string
	MaxBodyBytes   int64
	// Limiter is optional.
	Limiter      *middleware.RateLimiter
	HealthChecks map[string]middleware.HealthChecker
	Log          zerolog.Logger
}

type Router struct {
	svc *appdetection.Service
}

func NewRouter(opts Options) http.Handler {
	r := &Router{svc: opts.Service}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logger(opts.Log))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.InstrumentHandler)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.APIKeyHeader, middleware.OperatorKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Group(func(rt chi.Router) {
		if opts.Limiter != nil {
			rt.Use(opts.Limiter.Middleware)
		}
		rt.Use(middleware.APIKeyAuth(opts.SharedSecret))
		rt.Use(middleware.LimitBody(opts.MaxBodyBytes))

		rt.Post("/api/voice-detection", r.wrap(r.handleDetect))
	})

	if opts.OperatorSecret != "" {
		mux.Group(func(rt chi.Router) {
			if opts.Limiter != nil {
				rt.Use(opts.Limiter.Middleware)
			}
			rt.Use(middleware.OperatorAuth(opts.OperatorSecret))

			rt.Get("/api/voice-detection/failures/{requestID}", r.wrap(r.handleFailures))
		})
	}

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
		case errors.Is(err, errMalformedJSON):
			middleware.WriteError(w, http.StatusBadRequest, MsgMalformedJSON)
		case errors.Is(err, domain.ErrMissingAudio), errors.Is(err, domain.ErrMissingLanguage):
			middleware.WriteError(w, http.StatusBadRequest, MsgMissingFields)
		case domain.IsClientError(err):
			middleware.WriteError(w, http.StatusBadRequest, "Bad Request: "+err.Error())
		case errors.Is(err, domain.ErrProviderNotConfigured):
			hlog.FromRequest(req).Error().Err(err).Msg("analysis rejected")
			middleware.WriteError(w, http.StatusInternalServerError, MsgNotConfigured)
		case errors.Is(err, appdetection.ErrFailureLogDisabled):
			middleware.WriteError(w, http.StatusNotFound, MsgFailureLogAbsent)
		default:
			// cause is logged by the service
			hlog.FromRequest(req).Debug().Err(err).Msg("request failed")
			middleware.WriteError(w, http.StatusInternalServerError, MsgAnalysisFailed)
		}
	}
}

type detectRequest struct {
	Language    string `json:"language"`
	AudioFormat string `json:"audioFormat"`
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
}

// POST /api/voice-detection
// Body: {"language": "...", "audioFormat": "mp3", "audioBase64": "..."}
func (r *Router) handleDetect(w http.ResponseWriter, req *http.Request) error {
	var body detectRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errMalformedJSON
	}

	res, err := r.svc.Analyze(req.Context(), appdetection.AnalyzeCommand{
		RequestID:   middleware.RequestIDFromContext(req.Context()),
		Language:    body.Language,
		AudioFormat: body.AudioFormat,
		MimeType:    body.MimeType,
		AudioBase64: body.AudioBase64,
	})
	if err != nil {
		return err
	}

	middleware.WriteJSON(w, http.StatusOK, res)
	return nil
}

// GET /api/voice-detection/failures/{requestID}?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	requestID := strings.TrimSpace(chi.URLParam(req, "requestID"))
	if err := middleware.ValidateRequestID(requestID); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Bad Request: "+err.Error())
		return nil
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit > 100 {
		limit = 100
	}

	list, err := r.svc.RecentFailures(req.Context(), requestID, limit)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   domain.StatusSuccess,
		"failures": list,
	})
	return nil
}
