package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkuma140394/vox-Gaurd-detect/internal/application"
	appdetection "github.com/rkuma140394/vox-Gaurd-detect/internal/application/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/config"
	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/detection"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/domain/failures"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/infra/ai/gemini"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/infra/ai/openai"
	mysqlp "github.com/rkuma140394/vox-Gaurd-detect/internal/infra/db/mysql"
	pgp "github.com/rkuma140394/vox-Gaurd-detect/internal/infra/db/postgres"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/infra/httpserver"
	"github.com/rkuma140394/vox-Gaurd-detect/internal/middleware"
)

func main() {
	cfg, err := config.Load(config.Sources{})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg.Log)
	ctx := context.Background()

	provider := newProvider(ctx, cfg.Provider, log.With().Str("component", "provider").Logger())

	var store failures.Repository
	checks := map[string]middleware.HealthChecker{}
	failLog := log.With().Str("component", "failures").Logger()
	if cfg.Failures.Driver != "" {
		repo, db, err := openFailureStore(ctx, cfg.Failures)
		if err != nil {
			failLog.Error().Err(err).Str("driver", cfg.Failures.Driver).Msg("failure log disabled")
		} else {
			defer db.Close()
			store = repo
			checks["failure_store"] = middleware.PingChecker{Target: repo}
			failLog.Info().Str("driver", cfg.Failures.Driver).Msg("failure log enabled")
		}
	}

	svc := &appdetection.Service{
		Provider: provider,
		Profile:  domain.Profile(cfg.Provider.Profile),
		Failures: store,
		Observer: middleware.AnalysisMetrics{},
		Clock:    application.SystemClock{},
		Log:      log.With().Str("component", "detection").Logger(),
	}
	checks["provider"] = middleware.ProviderChecker(svc.Configured)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Capacity > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
		defer limiter.Close()
	}

	httpLog := log.With().Str("component", "http").Logger()
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpserver.NewRouter(httpserver.Options{
			Service:        svc,
			SharedSecret:   cfg.Auth.SharedSecret,
			OperatorSecret: cfg.Auth.OperatorSecret,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			Limiter:        limiter,
			HealthChecks:   checks,
			Log:            httpLog,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		httpLog.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpLog.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.With().Timestamp().Str("service", "voxguard").Logger().Level(level)
}

// newProvider returns nil when no API key is set or the client cannot be
// built; requests then fail with 500.
func newProvider(ctx context.Context, cfg config.ProviderConfig, log zerolog.Logger) domain.Provider {
	if cfg.APIKey == "" {
		log.Warn().Str("provider", cfg.Name).Msg("API_KEY not set; analysis requests will be rejected")
		return nil
	}

	var p domain.Provider
	switch cfg.Name {
	case config.ProviderOpenAI:
		p = openai.NewClient(cfg.APIKey, cfg.Model, cfg.TranscriptionModel, cfg.BaseURL, cfg.Timeout)
	default:
		gc, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			log.Error().Err(err).Str("provider", cfg.Name).Msg("provider client unavailable")
			return nil
		}
		p = gc
	}
	log.Info().
		Str("provider", p.Name()).
		Str("model", p.Model()).
		Str("profile", cfg.Profile).
		Dur("timeout", cfg.Timeout).
		Msg("provider configured")
	return p
}

type failureStore interface {
	failures.Repository
	EnsureSchema(ctx context.Context) error
}

func openFailureStore(ctx context.Context, cfg config.FailuresConfig) (failureStore, *sql.DB, error) {
	var (
		db   *sql.DB
		repo failureStore
		err  error
	)
	switch cfg.Driver {
	case "postgres":
		if db, err = pgp.Connect(ctx, cfg.DSN); err == nil {
			repo = pgp.NewFailureRepository(db)
		}
	default:
		if db, err = mysqlp.Connect(ctx, cfg.DSN); err == nil {
			repo = mysqlp.NewFailureRepository(db)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}
