package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Provider  ProviderConfig  `yaml:"provider"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Failures  FailuresConfig  `yaml:"failures"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	ReadTimeout    time.Duration `yaml:"readTimeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" env:"HTTP_IDLE_TIMEOUT"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes" env:"MAX_BODY_BYTES"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"CORS_ALLOWED_ORIGINS"`
}

type AuthConfig struct {
	SharedSecret string `yaml:"sharedSecret" env:"VOXGUARD_API_KEY"`
	// OperatorSecret enables the failure lookup route when set.
	OperatorSecret string `yaml:"operatorSecret" env:"VOXGUARD_OPERATOR_KEY"`
}

type ProviderConfig struct {
	Name               string        `yaml:"name" env:"PROVIDER"`
	APIKey             string        `yaml:"apiKey" env:"API_KEY"`
	Model              string        `yaml:"model" env:"PROVIDER_MODEL"`
	TranscriptionModel string        `yaml:"transcriptionModel" env:"TRANSCRIPTION_MODEL"`
	BaseURL            string        `yaml:"baseURL" env:"PROVIDER_BASE_URL"`
	Profile            string        `yaml:"profile" env:"ANALYSIS_PROFILE"`
	Timeout            time.Duration `yaml:"timeout" env:"PROVIDER_TIMEOUT"`
}

// RateLimitConfig sizes the per-client token bucket. Capacity 0 disables it.
type RateLimitConfig struct {
	Capacity        int     `yaml:"capacity" env:"RATE_LIMIT_CAPACITY"`
	RefillPerSecond float64 `yaml:"refillPerSecond" env:"RATE_LIMIT_REFILL"`
}

type FailuresConfig struct {
	Driver string `yaml:"driver" env:"FAILURE_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"FAILURE_DB_DSN"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	ErrMissingSharedSecret = errors.New("config: auth.sharedSecret (VOXGUARD_API_KEY) is required")
	ErrOperatorSecretReuse = errors.New("config: auth.operatorSecret must differ from auth.sharedSecret")
)

// Sources names where Load reads from. Empty File falls back to
// CONFIG_PATH, then config.yaml; empty EnvFile means .env. Missing files
// are skipped.
type Sources struct {
	File    string
	EnvFile string
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   120 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxBodyBytes:   50 << 20,
			AllowedOrigins: []string{"*"},
		},
		Provider: ProviderConfig{
			Name:    ProviderGemini,
			Profile: "fast",
			Timeout: 90 * time.Second,
		},
		RateLimit: RateLimitConfig{Capacity: 20, RefillPerSecond: 1},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the YAML file, the .env file
// and the process environment. Later sources win.
func Load(src Sources) (*Config, error) {
	cfg := Default()

	path := src.File
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	envFile := src.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	cfg.Provider.Profile = strings.ToLower(strings.TrimSpace(cfg.Provider.Profile))
	cfg.Failures.Driver = strings.ToLower(strings.TrimSpace(cfg.Failures.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SharedSecret) == "" {
		return ErrMissingSharedSecret
	}
	if c.Auth.OperatorSecret != "" && c.Auth.OperatorSecret == c.Auth.SharedSecret {
		return ErrOperatorSecretReuse
	}
	switch c.Provider.Name {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider.Name)
	}
	switch c.Provider.Profile {
	case "fast", "precise":
	default:
		return fmt.Errorf("config: unknown analysis profile %q", c.Provider.Profile)
	}
	switch c.Failures.Driver {
	case "":
	case "mysql", "postgres":
		if c.Failures.DSN == "" {
			return fmt.Errorf("config: failures.dsn is required for driver %s", c.Failures.Driver)
		}
	default:
		return fmt.Errorf("config: unknown failures driver %q", c.Failures.Driver)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: server.maxBodyBytes must be positive")
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.RefillPerSecond < 0 {
		return fmt.Errorf("config: rate limit values must not be negative")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
