package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Names of the secrets the search API needs. They are read without the
// service prefix so existing deployments keep their variable names.
const (
	KeyAPIKey           = "GOOGLE_API_KEY"
	KeyWebEngineID      = "GOOGLE_SEARCH_ENGINE_ID_WEB"
	KeyLinkedInEngineID = "GOOGLE_SEARCH_ENGINE_ID_LINKEDIN"
)

// ConfigurationError reports a required secret that is missing or empty.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration key %s: all three keys (%s, %s, %s) must be set",
		e.Key, KeyAPIKey, KeyWebEngineID, KeyLinkedInEngineID)
}

// Credentials are the search API secrets. Immutable after loading.
type Credentials struct {
	APIKey           string `envconfig:"GOOGLE_API_KEY"`
	WebEngineID      string `envconfig:"GOOGLE_SEARCH_ENGINE_ID_WEB"`
	LinkedInEngineID string `envconfig:"GOOGLE_SEARCH_ENGINE_ID_LINKEDIN"`
}

// Validate checks every credential in a fixed order and names the first one
// that is absent.
func (c Credentials) Validate() error {
	fields := []struct {
		key   string
		value string
	}{
		{KeyAPIKey, c.APIKey},
		{KeyWebEngineID, c.WebEngineID},
		{KeyLinkedInEngineID, c.LinkedInEngineID},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ConfigurationError{Key: f.key}
		}
	}
	return nil
}

// EngineID returns the engine configured for scope.
func (c Credentials) EngineID(scope domain.Scope) (string, error) {
	switch scope {
	case domain.ScopeWeb:
		return c.WebEngineID, nil
	case domain.ScopeLinkedIn:
		return c.LinkedInEngineID, nil
	default:
		return "", domain.ErrInvalidScope
	}
}

// HasEngine reports whether id is one of the configured engines.
func (c Credentials) HasEngine(id string) bool {
	return id != "" && (id == c.WebEngineID || id == c.LinkedInEngineID)
}

// ScopeOf maps an engine id back to its scope, for logs and metrics.
func (c Credentials) ScopeOf(id string) domain.Scope {
	if id == c.LinkedInEngineID {
		return domain.ScopeLinkedIn
	}
	return domain.ScopeWeb
}

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	SearchBaseURL string        `envconfig:"SEARCH_BASE_URL" default:"https://www.googleapis.com/customsearch/v1"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	BatchWorkers      int           `envconfig:"BATCH_WORKERS" default:"1"`
	BatchRateLimitRPS float64       `envconfig:"BATCH_RATE_LIMIT_RPS" default:"0"`
	JobTTL            time.Duration `envconfig:"JOB_TTL" default:"1h"`
	MaxUploadBytes    int64         `envconfig:"MAX_UPLOAD_BYTES" default:"5242880"`

	// Search audit log, disabled when empty
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SearchLogTimeout time.Duration `envconfig:"SEARCH_LOG_TIMEOUT" default:"3s"`

	// Report archive, disabled when S3_ENDPOINT is empty
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"buscador-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Error reporting and tracing, disabled when empty
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	Credentials Credentials `ignored:"true"`
}

// LoadCredentials reads the three search API secrets.
func LoadCredentials() (Credentials, error) {
	_ = godotenv.Load()

	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to process credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Load reads the full server configuration including the search API
// credentials.
func Load() (*Config, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadService()
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds
	return cfg, nil
}

// LoadService reads the BUSCADOR_ settings only. Commands that never call the
// search API use it so they run without the Google credentials.
func LoadService() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BUSCADOR", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 1
	}

	return &cfg, nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
