package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing is returned when one or more required variables are unset.
var ErrMissing = errors.New("missing required configuration")

const (
	defaultGenAIBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultGenAIModel     = "gemini-1.5-flash"
	defaultDatabase       = "telegram_bot"
	defaultRequestTimeout = 60 * time.Second
)

// Config holds runtime configuration derived from environment variables.
type Config struct {
	StoreURI      string
	StoreDatabase string

	GenAIKey     string
	GenAIBaseURL string
	GenAIModel   string

	TelegramToken string

	SerpAPIKey     string
	SerpAPIBaseURL string

	RequestTimeout time.Duration
	HealthAddr     string

	LogLevel  string
	LogFormat string
	LogFile   string

	// Cloudflare R2, all optional
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

// LoadEnvFile preloads variables from a dotenv file. Variables already set in
// the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{
		StoreURI:      os.Getenv("MONGO_URI"),
		StoreDatabase: envOrDefault("MONGO_DATABASE", defaultDatabase),

		GenAIKey:     os.Getenv("GENAI_API_KEY"),
		GenAIBaseURL: envOrDefault("GENAI_BASE_URL", defaultGenAIBaseURL),
		GenAIModel:   envOrDefault("GENAI_MODEL", defaultGenAIModel),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),

		SerpAPIKey:     os.Getenv("SERPAPI_API_KEY"),
		SerpAPIBaseURL: os.Getenv("SERPAPI_BASE_URL"),

		HealthAddr: os.Getenv("HEALTH_ADDR"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),
	}

	var missing []string
	for _, req := range []struct{ key, value string }{
		{"MONGO_URI", cfg.StoreURI},
		{"GENAI_API_KEY", cfg.GenAIKey},
		{"TELEGRAM_TOKEN", cfg.TelegramToken},
		{"SERPAPI_API_KEY", cfg.SerpAPIKey},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	cfg.RequestTimeout = defaultRequestTimeout
	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: must be positive", raw)
		}
		cfg.RequestTimeout = d
	}

	if cfg.R2AccountID != "" || cfg.R2AccessKeyID != "" || cfg.R2SecretAccessKey != "" || cfg.R2BucketName != "" {
		if !cfg.R2Enabled() {
			return nil, errors.New("R2 configuration is incomplete: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME must be set together")
		}
	}

	return cfg, nil
}

// R2Enabled reports whether uploaded files should be archived to R2.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
