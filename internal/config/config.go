package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API and supporting services.
// Everything is read once at startup; nothing reads the environment mid-flow.
type Config struct {
	ListenAddr      string
	LogLevel        string
	MySQLDSN        string
	AppBaseURL      string
	ShutdownTimeout time.Duration

	// Generation provider.
	NanoBananaAPIKey  string
	NanoBananaBaseURL string
	RequestTimeout    time.Duration
	PollMaxAttempts   int
	PollInterval      time.Duration

	// Identity provider (token verification only; the OAuth handshake
	// happens entirely on the provider's side).
	IdentityBaseURL string
	IdentityAPIKey  string

	// Creem payment processor.
	CreemAPIKey        string
	CreemBaseURL       string
	CreemWebhookSecret string

	// Credit policy.
	InitialCredits      int
	TextToImageCredits  int
	ImageToImageCredits int

	// Reference image storage. Optional: when the bucket is empty the
	// reference image data URL is sent to the provider as-is.
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultProviderURL = "https://api.apimart.ai"

	cfg := Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		AppBaseURL:          strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		ShutdownTimeout:     time.Second * time.Duration(getInt("SHUTDOWN_TIMEOUT_SECONDS", 10)),
		NanoBananaBaseURL:   normalizeBaseURL(getEnv("NANO_BANANA_API_URL", defaultProviderURL), defaultProviderURL),
		RequestTimeout:      time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		PollMaxAttempts:     getInt("POLL_MAX_ATTEMPTS", 60),
		PollInterval:        time.Millisecond * time.Duration(getInt("POLL_INTERVAL_MS", 3000)),
		IdentityBaseURL:     strings.TrimRight(os.Getenv("IDENTITY_BASE_URL"), "/"),
		IdentityAPIKey:      os.Getenv("IDENTITY_API_KEY"),
		CreemBaseURL:        strings.TrimRight(getEnv("CREEM_API_URL", "https://test-api.creem.io"), "/"),
		CreemAPIKey:         os.Getenv("CREEM_API_KEY"),
		CreemWebhookSecret:  os.Getenv("CREEM_WEBHOOK_SECRET"),
		InitialCredits:      getInt("INITIAL_CREDITS", 100),
		TextToImageCredits:  getInt("TEXT_TO_IMAGE_CREDITS", 3),
		ImageToImageCredits: getInt("IMAGE_TO_IMAGE_CREDITS", 2),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3Region:            os.Getenv("S3_REGION"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:     os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:      getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:            getEnv("S3_PREFIX", "references"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.NanoBananaAPIKey = os.Getenv("NANO_BANANA_API_KEY")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.NanoBananaAPIKey == "" {
		missing = append(missing, "NANO_BANANA_API_KEY")
	}
	if cfg.IdentityBaseURL == "" {
		missing = append(missing, "IDENTITY_BASE_URL")
	}
	if cfg.S3Bucket != "" {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.PollMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", cfg.PollMaxAttempts)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}

	return cfg, nil
}

// normalizeBaseURL ensures the provider URL always carries a scheme and no
// trailing slash. Some docs quote the bare host, which breaks URL resolution.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running without an env file is fine; everything can come from the
	// process environment.
	return nil
}
