package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultDatabaseURL         = "productlogik.db"
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultJWTAccessTTL        = "30m"
	defaultMaxUploadBytes      = "10485760" // 10 MB
	defaultMaxRows             = "10000"
	defaultAnalysisSampleSize  = "100"
	defaultWorkerCount         = "4"
	defaultQueueSize           = "256"
	defaultProviderTimeout     = "60s"
	defaultGeminiModel         = "gemini-2.0-flash"
	defaultGeminiFallbackModel = "gemini-flash-latest"
	defaultOpenAIModel         = "gpt-4o-mini"
	defaultProviderOrder       = "gemini,openai"
	defaultDevEmail            = "true"
	defaultVerifyCodeTTL       = "15m"
	defaultWSPollInterval      = "2s"
	defaultShutdownTimeout     = "30s"

	placeholderGeminiKey = "your_gemini_api_key_here"
)

type Config struct {
	AppEnv      string
	Debug       bool
	HTTPAddr    string
	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	MaxUploadBytes     int64
	MaxRows            int
	AnalysisSampleSize int

	WorkerCount     int
	QueueSize       int
	ProviderTimeout time.Duration
	ProviderOrder   []string

	GeminiAPIKey        string
	GeminiModel         string
	GeminiFallbackModel string
	OpenAIAPIKey        string
	OpenAIModel         string

	DevEmail         bool
	VerifyCodePepper string
	VerifyCodeTTL    time.Duration

	CORSAllowedOrigins []string
	WSPollInterval     time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from the environment. A local .env file is
// applied first when present; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Debug = parseBoolEnv("DEBUG", "false")

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.ProviderTimeout, err = parseDurationEnv("PROVIDER_TIMEOUT", defaultProviderTimeout)
	if err != nil {
		return nil, err
	}
	cfg.VerifyCodeTTL, err = parseDurationEnv("VERIFY_CODE_TTL", defaultVerifyCodeTTL)
	if err != nil {
		return nil, err
	}
	cfg.WSPollInterval, err = parseDurationEnv("WS_POLL_INTERVAL", defaultWSPollInterval)
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return nil, err
	}

	maxBytes, err := parseIntEnv("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxBytes)

	if cfg.MaxRows, err = parseIntEnv("MAX_ROWS", defaultMaxRows); err != nil {
		return nil, err
	}
	if cfg.AnalysisSampleSize, err = parseIntEnv("ANALYSIS_SAMPLE_SIZE", defaultAnalysisSampleSize); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = parseIntEnv("WORKER_COUNT", defaultWorkerCount); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = parseIntEnv("QUEUE_SIZE", defaultQueueSize); err != nil {
		return nil, err
	}

	cfg.ProviderOrder = parseListEnv("PROVIDER_ORDER", defaultProviderOrder)
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if cfg.GeminiAPIKey == placeholderGeminiKey {
		cfg.GeminiAPIKey = ""
	}
	cfg.GeminiModel = strings.TrimSpace(getEnv("GEMINI_MODEL", defaultGeminiModel))
	cfg.GeminiFallbackModel = strings.TrimSpace(getEnv("GEMINI_FALLBACK_MODEL", defaultGeminiFallbackModel))
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAIModel = strings.TrimSpace(getEnv("OPENAI_MODEL", defaultOpenAIModel))

	cfg.DevEmail = parseBoolEnv("DEV_EMAIL", defaultDevEmail)
	cfg.VerifyCodePepper = os.Getenv("VERIFY_CODE_PEPPER")
	cfg.CORSAllowedOrigins = parseOriginsEnv("CORS_ALLOWED_ORIGINS")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProd reports whether the configured environment is production-like.
func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.MaxRows <= 0 {
		return fmt.Errorf("MAX_ROWS must be > 0")
	}
	if cfg.AnalysisSampleSize <= 0 {
		return fmt.Errorf("ANALYSIS_SAMPLE_SIZE must be > 0")
	}
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be > 0")
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("QUEUE_SIZE must be > 0")
	}
	if cfg.VerifyCodeTTL <= 0 {
		return fmt.Errorf("VERIFY_CODE_TTL must be > 0")
	}
	if cfg.WSPollInterval <= 0 {
		return fmt.Errorf("WS_POLL_INTERVAL must be > 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}
	for _, name := range cfg.ProviderOrder {
		if name != "gemini" && name != "openai" {
			return fmt.Errorf("PROVIDER_ORDER contains unknown provider %q", name)
		}
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.DevEmail {
			return fmt.Errorf("in prod/release DEV_EMAIL must be false")
		}
		if strings.TrimSpace(cfg.VerifyCodePepper) == "" {
			return fmt.Errorf("in prod/release VERIFY_CODE_PEPPER must be set")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseListEnv(name, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(name, fallback), ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Origins keep their case; only surrounding space and trailing slashes go.
func parseOriginsEnv(name string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(name), ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
