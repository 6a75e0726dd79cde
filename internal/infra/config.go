package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	JWTSecret          string
	PublicBaseURL      string
	GeoIPDBPath        string
	DefaultLocale      string
	CORSAllowedOrigins []string
	PreferencesSecret  string
	N8NWebhookURL      string
	N8NCallbackSecret  string
	N8NTimeout         time.Duration
	VideoPointsCost    int64
	JobStaleAfter      time.Duration
	ReaperInterval     time.Duration
	ReaperBatchSize    int
	SSEHeartbeat       time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		PreferencesSecret:  os.Getenv("PREFERENCES_SECRET"),
		N8NWebhookURL:      strings.TrimSpace(os.Getenv("N8N_WEBHOOK_URL")),
		N8NCallbackSecret:  os.Getenv("N8N_CALLBACK_SECRET"),
		N8NTimeout:         time.Second * time.Duration(getEnvInt("N8N_TIMEOUT_SECONDS", 30)),
		VideoPointsCost:    int64(getEnvInt("VIDEO_POINTS_COST", 10)),
		JobStaleAfter:      time.Minute * time.Duration(getEnvInt("JOB_STALE_AFTER_MINUTES", 30)),
		ReaperInterval:     time.Second * time.Duration(getEnvInt("REAPER_INTERVAL_SECONDS", 60)),
		ReaperBatchSize:    getEnvInt("REAPER_BATCH_SIZE", 50),
		SSEHeartbeat:       time.Second * time.Duration(getEnvInt("SSE_HEARTBEAT_SECONDS", 25)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PreferencesSecret == "" {
		return nil, fmt.Errorf("PREFERENCES_SECRET is required")
	}
	if cfg.N8NCallbackSecret == "" {
		return nil, fmt.Errorf("N8N_CALLBACK_SECRET is required")
	}
	if cfg.N8NWebhookURL != "" {
		if u, err := url.Parse(cfg.N8NWebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("N8N_WEBHOOK_URL must be an absolute URL")
		}
	}
	if cfg.VideoPointsCost < 0 {
		cfg.VideoPointsCost = 0
	}

	return cfg, nil
}

// CallbackURL is the address N8N posts job results to.
func (c *Config) CallbackURL() string {
	return c.PublicBaseURL + "/api/webhooks/n8n/video"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
