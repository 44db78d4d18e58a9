package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream API
	APIBaseURL           string
	UpstreamTimeout      time.Duration
	UpstreamMaxSize      int64
	AllowPrivateUpstream bool

	// Releases
	RenderBudget     time.Duration
	ReleasesCacheTTL time.Duration

	// Revalidation
	RevalidateInterval time.Duration
	UpcomingDays       int

	// Images
	ImageEndpoint string
	ImageQuality  int

	// Rate Limit (req/min per IP)
	RateLimitAPI int

	// Locale
	Timezone string

	// Logging
	LogLevel string

	// Site content
	SiteConfigPath string

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envがあれば読み込む。既に設定済みの環境変数は上書きしない
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.UpstreamMaxSize = getEnvInt64("UPSTREAM_MAX_SIZE", 5242880)
	cfg.AllowPrivateUpstream = getEnvBool("ALLOW_PRIVATE_UPSTREAM", false)
	cfg.RenderBudget = getEnvDuration("RENDER_BUDGET", 3*time.Second)
	cfg.ReleasesCacheTTL = getEnvDuration("RELEASES_CACHE_TTL", 60*time.Second)
	cfg.RevalidateInterval = getEnvDuration("REVALIDATE_INTERVAL", 10*time.Minute)
	cfg.UpcomingDays = getEnvInt("UPCOMING_DAYS", 14)
	cfg.ImageEndpoint = strings.TrimRight(getEnvString("IMAGE_ENDPOINT", ""), "/")
	cfg.ImageQuality = getEnvInt("IMAGE_QUALITY", 90)
	cfg.RateLimitAPI = getEnvInt("RATE_LIMIT_API", 120)
	cfg.Timezone = getEnvString("TIMEZONE", "Asia/Ho_Chi_Minh")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.SiteConfigPath = getEnvString("SITE_CONFIG", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	if cfg.ImageQuality < 1 || cfg.ImageQuality > 100 {
		return nil, fmt.Errorf("IMAGE_QUALITY must be between 1 and 100: %d", cfg.ImageQuality)
	}

	return cfg, nil
}

// SecureCookie はCookieにSecure属性を付けるべきかを返す。BASE_URLがhttpsの場合にtrue。
func (c *Config) SecureCookie() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
