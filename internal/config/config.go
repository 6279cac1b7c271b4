package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // distrolessイメージでもタイムゾーンを解決できるようにする

	"github.com/dsfg/calendar/internal/model"
)

// キャッシュのバックエンド種別
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
)

// 設定値の検証エラー
var (
	ErrInvalidCacheBackend = errors.New("CACHE_BACKEND must be 'memory' or 'postgres'")
	ErrInvalidCacheTTL     = errors.New("CACHE_TTL must be positive")
	ErrInvalidFetchTimeout = errors.New("FETCH_TIMEOUT must be positive")
	ErrInvalidFetchMaxSize = errors.New("FETCH_MAX_SIZE must be positive")
	ErrInvalidTimezone     = errors.New("CALENDAR_TIMEZONE is not a known time zone")
)

// DefaultFeedURL は設定が無い場合に取得するフィード。
const DefaultFeedURL = "https://www.jamstockex.com/feed/"

// DefaultProxyURL は直接取得が拒否された場合に経由するCORS中継プロキシ。
// 取得対象のURLはクエリエスケープして末尾に連結する。
const DefaultProxyURL = "https://api.allorigins.win/raw?url="

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort        string
	CORSAllowedOrigin string
	TrustProxyHeaders bool

	// Feed
	FeedSources []model.FeedSource
	ProxyURL    string

	// Fetch
	FetchTimeout       time.Duration
	FetchMaxSize       int64
	FetchMaxConcurrent int

	// Cache
	CacheBackend string
	CacheKey     string
	CacheTTL     time.Duration
	DatabaseURL  string

	// Worker
	RefreshInterval time.Duration

	// Calendar
	TimezoneName string
	Location     *time.Location

	// Rate Limit
	RateLimitGeneral int
	RateLimitRefresh int
}

// Load は環境変数からConfigを読み込む。
// CACHE_BACKEND=postgresでDATABASE_URLが未設定の場合などはエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)

	cfg.ProxyURL = getEnvString("PROXY_URL", DefaultProxyURL)
	if strings.EqualFold(cfg.ProxyURL, "none") {
		cfg.ProxyURL = ""
	}

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchMaxConcurrent = getEnvInt("FETCH_MAX_CONCURRENT", 4)

	cfg.CacheBackend = strings.ToLower(getEnvString("CACHE_BACKEND", CacheBackendMemory))
	cfg.CacheKey = getEnvString("CACHE_KEY", "jse-events")
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", time.Hour)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 30*time.Minute)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRefresh = getEnvInt("RATE_LIMIT_REFRESH", 6)

	cfg.TimezoneName = getEnvString("CALENDAR_TIMEZONE", "America/Jamaica")
	loc, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, cfg.TimezoneName)
	}
	cfg.Location = loc

	sources, err := loadFeedSources()
	if err != nil {
		return nil, err
	}
	cfg.FeedSources = sources

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は読み込んだ設定値の組み合わせを検証する。
func (c *Config) validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheBackend, c.CacheBackend)
	}

	if c.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}

	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}
	if c.FetchMaxSize <= 0 {
		return ErrInvalidFetchMaxSize
	}

	return nil
}

// loadFeedSources はFEED_SOURCES_FILEまたはFEED_URLSからフィードソースを読み込む。
// 両方が設定されている場合はファイルを優先する。
func loadFeedSources() ([]model.FeedSource, error) {
	if path := os.Getenv("FEED_SOURCES_FILE"); path != "" {
		sources, err := LoadSourcesFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load feed sources: %w", err)
		}
		return sources, nil
	}

	sources, err := ParseFeedURLs(getEnvString("FEED_URLS", DefaultFeedURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse FEED_URLS: %w", err)
	}
	return sources, nil
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
