package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Storage
	Storage  StorageConfig
	Database DatabaseConfig

	// Redis (window cache + shared rate limit)
	Redis RedisConfig

	// External source
	Trends TrendsConfig

	// Stitching defaults
	Stitch StitchConfig

	// Scheduled refresh
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool

	// Export directory for CSV / Parquet files
	ExportDir string
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver     string // postgres, sqlite, memory
	SQLitePath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// TrendsConfig holds the Google Trends endpoint and request policy
type TrendsConfig struct {
	BaseURL    string
	HL         string // host language
	TZ         int    // tz query parameter sent to the source (minutes, pytrends convention)
	Timeout    time.Duration
	RatePerMin int

	// Linear backoff: RetryBase + attempt*RetryStep, at most RetryMax retries
	RetryMax  int
	RetryBase time.Duration
	RetryStep time.Duration
}

// StitchConfig holds default stitching parameters
type StitchConfig struct {
	WindowDays    int
	OverlapDays   int
	MaxWindowDays int // smallest span that still returns daily resolution
	Sleep         time.Duration
	TZMinutes     int
	RoundBackfill bool
}

// ScheduleConfig holds the cron refresh configuration
type ScheduleConfig struct {
	Keywords     []string
	Cron         string
	LookbackDays int
	Geo          string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", filepath.Join("data", "trends.db")),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "24h"),
		},

		Trends: TrendsConfig{
			BaseURL:    getEnv("TRENDS_BASE_URL", "https://trends.google.com"),
			HL:         getEnv("TRENDS_HL", "en-US"),
			TZ:         getEnvAsInt("TRENDS_TZ", 360),
			Timeout:    getEnvAsDuration("TRENDS_TIMEOUT", "30s"),
			RatePerMin: getEnvAsInt("TRENDS_RATE_PER_MIN", 30),
			RetryMax:   getEnvAsInt("TRENDS_RETRY_MAX", 3),
			RetryBase:  getEnvAsDuration("TRENDS_RETRY_BASE", "60s"),
			RetryStep:  getEnvAsDuration("TRENDS_RETRY_STEP", "5s"),
		},

		Stitch: StitchConfig{
			WindowDays:    getEnvAsInt("STITCH_WINDOW_DAYS", 269),
			OverlapDays:   getEnvAsInt("STITCH_OVERLAP_DAYS", 100),
			MaxWindowDays: getEnvAsInt("STITCH_MAX_WINDOW_DAYS", 269),
			Sleep:         getEnvAsDuration("STITCH_SLEEP", "0s"),
			TZMinutes:     getEnvAsInt("STITCH_TZ_MINUTES", 0),
			RoundBackfill: getEnvAsBool("STITCH_ROUND_BACKFILL", true),
		},

		Schedule: ScheduleConfig{
			Keywords:     getEnvAsList("SCHEDULE_KEYWORDS"),
			Cron:         getEnv("SCHEDULE_CRON", "0 0 6 * * *"),
			LookbackDays: getEnvAsInt("SCHEDULE_LOOKBACK_DAYS", 365),
			Geo:          getEnv("SCHEDULE_GEO", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),

		ExportDir: getEnv("EXPORT_DIR", "."),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite storage")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: postgres, sqlite, memory")
	}

	s := c.Stitch
	if s.WindowDays <= 0 || s.WindowDays > s.MaxWindowDays {
		return fmt.Errorf("STITCH_WINDOW_DAYS must be in [1, %d]", s.MaxWindowDays)
	}
	if s.OverlapDays < 0 || s.OverlapDays >= s.WindowDays {
		return fmt.Errorf("STITCH_OVERLAP_DAYS must be in [0, STITCH_WINDOW_DAYS)")
	}

	if c.Trends.RetryMax < 0 {
		return fmt.Errorf("TRENDS_RETRY_MAX must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
