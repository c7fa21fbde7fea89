package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	LinkedIn LinkedInConfig
	Sync     SyncConfig
}

// ServerConfig holds HTTP server runtime parameters. StaticDir points at a
// built dashboard bundle; when empty the server exposes the API only.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	StaticDir       string
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds SQLite storage parameters.
type DatabaseConfig struct {
	DataDir string
}

// LinkedInConfig holds credentials for the LinkedIn REST API.
type LinkedInConfig struct {
	AccessToken string
	AuthorURN   string // urn:li:person:... of the dashboard owner
}

// SyncConfig holds the knobs of the daily engagement sync. Values are read
// once at run start, never hot-reloaded mid-run.
type SyncConfig struct {
	DailyCallLimit     int
	CallReserve        int
	BatchSize          int
	PostsPerConnection int
	RelevanceKeywords  []string
	SyncHour           int // local hour of day the scheduler fires
}

// UsableCallLimit is the per-session budget: the hard daily limit minus the
// reserve carved out for manual actions such as publishing posts.
func (s SyncConfig) UsableCallLimit() int {
	return s.DailyCallLimit - s.CallReserve
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultDataDir = "./data"

	defaultDailyCallLimit     = 500
	defaultCallReserve        = 50
	defaultBatchSize          = 10
	defaultPostsPerConnection = 5
	defaultSyncHour           = 6
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided.
func Load() (Config, error) {
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			StaticDir:       os.Getenv("STATIC_DIR"),
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			DataDir: getEnv("DATA_DIR", defaultDataDir),
		},
		LinkedIn: LinkedInConfig{
			AccessToken: os.Getenv("LINKEDIN_ACCESS_TOKEN"),
			AuthorURN:   os.Getenv("LINKEDIN_AUTHOR_URN"),
		},
		Sync: SyncConfig{
			DailyCallLimit:     defaultDailyCallLimit,
			CallReserve:        defaultCallReserve,
			BatchSize:          defaultBatchSize,
			PostsPerConnection: defaultPostsPerConnection,
			SyncHour:           defaultSyncHour,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("LINKPILOT_DAILY_CALL_LIMIT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LINKPILOT_DAILY_CALL_LIMIT: %w", err)
		}
		cfg.Sync.DailyCallLimit = n
	}

	if v := os.Getenv("LINKPILOT_CALL_RESERVE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid LINKPILOT_CALL_RESERVE: must be a non-negative integer")
		}
		cfg.Sync.CallReserve = n
	}

	if v := os.Getenv("LINKPILOT_SYNC_BATCH_SIZE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LINKPILOT_SYNC_BATCH_SIZE: %w", err)
		}
		cfg.Sync.BatchSize = n
	}

	if v := os.Getenv("LINKPILOT_POSTS_PER_CONNECTION"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LINKPILOT_POSTS_PER_CONNECTION: %w", err)
		}
		cfg.Sync.PostsPerConnection = n
	}

	if v := os.Getenv("LINKPILOT_RELEVANCE_KEYWORDS"); v != "" {
		cfg.Sync.RelevanceKeywords = splitKeywords(v)
	}

	if v := os.Getenv("LINKPILOT_SYNC_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 23 {
			return Config{}, fmt.Errorf("invalid LINKPILOT_SYNC_HOUR: must be 0-23")
		}
		cfg.Sync.SyncHour = n
	}

	if cfg.Sync.CallReserve >= cfg.Sync.DailyCallLimit {
		return Config{}, fmt.Errorf("LINKPILOT_CALL_RESERVE must be smaller than LINKPILOT_DAILY_CALL_LIMIT")
	}

	return cfg, nil
}

func splitKeywords(raw string) []string {
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
