package config

import (
	"os"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Database.DataDir != defaultDataDir {
		t.Errorf("expected default data dir %q, got %q", defaultDataDir, cfg.Database.DataDir)
	}
	if cfg.Server.StaticDir != "" {
		t.Errorf("expected no static dir by default, got %q", cfg.Server.StaticDir)
	}
	if cfg.Sync.DailyCallLimit != defaultDailyCallLimit {
		t.Errorf("expected default daily call limit %d, got %d", defaultDailyCallLimit, cfg.Sync.DailyCallLimit)
	}
	if cfg.Sync.CallReserve != defaultCallReserve {
		t.Errorf("expected default call reserve %d, got %d", defaultCallReserve, cfg.Sync.CallReserve)
	}
	if cfg.Sync.UsableCallLimit() != defaultDailyCallLimit-defaultCallReserve {
		t.Errorf("expected usable limit %d, got %d", defaultDailyCallLimit-defaultCallReserve, cfg.Sync.UsableCallLimit())
	}
	if cfg.Sync.BatchSize != defaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", defaultBatchSize, cfg.Sync.BatchSize)
	}
	if cfg.Sync.PostsPerConnection != defaultPostsPerConnection {
		t.Errorf("expected default posts per connection %d, got %d", defaultPostsPerConnection, cfg.Sync.PostsPerConnection)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                    "9090",
		"SERVER_READ_TIMEOUT_SECONDS":    "30",
		"LOG_LEVEL":                      "debug",
		"LOG_FORMAT":                     "text",
		"DATA_DIR":                       "/var/lib/linkpilot",
		"STATIC_DIR":                     "/srv/linkpilot/web",
		"LINKPILOT_DAILY_CALL_LIMIT":     "200",
		"LINKPILOT_CALL_RESERVE":         "25",
		"LINKPILOT_SYNC_BATCH_SIZE":      "4",
		"LINKPILOT_POSTS_PER_CONNECTION": "3",
		"LINKPILOT_RELEVANCE_KEYWORDS":   "golang, distributed systems ,sre",
		"LINKPILOT_SYNC_HOUR":            "4",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected overridden port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Database.DataDir != "/var/lib/linkpilot" {
		t.Errorf("expected overridden data dir, got %q", cfg.Database.DataDir)
	}
	if cfg.Server.StaticDir != "/srv/linkpilot/web" {
		t.Errorf("expected overridden static dir, got %q", cfg.Server.StaticDir)
	}
	if cfg.Sync.DailyCallLimit != 200 {
		t.Errorf("expected daily call limit 200, got %d", cfg.Sync.DailyCallLimit)
	}
	if cfg.Sync.CallReserve != 25 {
		t.Errorf("expected call reserve 25, got %d", cfg.Sync.CallReserve)
	}
	if cfg.Sync.UsableCallLimit() != 175 {
		t.Errorf("expected usable limit 175, got %d", cfg.Sync.UsableCallLimit())
	}
	if cfg.Sync.BatchSize != 4 {
		t.Errorf("expected batch size 4, got %d", cfg.Sync.BatchSize)
	}
	if cfg.Sync.SyncHour != 4 {
		t.Errorf("expected sync hour 4, got %d", cfg.Sync.SyncHour)
	}

	wantKeywords := []string{"golang", "distributed systems", "sre"}
	if len(cfg.Sync.RelevanceKeywords) != len(wantKeywords) {
		t.Fatalf("expected %d keywords, got %v", len(wantKeywords), cfg.Sync.RelevanceKeywords)
	}
	for i, kw := range wantKeywords {
		if cfg.Sync.RelevanceKeywords[i] != kw {
			t.Errorf("keyword %d: expected %q, got %q", i, kw, cfg.Sync.RelevanceKeywords[i])
		}
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":    "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS":   "abc",
		"LOG_LEVEL":                      "verbose",
		"LOG_FORMAT":                     "xml",
		"LINKPILOT_DAILY_CALL_LIMIT":     "0",
		"LINKPILOT_CALL_RESERVE":         "-5",
		"LINKPILOT_SYNC_BATCH_SIZE":      "zero",
		"LINKPILOT_POSTS_PER_CONNECTION": "-3",
		"LINKPILOT_SYNC_HOUR":            "24",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestLoadRejectsReserveAtOrAboveLimit(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LINKPILOT_DAILY_CALL_LIMIT", "100")
	t.Setenv("LINKPILOT_CALL_RESERVE", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when reserve consumes the entire daily limit")
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestLoadDoesNotPersistEnvBetweenRuns(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Unsetenv("SERVER_READ_TIMEOUT_SECONDS"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout after reset, got %v", cfg.Server.ReadTimeout)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATA_DIR",
		"STATIC_DIR",
		"LINKEDIN_ACCESS_TOKEN",
		"LINKEDIN_AUTHOR_URN",
		"LINKPILOT_DAILY_CALL_LIMIT",
		"LINKPILOT_CALL_RESERVE",
		"LINKPILOT_SYNC_BATCH_SIZE",
		"LINKPILOT_POSTS_PER_CONNECTION",
		"LINKPILOT_RELEVANCE_KEYWORDS",
		"LINKPILOT_SYNC_HOUR",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}
