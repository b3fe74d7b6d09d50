package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	MetricsEnabled     bool

	// Ledger storage
	DataBackend   string
	DataDirectory string
	SQLiteDBPath  string

	// AMQP (optional; events are dropped with a warning when unset)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (worker only)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleRemindersSheetName string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Advisor (disabled when the key is empty)
	GeminiAPIKey   string
	GeminiModel    string
	AdvisorTimeout time.Duration

	// Workers
	SyncInterval     time.Duration
	ReminderInterval time.Duration
	ReminderHorizon  time.Duration

	// Report cache
	CacheSize int
	CacheTTL  time.Duration

	LogLevel string
}

var (
	validBackends  = []string{"memory", "sqlite"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DataDirectory: getEnv("DATA_DIR", "data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finboard.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleRemindersSheetName: getEnv("GOOGLE_REMINDERS_SHEET_NAME", "Reminders"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdvisorTimeout: getEnvDuration("ADVISOR_TIMEOUT", 30*time.Second),

		SyncInterval:     getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", time.Hour),
		ReminderHorizon:  getEnvDuration("REMINDER_HORIZON", 72*time.Hour),

		CacheSize: getEnvInt("CACHE_SIZE", 128),
		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// AdvisorEnabled reports whether the AI advisor endpoints are served.
func (c *Config) AdvisorEnabled() bool { return c.GeminiAPIKey != "" }

// SheetsEnabled reports whether the worker should mirror to Google Sheets.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
		}
		if c.GoogleRemindersSheetName == "" {
			errors = append(errors, "Google reminders sheet name is required when a spreadsheet is configured")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided when a spreadsheet is configured")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AdvisorEnabled() && c.AdvisorTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid advisor timeout %v: must be positive", c.AdvisorTimeout))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.ReminderInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 second", c.ReminderInterval))
	}
	if c.ReminderHorizon < 0 {
		errors = append(errors, fmt.Sprintf("invalid reminder horizon %v: must not be negative", c.ReminderHorizon))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if !oneOf(c.LogLevel, validLogLevels) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
