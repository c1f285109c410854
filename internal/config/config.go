package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"budgetcal/internal/core"
)

// Backends accepted by DATA_BACKEND.
var Backends = []string{"memory", "sqlite", "postgres"}

type Config struct {
	// HTTP Server
	Port               string `toml:"port"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`

	// Storage
	DataBackend  string `toml:"data_backend"`
	SQLiteDBPath string `toml:"sqlite_db_path"`
	PostgresDSN  string `toml:"postgres_dsn"`

	// AMQP
	AMQPURL           string `toml:"amqp_url"`
	AMQPExchange      string `toml:"amqp_exchange"`
	AMQPReminderQueue string `toml:"amqp_reminder_queue"`
	AMQPExportQueue   string `toml:"amqp_export_queue"`

	// Ledger defaults
	Timezone        string `toml:"timezone"`
	DefaultRollover string `toml:"default_rollover"`

	// Reminders
	ReminderSchedule string `toml:"reminder_schedule"`
	ReminderLeadDays int    `toml:"reminder_lead_days"`

	// Projection memoization
	ProjectionCacheSize int           `toml:"projection_cache_size"`
	ProjectionCacheTTL  time.Duration `toml:"projection_cache_ttl"`

	// Google Sheets export
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleSheetName          string `toml:"google_sheet_name"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string `toml:"-"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Port:                "8081",
		RateLimitPerMinute:  60,
		DataBackend:         "sqlite",
		SQLiteDBPath:        "./data/budgetcal.db",
		AMQPExchange:        "budgetcal",
		AMQPReminderQueue:   "bill_reminders",
		AMQPExportQueue:     "projection_exports",
		Timezone:            "UTC",
		DefaultRollover:     string(core.Carryover),
		ReminderSchedule:    "0 8 * * *",
		ReminderLeadDays:    3,
		ProjectionCacheSize: 64,
		ProjectionCacheTTL:  10 * time.Minute,
		GoogleSheetName:     "Projection",
	}
}

// FilePath returns the TOML config location: BUDGETCAL_CONFIG if set,
// otherwise config.toml under the XDG config directory.
func FilePath() string {
	if p := os.Getenv("BUDGETCAL_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "budgetcal", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "budgetcal", "config.toml")
}

// Load builds the configuration from defaults, then the TOML file at
// FilePath (if it exists), then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(FilePath()); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Save writes c as TOML to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setString(&c.DataBackend, "DATA_BACKEND")
	setString(&c.SQLiteDBPath, "SQLITE_DB_PATH")
	setString(&c.PostgresDSN, "POSTGRES_DSN")
	setString(&c.AMQPURL, "AMQP_URL")
	setString(&c.AMQPExchange, "AMQP_EXCHANGE")
	setString(&c.AMQPReminderQueue, "AMQP_REMINDER_QUEUE")
	setString(&c.AMQPExportQueue, "AMQP_EXPORT_QUEUE")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.DefaultRollover, "DEFAULT_ROLLOVER")
	setString(&c.ReminderSchedule, "REMINDER_SCHEDULE")
	setInt(&c.ReminderLeadDays, "REMINDER_LEAD_DAYS")
	setInt(&c.ProjectionCacheSize, "PROJECTION_CACHE_SIZE")
	setDuration(&c.ProjectionCacheTTL, "PROJECTION_CACHE_TTL")
	setString(&c.GoogleSpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	setString(&c.GoogleSheetName, "GOOGLE_SHEET_NAME")
	setString(&c.GoogleServiceAccountFile, "GOOGLE_SERVICE_ACCOUNT_FILE")
	setString(&c.GoogleServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Rollover returns the parsed default rollover preference.
func (c *Config) Rollover() core.Rollover {
	r, err := core.ParseRollover(c.DefaultRollover)
	if err != nil {
		return core.Carryover
	}
	return r
}

// SheetsEnabled reports whether projections can be exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			problems = append(problems, "POSTGRES_DSN is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresDSN); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			problems = append(problems, fmt.Sprintf("invalid POSTGRES_DSN '%s': must be a postgres:// URL", c.PostgresDSN))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPReminderQueue == "" || c.AMQPExportQueue == "" {
			problems = append(problems, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if _, err := core.ParseRollover(c.DefaultRollover); err != nil {
		problems = append(problems, fmt.Sprintf("invalid default rollover '%s': must be carryover or reset", c.DefaultRollover))
	}

	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
	}
	if c.ReminderLeadDays < 0 || c.ReminderLeadDays > 60 {
		problems = append(problems, fmt.Sprintf("invalid reminder lead days %d: must be between 0 and 60", c.ReminderLeadDays))
	}

	if c.ProjectionCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid projection cache size %d: must be at least 1", c.ProjectionCacheSize))
	}
	if c.ProjectionCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid projection cache ttl %v: must not be negative", c.ProjectionCacheTTL))
	}
	if c.RateLimitPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*dst = d
		}
	}
}
