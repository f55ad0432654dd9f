package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Minimum polling interval. Anything shorter would hammer the analytics
// backend while a run is still pending.
const minPollInterval = 5 * time.Second

// Config holds all configuration for the agent
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Backend configuration
	BaseURL string

	// Account / brand configuration
	AccountEmail    string
	AccountPassword string
	FirstName       string
	LastName        string
	AppName         string
	BrandWebsite    string
	Keywords        []string

	// Polling configuration
	PollInterval time.Duration

	// Session persistence
	SessionDBPath string

	// Re-analysis schedule
	ReportSchedule string // "daily" or "weekly"

	// Snapshot archive configuration
	StorageAccount   string
	StorageContainer string
	ArchiveDir       string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8090"),
		Debug: getBoolEnv("DEBUG", false),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080/api/v1"),

		AccountEmail:    getEnv("ACCOUNT_EMAIL", ""),
		AccountPassword: getEnv("ACCOUNT_PASSWORD", ""),
		FirstName:       getEnv("ACCOUNT_FIRST_NAME", ""),
		LastName:        getEnv("ACCOUNT_LAST_NAME", ""),
		AppName:         getEnv("APP_NAME", "DefaultApp"),
		BrandWebsite:    getEnv("BRAND_WEBSITE", ""),
		Keywords:        getSliceEnv("KEYWORDS", nil),

		PollInterval: time.Duration(getIntEnv("POLL_INTERVAL_SECONDS", 30)) * time.Second,

		SessionDBPath: getEnv("SESSION_DB_PATH", "session.db"),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "weekly"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "analytics"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "archive"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	if cfg.PollInterval < minPollInterval {
		cfg.PollInterval = minPollInterval
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}

	if c.AccountEmail == "" || c.AccountPassword == "" {
		return fmt.Errorf("ACCOUNT_EMAIL and ACCOUNT_PASSWORD are required")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
