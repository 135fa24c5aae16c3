// Package config loads configuration from environment variables with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/kingwingfly/cradle-system/internal/adapter/telegram/middleware"
)

// Reminder is a pre-configured deadline trigger: after Delay ticks the
// daemon logs (and, if configured, notifies) Message.
type Reminder struct {
	Delay   uint64
	Message string
}

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	Telegram struct {
		Token      string
		AllowedIDs []int64
	}
	Journal struct {
		// Driver selects fire journal storage
		Driver string `validate:"required,oneof=none sqlite postgres"`
		// SQLitePath is the database file for the sqlite driver
		SQLitePath string
		// DatabaseURL is the PostgreSQL DSN for the postgres driver
		DatabaseURL string
		// Retention is how long fire entries are kept
		Retention time.Duration `validate:"min=0"`
		// PruneSchedule is a cron expression or descriptor for the keeper
		PruneSchedule string `validate:"required"`
	}
	// WebhookURL receives fire and lifecycle events when set
	WebhookURL string
	// Reminders parsed from REMINDERS ("30=kettle off,60=stand up")
	Reminders []Reminder
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/cradled.log")
	c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.Telegram.AllowedIDs = middleware.ParseAllowedIDs(os.Getenv("TELEGRAM_ALLOWED_IDS"))
	c.Journal.Driver = strings.ToLower(getenv("JOURNAL_DRIVER", "none"))
	c.Journal.SQLitePath = getenv("SQLITE_PATH", "data/cradle.db")
	c.Journal.DatabaseURL = os.Getenv("DATABASE_URL")
	c.Journal.PruneSchedule = getenv("JOURNAL_PRUNE_SCHEDULE", "@every 1h")
	c.WebhookURL = os.Getenv("WEBHOOK_URL")

	retention, err := time.ParseDuration(getenv("JOURNAL_RETENTION", "168h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_RETENTION: %w", err)
	}
	c.Journal.Retention = retention

	c.Reminders, err = ParseReminders(os.Getenv("REMINDERS"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REMINDERS: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Journal.Driver == "postgres" && c.Journal.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL required when JOURNAL_DRIVER is postgres")
	}
	return c, nil
}

// ParseReminders parses "delay=message" pairs separated by commas, e.g.
// "30=kettle off,60=stand up".
func ParseReminders(s string) ([]Reminder, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]Reminder, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[1]) == "" {
			return nil, fmt.Errorf("expected delay=message, got %q", p)
		}
		delay, err := strconv.ParseUint(strings.TrimSpace(kv[0]), 10, 64)
		if err != nil || delay == 0 {
			return nil, fmt.Errorf("delay must be a positive integer in %q", p)
		}
		out = append(out, Reminder{Delay: delay, Message: strings.TrimSpace(kv[1])})
	}
	return out, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
