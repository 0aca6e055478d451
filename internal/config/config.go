package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway names accepted by GATEWAY.
const (
	GatewayTelegram = "telegram"
	GatewayWhatsApp = "whatsapp"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	Gateway             string
	TelegramToken       string
	TelegramSecretToken string
	TelegramMode        string

	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string

	OpenAIAPIKey string

	LocalTimezone *time.Location
	CronSchedule  string

	WindowPolicy         string
	WindowLookaheadDays  int
	WindowLookbehindDays int
	ReminderLabel        string
	DispatchConcurrency  int
	OperatorChatID       int64

	LogLevel string
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	databaseURL := os.Getenv("DATABASE_URL")

	return &Config{
		Port:                 getenvDefault("PORT", "8080"),
		DatabaseDriver:       getenvDefault("DATABASE_DRIVER", inferDriver(databaseURL)),
		DatabaseURL:          databaseURL,
		SQLitePath:           getenvDefault("SQLITE_PATH", "reminders.db"),
		Gateway:              strings.ToLower(getenvDefault("GATEWAY", GatewayTelegram)),
		TelegramToken:        os.Getenv("TELEGRAM_TOKEN"),
		TelegramSecretToken:  os.Getenv("TELEGRAM_SECRET_TOKEN"),
		TelegramMode:         strings.ToLower(getenvDefault("TELEGRAM_MODE", "webhook")),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		LocalTimezone:        location,
		CronSchedule:         getenvDefault("CRON_SCHEDULE", "0 9 * * *"),
		WindowPolicy:         strings.ToLower(getenvDefault("WINDOW_POLICY", "annual")),
		WindowLookaheadDays:  ParseIntEnv("WINDOW_LOOKAHEAD_DAYS", 1),
		WindowLookbehindDays: ParseIntEnv("WINDOW_LOOKBEHIND_DAYS", 7),
		ReminderLabel:        getenvDefault("REMINDER_LABEL", "Reminder"),
		DispatchConcurrency:  ParseIntEnv("DISPATCH_CONCURRENCY", 4),
		OperatorChatID:       int64(ParseIntEnv("OPERATOR_CHAT_ID", 0)),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.DatabaseDriver {
	case "postgres", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Sprintf("DATABASE_URL is required for driver %q", c.DatabaseDriver))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.Gateway {
	case GatewayTelegram:
		if c.TelegramToken == "" {
			errs = append(errs, "TELEGRAM_TOKEN is required for the telegram gateway")
		}
		if c.TelegramMode != "webhook" && c.TelegramMode != "polling" {
			errs = append(errs, fmt.Sprintf("TELEGRAM_MODE must be webhook or polling, got %q", c.TelegramMode))
		}
		if c.TelegramMode == "webhook" && c.TelegramSecretToken == "" {
			errs = append(errs, "TELEGRAM_SECRET_TOKEN is required in webhook mode")
		}
	case GatewayWhatsApp:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioWhatsAppNumber == "" {
			errs = append(errs, "TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER are required for the whatsapp gateway")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown GATEWAY %q", c.Gateway))
	}

	if c.WindowPolicy != "annual" && c.WindowPolicy != "absolute" {
		errs = append(errs, fmt.Sprintf("WINDOW_POLICY must be annual or absolute, got %q", c.WindowPolicy))
	}
	if c.WindowLookaheadDays < 0 {
		errs = append(errs, "WINDOW_LOOKAHEAD_DAYS can't be negative")
	}
	if c.WindowLookbehindDays < 0 {
		errs = append(errs, "WINDOW_LOOKBEHIND_DAYS can't be negative")
	}
	if c.WindowPolicy == "annual" && c.WindowLookaheadDays > 364 {
		errs = append(errs, "WINDOW_LOOKAHEAD_DAYS must be at most 364 for the annual policy")
	}
	if c.DispatchConcurrency < 1 {
		errs = append(errs, "DISPATCH_CONCURRENCY must be at least 1")
	}
	if strings.TrimSpace(c.ReminderLabel) == "" {
		errs = append(errs, "REMINDER_LABEL can't be blank")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func inferDriver(databaseURL string) string {
	switch {
	case databaseURL == "":
		return "sqlite"
	case strings.HasPrefix(databaseURL, "mysql://"), strings.Contains(databaseURL, "@tcp("):
		return "mysql"
	default:
		return "postgres"
	}
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}
