package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TargetSinger = "singer"
	TargetSQLite = "sqlite"
)

// TapConfig is the run configuration. The file may be YAML or the Singer JSON config.
type TapConfig struct {
	AuthToken string `yaml:"auth_token"`
	StartDate string `yaml:"start_date"`
	BaseURL   string `yaml:"base_url"`
	StartYear int    `yaml:"start_year"`

	HolidayAPIURL  string `yaml:"holiday_api_url"`
	HolidayCountry string `yaml:"holiday_country"`
	HolidayRegion  string `yaml:"holiday_region"`

	RateLimitCalls  int      `yaml:"rate_limit_calls"`
	RateLimitPeriod Duration `yaml:"rate_limit_period"`
	MaxTries        int      `yaml:"max_tries"`
	BackoffInitial  Duration `yaml:"backoff_initial"`
	BackoffMax      Duration `yaml:"backoff_max"`
	RequestTimeout  Duration `yaml:"request_timeout"`

	Target      string `yaml:"target"`
	DatabaseURL string `yaml:"database_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// Duration is a time.Duration read from either a Go duration string ("15s",
// "500ms") or a plain number of seconds, as Singer JSON configs write them.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string or a number of seconds", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		secs, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
		}
		*d = Duration(secs * float64(time.Second))
	default:
		v, err := time.ParseDuration(strings.TrimSpace(node.Value))
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
		}
		*d = Duration(v)
	}
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func defaults() *TapConfig {
	return &TapConfig{
		BaseURL:         "https://timebutler.de/api/v1/",
		StartYear:       2010,
		HolidayAPIURL:   "https://date.nager.at/api/v3",
		HolidayCountry:  "DE",
		RateLimitCalls:  100,
		RateLimitPeriod: Duration(15 * time.Second),
		MaxTries:        5,
		BackoffInitial:  Duration(2 * time.Second),
		BackoffMax:      Duration(time.Minute),
		RequestTimeout:  Duration(30 * time.Second),
		Target:          TargetSinger,
		DatabaseURL:     "timebutler.db",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads .env when present, then path (if set), then the environment overrides.
func Load(path string) (*TapConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading env variables: %w", err)
	}

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *TapConfig) applyEnv() {
	c.AuthToken = getEnv("TIMEBUTLER_AUTH_TOKEN", c.AuthToken)
	c.StartDate = getEnv("TIMEBUTLER_START_DATE", c.StartDate)
	c.BaseURL = getEnv("TIMEBUTLER_BASE_URL", c.BaseURL)
	c.StartYear = int(getEnvAsInt("TIMEBUTLER_START_YEAR", int64(c.StartYear)))

	c.HolidayAPIURL = getEnv("HOLIDAY_API_URL", c.HolidayAPIURL)
	c.HolidayCountry = getEnv("HOLIDAY_COUNTRY", c.HolidayCountry)
	c.HolidayRegion = getEnv("HOLIDAY_REGION", c.HolidayRegion)

	c.RateLimitCalls = int(getEnvAsInt("RATE_LIMIT_CALLS", int64(c.RateLimitCalls)))
	c.MaxTries = int(getEnvAsInt("MAX_TRIES", int64(c.MaxTries)))

	c.Target = strings.ToLower(getEnv("TAP_TARGET", c.Target))
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.TelegramChatID = getEnvAsInt("TELEGRAM_CHAT_ID", c.TelegramChatID)
}

// Validate reports every problem at once.
func (c *TapConfig) Validate() error {
	var errs []error
	if c.AuthToken == "" {
		errs = append(errs, errors.New("auth_token is required"))
	}
	if c.StartDate == "" {
		errs = append(errs, errors.New("start_date is required"))
	}
	if c.StartYear < 1970 || c.StartYear > time.Now().Year() {
		errs = append(errs, fmt.Errorf("start_year %d is out of range", c.StartYear))
	}
	if c.RateLimitCalls < 0 {
		errs = append(errs, errors.New("rate_limit_calls must not be negative"))
	}
	if c.MaxTries < 1 {
		errs = append(errs, errors.New("max_tries must be at least 1"))
	}
	switch c.Target {
	case TargetSinger:
	case TargetSQLite:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for the sqlite target"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown target %q", c.Target))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("telegram_chat_id is required when telegram_token is set"))
	}
	return errors.Join(errs...)
}

// NotificationsEnabled reports whether a run summary should go to Telegram.
func (c *TapConfig) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}
