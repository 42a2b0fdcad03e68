// Package config loads runtime settings from the environment and an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config keeps runtime settings for the API server and the bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	HTTPAddr       string
	JWTSecret      string
	TokenTTL       time.Duration
	ReportInterval time.Duration
	DigestTime     string
	Location       *time.Location
	LogLevel       slog.Level
	LogFormat      string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// fileConfig mirrors the TOML layout.
type fileConfig struct {
	DatabaseURL string `toml:"database-url"`
	Timezone    string `toml:"timezone"`
	HTTP        struct {
		Addr      string `toml:"addr"`
		JWTSecret string `toml:"jwt-secret"`
		TokenTTL  string `toml:"token-ttl"`
	} `toml:"http"`
	Telegram struct {
		Token               string `toml:"token"`
		ReportIntervalHours string `toml:"report-interval-hours"`
		DigestTime          string `toml:"digest-time"`
	} `toml:"telegram"`
	Google struct {
		ClientID     string `toml:"client-id"`
		ClientSecret string `toml:"client-secret"`
		RedirectURL  string `toml:"redirect-url"`
	} `toml:"google"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// Load reads the TOML file named by PLANNER_CONFIG, if any, then applies
// environment variables on top and fills in defaults.
func Load() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("PLANNER_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if _, err := toml.Decode(string(data), &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := Config{
		TelegramToken:      pick("TELEGRAM_TOKEN", file.Telegram.Token),
		DatabaseURL:        pick("DATABASE_URL", file.DatabaseURL),
		HTTPAddr:           pick("HTTP_ADDR", file.HTTP.Addr),
		JWTSecret:          pick("JWT_SECRET", file.HTTP.JWTSecret),
		DigestTime:         pick("DIGEST_TIME", file.Telegram.DigestTime),
		LogFormat:          strings.ToLower(pick("LOG_FORMAT", file.Log.Format)),
		GoogleClientID:     pick("GOOGLE_CLIENT_ID", file.Google.ClientID),
		GoogleClientSecret: pick("GOOGLE_CLIENT_SECRET", file.Google.ClientSecret),
		GoogleRedirectURL:  pick("GOOGLE_REDIRECT_URL", file.Google.RedirectURL),
		ReportInterval:     parseInterval(pick("REPORT_INTERVAL_HOURS", file.Telegram.ReportIntervalHours)),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_planner.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}
	if cfg.DigestTime == "" {
		cfg.DigestTime = "09:00"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	ttl, err := parseDuration(pick("TOKEN_TTL", file.HTTP.TokenTTL), 24*time.Hour)
	if err != nil {
		return cfg, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	cfg.Location = time.Local
	if tz := pick("TIMEZONE", file.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if level := pick("LOG_LEVEL", file.Log.Level); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the settings a command needs.
func (c Config) Validate(needBot, needHTTP bool) error {
	var errs []error
	if needBot && c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if needHTTP && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// NewLogger builds the process logger described by the config.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func pick(env, fromFile string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return strings.TrimSpace(fromFile)
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

// parseDuration accepts Go durations ("36h") or a plain number of hours.
func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", n)
		}
		return time.Duration(n) * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}
