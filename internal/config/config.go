// Package config loads server settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. Struct tags drive parsing (github.com/caarlos0/env) and
// defaults; Validate then checks the cross-field rules the tags can't
// express, such as "the postmark driver needs a server token".
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig = errors.New("config: failed to parse environment")
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

const (
	MailDriverLog      = "log"
	MailDriverPostmark = "postmark"

	MediaDriverLocal = "local"
	MediaDriverS3    = "s3"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" or "json".
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DBPath string `env:"DB_PATH" envDefault:"data/blog.db"`

	JWTSecret string `env:"JWT_SECRET,required"`
	// SessionTTL of zero issues session tokens without an expiry.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"0s"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// ClientDomain prefixes the links mailed to users, e.g. https://blog.example.com.
	ClientDomain string `env:"CLIENT_DOMAIN" envDefault:"http://localhost:3000"`

	// Requests per second and burst allowed per client IP on auth routes.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"1"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" envDefault:"5"`

	// TrustedProxies lists the reverse proxies (CIDR or single address)
	// allowed to report the client address in X-Forwarded-For and friends.
	// Leave empty when the server is reached directly.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Mail  MailConfig
	Media MediaConfig
}

type MailConfig struct {
	Driver               string `env:"MAIL_DRIVER" envDefault:"log"`
	From                 string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

type MediaConfig struct {
	Driver string `env:"MEDIA_DRIVER" envDefault:"local"`

	// local driver
	Dir     string `env:"MEDIA_DIR" envDefault:"data/uploads"`
	BaseURL string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8080/uploads"`

	// s3 driver
	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3BaseURL        string `env:"S3_BASE_URL"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// Load reads envFiles (or ./.env when none are given) into the process
// environment, then parses and validates a Config.
//
// A missing default .env is fine; a missing file that was asked for by name
// is an error. Variables already set in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", strings.Join(envFiles, ", "), err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once so a misconfigured deploy can be
// fixed in one go.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Port < 1 || c.Port > 65535 {
		add("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if len(c.JWTSecret) < 16 {
		add("JWT_SECRET must be at least 16 characters")
	}
	if c.SessionTTL < 0 {
		add("SESSION_TTL must not be negative")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		add("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.ClientDomain == "" {
		add("CLIENT_DOMAIN is required")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst < 1 {
		add("AUTH_RATE_LIMIT must be positive and AUTH_RATE_BURST at least 1")
	}
	for _, p := range c.TrustedProxies {
		if !validProxy(strings.TrimSpace(p)) {
			add("TRUSTED_PROXIES entry %q is not an IP address or CIDR range", p)
		}
	}
	if _, err := c.level(); err != nil {
		add("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		add("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverPostmark:
		if c.Mail.PostmarkServerToken == "" {
			add("POSTMARK_SERVER_TOKEN is required for the postmark mail driver")
		}
		if c.Mail.From == "" {
			add("MAIL_FROM is required for the postmark mail driver")
		}
	default:
		add("MAIL_DRIVER must be %s or %s, got %q", MailDriverLog, MailDriverPostmark, c.Mail.Driver)
	}

	switch c.Media.Driver {
	case MediaDriverLocal:
		if c.Media.Dir == "" || c.Media.BaseURL == "" {
			add("MEDIA_DIR and MEDIA_BASE_URL are required for the local media driver")
		}
	case MediaDriverS3:
		if c.Media.S3Bucket == "" {
			add("S3_BUCKET is required for the s3 media driver")
		}
		if c.Media.S3Region == "" {
			add("S3_REGION is required for the s3 media driver")
		}
		if (c.Media.S3AccessKeyID == "") != (c.Media.S3SecretKey == "") {
			add("S3_ACCESS_KEY_ID and S3_SECRET_KEY must be set together")
		}
	default:
		add("MEDIA_DRIVER must be %s or %s, got %q", MediaDriverLocal, MediaDriverS3, c.Media.Driver)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

func validProxy(s string) bool {
	if s == "" {
		return true
	}
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// Logger builds the application logger writing to w: human-readable text
// in development, JSON lines when LOG_FORMAT=json.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
