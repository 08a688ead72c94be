package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")
	ErrWeakSessionSecret    = errors.New("SESSION_SECRET must be at least 32 bytes")
	ErrUnknownDBDriver      = errors.New("DB_DRIVER must be one of sqlite, mysql, postgres")
)

// Config is built once at startup and passed to constructors. It is never
// mutated after Load returns.
type Config struct {
	Port          string
	GinMode       string
	BaseURL       string
	SessionSecret string
	SessionMaxAge time.Duration

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string

	SMTP       SMTPConfig
	Cloudinary CloudinaryConfig

	UploadDir      string
	UploadTimeout  time.Duration
	MaxUploadBytes int64

	ResetTokenTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
	Timeout  time.Duration
}

// Enabled reports whether outbound mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether every Cloudinary credential is present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from the environment. Callers load .env files
// beforehand.
func Load() (*Config, error) {
	return load(viper.New())
}

// LoadDatabase reads configuration for tools that only touch the database.
// SESSION_SECRET is not required.
func LoadDatabase() (*Config, error) {
	cfg := read(viper.New())
	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	cfg := read(v)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(v *viper.Viper) *Config {
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SESSION_MAX_AGE", "168h")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "intake.db")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TLS", true)
	v.SetDefault("SMTP_TIMEOUT", "10s")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_TIMEOUT", "30s")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("RESET_TOKEN_TTL", "1h")

	cfg := &Config{
		Port:          v.GetString("PORT"),
		GinMode:       v.GetString("GIN_MODE"),
		BaseURL:       strings.TrimSuffix(v.GetString("BASE_URL"), "/"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		SessionMaxAge: v.GetDuration("SESSION_MAX_AGE"),
		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:         v.GetString("DB_DSN"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			TLS:      v.GetBool("SMTP_TLS"),
			Timeout:  v.GetDuration("SMTP_TIMEOUT"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
			Folder:    v.GetString("CLOUDINARY_FOLDER"),
		},
		UploadDir:      v.GetString("UPLOAD_DIR"),
		UploadTimeout:  v.GetDuration("UPLOAD_TIMEOUT"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		ResetTokenTTL:  v.GetDuration("RESET_TOKEN_TTL"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}
	return cfg
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	if len(c.SessionSecret) < 32 {
		return ErrWeakSessionSecret
	}
	return c.validateDatabase()
}

func (c *Config) validateDatabase() error {
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return ErrUnknownDBDriver
	}
	return nil
}
