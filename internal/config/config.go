package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned by Validate when a setting is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Mode selects how the process behaves towards developers.
type Mode string

const (
	// ModeDebug enables verbose error bodies, stack traces and template reloading.
	ModeDebug Mode = "debug"
	// ModeProduction disables both.
	ModeProduction Mode = "production"
)

// IsDebug reports whether m is ModeDebug.
func (m Mode) IsDebug() bool { return m == ModeDebug }

// ParseMode converts a raw value into a Mode.
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case ModeDebug, ModeProduction:
		return Mode(v), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, v)
	}
}

const (
	TemplateSourceDir   = "dir"
	TemplateSourceMinIO = "minio"
)

// MinIOConfig holds object storage settings used when templates live in a bucket.
type MinIOConfig struct {
	Endpoint  string `validate:"required"`
	AccessKey string `validate:"required"`
	SecretKey string `validate:"required"`
	Bucket    string `validate:"required"`
	UseSSL    bool
}

// TemplateConfig describes where the page template is read from.
type TemplateConfig struct {
	Source string      `validate:"oneof=dir minio"`
	Dir    string      `validate:"required_if=Source dir"`
	Name   string      `validate:"required"`
	MinIO  MinIOConfig `validate:"-"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `validate:"oneof=text json"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables.
type AppConfig struct {
	Mode            Mode          `validate:"oneof=debug production"`
	Host            string
	Port            string        `validate:"required,numeric"`
	StaticDir       string
	MetricsEnabled  bool
	ReadTimeout     time.Duration `validate:"gte=0"`
	WriteTimeout    time.Duration `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	Template        TemplateConfig
	Log             LogConfig
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the file.
func Load() *AppConfig {
	return &AppConfig{
		Mode:            Mode(getEnv("APP_MODE", string(ModeDebug))),
		Host:            getEnv("APP_HOST", "127.0.0.1"),
		Port:            getEnv("PORT", "5000"),
		StaticDir:       getEnv("STATIC_DIR", "static"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		ReadTimeout:     time.Duration(getEnvInt("READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:    time.Duration(getEnvInt("WRITE_TIMEOUT_SEC", 10)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 5)) * time.Second,
		Template: TemplateConfig{
			Source: getEnv("TEMPLATE_SOURCE", TemplateSourceDir),
			Dir:    getEnv("TEMPLATE_DIR", "templates"),
			Name:   getEnv("TEMPLATE_NAME", "index.html"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", ""),
		},
	}
}

// ApplyDefaults fills settings whose default depends on the final Mode.
// Call it after every override of Mode has been applied.
func (c *AppConfig) ApplyDefaults() {
	level, format := "info", "json"
	if c.Mode.IsDebug() {
		level, format = "debug", "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = level
	}
	if c.Log.Format == "" {
		c.Log.Format = format
	}
}

// Validate checks the configuration. MinIO settings are only required
// when templates are read from a bucket.
func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Template.Source == TemplateSourceMinIO {
		if err := v.Struct(c.Template.MinIO); err != nil {
			return fmt.Errorf("%w: minio: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
