// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	DBDriver       string `mapstructure:"DB_DRIVER"`
	SQLitePath     string `mapstructure:"SQLITE_PATH"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBReadHost     string `mapstructure:"DB_READ_HOST"`
	DBReadPort     string `mapstructure:"DB_READ_PORT"`
	DBReadUser     string `mapstructure:"DB_READ_USER"`
	DBReadPassword string `mapstructure:"DB_READ_PASSWORD"`
	DBSlowQueryMS  int    `mapstructure:"DB_SLOW_QUERY_MS"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	Env            string `mapstructure:"APP_ENV"`

	ViewDedupTTLHours int `mapstructure:"VIEW_DEDUP_TTL_HOURS"`
	ImageMaxUploadMB  int `mapstructure:"IMAGE_MAX_UPLOAD_MB"`

	MediaBackend string `mapstructure:"MEDIA_BACKEND"`
	MediaDir     string `mapstructure:"MEDIA_DIR"`
	MediaBaseURL string `mapstructure:"MEDIA_BASE_URL"`
	S3Endpoint   string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey  string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey  string `mapstructure:"S3_SECRET_KEY"`
	S3Bucket     string `mapstructure:"S3_BUCKET"`
	S3UseSSL     bool   `mapstructure:"S3_USE_SSL"`

	SMTPHost          string  `mapstructure:"SMTP_HOST"`
	SMTPPort          int     `mapstructure:"SMTP_PORT"`
	SMTPUsername      string  `mapstructure:"SMTP_USERNAME"`
	SMTPPassword      string  `mapstructure:"SMTP_PASSWORD"`
	MailFrom          string  `mapstructure:"MAIL_FROM"`
	MailRatePerSecond float64 `mapstructure:"MAIL_RATE_PER_SECOND"`
	FrontendBaseURL   string  `mapstructure:"FRONTEND_BASE_URL"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail     string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A local .env only fills variables that are not already set.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("SQLITE_PATH", "bloh.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "bloh")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_SLOW_QUERY_MS", 200)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("VIEW_DEDUP_TTL_HOURS", 6)
	viper.SetDefault("IMAGE_MAX_UPLOAD_MB", 5)

	viper.SetDefault("MEDIA_BACKEND", "local")
	viper.SetDefault("MEDIA_DIR", "media")
	viper.SetDefault("MEDIA_BASE_URL", "/media")
	viper.SetDefault("S3_ENDPOINT", "localhost:9000")
	viper.SetDefault("S3_BUCKET", "bloh-media")
	viper.SetDefault("S3_USE_SSL", false)

	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MAIL_FROM", "no-reply@bloh.local")
	viper.SetDefault("MAIL_RATE_PER_SECOND", 5.0)
	viper.SetDefault("FRONTEND_BASE_URL", "http://localhost:5173")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@bloh.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// ViewDedupTTL is the window within which repeated views from one fingerprint count once.
func (c *Config) ViewDedupTTL() time.Duration {
	if c.ViewDedupTTLHours <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.ViewDedupTTLHours) * time.Hour
}

// SlowQueryThreshold is the duration above which a query is logged as slow.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.DBSlowQueryMS) * time.Millisecond
}

// ImageMaxUploadBytes is the size ceiling applied to every uploaded image.
func (c *Config) ImageMaxUploadBytes() int64 {
	mb := c.ImageMaxUploadMB
	if mb <= 0 {
		mb = 5
	}
	return int64(mb) << 20
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch strings.ToLower(c.DBDriver) {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}

	switch strings.ToLower(c.MediaBackend) {
	case "", "local", "s3":
	default:
		return fmt.Errorf("unsupported MEDIA_BACKEND %q (want local or s3)", c.MediaBackend)
	}
	if strings.EqualFold(c.MediaBackend, "s3") && (c.S3Endpoint == "" || c.S3Bucket == "") {
		return errors.New("S3_ENDPOINT and S3_BUCKET are required when MEDIA_BACKEND is s3")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver != "sqlite" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DevBootstrapRoot {
			return errors.New("DEV_BOOTSTRAP_ROOT must be disabled in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
