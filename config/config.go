package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment.
//
// Every leaf carries the plain variable name in its envconfig tag; envconfig
// tries the prefixed form first (e.g. RAZORPAY_RAZORPAY_KEY_ID) and falls back
// to the tag, so the flat names below are what deployments set.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Razorpay RazorpayConfig
	Email    EmailConfig
	AWS      AWSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string `envconfig:"PORT" default:"8080"`
	ReadTimeout        int    `envconfig:"READ_TIMEOUT_SEC" default:"30"`
	WriteTimeout       int    `envconfig:"WRITE_TIMEOUT_SEC" default:"30"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"` // comma-separated, or "*"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `envconfig:"DATABASE_URL"` // if set, used as-is
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName   string `envconfig:"DB_NAME" default:"tripnest"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// JWTConfig holds JWT validation settings for admin routes.
type JWTConfig struct {
	Secret      string `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	ExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"24"`
}

// RazorpayConfig holds payment gateway credentials.
type RazorpayConfig struct {
	KeyID            string        `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret        string        `envconfig:"RAZORPAY_KEY_SECRET"`
	WebhookSecret    string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	BaseURL          string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Currency         string        `envconfig:"RAZORPAY_CURRENCY" default:"INR"`
	Timeout          time.Duration `envconfig:"RAZORPAY_TIMEOUT" default:"10s"`
	BreakerThreshold int64         `envconfig:"RAZORPAY_BREAKER_THRESHOLD" default:"5"`
}

// EmailConfig for SMTP delivery of staff notifications.
type EmailConfig struct {
	FromAddress string `envconfig:"EMAIL_FROM_ADDRESS" default:"noreply@example.com"`
	FromName    string `envconfig:"EMAIL_FROM_NAME" default:"Tripnest"`
	SMTPHost    string `envconfig:"SMTP_HOST"`
	SMTPPort    int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser    string `envconfig:"SMTP_USER"`
	SMTPPass    string `envconfig:"SMTP_PASS"`
}

// AWSConfig holds credentials and the bucket used to archive gateway payloads.
type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	PaymentsBucket  string `envconfig:"AWS_S3_PAYMENTS_BUCKET" default:"tripnest-payment-payloads"`
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}
