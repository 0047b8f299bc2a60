// Package config loads application configuration from a YAML file with
// environment variable overrides for secrets. A Config value is built once
// in cmd/server and injected into each component; business logic never
// reads ambient process state.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Auth    AuthConfig    `yaml:"auth"`
	Portal  PortalConfig  `yaml:"portal"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Outbox  OutboxConfig  `yaml:"outbox"`
	Email   EmailConfig   `yaml:"email"`
	Archive ArchiveConfig `yaml:"archive"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IngestConfig holds webhook ingestion settings.
type IngestConfig struct {
	// WebhookSecret is the shared HMAC secret for inbound signatures.
	// Empty means every inbound request is rejected.
	WebhookSecret string `yaml:"webhook_secret"`
	// MaxBodyBytes caps the accepted payload size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// RatePerMinute limits deliveries per tenant per minute. 0 disables.
	RatePerMinute int `yaml:"rate_per_minute"`
}

// AuthConfig holds admin session authentication settings (Google OAuth).
type AuthConfig struct {
	Enabled            bool     `yaml:"enabled"`
	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleClientSecret string   `yaml:"google_client_secret"`
	AllowedDomain      string   `yaml:"allowed_domain"`
	SessionSecret      string   `yaml:"session_secret"`
	CookieName         string   `yaml:"cookie_name"`
	CookieMaxAge       int      `yaml:"cookie_max_age"`
	// ApproverEmails is the allowlist of admins who may approve or
	// reject package change requests.
	ApproverEmails []string `yaml:"approver_emails"`
}

// PortalConfig holds settings for the external customer portal.
type PortalConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	SigningSecret  string `yaml:"signing_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// StorageConfig holds database connection settings.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// RedisConfig holds redis connection settings (rate limiting, locks).
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// OutboxConfig holds the outbound delivery worker settings.
type OutboxConfig struct {
	Enabled             bool `yaml:"enabled"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	MaxAttempts         int  `yaml:"max_attempts"`
	BatchSize           int  `yaml:"batch_size"`
}

// EmailConfig holds SES settings for admin notification emails.
type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	// NotifyEmails receive a notification when a new case is opened.
	NotifyEmails []string `yaml:"notify_emails"`
}

// ArchiveConfig holds S3 settings for case transcript archival.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Ingest.MaxBodyBytes == 0 {
		cfg.Ingest.MaxBodyBytes = 1 << 20 // 1MB
	}
	if cfg.Ingest.RatePerMinute == 0 {
		cfg.Ingest.RatePerMinute = 120
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "admin_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 8 * 3600
	}
	if cfg.Portal.TimeoutSeconds == 0 {
		cfg.Portal.TimeoutSeconds = 10
	}
	if cfg.Portal.MaxRetries == 0 {
		cfg.Portal.MaxRetries = 2
	}
	if cfg.Outbox.PollIntervalSeconds == 0 {
		cfg.Outbox.PollIntervalSeconds = 30
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = 5
	}
	if cfg.Outbox.BatchSize == 0 {
		cfg.Outbox.BatchSize = 50
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "eu-north-1"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "eu-north-1"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "transcripts/"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INGEST_WEBHOOK_SECRET"); v != "" {
		cfg.Ingest.WebhookSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("APPROVER_EMAILS"); v != "" {
		cfg.Auth.ApproverEmails = splitAndTrim(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("PORTAL_BASE_URL"); v != "" {
		cfg.Portal.BaseURL = v
	}
	if v := os.Getenv("PORTAL_API_KEY"); v != "" {
		cfg.Portal.APIKey = v
	}
	if v := os.Getenv("PORTAL_SIGNING_SECRET"); v != "" {
		cfg.Portal.SigningSecret = v
	}
	if v := os.Getenv("CASE_NOTIFY_EMAILS"); v != "" {
		cfg.Email.NotifyEmails = splitAndTrim(v)
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
