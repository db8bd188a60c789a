package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	PublicAddr     string `env:"PUBLIC_ADDR" envDefault:":8080"`
	AdminAddr      string `env:"ADMIN_ADDR" envDefault:":9091"`
	PostgresURL    string `env:"POSTGRES_URL,required"`
	RedisURL       string `env:"REDIS_URL"` // optional; rate limiting fails open when unset
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Tenant resolution.
	ApexDomain         string        `env:"APEX_DOMAIN" envDefault:"promogate.app"`
	ReservedSubdomains string        `env:"RESERVED_SUBDOMAINS" envDefault:"www,admin,api"`
	TenantCacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
	StaffKeyCacheTTL   time.Duration `env:"STAFF_KEY_CACHE_TTL" envDefault:"5m"`

	// Rate limit policies (fixed windows).
	PublicRateLimit  int           `env:"PUBLIC_RATE_LIMIT" envDefault:"60"`
	PublicRateWindow time.Duration `env:"PUBLIC_RATE_WINDOW" envDefault:"1m"`
	IssueRateLimit   int           `env:"ISSUE_RATE_LIMIT" envDefault:"5"`
	IssueRateWindow  time.Duration `env:"ISSUE_RATE_WINDOW" envDefault:"10m"`

	// Issued codes.
	CodeLength   int           `env:"CODE_LENGTH" envDefault:"10"`
	GrantTTL     time.Duration `env:"GRANT_TTL" envDefault:"720h"` // default grant expiry when the offer has none
	MaxUploadMiB int64         `env:"MAX_UPLOAD_MIB" envDefault:"2"`

	// Object storage for logos and offer images (optional).
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3BaseURL   string `env:"S3_BASE_URL"`

	// Best-effort email delivery (optional).
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"coupons@promogate.app"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Reserved returns the reserved subdomain labels as a slice.
func (c *Config) Reserved() []string {
	parts := strings.Split(c.ReservedSubdomains, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
