package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"8080"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","` // CORS allowed origins
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-Ip.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	Verification VerificationConfig `envPrefix:"VERIFICATION_"`
	TokenService ServiceEndpoint    `envPrefix:"TOKEN_SERVICE_"`
	UserService  ServiceEndpoint    `envPrefix:"USER_SERVICE_"`
	SMTP         SMTPConfig         `envPrefix:"SMTP_"`
	Dispatch     DispatchConfig     `envPrefix:"DISPATCH_"`
	AWS          AWSConfig          `envPrefix:"AWS_"`
	DynamoTables DynamoTables       `envPrefix:"DYNAMO_TABLE_"`
	SNS          SNSConfig          `envPrefix:"SNS_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
}

// VerificationConfig controls the link embedded in verification emails.
// The link is BaseURL + VerifyPath + "?token=" + token.
type VerificationConfig struct {
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	VerifyPath string `env:"VERIFY_PATH" envDefault:"/api/emails/verify-email"`
	Subject    string `env:"SUBJECT" envDefault:"Email Verification"`
}

// ServiceEndpoint locates a downstream REST collaborator.
type ServiceEndpoint struct {
	URL     string        `env:"URL" envDefault:"http://localhost:8081"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type SMTPConfig struct {
	Host       string        `env:"HOST" envDefault:"localhost"`
	Port       int           `env:"PORT" envDefault:"1025"`
	From       string        `env:"FROM" envDefault:"noreply@example.com"`
	Username   string        `env:"USERNAME"`
	Password   string        `env:"PASSWORD"`
	Encryption string        `env:"ENCRYPTION" envDefault:"none"` // none | starttls | tls | ssl
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type DispatchConfig struct {
	Workers int64         `env:"WORKERS" envDefault:"8"`
	LogTTL  time.Duration `env:"LOG_TTL" envDefault:"720h"`
}

type AWSConfig struct {
	Region          string `env:"REGION" envDefault:"us-east-1"`
	EndpointURL     string `env:"ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// DynamoTables holds the DynamoDB table name for each entity.
// An empty name disables the feature backed by that table.
type DynamoTables struct {
	Dispatches string `env:"DISPATCHES"`
}

type SNSConfig struct {
	ReconciliationTopicARN string `env:"RECONCILIATION_TOPIC_ARN"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RPS" envDefault:"5"`
	Burst int     `env:"BURST" envDefault:"10"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Dispatch.Workers < 1 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be positive, got %d", cfg.Dispatch.Workers)
	}
	return &cfg, nil
}
