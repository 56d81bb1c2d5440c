// Package config provides configuration loading using koanf.
// Precedence: environment variables over compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/relaygate/relaygate/internal/domain"
)

// Config holds all gateway configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Gateway  GatewayConfig  `koanf:"gateway"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Quota    QuotaConfig    `koanf:"quota"`

	// Infrastructure configurations
	Redis    RedisConfig    `koanf:"redis"`
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	AWS      AWSConfig      `koanf:"aws"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// GatewayConfig holds the HTTP front-end configuration.
type GatewayConfig struct {
	HTTPPort int `koanf:"http_port"`

	// AuthSecret verifies inbound bearer tokens (HS256). Token issuance is
	// owned by the control plane, not this service.
	AuthSecret string `koanf:"auth_secret"`
}

// UpstreamConfig holds the messaging provider connection parameters.
type UpstreamConfig struct {
	// BaseURL is the provider API root, e.g. "https://api.provider.example".
	BaseURL string `koanf:"base_url"`

	// APIKey is the gateway's own provider credential, used for calls not
	// scoped to a tenant instance.
	APIKey string `koanf:"api_key"`

	// CallTimeout bounds every upstream call, including retries.
	CallTimeout time.Duration `koanf:"call_timeout"`

	// Circuit breaker tuning.
	FailureThreshold int           `koanf:"failure_threshold"`
	RecoveryTimeout  time.Duration `koanf:"recovery_timeout"`
}

// QuotaConfig holds the tenant usage plan. Limits are per quota type per
// accounting window; zero disables enforcement for that window.
type QuotaConfig struct {
	Plan map[string]PeriodLimits `koanf:"plan"`
}

// PeriodLimits mirrors domain.PeriodLimits for koanf unmarshalling.
type PeriodLimits struct {
	Hourly  int64 `koanf:"hourly"`
	Daily   int64 `koanf:"daily"`
	Monthly int64 `koanf:"monthly"`
}

// RedisConfig holds Redis configuration for the quota and cache stores.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Required
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// DynamoDBConfig holds DynamoDB configuration for the instance store.
type DynamoDBConfig struct {
	Endpoint       string        `koanf:"endpoint"` // Empty for production (default AWS endpoint)
	InstancesTable string        `koanf:"instances_table"`
	Timeout        time.Duration `koanf:"timeout"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Gateway: GatewayConfig{
			HTTPPort: 8080,
		},
		Upstream: UpstreamConfig{
			BaseURL:          "http://localhost:8088",
			CallTimeout:      domain.UpstreamTimeout,
			FailureThreshold: domain.BreakerFailureThreshold,
			RecoveryTimeout:  domain.BreakerRecoveryTimeout,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		DynamoDB: DynamoDBConfig{
			InstancesTable: "instances",
			Timeout:        domain.DynamoDBTimeout,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
	}
}

// Load loads configuration: environment variables (highest) over compiled
// defaults (lowest). Required keys missing cause startup failure.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	// Load environment variables. Delimiter: _ maps to . for nested config,
	// so UPSTREAM_BASE_URL feeds upstream.base.url etc.
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	// In local environment, every field has a workable default except the
	// auth secret, which is injected by the dev compose file.
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Gateway.AuthSecret == "" {
		return fmt.Errorf("%w: gateway.auth_secret", domain.ErrConfigRequired)
	}
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("%w: upstream.base_url", domain.ErrConfigRequired)
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
	}
	if cfg.DynamoDB.InstancesTable == "" {
		return fmt.Errorf("%w: dynamodb.instances_table", domain.ErrConfigRequired)
	}

	return nil
}

// QuotaPlan converts the configured plan into domain form, falling back to
// the compiled default plan when no plan is configured.
func (c *Config) QuotaPlan() domain.Plan {
	if len(c.Quota.Plan) == 0 {
		return domain.DefaultPlan()
	}
	plan := make(domain.Plan, len(c.Quota.Plan))
	for qt, l := range c.Quota.Plan {
		plan[domain.QuotaType(qt)] = domain.PeriodLimits{
			Hourly:  l.Hourly,
			Daily:   l.Daily,
			Monthly: l.Monthly,
		}
	}
	return plan
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
