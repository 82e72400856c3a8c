package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `yaml:"host" env:"DB_HOST"`
	Port               string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User               string `yaml:"user" env:"DB_USER"`
	Password           string `yaml:"password" env:"DB_PASSWORD"`
	Name               string `yaml:"name" env:"DB_NAME"`
	SSLMode            string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns       int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns       int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" env:"DB_CONN_MAX_LIFETIME_SEC" env-default:"300"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

// RedisConfig holds the response cache connection. An empty Addr disables caching.
type RedisConfig struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// AMQPConfig holds the event bus connection. An empty URL disables publishing.
type AMQPConfig struct {
	URL        string        `yaml:"url" env:"AMQP_URL"`
	Exchange   string        `yaml:"exchange" env:"AMQP_EXCHANGE" env-default:"marketapi.events"`
	Retries    int           `yaml:"retries" env:"AMQP_CONNECT_RETRIES" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"AMQP_CONNECT_DELAY" env-default:"2s"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"marketapi"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"1h"`
}

// ProviderConfig holds the server-side credentials and endpoint for one LLM provider.
// APIKey is the fallback used when a user has not stored their own key.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	Model   string `yaml:"model" env:"MODEL"`
}

// ProvidersConfig groups all supported LLM providers.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `yaml:"openai" env-prefix:"OPENAI_"`
	Anthropic  ProviderConfig `yaml:"anthropic" env-prefix:"ANTHROPIC_"`
	Gemini     ProviderConfig `yaml:"gemini" env-prefix:"GEMINI_"`
	Perplexity ProviderConfig `yaml:"perplexity" env-prefix:"PERPLEXITY_"`
	Timeout    time.Duration  `yaml:"timeout" env:"PROVIDER_TIMEOUT" env-default:"60s"`
}

// ResilienceConfig tunes retries, provider rate limits, circuit breakers and caching.
type ResilienceConfig struct {
	RetryMaxAttempts     int           `yaml:"retry_max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" env:"RETRY_INITIAL_INTERVAL" env-default:"500ms"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval" env:"RETRY_MAX_INTERVAL" env-default:"8s"`
	ProviderRPS          float64       `yaml:"provider_rps" env:"PROVIDER_RPS" env-default:"2"`
	ProviderBurst        int           `yaml:"provider_burst" env:"PROVIDER_BURST" env-default:"5"`
	BreakerFailures      uint32        `yaml:"breaker_failures" env:"BREAKER_FAILURES" env-default:"5"`
	BreakerOpenTimeout   time.Duration `yaml:"breaker_open_timeout" env:"BREAKER_OPEN_TIMEOUT" env-default:"30s"`
	CacheTTL             time.Duration `yaml:"cache_ttl" env:"PROVIDER_CACHE_TTL" env-default:"24h"`
}

// RateLimitConfig holds the per-user HTTP rate limit.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"HTTP_RATE_LIMIT_RPS" env-default:"10"`
	Burst int     `yaml:"burst" env:"HTTP_RATE_LIMIT_BURST" env-default:"20"`
}

// TracingConfig holds the OpenTelemetry exporter settings. Exporters also read the
// standard OTEL_EXPORTER_OTLP_* variables themselves.
type TracingConfig struct {
	Disabled   bool    `yaml:"disabled" env:"OTEL_SDK_DISABLED" env-default:"false"`
	Protocol   string  `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc"`
	Endpoint   string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Sampler    string  `yaml:"sampler" env:"OTEL_TRACES_SAMPLER" env-default:"parentbased_traceidratio"`
	SamplerArg float64 `yaml:"sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG" env-default:"1.0"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables and, when CONFIG_PATH is set, a YAML file.
type AppConfig struct {
	Env         string `yaml:"env" env:"APP_ENV" env-default:"development"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME" env-default:"marketapi"`
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// SealingKey is a base64 encoded 32 byte key used to encrypt stored provider API keys.
	SealingKey string `yaml:"sealing_key" env:"API_KEY_SEALING_KEY"`

	Database   DatabaseConfig   `yaml:"database"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Redis      RedisConfig      `yaml:"redis"`
	AMQP       AMQPConfig       `yaml:"amqp"`
	Auth       AuthConfig       `yaml:"auth"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Resilience ResilienceConfig `yaml:"resilience"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// When CONFIG_PATH points at a YAML file it is read first; environment variables still override it.
func Load() (*AppConfig, error) {
	const op = "config.Load"
	var cfg AppConfig

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// Validate reports configuration that would make the service unusable at runtime.
func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.SealingKeyBytes(); err != nil {
		return err
	}
	return nil
}

// SealingKeyBytes decodes the API key sealing key.
func (c *AppConfig) SealingKeyBytes() ([]byte, error) {
	if c.SealingKey == "" {
		return nil, errors.New("API_KEY_SEALING_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.SealingKey)
	if err != nil {
		return nil, fmt.Errorf("API_KEY_SEALING_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("API_KEY_SEALING_KEY: want 32 bytes, got %d", len(key))
	}
	return key, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
